package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"freshscan/internal/model"
)

// PassRepository implements repository.PassRepository for SQLite.
type PassRepository struct {
	db *DB
}

// NewPassRepository creates a new SQLite pass repository.
func NewPassRepository(db *DB) *PassRepository {
	return &PassRepository{db: db}
}

const passColumns = `p.id, p.pass_id, p.session_id, p.mode, p.image_width, p.image_height,
	p.threshold, p.total, p.above_threshold, p.failures, p.created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPass(row rowScanner) (*model.PassRecord, error) {
	var p model.PassRecord
	err := row.Scan(&p.ID, &p.PassID, &p.SessionID, &p.Mode, &p.ImageWidth, &p.ImageHeight,
		&p.Threshold, &p.Total, &p.AboveThreshold, &p.Failures, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert stores a pass together with its predictions in a single transaction.
func (r *PassRepository) Insert(pass *model.PassRecord, predictions []model.PredictionRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO passes (pass_id, session_id, mode, image_width, image_height, threshold, total, above_threshold, failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pass.PassID, pass.SessionID, pass.Mode, pass.ImageWidth, pass.ImageHeight,
		pass.Threshold, pass.Total, pass.AboveThreshold, pass.Failures, pass.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pass: %w", err)
	}

	passRowID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO predictions (pass_row_id, position, label, confidence, x1, y1, x2, y2, has_box, padded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range predictions {
		if _, err := stmt.Exec(passRowID, p.Position, p.Label, p.Confidence,
			p.X1, p.Y1, p.X2, p.Y2, p.HasBox, p.Padded); err != nil {
			return 0, fmt.Errorf("failed to insert prediction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit pass: %w", err)
	}
	return passRowID, nil
}

// GetByID retrieves a pass by its row ID.
func (r *PassRepository) GetByID(id int64) (*model.PassRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	p, err := scanPass(r.db.Conn().QueryRow(`SELECT `+passColumns+` FROM passes p WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}
	return p, nil
}

// GetByPassID retrieves a pass by its public pass identifier.
func (r *PassRepository) GetByPassID(passID string) (*model.PassRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	p, err := scanPass(r.db.Conn().QueryRow(`SELECT `+passColumns+` FROM passes p WHERE p.pass_id = ?`, passID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}
	return p, nil
}

// filterClause builds the WHERE conditions shared by GetAll and GetTotalCount.
func filterClause(filter *model.PassFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	args := []interface{}{}

	if filter == nil {
		return sb.String(), args
	}

	if filter.SessionID != "" {
		sb.WriteString(" AND p.session_id = ?")
		args = append(args, filter.SessionID)
	}

	if filter.Label != "" {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM predictions d WHERE d.pass_row_id = p.id AND d.label = ?)")
		args = append(args, filter.Label)
	}

	if !filter.StartDate.IsZero() {
		sb.WriteString(" AND DATE(p.created_at) >= DATE(?)")
		args = append(args, filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		sb.WriteString(" AND DATE(p.created_at) <= DATE(?)")
		args = append(args, filter.EndDate)
	}

	return sb.String(), args
}

// GetAll retrieves passes based on filter criteria, newest first.
func (r *PassRepository) GetAll(filter *model.PassFilter) ([]model.PassRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + passColumns + ` FROM passes p` + where + ` ORDER BY p.created_at DESC, p.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []model.PassRecord
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, *p)
	}

	return passes, rows.Err()
}

// GetTotalCount returns the number of passes matching the filter.
func (r *PassRepository) GetTotalCount(filter *model.PassFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM passes p`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passes: %w", err)
	}
	return count, nil
}

// GetStats returns aggregate statistics over all stored passes.
func (r *PassRepository) GetStats() (*model.PassStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.PassStats{
		LabelCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM passes`).Scan(&stats.TotalPasses); err != nil {
		return nil, err
	}

	// Padded duplicates are not counted as separate items
	rows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) AS cnt
		FROM predictions
		WHERE padded = 0
		GROUP BY label
		ORDER BY cnt DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.LabelCounts[label] = count
		stats.TotalPredictions += count

		switch {
		case strings.HasPrefix(label, "Fresh"):
			stats.FreshCount += count
		case strings.HasPrefix(label, "Rotten"):
			stats.RottenCount += count
		}
	}

	return stats, rows.Err()
}

// Delete removes a pass and its predictions.
func (r *PassRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM predictions WHERE pass_row_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM passes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}
	return nil
}

// DeleteAll removes all passes and their predictions.
func (r *PassRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM passes`); err != nil {
		return fmt.Errorf("failed to delete passes: %w", err)
	}

	return nil
}
