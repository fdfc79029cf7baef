package sqlite

import (
	"fmt"

	"freshscan/internal/model"
)

// PredictionRepository implements repository.PredictionRepository for SQLite.
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new SQLite prediction repository.
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// GetByPassRowID retrieves all predictions of a pass in their original order.
func (r *PredictionRepository) GetByPassRowID(passRowID int64) ([]model.PredictionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, pass_row_id, position, label, confidence, x1, y1, x2, y2, has_box, padded
		FROM predictions WHERE pass_row_id = ?
		ORDER BY position
	`, passRowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []model.PredictionRecord
	for rows.Next() {
		var p model.PredictionRecord
		if err := rows.Scan(&p.ID, &p.PassRowID, &p.Position, &p.Label, &p.Confidence,
			&p.X1, &p.Y1, &p.X2, &p.Y2, &p.HasBox, &p.Padded); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

// GetLabelsByPassRowID returns the distinct labels of a pass.
func (r *PredictionRepository) GetLabelsByPassRowID(passRowID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryLabels(`SELECT DISTINCT label FROM predictions WHERE pass_row_id = ? ORDER BY label`, passRowID)
}

// GetAllLabels returns every label ever predicted.
func (r *PredictionRepository) GetAllLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryLabels(`SELECT DISTINCT label FROM predictions ORDER BY label`)
}

func (r *PredictionRepository) queryLabels(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
