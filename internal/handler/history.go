package handler

import (
	"net/http"
	"strconv"
	"time"

	"freshscan/internal/dto"
	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/repository"
	"freshscan/internal/service/session"
)

// GetHistoryHandler returns a filtered, paginated list of detection passes.
// Query: page, limit, label, dateAfter, dateBefore, mine=true (caller's session only).
func GetHistoryHandler(logger *logger.Logger, passRepo repository.PassRepository,
	predictionRepo repository.PredictionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.PassFilter{
			Label:     q.Get("label"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}
		if mine, _ := strconv.ParseBool(q.Get("mine")); mine {
			filter.SessionID = session.IDFromContext(r.Context())
		}

		passes, err := passRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying passes from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := passRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting passes: %v", err)
			totalCount = len(passes)
		}

		infos := make([]dto.PassInfo, 0, len(passes))
		for _, p := range passes {
			labels, err := predictionRepo.GetLabelsByPassRowID(p.ID)
			if err != nil {
				logger.Error("Error getting labels for pass %d: %v", p.ID, err)
			}
			if labels == nil {
				labels = []string{}
			}

			infos = append(infos, dto.PassInfo{
				PassID:         p.PassID,
				Session:        p.SessionID,
				Mode:           p.Mode,
				Date:           p.CreatedAt,
				Threshold:      p.Threshold,
				Total:          p.Total,
				AboveThreshold: p.AboveThreshold,
				Failures:       p.Failures,
				Labels:         labels,
			})
		}

		writeJSON(w, logger, http.StatusOK, dto.HistoryData{
			Passes:      infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// HistoryStatsHandler returns label counts over the whole history.
func HistoryStatsHandler(logger *logger.Logger, passRepo repository.PassRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := passRepo.GetStats()
		if err != nil {
			logger.Error("Error computing history stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// ClearHistoryHandler removes all passes from the database.
func ClearHistoryHandler(logger *logger.Logger, passRepo repository.PassRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := passRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing history: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Detection history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
