package handler

import (
	"net/http"

	"freshscan/internal/logger"
)

// IndexHandler lists the service endpoints.
func IndexHandler(logger *logger.Logger) http.HandlerFunc {
	endpoints := map[string]string{
		"upload":           "/upload/",
		"display":          "/display/",
		"predict_single":   "/predict/",
		"predict_multiple": "/predict_many/",
		"visualize":        "/visualize/",
		"summary":          "/summary/",
		"reset":            "/reset/",
		"health":           "/health/",
		"patches":          "/api/patches/view",
		"recipes":          "/api/recipes/",
		"history":          "/api/history",
		"live":             "/api/live",
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"message":   "running",
			"status":    "healthy",
			"endpoints": endpoints,
		})
	}
}
