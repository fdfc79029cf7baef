package route

import (
	"net/http"

	"freshscan/internal/config"
	"freshscan/internal/handler"
	"freshscan/internal/logger"
	"freshscan/internal/middleware"
	"freshscan/internal/repository"
	"freshscan/internal/service"
)

// SetupRoutes registers the API endpoints and wraps the mux with the CORS and
// session middleware. Log and history-clearing endpoints require the admin token.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	passRepo repository.PassRepository, predictionRepo repository.PredictionRepository) http.Handler {
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AdminMiddleware(cfg.AdminToken, h)
	}

	// Detection endpoints
	mux.HandleFunc("POST /upload/", handler.UploadHandler(manager, cfg, logger))
	mux.HandleFunc("GET /display/", handler.DisplayHandler(manager, logger))
	mux.HandleFunc("GET /predict/", handler.PredictHandler(manager, logger))
	mux.HandleFunc("GET /predict_many/", handler.PredictManyHandler(manager, cfg, logger))
	mux.HandleFunc("GET /visualize/", handler.VisualizeHandler(manager, cfg, logger))
	mux.HandleFunc("GET /summary/", handler.SummaryHandler(manager, logger))
	mux.HandleFunc("DELETE /reset/", handler.ResetHandler(manager, logger))
	mux.HandleFunc("GET /health/", handler.HealthHandler(manager, cfg, logger))

	// API endpoints
	mux.HandleFunc("GET /api/patches/view", handler.ViewPatchHandler(manager, logger))
	mux.HandleFunc("GET /api/recipes/", handler.RecipesHandler(manager, logger))
	mux.HandleFunc("GET /api/live", handler.LiveWebsocketHandler(manager, logger))

	if passRepo != nil && predictionRepo != nil {
		mux.HandleFunc("GET /api/history", handler.GetHistoryHandler(logger, passRepo, predictionRepo))
		mux.HandleFunc("GET /api/history/stats", handler.HistoryStatsHandler(logger, passRepo))
		mux.Handle("DELETE /api/history", admin(handler.ClearHistoryHandler(logger, passRepo)))
	}

	// Log endpoints
	for _, name := range handler.LogFiles {
		mux.Handle("GET /logs/"+name, admin(handler.ShowLogsHandler(cfg, name)))
		mux.Handle("POST /logs/"+name+"/clear", admin(handler.ClearLogsHandler(logger, name)))
	}

	mux.HandleFunc("GET /{$}", handler.IndexHandler(logger))

	// Apply middleware
	return middleware.CORSMiddleware(cfg.AllowedOrigins(),
		middleware.SessionMiddleware(cfg.Environment == "production", mux))
}
