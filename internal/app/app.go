package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/repository/sqlite"
	"freshscan/internal/route"
	"freshscan/internal/service"
	"freshscan/internal/service/ai"
	"freshscan/internal/service/inference"
	"freshscan/internal/service/pipeline"
	"freshscan/internal/service/recipe"
	"freshscan/internal/service/session"
	"freshscan/internal/service/storage"
	"freshscan/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

type App struct {
	config         *config.Config
	logger         *logger.Logger
	db             *sqlite.DB
	passRepo       *sqlite.PassRepository
	predictionRepo *sqlite.PredictionRepository
	hubService     *websocket.HubService
	manager        *service.Manager
	closers        []func() error
}

// NewApp loads configuration and builds every service.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	a := &App{config: cfg, logger: log}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.passRepo = sqlite.NewPassRepository(db)
	a.predictionRepo = sqlite.NewPredictionRepository(db)

	classifier, err := a.newClassifier()
	if err != nil {
		db.Close()
		return nil, err
	}

	// Detektor jest opcjonalny; bez niego działa tylko tryb kafelkowy
	var detector pipeline.Detector
	if d := ai.NewDetector(cfg, log); d.Ready() {
		detector = d
		a.closers = append(a.closers, d.Close)
	}

	recipes, err := recipe.NewClient(cfg.RecipeBaseURL, cfg.RecipeAPIKey, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		db.Close()
		return nil, err
	}
	if cfg.RecipeAPIKey == "" {
		log.Warning("RECIPE_API_KEY not set - recipe lookups will fail")
	}

	// Tylko zdalny klasyfikator ma endpoint /health
	inferenceHealth, _ := classifier.(service.HealthChecker)

	a.hubService = websocket.NewHubService(log)
	a.manager = service.NewManager(service.Services{
		Store:     session.NewStore(),
		Pipeline:  pipeline.New(classifier, detector, cfg.InputSize, log),
		Patches:   storage.NewPatchService(cfg, log),
		Annotator: ai.NewAnnotator(),
		PassRepo:  a.passRepo,
		Hub:       a.hubService,
		Recipes:   recipes,
		Inference: inferenceHealth,
	}, cfg, log)

	return a, nil
}

// newClassifier picks the remote classifier when INFERENCE_URL is set and the
// local OpenCV network otherwise.
func (a *App) newClassifier() (pipeline.Classifier, error) {
	if a.config.InferenceURL != "" {
		client, err := inference.NewClient(a.config.InferenceURL, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("inference client: %w", err)
		}
		a.logger.Info("Using remote classifier at %s", a.config.InferenceURL)
		return client, nil
	}

	labels, err := config.LoadLabels(a.config.LabelsPath)
	if err != nil {
		return nil, err
	}

	c := ai.NewClassifier(a.config, labels, a.logger)
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// Run serves HTTP and the live feed until SIGINT/SIGTERM or a fatal error.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	router := route.SetupRoutes(a.manager, a.config, a.logger, a.passRepo, a.predictionRepo)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("🚀 Freshscan server on http://localhost:%d (%s)", a.config.Port, a.config.Environment)
	a.logger.Info("📁 Patches: %s, 🗄️ Database: %s", a.config.PatchDirectory, a.config.DatabasePath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hubService.Run(ctx)
	})

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Error("Close failed: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Database close failed: %v", err)
	}
	a.logger.Close()
}
