package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/repository"
	"freshscan/internal/service/pipeline"
	"freshscan/internal/service/recipe"
	"freshscan/internal/service/session"
	"freshscan/internal/service/storage"
	"freshscan/internal/service/websocket"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Annotator draws predictions onto an image and returns PNG bytes.
type Annotator interface {
	Annotate(img image.Image, predictions []model.Prediction) ([]byte, error)
}

// RecipeFinder looks up recipes for ingredient names.
type RecipeFinder interface {
	FindByIngredients(ctx context.Context, ingredients []string, number int) (json.RawMessage, error)
}

// HealthChecker checks a remote dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Services groups the collaborators of a Manager. Annotator, PassRepo, Hub,
// Recipes and Inference are optional.
type Services struct {
	Store     *session.Store
	Pipeline  *pipeline.Pipeline
	Patches   *storage.PatchService
	Annotator Annotator
	PassRepo  repository.PassRepository
	Hub       *websocket.HubService
	Recipes   RecipeFinder
	Inference HealthChecker
}

// Manager coordinates sessions, detection passes, history and the live feed
// on behalf of the HTTP handlers.
type Manager struct {
	svc               Services
	defaultMaxPatches int
	maxPatchesLimit   int
	logger            *logger.Logger
}

// DefaultMaxPatchesLimit caps max_patches when the configuration leaves it unset.
const DefaultMaxPatchesLimit = 64

func NewManager(services Services, config *config.Config, logger *logger.Logger) *Manager {
	limit := config.MaxPatchesLimit
	if limit <= 0 {
		limit = DefaultMaxPatchesLimit
	}
	return &Manager{
		svc:               services,
		defaultMaxPatches: config.DefaultMaxPatches,
		maxPatchesLimit:   limit,
		logger:            logger,
	}
}

// Upload decodes an uploaded image and makes it the session's current image.
// Previous detections and patch files of the session are discarded.
func (m *Manager) Upload(sessionID, filename, contentType string, data []byte) (image.Image, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", model.ErrInvalidImage, contentType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", model.ErrInvalidImage)
	}

	// Obraz do wyświetlenia zawsze jako PNG
	var display bytes.Buffer
	if err := png.Encode(&display, img); err != nil {
		return nil, fmt.Errorf("encode display image: %w", err)
	}

	m.svc.Store.Upload(sessionID, img, display.Bytes())
	if err := m.svc.Patches.Clear(sessionID); err != nil {
		m.logger.Warning("Failed to clear patches of session %s: %v", sessionID, err)
	}

	b := img.Bounds()
	m.logger.Info("Session %s: uploaded %s (%s, %dx%d)", sessionID, filename, format, b.Dx(), b.Dy())
	return img, nil
}

// Display returns the PNG rendition of the session's upload.
func (m *Manager) Display(sessionID string) ([]byte, error) {
	snap := m.svc.Store.Snapshot(sessionID)
	if snap.State == session.Empty {
		return nil, model.ErrNoImageLoaded
	}
	return snap.Display, nil
}

// RunPass runs a detection pass in the given mode and stores the result in the
// session. Completed passes are recorded in the history and broadcast to viewers.
func (m *Manager) RunPass(ctx context.Context, sessionID string, threshold float64, maxPatches int, mode string) (*model.DetectionSet, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", model.ErrInvalidParameter, threshold)
	}
	if maxPatches > m.maxPatchesLimit {
		return nil, fmt.Errorf("%w: max_patches %d above limit %d", model.ErrInvalidParameter, maxPatches, m.maxPatchesLimit)
	}

	img, generation, err := m.svc.Store.Image(sessionID)
	if err != nil {
		return nil, err
	}

	if err := m.svc.Patches.Clear(sessionID); err != nil {
		m.logger.Warning("Failed to clear patches of session %s: %v", sessionID, err)
	}
	sink := m.svc.Patches.Sink(sessionID)

	var set *model.DetectionSet
	switch mode {
	case "", model.ModeTiles:
		set, err = m.svc.Pipeline.Run(ctx, img, threshold, maxPatches, pipeline.WithPatchSink(sink))
	case model.ModeDetector:
		if !m.svc.Pipeline.HasDetector() {
			return nil, model.ErrDetectorUnavailable
		}
		set, err = m.svc.Pipeline.RunDetector(ctx, img, threshold, maxPatches, pipeline.WithPatchSink(sink))
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", model.ErrInvalidParameter, mode)
	}
	if err != nil {
		return nil, err
	}

	if err := m.svc.Store.SetDetections(sessionID, generation, set); err != nil {
		// Obraz zmienił się w trakcie przejścia, łatki są już nieaktualne
		if derr := sink.Discard(); derr != nil {
			m.logger.Warning("Failed to discard stale patches of session %s: %v", sessionID, derr)
		}
		return nil, err
	}

	m.record(sessionID, img, set)
	m.broadcast(sessionID, set)
	return set, nil
}

// record stores the pass in the history. Failures are logged only.
func (m *Manager) record(sessionID string, img image.Image, set *model.DetectionSet) {
	if m.svc.PassRepo == nil {
		return
	}

	b := img.Bounds()
	pass, predictions := NewPassRecord(sessionID, b.Dx(), b.Dy(), set)
	if _, err := m.svc.PassRepo.Insert(pass, predictions); err != nil {
		m.logger.Error("Failed to record pass %s: %v", set.PassID, err)
	}
}

func (m *Manager) broadcast(sessionID string, set *model.DetectionSet) {
	if m.svc.Hub == nil {
		return
	}
	if err := m.svc.Hub.BroadcastPass(websocket.NewPassEvent(sessionID, set)); err != nil {
		m.logger.Error("Failed to broadcast pass %s: %v", set.PassID, err)
	}
}

// NewPassRecord converts a detection set into history rows.
func NewPassRecord(sessionID string, width, height int, set *model.DetectionSet) (*model.PassRecord, []model.PredictionRecord) {
	pass := &model.PassRecord{
		PassID:         set.PassID,
		SessionID:      sessionID,
		Mode:           set.Mode,
		ImageWidth:     width,
		ImageHeight:    height,
		Threshold:      set.Threshold,
		Total:          set.Total,
		AboveThreshold: set.AboveThreshold,
		Failures:       set.Failures,
		CreatedAt:      set.CreatedAt,
	}
	if pass.CreatedAt.IsZero() {
		pass.CreatedAt = time.Now()
	}

	predictions := make([]model.PredictionRecord, 0, len(set.Predictions))
	for i, p := range set.Predictions {
		rec := model.PredictionRecord{
			Position:   i,
			Label:      p.Label,
			Confidence: p.Confidence,
			Padded:     p.Padded,
		}
		if p.BBox != nil {
			rec.X1, rec.Y1, rec.X2, rec.Y2 = p.BBox.X1, p.BBox.Y1, p.BBox.X2, p.BBox.Y2
			rec.HasBox = true
		}
		predictions = append(predictions, rec)
	}
	return pass, predictions
}

// Predict classifies the whole session image.
func (m *Manager) Predict(ctx context.Context, sessionID string) (model.Classification, error) {
	img, _, err := m.svc.Store.Image(sessionID)
	if err != nil {
		return model.Classification{}, err
	}
	return m.svc.Pipeline.Predict(ctx, img)
}

// Visualize renders the session's detections on its image. Without detections
// a tiled pass is run first.
func (m *Manager) Visualize(ctx context.Context, sessionID string, threshold float64) ([]byte, error) {
	if m.svc.Annotator == nil {
		return nil, fmt.Errorf("annotation is not available")
	}

	snap := m.svc.Store.Snapshot(sessionID)
	if snap.State == session.Empty {
		return nil, model.ErrNoImageLoaded
	}

	set := snap.Detections
	if set == nil {
		var err error
		set, err = m.RunPass(ctx, sessionID, threshold, m.defaultMaxPatches, model.ModeTiles)
		if err != nil {
			return nil, err
		}
	}

	return m.svc.Annotator.Annotate(snap.Image, set.Predictions)
}

// Summary groups the session's latest detections by freshness.
func (m *Manager) Summary(sessionID string) (model.Summary, error) {
	set, err := m.svc.Store.Detections(sessionID)
	if err != nil {
		return model.Summary{}, err
	}
	return pipeline.Summarize(set), nil
}

// Recipes looks up recipes for ingredients, defaulting to the fresh items of
// the session's latest detections.
func (m *Manager) Recipes(ctx context.Context, sessionID string, ingredients []string, number int) (json.RawMessage, error) {
	if m.svc.Recipes == nil {
		return nil, recipe.ErrNotConfigured
	}

	if len(ingredients) == 0 {
		summary, err := m.Summary(sessionID)
		if err != nil {
			return nil, err
		}
		ingredients = summary.Ingredients
	}

	return m.svc.Recipes.FindByIngredients(ctx, ingredients, number)
}

// PatchPath resolves a stored patch of the session.
func (m *Manager) PatchPath(sessionID, patchID string) (string, error) {
	return m.svc.Patches.Path(sessionID, patchID)
}

// Reset clears the session and its patch files.
func (m *Manager) Reset(sessionID string) {
	m.svc.Store.Reset(sessionID)
	if err := m.svc.Patches.Clear(sessionID); err != nil {
		m.logger.Warning("Failed to clear patches of session %s: %v", sessionID, err)
	}
	m.logger.Info("Session %s reset", sessionID)
}

// DefaultMaxPatches is the patch limit used when a request gives none.
func (m *Manager) DefaultMaxPatches() int {
	return m.defaultMaxPatches
}

// Store returns the session store.
func (m *Manager) Store() *session.Store {
	return m.svc.Store
}

// Hub returns the live feed hub, nil when disabled.
func (m *Manager) Hub() *websocket.HubService {
	return m.svc.Hub
}

// Patches returns the patch storage.
func (m *Manager) Patches() *storage.PatchService {
	return m.svc.Patches
}

// HasDetector reports whether the detector mode can run.
func (m *Manager) HasDetector() bool {
	return m.svc.Pipeline.HasDetector()
}

// InferenceHealth checks the remote classifier. configured is false when the
// service classifies locally.
func (m *Manager) InferenceHealth(ctx context.Context) (configured bool, err error) {
	if m.svc.Inference == nil {
		return false, nil
	}
	return true, m.svc.Inference.CheckHealth(ctx)
}
