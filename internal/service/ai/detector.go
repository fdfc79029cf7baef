package ai

import (
	"context"
	"fmt"
	"image"
	"sync"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/service/pipeline"

	"gocv.io/x/gocv"
)

// Detector proposes object regions with an SSD network.
type Detector struct {
	net    gocv.Net
	ready  bool
	mu     sync.Mutex
	logger *logger.Logger
}

// NewDetector loads the SSD network. A load failure is logged; callers check Ready.
func NewDetector(cfg *config.Config, logger *logger.Logger) *Detector {
	d := &Detector{logger: logger}

	net, err := loadNet(cfg.DetectorModelPath, cfg.DetectorConfigPath)
	if err != nil {
		logger.Warning("Could not initialize detection network: %v", err)
		return d
	}

	d.net = net
	d.ready = true
	logger.Info("Detection network initialized successfully")
	return d
}

// Ready reports whether the network was loaded.
func (d *Detector) Ready() bool {
	return d.ready
}

// Detect runs the SSD network over img and returns every proposal with its score.
// Boxes are in source-image pixels; filtering by score is left to the caller.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]pipeline.ScoredBox, error) {
	if !d.ready {
		return nil, fmt.Errorf("detection network not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("image is empty")
	}

	// Parametry wejścia sieci SSD COCO
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	cols := float32(mat.Cols())
	rows := float32(mat.Rows())

	// Wiersze wyjścia: [ batch_id, class_id, confidence, x1, y1, x2, y2 ]
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()

	var proposals []pipeline.ScoredBox
	for i := 0; i < reshaped.Rows(); i++ {
		score := reshaped.GetFloatAt(i, 2)
		if score <= 0 {
			continue
		}
		box := model.Box{
			X1: int(reshaped.GetFloatAt(i, 3) * cols),
			Y1: int(reshaped.GetFloatAt(i, 4) * rows),
			X2: int(reshaped.GetFloatAt(i, 5) * cols),
			Y2: int(reshaped.GetFloatAt(i, 6) * rows),
		}
		proposals = append(proposals, pipeline.ScoredBox{Box: box, Score: float64(score)})
	}

	d.logger.Info("Detector proposed %d regions", len(proposals))
	return proposals, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	if !d.ready {
		return nil
	}
	d.ready = false
	return d.net.Close()
}
