package ai

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/model"

	"gocv.io/x/gocv"
)

// Classifier labels produce patches with an OpenCV DNN network.
type Classifier struct {
	net       gocv.Net
	ready     bool
	labels    []string
	inputSize int
	mu        sync.Mutex // gocv.Net nie jest bezpieczny dla wielu wątków
	logger    *logger.Logger
}

// NewClassifier loads the classification network. A load failure is logged and
// every later Classify call returns an error.
func NewClassifier(cfg *config.Config, labels []string, logger *logger.Logger) *Classifier {
	c := &Classifier{
		labels:    labels,
		inputSize: cfg.InputSize,
		logger:    logger,
	}

	net, err := loadNet(cfg.ClassifierModelPath, cfg.ClassifierConfigPath)
	if err != nil {
		logger.Warning("Could not initialize classification network: %v", err)
		return c
	}

	c.net = net
	c.ready = true
	logger.Info("Classification network initialized (%d classes, %dx%d input)", len(labels), c.inputSize, c.inputSize)
	return c
}

// Ready reports whether the network was loaded.
func (c *Classifier) Ready() bool {
	return c.ready
}

// Classify returns the most probable class of patch together with the runner-up.
func (c *Classifier) Classify(ctx context.Context, patch image.Image) (model.Classification, error) {
	if !c.ready {
		return model.Classification{}, fmt.Errorf("classification network not initialized")
	}
	if err := ctx.Err(); err != nil {
		return model.Classification{}, err
	}

	mat, err := gocv.ImageToMatRGB(patch)
	if err != nil {
		return model.Classification{}, fmt.Errorf("failed to convert patch: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return model.Classification{}, fmt.Errorf("patch is empty")
	}

	// Wartości pikseli w [0,1], kolejność kanałów RGB
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(c.inputSize, c.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	scores, err := output.DataPtrFloat32()
	if err != nil {
		return model.Classification{}, fmt.Errorf("failed to read network output: %w", err)
	}

	return topTwo(normalize(scores), c.labels)
}

// Close releases the network.
func (c *Classifier) Close() error {
	if !c.ready {
		return nil
	}
	c.ready = false
	return c.net.Close()
}

// normalize applies softmax when the output is not already a probability vector.
func normalize(scores []float32) []float64 {
	probs := make([]float64, len(scores))
	sum := 0.0
	inRange := true
	for i, s := range scores {
		probs[i] = float64(s)
		sum += probs[i]
		if s < 0 || s > 1 {
			inRange = false
		}
	}
	if inRange && math.Abs(sum-1) < 1e-3 {
		return probs
	}

	maxScore := math.Inf(-1)
	for _, p := range probs {
		maxScore = math.Max(maxScore, p)
	}
	sum = 0
	for i, p := range probs {
		probs[i] = math.Exp(p - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func topTwo(probs []float64, labels []string) (model.Classification, error) {
	if len(probs) == 0 {
		return model.Classification{}, fmt.Errorf("empty network output")
	}
	if len(probs) != len(labels) {
		return model.Classification{}, fmt.Errorf("network returned %d scores for %d labels", len(probs), len(labels))
	}

	best, second := 0, -1
	for i := 1; i < len(probs); i++ {
		switch {
		case probs[i] > probs[best]:
			second = best
			best = i
		case second < 0 || probs[i] > probs[second]:
			second = i
		}
	}

	cls := model.Classification{Label: labels[best], Confidence: probs[best]}
	if second >= 0 {
		cls.RunnerUp = &model.Classification{Label: labels[second], Confidence: probs[second]}
	}
	return cls, nil
}
