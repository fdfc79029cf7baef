// Package pipeline runs detection passes: patch generation, per-patch
// classification and aggregation into a bounded detection set.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/service/patch"

	"github.com/google/uuid"
)

// Classifier labels a square patch that has already been resized to the input size.
type Classifier interface {
	Classify(ctx context.Context, patch image.Image) (model.Classification, error)
}

// Detector proposes scored regions over a whole image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]ScoredBox, error)
}

// ScoredBox is a detector proposal.
type ScoredBox struct {
	Box   model.Box
	Score float64
}

// PatchSink persists patch pixels and returns an identifier for later retrieval.
type PatchSink interface {
	SavePatch(patch image.Image) (string, error)
}

// PatchResult is the outcome of classifying one patch.
type PatchResult struct {
	Index          int
	Box            model.Box
	PatchID        string
	Classification model.Classification
	Err            error
}

// OK reports whether the patch was classified.
func (r PatchResult) OK() bool {
	return r.Err == nil
}

type runOptions struct {
	sink PatchSink
}

// Option configures a single pass.
type Option func(*runOptions)

// WithPatchSink stores every classified patch through sink.
func WithPatchSink(sink PatchSink) Option {
	return func(o *runOptions) {
		o.sink = sink
	}
}

// Pipeline runs detection passes with one classifier. Patches are classified
// sequentially.
type Pipeline struct {
	classifier Classifier
	detector   Detector
	inputSize  int
	logger     *logger.Logger
}

// New creates a pipeline. detector may be nil when the two-stage mode is unavailable.
func New(classifier Classifier, detector Detector, inputSize int, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		detector:   detector,
		inputSize:  inputSize,
		logger:     logger,
	}
}

// HasDetector reports whether the two-stage mode can run.
func (p *Pipeline) HasDetector() bool {
	return p.detector != nil
}

// Run tiles img, classifies up to maxPatches patches and aggregates them.
func (p *Pipeline) Run(ctx context.Context, img image.Image, threshold float64, maxPatches int, opts ...Option) (*model.DetectionSet, error) {
	if img == nil {
		return nil, model.ErrNoImageLoaded
	}
	o := collectOptions(opts)

	b := img.Bounds()
	boxes := patch.Generate(b.Dx(), b.Dy(), maxPatches)

	results, err := p.classifyBoxes(ctx, img, boxes, o)
	if err != nil {
		return nil, err
	}

	set := Aggregate(results, threshold, maxPatches, true)
	set.Mode = model.ModeTiles
	p.logger.Info("Tiled pass %s: %d patches, %d predictions, %d above %.2f, %d failed",
		set.PassID, len(boxes), set.Total, set.AboveThreshold, threshold, set.Failures)
	return set, nil
}

// RunDetector proposes regions with the detector, keeps those scoring at least
// threshold, and classifies up to maxPatches of them. No padding is applied.
func (p *Pipeline) RunDetector(ctx context.Context, img image.Image, threshold float64, maxPatches int, opts ...Option) (*model.DetectionSet, error) {
	if img == nil {
		return nil, model.ErrNoImageLoaded
	}
	if p.detector == nil {
		return nil, fmt.Errorf("detector not configured")
	}
	o := collectOptions(opts)

	proposals, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect regions: %w", err)
	}

	b := img.Bounds()
	boxes := make([]model.Box, 0, len(proposals))
	for _, proposal := range proposals {
		if len(boxes) >= maxPatches {
			break
		}
		if proposal.Score < threshold {
			continue
		}
		box := patch.Clamp(proposal.Box, b.Dx(), b.Dy())
		if box.Rect().Empty() {
			continue
		}
		boxes = append(boxes, box)
	}

	results, err := p.classifyBoxes(ctx, img, boxes, o)
	if err != nil {
		return nil, err
	}

	set := Aggregate(results, threshold, maxPatches, false)
	set.Mode = model.ModeDetector
	p.logger.Info("Detector pass %s: %d proposals, %d kept, %d predictions, %d failed",
		set.PassID, len(proposals), len(boxes), set.Total, set.Failures)
	return set, nil
}

// Predict classifies the whole image as one region.
func (p *Pipeline) Predict(ctx context.Context, img image.Image) (model.Classification, error) {
	if img == nil {
		return model.Classification{}, model.ErrNoImageLoaded
	}
	return p.classify(ctx, patch.Resize(img, p.inputSize))
}

func (p *Pipeline) classifyBoxes(ctx context.Context, img image.Image, boxes []model.Box, o runOptions) ([]PatchResult, error) {
	results := make([]PatchResult, 0, len(boxes))
	for i, box := range boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pixels := patch.Extract(img, box, p.inputSize)
		result := PatchResult{Index: i, Box: box}

		cls, err := p.classify(ctx, pixels)
		if err != nil {
			result.Err = fmt.Errorf("patch %d: %w", i, err)
			p.logger.Warning("Skipping patch %d %v: %v", i, box.Rect(), err)
			results = append(results, result)
			continue
		}
		result.Classification = cls

		if o.sink != nil {
			id, err := o.sink.SavePatch(pixels)
			if err != nil {
				p.logger.Error("Failed to persist patch %d: %v", i, err)
			} else {
				result.PatchID = id
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// classify wraps the classifier so that a panic or a score outside [0,1] (NaN included) counts
// as an inference failure of that patch.
func (p *Pipeline) classify(ctx context.Context, pixels image.Image) (cls model.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrInferenceFailure, r)
		}
	}()

	cls, err = p.classifier.Classify(ctx, pixels)
	if err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", model.ErrInferenceFailure, err)
	}
	if !(cls.Confidence >= 0 && cls.Confidence <= 1) {
		return model.Classification{}, fmt.Errorf("%w: confidence %v out of range", model.ErrInferenceFailure, cls.Confidence)
	}
	return cls, nil
}

func collectOptions(opts []Option) runOptions {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Aggregate turns per-patch results into a detection set of at most maxCount
// predictions. Failed patches are counted, not returned. With pad set, a short
// result is filled to maxCount with copies of the last prediction.
func Aggregate(results []PatchResult, threshold float64, maxCount int, pad bool) *model.DetectionSet {
	set := &model.DetectionSet{
		PassID:      uuid.NewString(),
		Threshold:   threshold,
		MaxPatches:  maxCount,
		Predictions: []model.Prediction{},
		CreatedAt:   time.Now(),
	}

	for _, r := range results {
		if !r.OK() {
			set.Failures++
			continue
		}
		if len(set.Predictions) >= maxCount {
			continue
		}
		box := r.Box
		set.Predictions = append(set.Predictions, model.Prediction{
			ID:             len(set.Predictions),
			PatchIndex:     r.Index,
			BBox:           &box,
			Label:          r.Classification.Label,
			Confidence:     r.Classification.Confidence,
			BelowThreshold: r.Classification.Confidence < threshold,
			PatchID:        r.PatchID,
		})
	}

	for _, pred := range set.Predictions {
		if !pred.BelowThreshold {
			set.AboveThreshold++
		}
	}

	// Copies of the last prediction, flagged as padded
	if pad && len(set.Predictions) > 0 {
		last := set.Predictions[len(set.Predictions)-1]
		for len(set.Predictions) < maxCount {
			dup := last
			if last.BBox != nil {
				box := *last.BBox
				dup.BBox = &box
			}
			dup.ID = len(set.Predictions)
			dup.Padded = true
			set.Predictions = append(set.Predictions, dup)
		}
	}

	set.Total = len(set.Predictions)
	return set
}
