package pipeline

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/model"
)

// scriptedClassifier returns the scripted outcomes in call order.
type scriptedClassifier struct {
	outcomes []outcome
	calls    int
	sizes    []image.Rectangle
}

type outcome struct {
	label      string
	confidence float64
	err        error
	panics     bool
}

func (c *scriptedClassifier) Classify(ctx context.Context, patch image.Image) (model.Classification, error) {
	o := c.outcomes[c.calls%len(c.outcomes)]
	c.calls++
	c.sizes = append(c.sizes, patch.Bounds())
	if o.panics {
		panic("tensor shape mismatch")
	}
	if o.err != nil {
		return model.Classification{}, o.err
	}
	return model.Classification{Label: o.label, Confidence: o.confidence}, nil
}

type fakeDetector struct {
	boxes []ScoredBox
	err   error
}

func (d *fakeDetector) Detect(ctx context.Context, img image.Image) ([]ScoredBox, error) {
	return d.boxes, d.err
}

type memorySink struct {
	saved int
}

func (s *memorySink) SavePatch(patch image.Image) (string, error) {
	s.saved++
	return "patch-" + string(rune('a'+s.saved-1)), nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	t.Cleanup(func() { l.Close() })
	return l
}

func newImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestRun_ThreeOfFourPadded(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{
		{label: "FreshApple", confidence: 0.9},
		{label: "RottenBanana", confidence: 0.3},
		{err: errors.New("malformed tensor")},
		{label: "FreshTomato", confidence: 0.7},
	}}
	p := New(classifier, nil, 128, newTestLogger(t))

	set, err := p.Run(context.Background(), newImage(256, 256), 0.5, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if set.Total != 4 || len(set.Predictions) != 4 {
		t.Fatalf("Expected 4 predictions, got total=%d len=%d", set.Total, len(set.Predictions))
	}
	if set.AboveThreshold != 2 {
		t.Errorf("Expected above_threshold_count 2, got %d", set.AboveThreshold)
	}
	if set.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", set.Failures)
	}

	third, pad := set.Predictions[2], set.Predictions[3]
	if !pad.Padded || third.Padded {
		t.Errorf("Expected only the last entry padded: third=%v pad=%v", third.Padded, pad.Padded)
	}
	if pad.Label != third.Label || pad.Confidence != third.Confidence || *pad.BBox != *third.BBox {
		t.Errorf("Padded entry differs from its source: %+v vs %+v", pad, third)
	}
	if pad.ID == third.ID {
		t.Errorf("Padded entry reuses id %d", pad.ID)
	}
	if pad.BBox == third.BBox {
		t.Error("Padded entry shares the bbox pointer with its source")
	}
	if set.Mode != model.ModeTiles {
		t.Errorf("Expected tiles mode, got %s", set.Mode)
	}
}

func TestRun_PatchesResizedToInputSize(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{{label: "FreshMango", confidence: 0.8}}}
	p := New(classifier, nil, 64, newTestLogger(t))

	if _, err := p.Run(context.Background(), newImage(300, 200), 0.5, 6); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if classifier.calls != 6 {
		t.Fatalf("Expected 6 classifier calls, got %d", classifier.calls)
	}
	for i, r := range classifier.sizes {
		if r != image.Rect(0, 0, 64, 64) {
			t.Errorf("patch %d has bounds %v", i, r)
		}
	}
}

func TestRun_LengthNeverExceedsMax(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{{label: "FreshCarrot", confidence: 0.6}}}
	p := New(classifier, nil, 32, newTestLogger(t))

	for _, max := range []int{1, 2, 5, 9, 20} {
		set, err := p.Run(context.Background(), newImage(400, 300), 0.5, max)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if set.Total > max {
			t.Errorf("max=%d: got %d predictions", max, set.Total)
		}
		// grid has 2x2 positions at side 150, padding fills up to max
		if set.Total != max {
			t.Errorf("max=%d: expected padding to %d, got %d", max, max, set.Total)
		}
	}
}

func TestRun_AllFailuresNoPadding(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{{err: errors.New("runtime error")}, {panics: true}}}
	p := New(classifier, nil, 32, newTestLogger(t))

	set, err := p.Run(context.Background(), newImage(256, 256), 0.5, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if set.Total != 0 || len(set.Predictions) != 0 {
		t.Errorf("Expected no predictions, got %d", set.Total)
	}
	if set.Failures != 4 {
		t.Errorf("Expected 4 failures, got %d", set.Failures)
	}
}

func TestRun_NoImage(t *testing.T) {
	p := New(&scriptedClassifier{}, nil, 32, newTestLogger(t))
	if _, err := p.Run(context.Background(), nil, 0.5, 4); !errors.Is(err, model.ErrNoImageLoaded) {
		t.Errorf("Expected ErrNoImageLoaded, got %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	p := New(&scriptedClassifier{outcomes: []outcome{{label: "FreshApple", confidence: 1}}}, nil, 32, newTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx, newImage(256, 256), 0.5, 4); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRun_OutOfRangeConfidenceIsFailure(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
	}{
		{"above one", 1.7},
		{"negative", -0.2},
		{"NaN", math.NaN()},
		{"infinite", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &scriptedClassifier{outcomes: []outcome{
				{label: "FreshApple", confidence: tt.confidence},
				{label: "FreshApple", confidence: 0.4},
			}}
			p := New(classifier, nil, 32, newTestLogger(t))

			set, err := p.Run(context.Background(), newImage(100, 50), 0.5, 2)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if set.Failures != 1 {
				t.Errorf("Expected 1 failure, got %d", set.Failures)
			}
			if set.AboveThreshold != 0 {
				t.Errorf("Expected no predictions above threshold, got %d", set.AboveThreshold)
			}
			if set.Predictions[0].Confidence != 0.4 {
				t.Errorf("Unexpected first prediction: %+v", set.Predictions[0])
			}
		})
	}
}

func TestRun_PatchSink(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{{label: "FreshOrange", confidence: 0.9}}}
	sink := &memorySink{}
	p := New(classifier, nil, 32, newTestLogger(t))

	set, err := p.Run(context.Background(), newImage(256, 256), 0.5, 4, WithPatchSink(sink))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sink.saved != 4 {
		t.Errorf("Expected 4 saved patches, got %d", sink.saved)
	}
	if set.Predictions[0].PatchID != "patch-a" || set.Predictions[3].PatchID != "patch-d" {
		t.Errorf("Unexpected patch ids: %q %q", set.Predictions[0].PatchID, set.Predictions[3].PatchID)
	}
}

func TestRunDetector(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{
		{label: "RottenPotato", confidence: 0.8},
		{label: "FreshCucumber", confidence: 0.4},
	}}
	detector := &fakeDetector{boxes: []ScoredBox{
		{Box: model.Box{X1: 10, Y1: 10, X2: 60, Y2: 80}, Score: 0.9},
		{Box: model.Box{X1: 0, Y1: 0, X2: 20, Y2: 20}, Score: 0.2},
		{Box: model.Box{X1: 150, Y1: 150, X2: 300, Y2: 300}, Score: 0.7},
		{Box: model.Box{X1: 250, Y1: 10, X2: 260, Y2: 20}, Score: 0.95},
	}}
	p := New(classifier, detector, 32, newTestLogger(t))

	set, err := p.RunDetector(context.Background(), newImage(200, 200), 0.5, 5)
	if err != nil {
		t.Fatalf("RunDetector failed: %v", err)
	}

	if set.Total != 2 {
		t.Fatalf("Expected 2 predictions without padding, got %d", set.Total)
	}
	if *set.Predictions[1].BBox != (model.Box{X1: 150, Y1: 150, X2: 200, Y2: 200}) {
		t.Errorf("Expected clamped box, got %+v", *set.Predictions[1].BBox)
	}
	if !set.Predictions[1].BelowThreshold {
		t.Error("Expected second prediction below threshold")
	}
	if set.Mode != model.ModeDetector {
		t.Errorf("Expected detector mode, got %s", set.Mode)
	}
}

func TestRunDetector_NotConfigured(t *testing.T) {
	p := New(&scriptedClassifier{}, nil, 32, newTestLogger(t))
	if p.HasDetector() {
		t.Fatal("HasDetector should be false")
	}
	if _, err := p.RunDetector(context.Background(), newImage(10, 10), 0.5, 4); err == nil {
		t.Error("Expected error without detector")
	}
}

func TestPredict(t *testing.T) {
	classifier := &scriptedClassifier{outcomes: []outcome{{label: "FreshBanana", confidence: 0.99}}}
	p := New(classifier, nil, 128, newTestLogger(t))

	cls, err := p.Predict(context.Background(), newImage(640, 480))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if cls.Label != "FreshBanana" {
		t.Errorf("Unexpected label %s", cls.Label)
	}
	if classifier.sizes[0] != image.Rect(0, 0, 128, 128) {
		t.Errorf("Expected whole image resized to 128, got %v", classifier.sizes[0])
	}
}

func TestAggregate_BelowThresholdFlag(t *testing.T) {
	confidences := []float64{0, 0.1, 0.49999, 0.5, 0.75, 1}
	thresholds := []float64{0, 0.5, 0.75, 1, 1.5}

	for _, tau := range thresholds {
		var results []PatchResult
		for i, c := range confidences {
			results = append(results, PatchResult{Index: i, Classification: model.Classification{Label: "FreshApple", Confidence: c}})
		}
		set := Aggregate(results, tau, len(results), true)
		for _, p := range set.Predictions {
			if p.BelowThreshold != (p.Confidence < tau) {
				t.Errorf("tau=%v confidence=%v below_threshold=%v", tau, p.Confidence, p.BelowThreshold)
			}
		}
	}
}

func TestAggregate_SequentialIDs(t *testing.T) {
	results := []PatchResult{
		{Index: 0, Err: errors.New("x")},
		{Index: 1, Classification: model.Classification{Label: "FreshApple", Confidence: 0.9}},
		{Index: 2, Classification: model.Classification{Label: "RottenApple", Confidence: 0.8}},
	}
	set := Aggregate(results, 0.5, 5, true)

	for i, p := range set.Predictions {
		if p.ID != i {
			t.Errorf("prediction %d has id %d", i, p.ID)
		}
	}
	if set.Predictions[0].PatchIndex != 1 {
		t.Errorf("Expected source patch index 1, got %d", set.Predictions[0].PatchIndex)
	}
	for _, p := range set.Predictions[2:] {
		if !p.Padded || p.PatchIndex != 2 {
			t.Errorf("Unexpected padded entry: %+v", p)
		}
	}
}
