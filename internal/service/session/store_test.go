package session

import (
	"context"
	"errors"
	"image"
	"testing"

	"freshscan/internal/model"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore()

	if s.State("a") != Empty {
		t.Fatalf("Expected Empty, got %s", s.State("a"))
	}
	if _, _, err := s.Image("a"); !errors.Is(err, model.ErrNoImageLoaded) {
		t.Errorf("Expected ErrNoImageLoaded, got %v", err)
	}
	if _, err := s.Detections("a"); !errors.Is(err, model.ErrNoDetectionsYet) {
		t.Errorf("Expected ErrNoDetectionsYet, got %v", err)
	}

	s.Upload("a", testImage(), []byte("png"))
	if s.State("a") != Uploaded {
		t.Fatalf("Expected Uploaded, got %s", s.State("a"))
	}

	_, gen, err := s.Image("a")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if err := s.SetDetections("a", gen, &model.DetectionSet{Total: 1}); err != nil {
		t.Fatalf("SetDetections failed: %v", err)
	}
	if s.State("a") != Detected {
		t.Fatalf("Expected Detected, got %s", s.State("a"))
	}

	s.Upload("a", testImage(), nil)
	if s.State("a") != Uploaded {
		t.Errorf("Expected new upload to go to Uploaded, got %s", s.State("a"))
	}
	if _, err := s.Detections("a"); !errors.Is(err, model.ErrNoDetectionsYet) {
		t.Errorf("Expected detections cleared on upload, got %v", err)
	}
}

func TestStore_ResetFromAnyState(t *testing.T) {
	s := NewStore()

	s.Reset("x")
	if s.State("x") != Empty {
		t.Errorf("Reset from Empty: got %s", s.State("x"))
	}

	s.Upload("x", testImage(), nil)
	s.Reset("x")
	if s.State("x") != Empty {
		t.Errorf("Reset from Uploaded: got %s", s.State("x"))
	}

	s.Upload("x", testImage(), nil)
	_, gen, _ := s.Image("x")
	s.SetDetections("x", gen, &model.DetectionSet{})
	s.Reset("x")
	if s.State("x") != Empty {
		t.Errorf("Reset from Detected: got %s", s.State("x"))
	}
	if s.Count() != 0 {
		t.Errorf("Expected no sessions, got %d", s.Count())
	}
}

func TestStore_SetDetectionsRequiresImage(t *testing.T) {
	s := NewStore()
	if err := s.SetDetections("none", 0, &model.DetectionSet{}); !errors.Is(err, model.ErrNoImageLoaded) {
		t.Errorf("Expected ErrNoImageLoaded, got %v", err)
	}
}

func TestStore_StaleDetectionsRejected(t *testing.T) {
	s := NewStore()
	s.Upload("a", testImage(), nil)
	_, gen, _ := s.Image("a")

	s.Upload("a", testImage(), nil)

	if err := s.SetDetections("a", gen, &model.DetectionSet{}); !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	if s.State("a") != Uploaded {
		t.Errorf("Expected Uploaded after stale write, got %s", s.State("a"))
	}
}

func TestStore_SessionsIsolated(t *testing.T) {
	s := NewStore()
	s.Upload("a", testImage(), nil)

	if s.State("b") != Empty {
		t.Errorf("Session b should be Empty, got %s", s.State("b"))
	}
	s.Reset("b")
	if s.State("a") != Uploaded {
		t.Errorf("Reset of b affected a: %s", s.State("a"))
	}
}

func TestIDFromContext(t *testing.T) {
	if got := IDFromContext(context.Background()); got != DefaultID {
		t.Errorf("Expected %q, got %q", DefaultID, got)
	}
	ctx := WithID(context.Background(), "abc")
	if got := IDFromContext(ctx); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
}
