package model

import (
	"encoding/json"
	"image"
	"time"
)

// Box is a bounding box in source-image pixel coordinates.
type Box struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Valid reports whether the box is non-empty and lies within a w×h image.
func (b Box) Valid(w, h int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X1 < b.X2 && b.Y1 < b.Y2 && b.X2 <= w && b.Y2 <= h
}

// MarshalJSON encodes the box as [x1,y1,x2,y2].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X1, b.Y1, b.X2, b.Y2})
}

// Classification is the output of a classifier for one region.
type Classification struct {
	Label      string
	Confidence float64
	// RunnerUp is the second most probable class, when the classifier reports it.
	RunnerUp *Classification
}

// Prediction is one entry of a detection set. BBox is nil for whole-image predictions.
type Prediction struct {
	ID             int     `json:"id"`
	PatchIndex     int     `json:"patch_index"`
	BBox           *Box    `json:"bbox"`
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	BelowThreshold bool    `json:"below_threshold"`
	Padded         bool    `json:"padded"`
	PatchID        string  `json:"patch_id,omitempty"`
}

// Pass modes.
const (
	ModeTiles    = "tiles"
	ModeDetector = "detector"
)

// DetectionSet is the result of one detection pass.
type DetectionSet struct {
	PassID         string       `json:"pass_id"`
	Mode           string       `json:"mode"`
	Threshold      float64      `json:"threshold"`
	MaxPatches     int          `json:"max_patches"`
	Predictions    []Prediction `json:"predictions"`
	Total          int          `json:"count"`
	AboveThreshold int          `json:"above_threshold_count"`
	Failures       int          `json:"failures"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Labels returns the distinct labels of the set in first-seen order.
func (s *DetectionSet) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range s.Predictions {
		if !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}
	return labels
}

// Item is a prediction grouped into a freshness bucket.
type Item struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	BBox       *Box    `json:"bbox"`
}

// Summary partitions a detection set by the Fresh/Rotten label prefix.
type Summary struct {
	Total       int      `json:"total_items"`
	FreshCount  int      `json:"fresh_count"`
	RottenCount int      `json:"rotten_count"`
	FreshItems  []Item   `json:"fresh_items"`
	RottenItems []Item   `json:"rotten_items"`
	Ingredients []string `json:"ingredients_for_recipes"`
}
