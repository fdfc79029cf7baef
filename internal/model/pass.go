package model

import "time"

// PassRecord is a stored detection pass.
type PassRecord struct {
	ID             int64     `json:"id"`
	PassID         string    `json:"pass_id"`
	SessionID      string    `json:"session_id"`
	Mode           string    `json:"mode"`
	ImageWidth     int       `json:"image_width"`
	ImageHeight    int       `json:"image_height"`
	Threshold      float64   `json:"threshold"`
	Total          int       `json:"total"`
	AboveThreshold int       `json:"above_threshold"`
	Failures       int       `json:"failures"`
	CreatedAt      time.Time `json:"created_at"`
}

// PredictionRecord is a stored prediction belonging to a pass.
type PredictionRecord struct {
	ID         int64   `json:"id"`
	PassRowID  int64   `json:"pass_row_id"`
	Position   int     `json:"position"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	HasBox     bool    `json:"has_box"`
	Padded     bool    `json:"padded"`
}

// PassFilter contains filtering options for querying passes.
type PassFilter struct {
	SessionID string
	Label     string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// PassStats contains statistics about stored passes.
type PassStats struct {
	TotalPasses      int            `json:"total_passes"`
	TotalPredictions int            `json:"total_predictions"`
	LabelCounts      map[string]int `json:"label_counts"`
	FreshCount       int            `json:"fresh_count"`
	RottenCount      int            `json:"rotten_count"`
}
