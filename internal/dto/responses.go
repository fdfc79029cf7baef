package dto

import "freshscan/internal/model"

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	ImageSize  [2]int `json:"image_size"`
	DisplayURL string `json:"display_url"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// DetectionResponse is the body of /predict_many/.
type DetectionResponse struct {
	PassID              string             `json:"pass_id"`
	Mode                string             `json:"mode"`
	Predictions         []model.Prediction `json:"predictions"`
	Count               int                `json:"count"`
	AboveThresholdCount int                `json:"above_threshold_count"`
	Failures            int                `json:"failures"`
	Threshold           float64            `json:"threshold"`
	MaxPatches          int                `json:"max_patches"`
	VisualizeURL        string             `json:"visualize_url"`
}

// PredictionInfo is a whole-image prediction.
type PredictionInfo struct {
	Label            string          `json:"label"`
	Confidence       float64         `json:"confidence"`
	BBox             *model.Box      `json:"bbox"`
	SecondPrediction *PredictionInfo `json:"second_prediction,omitempty"`
}

// SinglePredictionResponse is the body of /predict/.
type SinglePredictionResponse struct {
	Prediction PredictionInfo `json:"prediction"`
	Count      int            `json:"count"`
	Mode       string         `json:"mode"`
}

// HealthResponse is the body of /health/.
type HealthResponse struct {
	Status        string  `json:"status"`
	Environment   string  `json:"environment"`
	HasImage      bool    `json:"has_image"`
	State         string  `json:"state"`
	Classifier    string  `json:"classifier"`
	Inference     string  `json:"inference,omitempty"`
	Detector      bool    `json:"detector_available"`
	Sessions      int     `json:"sessions"`
	Viewers       int     `json:"viewers"`
	MemoryUsedPct float64 `json:"memory_used_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	PatchDirBytes int64   `json:"patch_dir_bytes"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
