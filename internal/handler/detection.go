package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"freshscan/internal/config"
	"freshscan/internal/dto"
	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/service"
	"freshscan/internal/service/session"
)

// UploadHandler accepts a multipart "file" image and makes it the session's image.
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := cfg.MaxUploadSize << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, logger, fmt.Errorf("%w: missing file field: %v", model.ErrInvalidImage, err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			writeError(w, logger, fmt.Errorf("%w: %v", model.ErrInvalidImage, err))
			return
		}
		if int64(len(data)) > maxBytes {
			writeError(w, logger, fmt.Errorf("%w: file larger than %d MB", model.ErrInvalidImage, cfg.MaxUploadSize))
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}

		sessionID := session.IDFromContext(r.Context())
		img, err := manager.Upload(sessionID, header.Filename, contentType, data)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		b := img.Bounds()
		writeJSON(w, logger, http.StatusOK, dto.UploadResponse{
			Message:    "Image uploaded successfully",
			Filename:   header.Filename,
			ImageSize:  [2]int{b.Dx(), b.Dy()},
			DisplayURL: "/display/",
		})
	}
}

// DisplayHandler serves the session's upload as PNG.
func DisplayHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := manager.Display(session.IDFromContext(r.Context()))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
	}
}

// PredictHandler classifies the whole uploaded image.
func PredictHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cls, err := manager.Predict(r.Context(), session.IDFromContext(r.Context()))
		if err != nil {
			writeError(w, logger, err)
			return
		}

		info := dto.PredictionInfo{Label: cls.Label, Confidence: cls.Confidence}
		if cls.RunnerUp != nil {
			info.SecondPrediction = &dto.PredictionInfo{Label: cls.RunnerUp.Label, Confidence: cls.RunnerUp.Confidence}
		}

		writeJSON(w, logger, http.StatusOK, dto.SinglePredictionResponse{
			Prediction: info,
			Count:      1,
			Mode:       "single",
		})
	}
}

// PredictManyHandler runs a detection pass. Query: threshold, max_patches, mode.
func PredictManyHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := floatParam(r, "threshold", cfg.DefaultThreshold)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		maxPatches, err := intParam(r, "max_patches", manager.DefaultMaxPatches())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		mode := r.URL.Query().Get("mode")

		set, err := manager.RunPass(r.Context(), session.IDFromContext(r.Context()), threshold, maxPatches, mode)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.DetectionResponse{
			PassID:              set.PassID,
			Mode:                set.Mode,
			Predictions:         set.Predictions,
			Count:               set.Total,
			AboveThresholdCount: set.AboveThreshold,
			Failures:            set.Failures,
			Threshold:           set.Threshold,
			MaxPatches:          set.MaxPatches,
			VisualizeURL:        "/visualize/?threshold=" + strconv.FormatFloat(threshold, 'f', -1, 64),
		})
	}
}

// VisualizeHandler returns the uploaded image annotated with the latest detections.
func VisualizeHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := floatParam(r, "threshold", cfg.DefaultThreshold)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		data, err := manager.Visualize(r.Context(), session.IDFromContext(r.Context()), threshold)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
	}
}

// SummaryHandler groups the latest detections into fresh and rotten items.
func SummaryHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := manager.Summary(session.IDFromContext(r.Context()))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}

// ResetHandler clears the caller's session.
func ResetHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Reset(session.IDFromContext(r.Context()))
		writeJSON(w, logger, http.StatusOK, dto.MessageResponse{Message: "Session reset successfully"})
	}
}

// ViewPatchHandler serves a stored patch of the caller's session ("id" query parameter).
func ViewPatchHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		path, err := manager.PatchPath(session.IDFromContext(r.Context()), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, path)
	}
}
