package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"freshscan/internal/dto"
	"freshscan/internal/logger"
	"freshscan/internal/model"
	"freshscan/internal/service/recipe"
	"freshscan/internal/service/session"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoImageLoaded),
		errors.Is(err, model.ErrNoDetectionsYet),
		errors.Is(err, model.ErrPatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidImage),
		errors.Is(err, model.ErrInvalidParameter),
		errors.Is(err, recipe.ErrNoIngredients):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrStale):
		return http.StatusConflict
	case errors.Is(err, model.ErrDetectorUnavailable),
		errors.Is(err, recipe.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and replies with {"error": ...}.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		writeJSON(w, logger, status, dto.ErrorResponse{Error: "Internal Server Error"})
		return
	}
	logger.Warning("Request rejected (%d): %v", status, err)
	writeJSON(w, logger, status, dto.ErrorResponse{Error: err.Error()})
}

// floatParam reads a float query parameter, returning def when absent.
func floatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", model.ErrInvalidParameter, name)
	}
	return f, nil
}

// intParam reads an integer query parameter, returning def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrInvalidParameter, name)
	}
	return i, nil
}
