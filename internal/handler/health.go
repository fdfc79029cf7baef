package handler

import (
	"context"
	"net/http"
	"time"

	"freshscan/internal/config"
	"freshscan/internal/dto"
	"freshscan/internal/logger"
	"freshscan/internal/service"
	"freshscan/internal/service/session"

	"github.com/shirou/gopsutil/v3/mem"
)

const inferenceCheckTimeout = 3 * time.Second

// HealthHandler reports service status, the caller's session state and host memory.
func HealthHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	classifier := "opencv"
	if cfg.InferenceURL != "" {
		classifier = "remote"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		state := manager.Store().State(session.IDFromContext(r.Context()))

		resp := dto.HealthResponse{
			Status:      "healthy",
			Environment: cfg.Environment,
			HasImage:    state != session.Empty,
			State:       state.String(),
			Classifier:  classifier,
			Detector:    manager.HasDetector(),
			Sessions:    manager.Store().Count(),
		}

		ctx, cancel := context.WithTimeout(r.Context(), inferenceCheckTimeout)
		configured, err := manager.InferenceHealth(ctx)
		cancel()
		if configured {
			if err != nil {
				logger.Warning("Remote classifier %s unreachable: %v", cfg.InferenceURL, err)
				resp.Status = "degraded"
				resp.Inference = "unreachable"
			} else {
				resp.Inference = "ok"
			}
		}

		if hub := manager.Hub(); hub != nil {
			resp.Viewers = hub.GetClientCount()
		}

		if vm, err := mem.VirtualMemory(); err == nil {
			resp.MemoryUsedPct = vm.UsedPercent
			resp.MemoryUsedMB = vm.Used / 1024 / 1024
		} else {
			logger.Warning("Could not read memory stats: %v", err)
		}

		if size, err := manager.Patches().DirectorySize(); err == nil {
			resp.PatchDirBytes = size
		} else {
			logger.Warning("Could not measure patch directory: %v", err)
		}

		writeJSON(w, logger, http.StatusOK, resp)
	}
}
