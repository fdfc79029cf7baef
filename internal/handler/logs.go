package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"freshscan/internal/config"
	"freshscan/internal/logger"
)

// LogFiles lists the files written by the logger.
var LogFiles = []string{"info", "warning", "error"}

// ShowLogsHandler serves <name>.log from the log directory as text/plain.
func ShowLogsHandler(cfg *config.Config, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, cfg.LogDirectory, name+".log")
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates <name>.log via the logger utility.
func ClearLogsHandler(logger *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := logger.CleanLogs(name + ".log"); err != nil {
			http.Error(w, "Unable to clear log file", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
