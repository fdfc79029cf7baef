package logger

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"freshscan/internal/config"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    zerolog.Logger
	warningLog zerolog.Logger
	errorLog   zerolog.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
	}

	logger.setupLoggers()
	return logger
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() {
	infoFileHandle := l.openLogFile(filepath.Join(l.logDir, "info.log"))
	warningFileHandle := l.openLogFile(filepath.Join(l.logDir, "warning.log"))
	errorFileHandle := l.openLogFile(filepath.Join(l.logDir, "error.log"))

	stdout := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}

	l.infoLog = newLevelLogger(zerolog.MultiLevelWriter(stdout, infoFileHandle), zerolog.InfoLevel)
	l.warningLog = newLevelLogger(zerolog.MultiLevelWriter(stdout, warningFileHandle), zerolog.WarnLevel)
	l.errorLog = newLevelLogger(zerolog.MultiLevelWriter(stderr, errorFileHandle), zerolog.ErrorLevel)
}

func newLevelLogger(w zerolog.LevelWriter, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	l.files = append(l.files, file)
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Error().Msgf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Close releases the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
