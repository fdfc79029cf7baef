package storage

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/model"

	"github.com/google/uuid"
)

// PatchService stores classified patches as PNG files, one directory per session.
type PatchService struct {
	patchesDir string
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewPatchService creates a PatchService rooted at the configured patch directory.
func NewPatchService(config *config.Config, logger *logger.Logger) *PatchService {
	return &PatchService{
		patchesDir: config.PatchDirectory,
		logger:     logger,
	}
}

// sessionDir maps a session id to its directory. Session ids are UUIDs or the
// default id; anything else is hashed into a UUID so it cannot escape the root.
func (s *PatchService) sessionDir(sessionID string) string {
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(sessionID)).String()
	}
	return filepath.Join(s.patchesDir, sessionID)
}

// Clear removes every stored patch of a session.
func (s *PatchService) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.sessionDir(sessionID)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read patch directory: %w", err)
	}

	removed := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
			s.logger.Error("Error deleting patch %s: %v", file.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed %d patches of session %s", removed, sessionID)
	}
	return nil
}

// Save writes a patch for a session and returns its id.
func (s *PatchService) Save(sessionID string, patch image.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create patch directory: %w", err)
	}

	id := uuid.NewString()
	f, err := os.Create(filepath.Join(dir, id+".png"))
	if err != nil {
		return "", fmt.Errorf("create patch file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, patch); err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return id, nil
}

// Remove deletes the given patches of a session. Missing files are ignored.
func (s *PatchService) Remove(sessionID string, patchIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.sessionDir(sessionID)
	var firstErr error
	for _, id := range patchIDs {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		err := os.Remove(filepath.Join(dir, id+".png"))
		if err != nil && !os.IsNotExist(err) {
			s.logger.Error("Error deleting patch %s: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Path returns the file of a stored patch.
func (s *PatchService) Path(sessionID, patchID string) (string, error) {
	if _, err := uuid.Parse(patchID); err != nil {
		return "", model.ErrPatchNotFound
	}

	path := filepath.Join(s.sessionDir(sessionID), patchID+".png")
	if _, err := os.Stat(path); err != nil {
		return "", model.ErrPatchNotFound
	}
	return path, nil
}

// DirectorySize returns the total size of stored patches in bytes.
func (s *PatchService) DirectorySize() (int64, error) {
	var size int64
	err := filepath.WalkDir(s.patchesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}

// Sink binds the service to one session for use during a detection pass.
func (s *PatchService) Sink(sessionID string) *SessionSink {
	return &SessionSink{service: s, sessionID: sessionID}
}

// SessionSink saves patches for a single session and remembers what it wrote.
type SessionSink struct {
	service   *PatchService
	sessionID string
	saved     []string
}

// SavePatch stores one patch.
func (k *SessionSink) SavePatch(patch image.Image) (string, error) {
	id, err := k.service.Save(k.sessionID, patch)
	if err != nil {
		return "", err
	}
	k.saved = append(k.saved, id)
	return id, nil
}

// Discard removes every patch written through this sink.
func (k *SessionSink) Discard() error {
	err := k.service.Remove(k.sessionID, k.saved)
	k.saved = nil
	return err
}
