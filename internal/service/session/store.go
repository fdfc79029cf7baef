// Package session holds per-client upload and detection state.
package session

import (
	"errors"
	"image"
	"sync"

	"freshscan/internal/model"
)

// State is the lifecycle position of a session.
type State int

const (
	Empty State = iota
	Uploaded
	Detected
)

func (s State) String() string {
	switch s {
	case Uploaded:
		return "uploaded"
	case Detected:
		return "detected"
	default:
		return "empty"
	}
}

// ErrStale is returned when detections are stored for an image that has since
// been replaced or reset.
var ErrStale = errors.New("session changed during detection pass")

// Snapshot is a read-only view of a session.
type Snapshot struct {
	State      State
	Image      image.Image
	Display    []byte
	Detections *model.DetectionSet
	Generation uint64
}

type slot struct {
	state      State
	image      image.Image
	display    []byte
	detections *model.DetectionSet
	generation uint64
}

// Store keeps one single-slot session per session id. Each slot is
// last-writer-wins; the mutex only keeps the map and slots consistent.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*slot
	gen      uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*slot)}
}

// Upload replaces the session image from any state and drops prior detections.
func (s *Store) Upload(id string, img image.Image, display []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.sessions[id] = &slot{
		state:      Uploaded,
		image:      img,
		display:    display,
		generation: s.gen,
	}
}

// SetDetections stores the result of a pass run against the given generation.
func (s *Store) SetDetections(id string, generation uint64, set *model.DetectionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.sessions[id]
	if !ok || sl.state == Empty {
		return model.ErrNoImageLoaded
	}
	if sl.generation != generation {
		return ErrStale
	}
	sl.detections = set
	sl.state = Detected
	return nil
}

// Reset returns the session to Empty.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Snapshot returns the current session view. Missing sessions are Empty.
func (s *Store) Snapshot(id string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sessions[id]
	if !ok {
		return Snapshot{State: Empty}
	}
	return Snapshot{
		State:      sl.state,
		Image:      sl.image,
		Display:    sl.display,
		Detections: sl.detections,
		Generation: sl.generation,
	}
}

// Image returns the uploaded image and its generation.
func (s *Store) Image(id string) (image.Image, uint64, error) {
	snap := s.Snapshot(id)
	if snap.State == Empty {
		return nil, 0, model.ErrNoImageLoaded
	}
	return snap.Image, snap.Generation, nil
}

// Detections returns the latest detection set.
func (s *Store) Detections(id string) (*model.DetectionSet, error) {
	snap := s.Snapshot(id)
	if snap.Detections == nil {
		return nil, model.ErrNoDetectionsYet
	}
	return snap.Detections, nil
}

// State returns the lifecycle state of a session.
func (s *Store) State(id string) State {
	return s.Snapshot(id).State
}

// Count returns the number of non-empty sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
