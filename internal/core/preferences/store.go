package preferences

import (
	"context"
	"log/slog"
	"sync"
)

// Store provides access to per-viewer preference snapshots.
// External preference backends plug in behind this interface.
type Store interface {
	// Get returns the viewer's preferences. A viewer with no stored
	// preferences gets the zero snapshot, not an error.
	Get(ctx context.Context, userDID string) (*Preferences, error)

	// Put replaces the viewer's preferences
	Put(ctx context.Context, userDID string, prefs *Preferences) error
}

// MemoryStore is an in-memory preference store guarded by a RWMutex.
// Snapshots are stored by value per viewer; Get hands out copies so callers
// can't alias the stored state.
type MemoryStore struct {
	mu     sync.RWMutex
	prefs  map[string]*Preferences
	logger *slog.Logger
}

// NewMemoryStore creates an empty in-memory preference store
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		prefs:  make(map[string]*Preferences),
		logger: logger,
	}
}

// Get returns a copy of the viewer's preferences
func (s *MemoryStore) Get(ctx context.Context, userDID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.prefs[userDID]
	if !ok {
		return &Preferences{}, nil
	}

	cp := *stored
	return &cp, nil
}

// Put replaces the viewer's preferences
func (s *MemoryStore) Put(ctx context.Context, userDID string, prefs *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *prefs
	s.prefs[userDID] = &cp
	s.logger.Debug("preferences updated", "did", userDID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
