package web

import (
	"sync"

	"github.com/cjeanneret/photobooth/internal/logic/capture"
)

// Store keeps the photos of the last completed session in memory. Nothing
// is written to disk.
type Store struct {
	mu     sync.RWMutex
	photos []capture.Photo
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored photos. Its signature matches capture.Options.OnComplete.
func (s *Store) Set(photos []capture.Photo) {
	cp := append([]capture.Photo(nil), photos...)
	s.mu.Lock()
	s.photos = cp
	s.mu.Unlock()
}

// Photos returns a copy of the stored photos.
func (s *Store) Photos() []capture.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]capture.Photo(nil), s.photos...)
}

// Len returns the number of stored photos.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Clear drops the stored photos.
func (s *Store) Clear() {
	s.mu.Lock()
	s.photos = nil
	s.mu.Unlock()
}
