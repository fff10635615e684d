package tle

import (
	"sync/atomic"
	"time"
)

// Store provides lock-free read access to the current catalog.
type Store struct {
	dataset atomic.Pointer[Dataset]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// Set atomically replaces the current dataset.
func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
}

// Find returns the catalog entry for a NORAD id.
func (s *Store) Find(noradID int) (Entry, bool) {
	ds := s.dataset.Load()
	if ds == nil {
		return Entry{}, false
	}
	for _, e := range ds.Satellites {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return Entry{}, false
}

// AgeSeconds returns the age of the current dataset in seconds, or -1 if
// none is loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.LoadedAt).Seconds()
}
