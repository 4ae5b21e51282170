// Package dataset holds the most recent normalized search result set in
// memory. The set is replaced wholesale on every successful search; analysis
// endpoints resolve properties out of it by id.
package dataset

import (
	"sync"
	"time"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/canon"
)

// Set is the latest loaded result set. Zero value is usable and empty.
type Set struct {
	mu        sync.RWMutex
	props     []harvest.Property
	byID      map[string]int
	byAddr    map[string]int
	zip       string
	updatedAt time.Time
}

func New() *Set { return &Set{} }

// Replace swaps in a new result set. The previous contents are discarded;
// ids from an older set that no longer resolve are the caller's problem.
func (s *Set) Replace(zip string, props []harvest.Property) {
	byID := make(map[string]int, len(props))
	byAddr := make(map[string]int, len(props))
	for i, p := range props {
		if p.PropertyID != "" {
			if _, dup := byID[p.PropertyID]; !dup {
				byID[p.PropertyID] = i
			}
		}
		if addr := canon.AddressID(p.Street, p.City, p.State, p.ZipCode); addr != "" {
			if _, dup := byAddr[addr]; !dup {
				byAddr[addr] = i
			}
		}
	}

	s.mu.Lock()
	s.props = props
	s.byID = byID
	s.byAddr = byAddr
	s.zip = zip
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// All returns a copy of the current set.
func (s *Set) All() []harvest.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]harvest.Property, len(s.props))
	copy(out, s.props)
	return out
}

// Len reports the current set size.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}

// Zip returns the zip code of the last search, empty before the first.
func (s *Set) Zip() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zip
}

// UpdatedAt returns when the set was last replaced.
func (s *Set) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Find resolves a property by id. Feeds occasionally ship address-derived
// ids instead of MLS ones, so a miss on the exact id falls back to the
// canonical underscore form of the address.
func (s *Set) Find(id string) (harvest.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.byID[id]; ok {
		return s.props[i], true
	}
	if i, ok := s.byAddr[canon.NormalizeID(id)]; ok {
		return s.props[i], true
	}
	return harvest.Property{}, false
}

// Contains reports whether the id resolves in the current set.
func (s *Set) Contains(id string) bool {
	_, ok := s.Find(id)
	return ok
}
