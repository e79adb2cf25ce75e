// Package selection tracks the pages targeted by a batch action.
package selection

import (
	"sync"

	"github.com/inkwash-dev/inkwash/internal/models"
)

// Set holds page IDs for a single chapter. Changing chapter clears it.
type Set struct {
	mu        sync.RWMutex
	chapterID string
	ids       []string
	index     map[string]struct{}
}

// New creates an empty selection
func New() *Set {
	return &Set{index: make(map[string]struct{})}
}

// ChapterID returns the chapter the selection is scoped to
func (s *Set) ChapterID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapterID
}

// SetScope scopes the selection to a chapter, clearing it when the chapter changes.
// It reports whether the selection was cleared.
func (s *Set) SetScope(chapterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapterID == chapterID {
		return false
	}
	s.chapterID = chapterID
	s.clearLocked()
	return true
}

// Add selects a page
func (s *Set) Add(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(pageID)
}

// Remove deselects a page
func (s *Set) Remove(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(pageID)
}

// Toggle flips a page's membership and returns whether it is now selected
func (s *Set) Toggle(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[pageID]; ok {
		s.removeLocked(pageID)
		return false
	}
	s.addLocked(pageID)
	return true
}

// All selects every page of the chapter in page order
func (s *Set) All(pages []models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pages {
		s.addLocked(p.ID)
	}
}

// Clear empties the selection but keeps its scope
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Contains reports whether a page is selected
func (s *Set) Contains(pageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[pageID]
	return ok
}

// IDs returns the selected page IDs in the order they were added
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...)
}

// Len returns the number of selected pages
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Set) addLocked(pageID string) {
	if pageID == "" {
		return
	}
	if _, ok := s.index[pageID]; ok {
		return
	}
	s.index[pageID] = struct{}{}
	s.ids = append(s.ids, pageID)
}

func (s *Set) removeLocked(pageID string) {
	if _, ok := s.index[pageID]; !ok {
		return
	}
	delete(s.index, pageID)
	for i, id := range s.ids {
		if id == pageID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

func (s *Set) clearLocked() {
	s.ids = nil
	s.index = make(map[string]struct{})
}
