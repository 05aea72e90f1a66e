package policy

import "sync"

// VisitedSet holds the crawl keys already scheduled or fetched.
// Keys are never removed.
type VisitedSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{keys: make(map[string]struct{})}
}

// Contains reports whether key was admitted.
func (v *VisitedSet) Contains(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.keys[key]
	return ok
}

// Len returns the number of admitted keys.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.keys)
}

// Add inserts key as a single check-then-insert step. It returns false when key
// was already present, or when limit > 0 and the set already holds limit keys.
func (v *VisitedSet) Add(key string, limit int) (added bool, full bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.keys[key]; ok {
		return false, false
	}
	if limit > 0 && len(v.keys) >= limit {
		return false, true
	}
	v.keys[key] = struct{}{}
	return true, false
}
