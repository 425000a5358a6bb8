package query

import "sync"

// WorkingSet is the currently loaded collection of one record type. Every
// change bumps the revision, which is what derived views key their memo on.
type WorkingSet[T any] struct {
	id func(T) string

	mu    sync.RWMutex
	items []T
	rev   uint64
}

func NewWorkingSet[T any](id func(T) string) *WorkingSet[T] {
	return &WorkingSet[T]{id: id, items: []T{}}
}

// Replace swaps in a freshly loaded collection.
func (w *WorkingSet[T]) Replace(items []T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(make([]T, 0, len(items)), items...)
	w.rev++
}

// Upsert replaces the record with the same id in place, or prepends it
// (newest first) when it is not loaded.
func (w *WorkingSet[T]) Upsert(item T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.id(item)
	for i := range w.items {
		if w.id(w.items[i]) == id {
			w.items[i] = item
			w.rev++
			return
		}
	}
	w.items = append([]T{item}, w.items...)
	w.rev++
}

// Patch replaces the loaded record with the same id and reports whether one
// was loaded. Unlike Upsert it never adds a record.
func (w *WorkingSet[T]) Patch(item T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.id(item)
	for i := range w.items {
		if w.id(w.items[i]) == id {
			w.items[i] = item
			w.rev++
			return true
		}
	}
	return false
}

// Remove drops the record with the given id; it reports whether one was loaded.
func (w *WorkingSet[T]) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.items {
		if w.id(w.items[i]) == id {
			w.items = append(w.items[:i:i], w.items[i+1:]...)
			w.rev++
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the loaded records and the current revision.
func (w *WorkingSet[T]) Snapshot() ([]T, uint64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append(make([]T, 0, len(w.items)), w.items...), w.rev
}

func (w *WorkingSet[T]) Revision() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rev
}
