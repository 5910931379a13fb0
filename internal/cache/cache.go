package cache

import "sync/atomic"

// Latest is a lock-free, read-optimized container holding the most
// recent immutable value (e.g. the last parsed snapshot).
type Latest[T any] struct{ v atomic.Value }

// Load returns the stored value and whether anything was stored yet.
func (l *Latest[T]) Load() (T, bool) {
	v := l.v.Load()
	if v == nil {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Store atomically swaps in the new value.
func (l *Latest[T]) Store(v T) {
	l.v.Store(v)
}
