package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a process-local fixed-window counter for development and
// tests.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*windowState
	now     func() time.Time
}

type windowState struct {
	start time.Time
	count int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{windows: make(map[string]*windowState), now: time.Now}
}

func (b *MemoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	w, ok := b.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &windowState{start: now}
		b.windows[key] = w
	}
	w.count++
	return w.count, nil
}
