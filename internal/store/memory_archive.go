package store

import (
	"context"
	"sync"

	"github.com/devrev/promptledger/internal/model"
)

// MemoryArchive implements Archive in memory, for testing and single-node
// deployments that do not need an external archive.
type MemoryArchive struct {
	mu     sync.RWMutex
	events []model.Event
}

// NewMemoryArchive creates a new in-memory archive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

// SaveEvent appends an event to the archive
func (a *MemoryArchive) SaveEvent(ctx context.Context, event *model.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *event)
	return nil
}

// EventsSince returns up to limit events with a sequence marker greater than seq
func (a *MemoryArchive) EventsSince(ctx context.Context, seq uint64, limit int) ([]model.Event, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []model.Event
	for _, ev := range a.events {
		if ev.Seq <= seq {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Ping is a no-op for the in-memory archive
func (a *MemoryArchive) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory archive
func (a *MemoryArchive) Close() error {
	return nil
}
