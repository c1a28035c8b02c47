package store

import (
	"context"

	"github.com/devrev/promptledger/internal/model"
)

// Archive persists committed ledger events for off-ledger consumers. The
// ledger never reads its own state back from the archive; it is an export
// surface, not a source of truth.
type Archive interface {
	SaveEvent(ctx context.Context, event *model.Event) error
	EventsSince(ctx context.Context, seq uint64, limit int) ([]model.Event, error)
	Ping(ctx context.Context) error
	Close() error
}
