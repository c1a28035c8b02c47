package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrev/promptledger/internal/model"
)

func TestMemoryArchive(t *testing.T) {
	a := NewMemoryArchive()
	ctx := context.Background()

	require.NoError(t, a.Ping(ctx))

	for i := uint64(1); i <= 4; i++ {
		require.NoError(t, a.SaveEvent(ctx, &model.Event{
			Seq:  i,
			Type: model.EventSubmissionRecorded,
		}))
	}

	all, err := a.EventsSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	tail, err := a.EventsSince(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(3), tail[0].Seq)

	limited, err := a.EventsSince(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	require.NoError(t, a.Close())
}
