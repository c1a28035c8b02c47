package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/model"
	"github.com/devrev/promptledger/internal/store"
)

func testEvent(seq uint64) *model.Event {
	return &model.Event{
		Seq:       seq,
		Type:      model.EventSubmissionRecorded,
		Timestamp: 1700000000,
	}
}

func TestEventServiceSince(t *testing.T) {
	s := NewEventService(nil, nil, zap.NewNop())
	defer s.Close()

	for i := uint64(1); i <= 5; i++ {
		s.Publish(testEvent(i))
	}

	assert.Equal(t, 5, s.Len())

	all := s.Since(0, 0)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(1), all[0].Seq)

	tail := s.Since(3, 0)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(4), tail[0].Seq)

	limited := s.Since(0, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(2), limited[1].Seq)

	assert.Empty(t, s.Since(5, 0))
}

func TestEventServiceSubscribe(t *testing.T) {
	s := NewEventService(nil, nil, zap.NewNop())
	defer s.Close()

	ch, cancel := s.Subscribe(4)
	defer cancel()

	s.Publish(testEvent(1))
	s.Publish(testEvent(2))

	ev := <-ch
	assert.Equal(t, uint64(1), ev.Seq)
	ev = <-ch
	assert.Equal(t, uint64(2), ev.Seq)
}

func TestEventServiceSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewEventService(nil, nil, zap.NewNop())
	defer s.Close()

	_, cancel := s.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := uint64(1); i <= 10; i++ {
			s.Publish(testEvent(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}

	// Dropped notifications remain readable from the log itself.
	assert.Equal(t, 10, s.Len())
}

func TestEventServiceArchiveForwarding(t *testing.T) {
	archive := store.NewMemoryArchive()
	s := NewEventService(archive, nil, zap.NewNop())

	for i := uint64(1); i <= 3; i++ {
		s.Publish(testEvent(i))
	}
	s.Close()

	saved, err := archive.EventsSince(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

func TestEventServiceSubscribeCancel(t *testing.T) {
	s := NewEventService(nil, nil, zap.NewNop())
	defer s.Close()

	ch, cancel := s.Subscribe(1)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Cancel is idempotent.
	cancel()
	s.Publish(testEvent(1))
}
