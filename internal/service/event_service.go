package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/metrics"
	"github.com/devrev/promptledger/internal/model"
	"github.com/devrev/promptledger/internal/store"
)

const archiveQueueSize = 1024

// EventService maintains the append-only notification log. Events are
// readable by sequence marker and observable through buffered subscriber
// channels; a slow subscriber never blocks the ledger. When an archive is
// configured, committed events are forwarded to it asynchronously.
type EventService struct {
	mu        sync.RWMutex
	events    []model.Event
	subs      map[int]chan model.Event
	nextSubID int

	archive   store.Archive
	archiveCh chan model.Event
	stopCh    chan struct{}
	doneCh    chan struct{}

	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewEventService creates a new event service. archive may be nil.
func NewEventService(archive store.Archive, m *metrics.Metrics, logger *zap.Logger) *EventService {
	s := &EventService{
		subs:    make(map[int]chan model.Event),
		archive: archive,
		metrics: m,
		logger:  logger,
	}

	if archive != nil {
		s.archiveCh = make(chan model.Event, archiveQueueSize)
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.archiveWorker()
	}

	return s
}

// Publish appends an event to the log and fans it out to subscribers
func (s *EventService) Publish(event *model.Event) {
	s.mu.Lock()
	s.events = append(s.events, *event)
	for _, ch := range s.subs {
		select {
		case ch <- *event:
		default:
			// Subscriber buffer full; the event stays readable via Since.
		}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EventsEmittedTotal.Inc()
	}

	if s.archiveCh != nil {
		select {
		case s.archiveCh <- *event:
		default:
			s.logger.Warn("Archive queue full, dropping event",
				zap.Uint64("seq", event.Seq),
				zap.String("type", string(event.Type)))
		}
	}
}

// Since returns up to limit events with a sequence marker greater than seq,
// in emission order. A limit of zero or less means no limit.
func (s *EventService) Since(seq uint64, limit int) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Seq <= seq {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Len returns the number of events in the log
func (s *EventService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function unregisters and closes it.
func (s *EventService) Subscribe(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan model.Event, buffer)
	s.subs[id] = ch
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EventSubscribers.Inc()
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
			if s.metrics != nil {
				s.metrics.EventSubscribers.Dec()
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// archiveWorker forwards events to the archive off the write path
func (s *EventService) archiveWorker() {
	defer close(s.doneCh)

	for {
		select {
		case ev := <-s.archiveCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.archive.SaveEvent(ctx, &ev); err != nil {
				s.logger.Warn("Failed to archive event",
					zap.Uint64("seq", ev.Seq),
					zap.Error(err))
			}
			cancel()
		case <-s.stopCh:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case ev := <-s.archiveCh:
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					if err := s.archive.SaveEvent(ctx, &ev); err != nil {
						s.logger.Warn("Failed to archive event during shutdown",
							zap.Uint64("seq", ev.Seq),
							zap.Error(err))
					}
					cancel()
				default:
					return
				}
			}
		}
	}
}

// Close stops the archive worker, if any
func (s *EventService) Close() {
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
	}
}
