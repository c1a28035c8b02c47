package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/errors"
	"github.com/devrev/promptledger/internal/ledger"
	"github.com/devrev/promptledger/internal/metrics"
	"github.com/devrev/promptledger/internal/model"
)

// LedgerService is the orchestration layer around the core ledger: it
// serializes mutating calls (the single-writer guarantee the core relies
// on), journals accepted commands, publishes events, and records metrics.
type LedgerService struct {
	core    *ledger.Ledger
	journal *JournalService
	events  *EventService
	metrics *metrics.Metrics
	logger  *zap.Logger

	// writeMu serializes all mutating calls. The core's own reentry guard
	// then only ever trips on same-stack re-entry.
	writeMu sync.Mutex

	ready atomic.Bool
}

// NewLedgerService creates a new ledger service. journal may be nil when
// durability is disabled.
func NewLedgerService(
	core *ledger.Ledger,
	journal *JournalService,
	events *EventService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		core:    core,
		journal: journal,
		events:  events,
		metrics: m,
		logger:  logger,
	}
}

// Recover replays the journal through the core and rebuilds the event log.
// Must be called before the service accepts traffic.
func (s *LedgerService) Recover(ctx context.Context) error {
	if s.journal == nil {
		s.ready.Store(true)
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	replayed, err := s.journal.Replay(ctx, func(cmd *model.Command) error {
		ev, err := s.applyCommand(cmd)
		if err != nil {
			return err
		}
		if ev.Seq != cmd.Seq {
			s.logger.Warn("Sequence mismatch during replay",
				zap.Uint64("journal_seq", cmd.Seq),
				zap.Uint64("replayed_seq", ev.Seq))
		}
		s.events.Publish(ev)
		if s.metrics != nil {
			s.metrics.JournalReplayedTotal.Inc()
		}
		return nil
	})
	if err != nil {
		return errors.JournalFailed("journal replay failed", err)
	}

	if s.metrics != nil {
		s.metrics.UpdateState(s.core.TotalRequests(), s.core.SessionCount(), s.core.Paused(), s.core.Seq())
	}

	s.logger.Info("Ledger recovered",
		zap.Int("commands", replayed),
		zap.Uint64("seq", s.core.Seq()),
		zap.Int("requests", s.core.TotalRequests()),
		zap.Int("sessions", s.core.SessionCount()))

	s.ready.Store(true)
	return nil
}

// Ready reports whether recovery has completed
func (s *LedgerService) Ready() bool {
	return s.ready.Load()
}

// applyCommand routes a journaled command back through the core
func (s *LedgerService) applyCommand(cmd *model.Command) (*model.Event, error) {
	switch cmd.Op {
	case model.OpSubmitPrompt:
		return s.core.SubmitPrompt(cmd.Caller, cmd.RequestID, cmd.PromptHash)
	case model.OpSetResponse:
		return s.core.SetResponse(cmd.Caller, cmd.RequestID, cmd.ResponseHash)
	case model.OpSetResponseBatch:
		ev, _, err := s.core.SetResponseBatch(cmd.Caller, cmd.RequestIDs, cmd.ResponseHashes)
		return ev, err
	case model.OpCreateSession:
		return s.core.CreateSession(cmd.Caller, cmd.SessionID)
	case model.OpAppendSessionRequest:
		return s.core.AppendSessionRequest(cmd.Caller, cmd.SessionID, cmd.RequestID)
	case model.OpSetPaused:
		return s.core.SetPaused(cmd.Caller, cmd.Paused)
	default:
		return nil, errors.InvalidRequest("unknown journal command op: " + string(cmd.Op))
	}
}

// commit journals the accepted command, publishes its event, and updates
// metrics. State is already applied; a journal failure is logged, not
// surfaced, since the caller's write has committed.
func (s *LedgerService) commit(ctx context.Context, op string, cmd *model.Command, ev *model.Event, start time.Time) {
	if s.journal != nil {
		journalStart := time.Now()
		if err := s.journal.Append(ctx, cmd); err != nil {
			s.logger.Error("Failed to journal command",
				zap.String("op", op),
				zap.Uint64("seq", cmd.Seq),
				zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.RecordJournalAppend(time.Since(journalStart).Seconds(), s.journal.Size())
		}
	}

	s.events.Publish(ev)

	if s.metrics != nil {
		s.metrics.RecordOperation(op, time.Since(start).Seconds())
		s.metrics.UpdateState(s.core.TotalRequests(), s.core.SessionCount(), s.core.Paused(), s.core.Seq())
	}
}

// reject logs and counts a rejected call
func (s *LedgerService) reject(op string, err error) {
	s.logger.Warn("Call rejected",
		zap.String("op", op),
		zap.String("code", errors.APICode(err)),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordError(errors.APICode(err))
	}
}

// SubmitPrompt records a prompt submission from any caller
func (s *LedgerService) SubmitPrompt(ctx context.Context, caller, requestID model.ID, promptHash model.Hash) (*model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, err := s.core.SubmitPrompt(caller, requestID, promptHash)
	if err != nil {
		s.reject("submit_prompt", err)
		return nil, err
	}

	s.commit(ctx, "submit_prompt", &model.Command{
		Seq:        ev.Seq,
		Op:         model.OpSubmitPrompt,
		Caller:     caller,
		RequestID:  requestID,
		PromptHash: promptHash,
		Timestamp:  ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.Inc()
	}
	s.logger.Debug("Prompt submitted",
		zap.String("request_id", requestID.Short()),
		zap.String("submitter", caller.Short()),
		zap.Uint64("seq", ev.Seq))
	return ev, nil
}

// SetResponse records a single response commitment (operator only)
func (s *LedgerService) SetResponse(ctx context.Context, caller, requestID model.ID, responseHash model.Hash) (*model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, err := s.core.SetResponse(caller, requestID, responseHash)
	if err != nil {
		s.reject("set_response", err)
		return nil, err
	}

	s.commit(ctx, "set_response", &model.Command{
		Seq:          ev.Seq,
		Op:           model.OpSetResponse,
		Caller:       caller,
		RequestID:    requestID,
		ResponseHash: responseHash,
		Timestamp:    ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.ResponsesTotal.Inc()
	}
	return ev, nil
}

// SetResponseBatch records a batch of response commitments (operator only)
func (s *LedgerService) SetResponseBatch(ctx context.Context, caller model.ID, requestIDs []model.ID, responseHashes []model.Hash) (*model.Event, int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, applied, err := s.core.SetResponseBatch(caller, requestIDs, responseHashes)
	if err != nil {
		s.reject("set_response_batch", err)
		return nil, 0, err
	}

	s.commit(ctx, "set_response_batch", &model.Command{
		Seq:            ev.Seq,
		Op:             model.OpSetResponseBatch,
		Caller:         caller,
		RequestIDs:     requestIDs,
		ResponseHashes: responseHashes,
		Timestamp:      ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.RecordBatch(len(requestIDs), applied)
	}
	s.logger.Debug("Response batch recorded",
		zap.Int("batch_len", len(requestIDs)),
		zap.Int("applied", applied),
		zap.Uint64("seq", ev.Seq))
	return ev, applied, nil
}

// CreateSession creates a named session (session-keeper only)
func (s *LedgerService) CreateSession(ctx context.Context, caller, sessionID model.ID) (*model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, err := s.core.CreateSession(caller, sessionID)
	if err != nil {
		s.reject("create_session", err)
		return nil, err
	}

	s.commit(ctx, "create_session", &model.Command{
		Seq:       ev.Seq,
		Op:        model.OpCreateSession,
		Caller:    caller,
		SessionID: sessionID,
		Timestamp: ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.SessionsCreatedTotal.Inc()
	}
	return ev, nil
}

// AppendSessionRequest appends a request id to a session (session-keeper only)
func (s *LedgerService) AppendSessionRequest(ctx context.Context, caller, sessionID, requestID model.ID) (*model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, err := s.core.AppendSessionRequest(caller, sessionID, requestID)
	if err != nil {
		s.reject("append_session_request", err)
		return nil, err
	}

	s.commit(ctx, "append_session_request", &model.Command{
		Seq:       ev.Seq,
		Op:        model.OpAppendSessionRequest,
		Caller:    caller,
		SessionID: sessionID,
		RequestID: requestID,
		Timestamp: ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.SessionAppendsTotal.Inc()
	}
	return ev, nil
}

// SetPaused toggles the pause flag (operator only)
func (s *LedgerService) SetPaused(ctx context.Context, caller model.ID, paused bool) (*model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	ev, err := s.core.SetPaused(caller, paused)
	if err != nil {
		s.reject("set_paused", err)
		return nil, err
	}

	s.commit(ctx, "set_paused", &model.Command{
		Seq:       ev.Seq,
		Op:        model.OpSetPaused,
		Caller:    caller,
		Paused:    paused,
		Timestamp: ev.Timestamp,
	}, ev, start)

	if s.metrics != nil {
		s.metrics.PauseTogglesTotal.Inc()
	}
	s.logger.Info("Pause flag updated", zap.Bool("paused", paused))
	return ev, nil
}

// Read-only views, delegated to the core.

func (s *LedgerService) Paused() bool { return s.core.Paused() }

func (s *LedgerService) Seq() uint64 { return s.core.Seq() }

func (s *LedgerService) TotalRequests() int { return s.core.TotalRequests() }

func (s *LedgerService) SessionCount() int { return s.core.SessionCount() }

func (s *LedgerService) Response(id model.ID) model.Hash { return s.core.Response(id) }

func (s *LedgerService) PromptSender(id model.ID) model.ID { return s.core.PromptSender(id) }

func (s *LedgerService) PromptSeq(id model.ID) uint64 { return s.core.PromptSeq(id) }

func (s *LedgerService) Prompt(id model.ID) (model.PromptRecord, bool) {
	return s.core.Prompt(id)
}

func (s *LedgerService) RequestAt(index int) (model.ID, error) {
	return s.core.RequestAt(index)
}

func (s *LedgerService) SessionAt(index int) (model.ID, error) {
	return s.core.SessionAt(index)
}

func (s *LedgerService) SessionRequestCount(sessionID model.ID) int {
	return s.core.SessionRequestCount(sessionID)
}

func (s *LedgerService) SessionRequestAt(sessionID model.ID, index int) (model.ID, error) {
	return s.core.SessionRequestAt(sessionID, index)
}

// EventsSince returns events from the notification log
func (s *LedgerService) EventsSince(seq uint64, limit int) []model.Event {
	return s.events.Since(seq, limit)
}
