// Package ledger implements the core state machine: an append-only,
// access-controlled record of prompt submissions and response commitments,
// optionally organized into named sessions. All state lives in one aggregate;
// there is no I/O here.
package ledger

import (
	"sync"
	"time"

	"github.com/devrev/promptledger/internal/errors"
	"github.com/devrev/promptledger/internal/model"
)

// Default capacity bounds. Overflow is rejected, never truncated.
const (
	DefaultMaxRequests        = 1_000_000
	DefaultMaxSessionRequests = 10_000
	DefaultMaxBatchSize       = 100
)

// Config holds the fixed parameters of a ledger instance. The two privileged
// identities are validated once at construction and never change.
type Config struct {
	Operator           model.ID
	SessionKeeper      model.ID
	MaxRequests        int
	MaxSessionRequests int
	MaxBatchSize       int
}

type sessionState struct {
	requests []model.ID
}

// Ledger is the single stateful component. Mutating methods are guarded
// against same-stack re-entry and must be externally serialized (the service
// layer holds a single-writer lock); reads are safe at any time.
type Ledger struct {
	cfg Config

	// guard is the reentry guard: held for the duration of one mutating
	// call and released on every exit path. TryLock failure means a guarded
	// operation re-entered itself.
	guard sync.Mutex

	mu           sync.RWMutex
	paused       bool
	seq          uint64
	prompts      map[model.ID]*model.PromptRecord
	responses    map[model.ID]model.Hash
	requestIndex []model.ID
	sessions     map[model.ID]*sessionState
	sessionIndex []model.ID

	clock func() time.Time
}

// New creates a ledger. A zero operator or session-keeper identity is fatal.
func New(cfg Config) (*Ledger, error) {
	if cfg.Operator.IsZero() {
		return nil, errors.ZeroIdentifier("operator")
	}
	if cfg.SessionKeeper.IsZero() {
		return nil, errors.ZeroIdentifier("session_keeper")
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.MaxSessionRequests <= 0 {
		cfg.MaxSessionRequests = DefaultMaxSessionRequests
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	return &Ledger{
		cfg:       cfg,
		prompts:   make(map[model.ID]*model.PromptRecord),
		responses: make(map[model.ID]model.Hash),
		sessions:  make(map[model.ID]*sessionState),
		clock:     time.Now,
	}, nil
}

// begin acquires the reentry guard. It never blocks: a guarded operation
// invoked from within another guarded operation is rejected outright.
func (l *Ledger) begin() error {
	if !l.guard.TryLock() {
		return errors.ReentrantCall()
	}
	return nil
}

func (l *Ledger) end() {
	l.guard.Unlock()
}

func (l *Ledger) event(t model.EventType) *model.Event {
	return &model.Event{
		Seq:       l.seq,
		Type:      t,
		Timestamp: l.clock().Unix(),
	}
}

// SubmitPrompt records a prompt submission. Open to any caller; rejected
// entirely while paused. The request id must be non-zero and never seen
// before, and the global request capacity must not be reached.
func (l *Ledger) SubmitPrompt(caller, requestID model.ID, promptHash model.Hash) (*model.Event, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return nil, errors.Paused()
	}
	if requestID.IsZero() {
		return nil, errors.ZeroIdentifier("request_id")
	}
	if _, exists := l.prompts[requestID]; exists {
		return nil, errors.AlreadySubmitted(requestID.String())
	}
	if len(l.requestIndex) >= l.cfg.MaxRequests {
		return nil, errors.CapacityExceeded("requests", len(l.requestIndex), l.cfg.MaxRequests)
	}

	l.seq++
	l.prompts[requestID] = &model.PromptRecord{
		RequestID:  requestID,
		Submitter:  caller,
		Seq:        l.seq,
		PromptHash: promptHash,
	}
	l.requestIndex = append(l.requestIndex, requestID)

	ev := l.event(model.EventSubmissionRecorded)
	ev.Caller = caller
	ev.RequestID = requestID
	ev.PromptHash = promptHash
	return ev, nil
}

// SetResponse records a response commitment for a request. Operator only; not
// gated by pause, so the operator can drain a backlog while submissions are
// halted. A non-zero stored response is never overwritten.
func (l *Ledger) SetResponse(caller, requestID model.ID, responseHash model.Hash) (*model.Event, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Operator {
		return nil, errors.Unauthorized("operator")
	}
	if requestID.IsZero() {
		return nil, errors.ZeroIdentifier("request_id")
	}
	if !l.responses[requestID].IsZero() {
		return nil, errors.AlreadySet(requestID.String())
	}

	l.seq++
	l.responses[requestID] = responseHash

	ev := l.event(model.EventResponseRecorded)
	ev.Caller = caller
	ev.RequestID = requestID
	ev.ResponseHash = responseHash
	return ev, nil
}

// SetResponseBatch records up to MaxBatchSize response commitments in one
// call. Shape violations (mismatched, empty, or oversized inputs) abort the
// whole call before any write. Individual items with a zero id or an already
// set response are silently skipped; the batch never aborts because of one
// bad entry. The returned count is the number of responses actually written;
// the emitted event carries the nominal batch length.
func (l *Ledger) SetResponseBatch(caller model.ID, requestIDs []model.ID, responseHashes []model.Hash) (*model.Event, int, error) {
	if err := l.begin(); err != nil {
		return nil, 0, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Operator {
		return nil, 0, errors.Unauthorized("operator")
	}
	if len(requestIDs) != len(responseHashes) {
		return nil, 0, errors.InvalidLength("request id and response hash counts differ").
			WithDetail("request_ids", len(requestIDs)).
			WithDetail("response_hashes", len(responseHashes))
	}
	if len(requestIDs) == 0 {
		return nil, 0, errors.InvalidLength("batch is empty")
	}
	if len(requestIDs) > l.cfg.MaxBatchSize {
		return nil, 0, errors.InvalidLength("batch exceeds maximum size").
			WithDetail("size", len(requestIDs)).
			WithDetail("max_size", l.cfg.MaxBatchSize)
	}

	l.seq++
	applied := 0
	for i, requestID := range requestIDs {
		if requestID.IsZero() {
			continue
		}
		if !l.responses[requestID].IsZero() {
			continue
		}
		l.responses[requestID] = responseHashes[i]
		applied++
	}

	ev := l.event(model.EventResponseBatchRecorded)
	ev.Caller = caller
	ev.BatchLen = len(requestIDs)
	return ev, applied, nil
}

// CreateSession creates an empty named session. Session-keeper only; a
// session id is created exactly once.
func (l *Ledger) CreateSession(caller, sessionID model.ID) (*model.Event, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.SessionKeeper {
		return nil, errors.Unauthorized("session keeper")
	}
	if sessionID.IsZero() {
		return nil, errors.ZeroIdentifier("session_id")
	}
	if _, exists := l.sessions[sessionID]; exists {
		return nil, errors.AlreadyExists(sessionID.String())
	}

	l.seq++
	l.sessions[sessionID] = &sessionState{}
	l.sessionIndex = append(l.sessionIndex, sessionID)

	ev := l.event(model.EventSessionCreated)
	ev.Caller = caller
	ev.SessionID = sessionID
	ev.RequestCount = 0
	return ev, nil
}

// AppendSessionRequest appends a request id to an existing session.
// Session-keeper only. The request id is not validated against the prompt
// registry and may repeat or be zero; only the session itself is checked.
func (l *Ledger) AppendSessionRequest(caller, sessionID, requestID model.ID) (*model.Event, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.SessionKeeper {
		return nil, errors.Unauthorized("session keeper")
	}
	if sessionID.IsZero() {
		return nil, errors.ZeroIdentifier("session_id")
	}
	sess, exists := l.sessions[sessionID]
	if !exists {
		return nil, errors.UnknownSession(sessionID.String())
	}
	if len(sess.requests) >= l.cfg.MaxSessionRequests {
		return nil, errors.CapacityExceeded("session requests", len(sess.requests), l.cfg.MaxSessionRequests)
	}

	l.seq++
	sess.requests = append(sess.requests, requestID)

	ev := l.event(model.EventSessionRequestAppended)
	ev.Caller = caller
	ev.SessionID = sessionID
	ev.RequestID = requestID
	ev.RequestCount = len(sess.requests)
	return ev, nil
}

// SetPaused toggles the global pause flag. Operator only. Pause gates only
// the unprivileged submit path.
func (l *Ledger) SetPaused(caller model.ID, paused bool) (*model.Event, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Operator {
		return nil, errors.Unauthorized("operator")
	}

	l.seq++
	l.paused = paused

	ev := l.event(model.EventPauseToggled)
	ev.Caller = caller
	ev.Paused = paused
	return ev, nil
}

// Read-only views. These observe committed state and are never gated.

// Paused reports the global pause flag.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

// Seq returns the current sequence marker.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Response returns the stored response hash, or the zero sentinel if no
// response has been set.
func (l *Ledger) Response(requestID model.ID) model.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.responses[requestID]
}

// Prompt returns a copy of the prompt record, or false if never submitted.
func (l *Ledger) Prompt(requestID model.ID) (model.PromptRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.prompts[requestID]
	if !ok {
		return model.PromptRecord{}, false
	}
	return *rec, true
}

// PromptSender returns the submitter identity, or the zero sentinel.
func (l *Ledger) PromptSender(requestID model.ID) model.ID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.prompts[requestID]; ok {
		return rec.Submitter
	}
	return model.ZeroID
}

// PromptSeq returns the sequence marker recorded at submission, or zero.
func (l *Ledger) PromptSeq(requestID model.ID) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.prompts[requestID]; ok {
		return rec.Seq
	}
	return 0
}

// TotalRequests returns the number of recorded prompt submissions.
func (l *Ledger) TotalRequests() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.requestIndex)
}

// RequestAt returns the request id at the given submission-order index.
func (l *Ledger) RequestAt(index int) (model.ID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.requestIndex) {
		return model.ZeroID, errors.InvalidIndex(index, len(l.requestIndex))
	}
	return l.requestIndex[index], nil
}

// SessionCount returns the number of created sessions.
func (l *Ledger) SessionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessionIndex)
}

// SessionAt returns the session id at the given creation-order index.
func (l *Ledger) SessionAt(index int) (model.ID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.sessionIndex) {
		return model.ZeroID, errors.InvalidIndex(index, len(l.sessionIndex))
	}
	return l.sessionIndex[index], nil
}

// SessionRequestCount returns the number of request ids appended to the
// session, or zero for an unknown session.
func (l *Ledger) SessionRequestCount(sessionID model.ID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sess, ok := l.sessions[sessionID]; ok {
		return len(sess.requests)
	}
	return 0
}

// SessionRequestAt returns the request id at the given position within a
// session. Unknown sessions have length zero, so every index is out of range.
func (l *Ledger) SessionRequestAt(sessionID model.ID, index int) (model.ID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var requests []model.ID
	if sess, ok := l.sessions[sessionID]; ok {
		requests = sess.requests
	}
	if index < 0 || index >= len(requests) {
		return model.ZeroID, errors.InvalidIndex(index, len(requests))
	}
	return requests[index], nil
}
