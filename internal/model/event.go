package model

// EventType identifies a ledger notification.
type EventType string

const (
	EventSubmissionRecorded     EventType = "submission-recorded"
	EventResponseRecorded       EventType = "response-recorded"
	EventResponseBatchRecorded  EventType = "response-batch-recorded"
	EventSessionCreated         EventType = "session-created"
	EventSessionRequestAppended EventType = "session-request-appended"
	EventPauseToggled           EventType = "pause-toggled"
)

// Event is a single entry in the append-only notification log. Every event
// carries the sequence marker of the mutating call that produced it. Fields
// that do not apply to a given event type hold their zero value.
type Event struct {
	Seq          uint64    `json:"seq"`
	Type         EventType `json:"type"`
	Caller       ID        `json:"caller"`
	RequestID    ID        `json:"request_id"`
	SessionID    ID        `json:"session_id"`
	PromptHash   Hash      `json:"prompt_hash"`
	ResponseHash Hash      `json:"response_hash"`
	BatchLen     int       `json:"batch_len,omitempty"`
	RequestCount int       `json:"request_count,omitempty"`
	Paused       bool      `json:"paused,omitempty"`
	Timestamp    int64     `json:"timestamp"`
}
