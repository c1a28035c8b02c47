package model

// CommandOp identifies a state-mutating ledger operation.
type CommandOp string

const (
	OpSubmitPrompt         CommandOp = "submit_prompt"
	OpSetResponse          CommandOp = "set_response"
	OpSetResponseBatch     CommandOp = "set_response_batch"
	OpCreateSession        CommandOp = "create_session"
	OpAppendSessionRequest CommandOp = "append_session_request"
	OpSetPaused            CommandOp = "set_paused"
)

// Command is the journal representation of an accepted mutating call. The
// ledger is deterministic, so replaying the journaled commands in order
// reproduces the exact same state and sequence markers.
type Command struct {
	Seq            uint64    `json:"seq"`
	Op             CommandOp `json:"op"`
	Caller         ID        `json:"caller"`
	RequestID      ID        `json:"request_id"`
	SessionID      ID        `json:"session_id"`
	PromptHash     Hash      `json:"prompt_hash"`
	ResponseHash   Hash      `json:"response_hash"`
	RequestIDs     []ID      `json:"request_ids,omitempty"`
	ResponseHashes []Hash    `json:"response_hashes,omitempty"`
	Paused         bool      `json:"paused,omitempty"`
	Timestamp      int64     `json:"timestamp"`
}
