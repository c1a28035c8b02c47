package handler

import "github.com/devrev/promptledger/internal/model"

// SubmitPromptRequest is the body for POST /v1/prompts
type SubmitPromptRequest struct {
	RequestID  string `json:"request_id"`
	PromptHash string `json:"prompt_hash"`
}

// SetResponseRequest is the body for POST /v1/responses
type SetResponseRequest struct {
	RequestID    string `json:"request_id"`
	ResponseHash string `json:"response_hash"`
}

// SetResponseBatchRequest is the body for POST /v1/responses/batch.
// The two lists are parallel and must be the same length.
type SetResponseBatchRequest struct {
	RequestIDs     []string `json:"request_ids"`
	ResponseHashes []string `json:"response_hashes"`
}

// CreateSessionRequest is the body for POST /v1/sessions
type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
}

// AppendSessionRequestRequest is the body for POST /v1/sessions/{id}/requests
type AppendSessionRequestRequest struct {
	RequestID string `json:"request_id"`
}

// SetPausedRequest is the body for PUT /v1/admin/pause
type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

// MutationResponse is the success envelope for mutating calls
type MutationResponse struct {
	Status string `json:"status"`
	Seq    uint64 `json:"seq"`
}

// BatchResponse is the success envelope for batch response writes
type BatchResponse struct {
	Status   string `json:"status"`
	Seq      uint64 `json:"seq"`
	BatchLen int    `json:"batch_len"`
	Applied  int    `json:"applied"`
	Skipped  int    `json:"skipped"`
}

// PromptResponse is the read view of a recorded prompt
type PromptResponse struct {
	Status       string `json:"status"`
	Found        bool   `json:"found"`
	RequestID    string `json:"request_id"`
	Submitter    string `json:"submitter,omitempty"`
	Seq          uint64 `json:"seq,omitempty"`
	PromptHash   string `json:"prompt_hash,omitempty"`
	ResponseHash string `json:"response_hash,omitempty"`
}

// ResponseHashResponse is the read view of a response commitment
type ResponseHashResponse struct {
	Status       string `json:"status"`
	RequestID    string `json:"request_id"`
	Set          bool   `json:"set"`
	ResponseHash string `json:"response_hash,omitempty"`
}

// CountResponse carries a single count
type CountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// IDResponse carries a single identifier looked up by index
type IDResponse struct {
	Status string `json:"status"`
	Index  int    `json:"index"`
	ID     string `json:"id"`
}

// PausedResponse is the read view of the pause flag
type PausedResponse struct {
	Status string `json:"status"`
	Paused bool   `json:"paused"`
}

// EventsResponse is the read view of the notification log
type EventsResponse struct {
	Status string        `json:"status"`
	Since  uint64        `json:"since"`
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

// ErrorResponse is the error envelope for all endpoints
type ErrorResponse struct {
	Status    string                 `json:"status"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
