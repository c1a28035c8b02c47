package model

// PromptRecord is the immutable record created by a prompt submission. It is
// written exactly once and never mutated or deleted.
type PromptRecord struct {
	RequestID  ID     `json:"request_id"`
	Submitter  ID     `json:"submitter"`
	Seq        uint64 `json:"seq"`
	PromptHash Hash   `json:"prompt_hash"`
}
