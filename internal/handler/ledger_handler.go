// Package handler provides HTTP request handlers for the ledger service.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/errors"
	"github.com/devrev/promptledger/internal/model"
	"github.com/devrev/promptledger/internal/service"
)

const maxEventPageSize = 1000

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	service *service.LedgerService
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *service.LedgerService, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: svc,
		logger:  logger,
	}
}

// SubmitPrompt handles POST /v1/prompts requests.
func (h *Handlers) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SubmitPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	requestID, err := parseField("request_id", req.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	promptHash, err := parseField("prompt_hash", req.PromptHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ev, err := h.service.SubmitPrompt(r.Context(), caller, requestID, promptHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, MutationResponse{Status: "success", Seq: ev.Seq})
}

// GetPrompt handles GET /v1/prompts/{id} requests.
func (h *Handlers) GetPrompt(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseField("id", mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, found := h.service.Prompt(requestID)
	resp := PromptResponse{
		Status:    "success",
		Found:     found,
		RequestID: requestID.String(),
	}
	if found {
		resp.Submitter = record.Submitter.String()
		resp.Seq = record.Seq
		resp.PromptHash = record.PromptHash.String()
		if hash := h.service.Response(requestID); !hash.IsZero() {
			resp.ResponseHash = hash.String()
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// RequestAt handles GET /v1/prompts?index=n requests.
func (h *Handlers) RequestAt(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r, "index")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.service.RequestAt(index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, IDResponse{Status: "success", Index: index, ID: id.String()})
}

// RequestCount handles GET /v1/prompts/count requests.
func (h *Handlers) RequestCount(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, CountResponse{Status: "success", Count: h.service.TotalRequests()})
}

// SetResponse handles POST /v1/responses requests.
func (h *Handlers) SetResponse(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SetResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	requestID, err := parseField("request_id", req.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	responseHash, err := parseField("response_hash", req.ResponseHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ev, err := h.service.SetResponse(r.Context(), caller, requestID, responseHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, MutationResponse{Status: "success", Seq: ev.Seq})
}

// SetResponseBatch handles POST /v1/responses/batch requests.
func (h *Handlers) SetResponseBatch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SetResponseBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	requestIDs := make([]model.ID, len(req.RequestIDs))
	for i, s := range req.RequestIDs {
		id, err := parseField("request_ids", s)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		requestIDs[i] = id
	}
	responseHashes := make([]model.Hash, len(req.ResponseHashes))
	for i, s := range req.ResponseHashes {
		hash, err := parseField("response_hashes", s)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		responseHashes[i] = hash
	}

	ev, applied, err := h.service.SetResponseBatch(r.Context(), caller, requestIDs, responseHashes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, BatchResponse{
		Status:   "success",
		Seq:      ev.Seq,
		BatchLen: len(requestIDs),
		Applied:  applied,
		Skipped:  len(requestIDs) - applied,
	})
}

// GetResponse handles GET /v1/responses/{id} requests.
func (h *Handlers) GetResponse(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseField("id", mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	hash := h.service.Response(requestID)
	resp := ResponseHashResponse{
		Status:    "success",
		RequestID: requestID.String(),
		Set:       !hash.IsZero(),
	}
	if resp.Set {
		resp.ResponseHash = hash.String()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateSession handles POST /v1/sessions requests.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	sessionID, err := parseField("session_id", req.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ev, err := h.service.CreateSession(r.Context(), caller, sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, MutationResponse{Status: "success", Seq: ev.Seq})
}

// SessionAt handles GET /v1/sessions?index=n requests.
func (h *Handlers) SessionAt(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r, "index")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.service.SessionAt(index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, IDResponse{Status: "success", Index: index, ID: id.String()})
}

// SessionCount handles GET /v1/sessions/count requests.
func (h *Handlers) SessionCount(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, CountResponse{Status: "success", Count: h.service.SessionCount()})
}

// AppendSessionRequest handles POST /v1/sessions/{id}/requests requests.
func (h *Handlers) AppendSessionRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sessionID, err := parseField("id", mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req AppendSessionRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	requestID, err := parseField("request_id", req.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ev, err := h.service.AppendSessionRequest(r.Context(), caller, sessionID, requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, MutationResponse{Status: "success", Seq: ev.Seq})
}

// SessionRequestCount handles GET /v1/sessions/{id}/requests/count requests.
func (h *Handlers) SessionRequestCount(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseField("id", mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, CountResponse{
		Status: "success",
		Count:  h.service.SessionRequestCount(sessionID),
	})
}

// SessionRequestAt handles GET /v1/sessions/{id}/requests/{index} requests.
func (h *Handlers) SessionRequestAt(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseField("id", mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 {
		h.writeError(w, r, errors.InvalidRequest("index must be a non-negative integer"))
		return
	}

	id, err := h.service.SessionRequestAt(sessionID, index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, IDResponse{Status: "success", Index: index, ID: id.String()})
}

// SetPaused handles PUT /v1/admin/pause requests.
func (h *Handlers) SetPaused(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SetPausedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	ev, err := h.service.SetPaused(r.Context(), caller, req.Paused)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, MutationResponse{Status: "success", Seq: ev.Seq})
}

// GetPaused handles GET /v1/admin/pause requests.
func (h *Handlers) GetPaused(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, PausedResponse{Status: "success", Paused: h.service.Paused()})
}

// Events handles GET /v1/events requests.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			h.writeError(w, r, errors.InvalidRequest("since must be a non-negative integer"))
			return
		}
		since = v
	}

	limit := maxEventPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			h.writeError(w, r, errors.InvalidRequest("limit must be a positive integer"))
			return
		}
		if v < limit {
			limit = v
		}
	}

	events := h.service.EventsSince(since, limit)
	h.writeJSON(w, http.StatusOK, EventsResponse{
		Status: "success",
		Since:  since,
		Count:  len(events),
		Events: events,
	})
}

// callerFrom extracts the caller identity from the X-Caller-ID header
func callerFrom(r *http.Request) (model.ID, error) {
	raw := r.Header.Get("X-Caller-ID")
	if raw == "" {
		return model.ZeroID, errors.InvalidRequest("X-Caller-ID header is required")
	}
	id, err := model.ParseID(raw)
	if err != nil {
		return model.ZeroID, errors.InvalidRequest("X-Caller-ID is not a valid identifier").
			WithDetail("cause", err.Error())
	}
	return id, nil
}

// parseField parses a hex identifier from a request field
func parseField(field, value string) (model.ID, error) {
	if value == "" {
		return model.ZeroID, errors.InvalidRequest(field + " is required")
	}
	id, err := model.ParseID(value)
	if err != nil {
		return model.ZeroID, errors.InvalidRequest(field+" is not a valid identifier").
			WithDetail("cause", err.Error())
	}
	return id, nil
}

// parseIndex parses a non-negative index from a query parameter
func parseIndex(r *http.Request, param string) (int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 0, errors.InvalidRequest(param + " query parameter is required")
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, errors.InvalidRequest(param + " must be a non-negative integer")
	}
	return index, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errors.APICode(err),
		Message:   err.Error(),
		RequestID: r.Header.Get("X-Request-ID"),
	}
	if le, ok := err.(*errors.LedgerError); ok && len(le.Details) > 0 {
		resp.Details = le.Details
	}
	h.writeJSON(w, errors.HTTPStatus(err), resp)
}
