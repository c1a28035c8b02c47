package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/config"
	"github.com/devrev/promptledger/internal/ledger"
	"github.com/devrev/promptledger/internal/metrics"
	"github.com/devrev/promptledger/internal/model"
	"github.com/devrev/promptledger/internal/service"
)

func hexID(b byte) string {
	return strings.Repeat("00", 31) + fmt.Sprintf("%02x", b)
}

var (
	operatorHex = hexID(0xAA)
	keeperHex   = hexID(0xBB)
	callerHex   = hexID(0xCC)
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	operator, err := model.ParseID(operatorHex)
	require.NoError(t, err)
	keeper, err := model.ParseID(keeperHex)
	require.NoError(t, err)

	core, err := ledger.New(ledger.Config{
		Operator:      operator,
		SessionKeeper: keeper,
	})
	require.NoError(t, err)

	events := service.NewEventService(nil, nil, zap.NewNop())
	t.Cleanup(events.Close)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := service.NewLedgerService(core, nil, events, m, zap.NewNop())
	require.NoError(t, svc.Recover(context.Background()))

	cfg := &config.Config{}
	srv := NewServer(cfg, svc, zap.NewNop())
	srv.SetupRoutes()
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set("X-Caller-ID", caller)
	}
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func submitPrompt(t *testing.T, srv *Server, requestID, promptHash string) {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", callerHex, map[string]string{
		"request_id":  requestID,
		"prompt_hash": promptHash,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSubmitPromptEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("accepts submission", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", callerHex, map[string]string{
			"request_id":  hexID(1),
			"prompt_hash": hexID(0x11),
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, float64(1), body["seq"])
	})

	t.Run("rejects duplicate with conflict", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", callerHex, map[string]string{
			"request_id":  hexID(1),
			"prompt_hash": hexID(0x11),
		})
		require.Equal(t, http.StatusConflict, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "ALREADY_SUBMITTED", body["error_code"])
	})

	t.Run("requires caller header", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", "", map[string]string{
			"request_id":  hexID(2),
			"prompt_hash": hexID(0x22),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decode(t, rec)["error_code"])
	})

	t.Run("rejects zero request id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", callerHex, map[string]string{
			"request_id":  strings.Repeat("00", 32),
			"prompt_hash": hexID(0x22),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ZERO_IDENTIFIER", decode(t, rec)["error_code"])
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/prompts", strings.NewReader("{not json"))
		req.Header.Set("X-Caller-ID", callerHex)
		rec := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPromptReadEndpoints(t *testing.T) {
	srv := newTestServer(t)
	submitPrompt(t, srv, hexID(1), hexID(0x11))

	t.Run("get by id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/prompts/"+hexID(1), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, true, body["found"])
		assert.Equal(t, callerHex, body["submitter"])
		assert.Equal(t, float64(1), body["seq"])
		assert.Equal(t, hexID(0x11), body["prompt_hash"])
	})

	t.Run("get unknown id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/prompts/"+hexID(9), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decode(t, rec)["found"])
	})

	t.Run("count", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/prompts/count", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decode(t, rec)["count"])
	})

	t.Run("by index", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/prompts?index=0", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, hexID(1), decode(t, rec)["id"])
	})

	t.Run("index out of range", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/prompts?index=5", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INDEX", decode(t, rec)["error_code"])
	})
}

func TestResponseEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("non-operator is forbidden", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/responses", callerHex, map[string]string{
			"request_id":    hexID(1),
			"response_hash": hexID(0x11),
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["error_code"])
	})

	t.Run("operator sets response once", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/responses", operatorHex, map[string]string{
			"request_id":    hexID(1),
			"response_hash": hexID(0x11),
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(t, srv, http.MethodPost, "/v1/responses", operatorHex, map[string]string{
			"request_id":    hexID(1),
			"response_hash": hexID(0x22),
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_SET", decode(t, rec)["error_code"])
	})

	t.Run("read response", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/responses/"+hexID(1), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, true, body["set"])
		assert.Equal(t, hexID(0x11), body["response_hash"])
	})

	t.Run("read unset response", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/responses/"+hexID(9), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decode(t, rec)["set"])
	})
}

func TestResponseBatchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Pre-set one response so the batch skips it.
	rec := doRequest(t, srv, http.MethodPost, "/v1/responses", operatorHex, map[string]string{
		"request_id":    hexID(2),
		"response_hash": hexID(0x99),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("applies and skips", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/responses/batch", operatorHex, map[string]interface{}{
			"request_ids":     []string{hexID(1), hexID(2), hexID(3)},
			"response_hashes": []string{hexID(0x11), hexID(0x22), hexID(0x33)},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := decode(t, rec)
		assert.Equal(t, float64(3), body["batch_len"])
		assert.Equal(t, float64(2), body["applied"])
		assert.Equal(t, float64(1), body["skipped"])
	})

	t.Run("rejects mismatched lists", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/responses/batch", operatorHex, map[string]interface{}{
			"request_ids":     []string{hexID(4), hexID(5)},
			"response_hashes": []string{hexID(0x44)},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_LENGTH", decode(t, rec)["error_code"])
	})

	t.Run("keeper is forbidden", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/responses/batch", keeperHex, map[string]interface{}{
			"request_ids":     []string{hexID(4)},
			"response_hashes": []string{hexID(0x44)},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("keeper creates session", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/sessions", keeperHex, map[string]string{
			"session_id": hexID(7),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("operator cannot create session", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/sessions", operatorHex, map[string]string{
			"session_id": hexID(8),
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("appends requests", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/sessions/"+hexID(7)+"/requests", keeperHex, map[string]string{
			"request_id": hexID(1),
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(t, srv, http.MethodGet, "/v1/sessions/"+hexID(7)+"/requests/count", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decode(t, rec)["count"])

		rec = doRequest(t, srv, http.MethodGet, "/v1/sessions/"+hexID(7)+"/requests/0", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, hexID(1), decode(t, rec)["id"])
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/sessions/"+hexID(9)+"/requests", keeperHex, map[string]string{
			"request_id": hexID(1),
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "UNKNOWN_SESSION", decode(t, rec)["error_code"])
	})

	t.Run("count and index", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/sessions/count", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decode(t, rec)["count"])

		rec = doRequest(t, srv, http.MethodGet, "/v1/sessions?index=0", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, hexID(7), decode(t, rec)["id"])
	})
}

func TestPauseEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("operator pauses", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPut, "/v1/admin/pause", operatorHex, map[string]bool{
			"paused": true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, srv, http.MethodGet, "/v1/admin/pause", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["paused"])
	})

	t.Run("submissions rejected while paused", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/prompts", callerHex, map[string]string{
			"request_id":  hexID(1),
			"prompt_hash": hexID(0x11),
		})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "PAUSED", decode(t, rec)["error_code"])
	})

	t.Run("non-operator cannot pause", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPut, "/v1/admin/pause", keeperHex, map[string]bool{
			"paused": false,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestEventsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	submitPrompt(t, srv, hexID(1), hexID(0x11))
	submitPrompt(t, srv, hexID(2), hexID(0x22))

	t.Run("full log", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/events", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, float64(2), body["count"])
		events := body["events"].([]interface{})
		first := events[0].(map[string]interface{})
		assert.Equal(t, "submission-recorded", first["type"])
		assert.Equal(t, float64(1), first["seq"])
	})

	t.Run("since marker", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/events?since=1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decode(t, rec)["count"])
	})

	t.Run("invalid since", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/v1/events?since=abc", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/v1/prompts", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
