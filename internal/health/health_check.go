// Package health provides liveness and readiness handlers.
package health

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/service"
)

// HealthCheck reports service health over HTTP
type HealthCheck struct {
	service *service.LedgerService
	logger  *zap.Logger
}

// NewHealthCheck creates a new health check
func NewHealthCheck(svc *service.LedgerService, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		service: svc,
		logger:  logger,
	}
}

// LivenessHandler handles liveness probe requests
func (h *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// ReadinessHandler handles readiness probe requests. The service is ready
// once journal recovery has completed.
func (h *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !h.service.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"not_ready","reason":"recovery_in_progress"}`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready","timestamp":"%s","seq":%d,"paused":%t}`,
		time.Now().Format(time.RFC3339), h.service.Seq(), h.service.Paused())
}
