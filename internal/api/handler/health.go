package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/redis/go-redis/v9"
)

// Pinger reports whether the system of record is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReconciliationStatus exposes the last background balance check.
type ReconciliationStatus interface {
	LastReport() (service.ReconciliationReport, time.Time, bool)
}

// HealthHandler exposes Kubernetes-style liveness and readiness endpoints.
type HealthHandler struct {
	store      Pinger
	redis      redis.Cmdable
	reconciler ReconciliationStatus
}

// NewHealthHandler builds the health endpoints. redis and reconciler may be nil.
func NewHealthHandler(store Pinger, redis redis.Cmdable, reconciler ReconciliationStatus) *HealthHandler {
	return &HealthHandler{store: store, redis: redis, reconciler: reconciler}
}

type reconciliationView struct {
	At               time.Time `json:"at"`
	NegativeAccounts int       `json:"negative_accounts"`
	PendingRequests  int64     `json:"pending_requests"`
}

type readiness struct {
	Status         string              `json:"status"`
	Reconciliation *reconciliationView `json:"reconciliation,omitempty"`
}

// Live always reports OK: if the process is up, it's live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready checks the store and, when configured, Redis.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		RespondError(w, r, http.StatusServiceUnavailable, "health/storage-unavailable", "storage unavailable")
		return
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			RespondError(w, r, http.StatusServiceUnavailable, "health/redis-unavailable", "redis unavailable")
			return
		}
	}

	out := readiness{Status: "ready"}
	if h.reconciler != nil {
		if report, at, ok := h.reconciler.LastReport(); ok {
			out.Reconciliation = &reconciliationView{At: at, NegativeAccounts: report.NegativeAccounts, PendingRequests: report.PendingRequests}
		}
	}
	RespondJSON(w, http.StatusOK, out)
}
