package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	balanceViolationCounter *prometheus.CounterVec
	idempotencyCounter      *prometheus.CounterVec
	pendingRequestsGauge    prometheus.Gauge
	requestTransitionCount  *prometheus.CounterVec
	ledgerMovementCounter   *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		balanceViolationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_balance_violations_total",
			Help: "Accounts found with a negative wallet or trading balance",
		}, []string{"pool"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		pendingRequestsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transaction_requests_pending",
			Help: "Current number of deposit and withdrawal requests awaiting review",
		})

		requestTransitionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_request_transitions_total",
			Help: "Deposit and withdrawal request lifecycle events",
		}, []string{"action", "type"})

		ledgerMovementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movements_total",
			Help: "Balance movements written to the ledger",
		}, []string{"type", "pool"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			balanceViolationCounter,
			idempotencyCounter,
			pendingRequestsGauge,
			requestTransitionCount,
			ledgerMovementCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementBalanceViolation(pool string) {
	if balanceViolationCounter == nil {
		return
	}
	balanceViolationCounter.WithLabelValues(pool).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetPendingRequests(size int64) {
	if pendingRequestsGauge == nil {
		return
	}
	pendingRequestsGauge.Set(float64(size))
}

// IncrementRequestTransition counts created, approved and rejected requests.
func IncrementRequestTransition(action, requestType string) {
	if requestTransitionCount == nil {
		return
	}
	requestTransitionCount.WithLabelValues(action, requestType).Inc()
}

func IncrementLedgerMovement(ledgerType, pool string) {
	if ledgerMovementCounter == nil {
		return
	}
	ledgerMovementCounter.WithLabelValues(ledgerType, pool).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
