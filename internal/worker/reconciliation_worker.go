package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/observability"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"go.uber.org/zap"
)

// Reconciler checks the balance invariants once.
type Reconciler interface {
	Run(ctx context.Context) (service.ReconciliationReport, error)
}

// ReconciliationWorker runs a Reconciler on a fixed interval, starting with an
// immediate pass.
type ReconciliationWorker struct {
	reconciler Reconciler
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	last   service.ReconciliationReport
	lastAt time.Time
}

// NewReconciliationWorker constructs a worker with an hourly interval.
func NewReconciliationWorker(r Reconciler) *ReconciliationWorker {
	return &ReconciliationWorker{
		reconciler: r,
		interval:   time.Hour,
		timeout:    time.Minute,
		logger:     zap.L().Named("reconciliation"),
		stopCh:     make(chan struct{}),
	}
}

func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithTimeout bounds a single pass.
func (w *ReconciliationWorker) WithTimeout(timeout time.Duration) *ReconciliationWorker {
	if timeout > 0 {
		w.timeout = timeout
	}
	return w
}

// Start blocks until ctx is done or Stop is called.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	w.logger.Info("reconciliation worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconciliation worker context canceled")
			return
		case <-w.stopCh:
			w.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (w *ReconciliationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// LastReport returns the most recent successful pass.
func (w *ReconciliationWorker) LastReport() (service.ReconciliationReport, time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.lastAt, !w.lastAt.IsZero()
}

func (w *ReconciliationWorker) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	report, err := w.reconciler.Run(passCtx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		w.logger.Error("reconciliation run failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.last, w.lastAt = report, time.Now()
	w.mu.Unlock()

	if report.NegativeAccounts > 0 {
		observability.IncrementWorkerRun("reconciliation", "violations")
		w.logger.Error("balance invariant violated",
			zap.Int("negative_accounts", report.NegativeAccounts),
			zap.Int64("pending_requests", report.PendingRequests),
		)
		return
	}
	observability.IncrementWorkerRun("reconciliation", "success")
}
