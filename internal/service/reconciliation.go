package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"go.uber.org/zap"
)

// ReconciliationReport summarises one integrity pass.
type ReconciliationReport struct {
	NegativeAccounts int
	PendingRequests  int64
}

// ReconciliationService verifies balance invariants.
type ReconciliationService struct {
	store QueryStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks that no account holds a negative pool and refreshes the pending
// request gauge.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	var report ReconciliationReport
	queries := s.store.Queries()

	accounts, err := queries.ListAccountsWithNegativePools(ctx)
	if err != nil {
		return report, fmt.Errorf("scan negative balances: %w", err)
	}
	report.NegativeAccounts = len(accounts)
	for _, acc := range accounts {
		if acc.WalletBalance.IsNegative() {
			observability.IncrementBalanceViolation(string(domain.PoolWallet))
		}
		if acc.TradingBalance.IsNegative() {
			observability.IncrementBalanceViolation(string(domain.PoolTrading))
		}
		zap.L().Error("CRITICAL: negative account balance detected",
			zap.String("account_id", acc.ID.String()),
			zap.String("account_number", acc.AccountNumber),
			zap.String("wallet_balance", acc.WalletBalance.String()),
			zap.String("trading_balance", acc.TradingBalance.String()),
		)
	}

	pending, err := queries.CountTransactionRequestsByStatus(ctx, domain.RequestStatusPending)
	if err != nil {
		return report, fmt.Errorf("count pending requests: %w", err)
	}
	report.PendingRequests = pending
	observability.SetPendingRequests(pending)

	if report.NegativeAccounts == 0 {
		zap.L().Info("balances reconciled", zap.Int64("pending_requests", pending))
	}
	return report, nil
}
