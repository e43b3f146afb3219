// Package balance implements the wallet/trading pool arithmetic of an
// account. Each operation validates fully before it mutates, so a returned
// error always means the account is unchanged. Callers provide mutual
// exclusion per account (a row lock or the store's write lock).
package balance

import (
	"fmt"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement describes one applied pool change; it becomes a ledger record.
type Movement struct {
	Type   domain.LedgerType
	Pool   domain.Pool
	Amount decimal.Decimal
	Before decimal.Decimal
	After  decimal.Decimal
}

// TransferTradingToWallet moves amount from the trading pool to the wallet
// pool. The ledger movement is reported against the trading pool.
func TransferTradingToWallet(acc *models.Account, amount decimal.Decimal) (Movement, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return Movement{}, err
	}
	if amount.GreaterThan(acc.TradingBalance) {
		return Movement{}, fmt.Errorf("%w: trading balance is %s", domain.ErrInsufficientFunds, domain.FormatAmount(acc.TradingBalance))
	}

	before := acc.TradingBalance
	acc.TradingBalance = acc.TradingBalance.Sub(amount)
	acc.WalletBalance = acc.WalletBalance.Add(amount)
	return Movement{
		Type:   domain.LedgerTransfer,
		Pool:   domain.PoolTrading,
		Amount: amount,
		Before: before,
		After:  acc.TradingBalance,
	}, nil
}

// ApplyDeposit credits amount to pool.
func ApplyDeposit(acc *models.Account, amount decimal.Decimal, pool domain.Pool) (Movement, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return Movement{}, err
	}
	current, err := Get(acc, pool)
	if err != nil {
		return Movement{}, err
	}

	after := current.Add(amount)
	set(acc, pool, after)
	return Movement{Type: domain.LedgerDeposit, Pool: pool, Amount: amount, Before: current, After: after}, nil
}

// ApplyWithdrawal debits amount from pool, failing with ErrInsufficientFunds
// when the pool would go negative.
func ApplyWithdrawal(acc *models.Account, amount decimal.Decimal, pool domain.Pool) (Movement, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return Movement{}, err
	}
	current, err := Get(acc, pool)
	if err != nil {
		return Movement{}, err
	}
	if amount.GreaterThan(current) {
		return Movement{}, fmt.Errorf("%w: %s balance is %s", domain.ErrInsufficientFunds, pool, domain.FormatAmount(current))
	}

	after := current.Sub(amount)
	set(acc, pool, after)
	return Movement{Type: domain.LedgerWithdraw, Pool: pool, Amount: amount, Before: current, After: after}, nil
}

// Get returns the balance of one pool.
func Get(acc *models.Account, pool domain.Pool) (decimal.Decimal, error) {
	switch pool {
	case domain.PoolWallet:
		return acc.WalletBalance, nil
	case domain.PoolTrading:
		return acc.TradingBalance, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown pool %q", pool)
	}
}

func set(acc *models.Account, pool domain.Pool, v decimal.Decimal) {
	switch pool {
	case domain.PoolWallet:
		acc.WalletBalance = v
	case domain.PoolTrading:
		acc.TradingBalance = v
	}
}

// Ledger turns the movement into the ledger record to append.
func (m Movement) Ledger(acc *models.Account, performedBy uuid.UUID, description string, now time.Time) models.LedgerTransaction {
	return models.LedgerTransaction{
		ID:            uuid.New(),
		UserID:        acc.UserID,
		AccountID:     acc.ID,
		Type:          m.Type,
		Pool:          m.Pool,
		Amount:        m.Amount,
		BalanceBefore: m.Before,
		BalanceAfter:  m.After,
		Description:   description,
		Status:        domain.LedgerStatusCompleted,
		PerformedByID: performedBy,
		CreatedAt:     now,
	}
}

// NonNegative reports whether both pools are at or above zero.
func NonNegative(acc *models.Account) bool {
	return !acc.WalletBalance.IsNegative() && !acc.TradingBalance.IsNegative()
}
