package balance

import (
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func account(wallet, trading string) *models.Account {
	return &models.Account{ID: uuid.New(), UserID: uuid.New(), WalletBalance: dec(wallet), TradingBalance: dec(trading)}
}

func TestTransferTradingToWallet_Conserves(t *testing.T) {
	acc := account("10", "100")
	total := acc.TotalBalance()

	m, err := TransferTradingToWallet(acc, dec("40"))
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerTransfer, m.Type)
	assert.True(t, m.Before.Equal(dec("100")))
	assert.True(t, m.After.Equal(dec("60")))

	_, err = TransferTradingToWallet(acc, dec("60"))
	require.NoError(t, err)

	assert.True(t, acc.TradingBalance.IsZero())
	assert.True(t, acc.WalletBalance.Equal(dec("110")))
	assert.True(t, acc.TotalBalance().Equal(total))
}

func TestTransferTradingToWallet_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		err    error
	}{
		{"negative", "-5", domain.ErrInvalidAmount},
		{"zero", "0", domain.ErrInvalidAmount},
		{"overdraft", "100.01", domain.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := account("10", "100")
			_, err := TransferTradingToWallet(acc, dec(tc.amount))
			assert.ErrorIs(t, err, tc.err)
			assert.True(t, acc.WalletBalance.Equal(dec("10")))
			assert.True(t, acc.TradingBalance.Equal(dec("100")))
		})
	}
}

func TestApplyDeposit(t *testing.T) {
	acc := account("0", "5")
	m, err := ApplyDeposit(acc, dec("60"), domain.PoolTrading)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerDeposit, m.Type)
	assert.True(t, acc.TradingBalance.Equal(dec("65")))
	assert.True(t, m.After.Equal(acc.TradingBalance))
	assert.True(t, acc.WalletBalance.IsZero())

	_, err = ApplyDeposit(acc, dec("0"), domain.PoolWallet)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = ApplyDeposit(acc, dec("1"), domain.Pool("margin"))
	assert.Error(t, err)
	assert.True(t, acc.TradingBalance.Equal(dec("65")))
}

func TestApplyWithdrawal(t *testing.T) {
	acc := account("100", "0")
	_, err := ApplyWithdrawal(acc, dec("500"), domain.PoolWallet)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, acc.WalletBalance.Equal(dec("100")))

	m, err := ApplyWithdrawal(acc, dec("100"), domain.PoolWallet)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerWithdraw, m.Type)
	assert.True(t, acc.WalletBalance.IsZero())
	assert.True(t, NonNegative(acc))
}

func TestNonNegativeAfterMixedSequence(t *testing.T) {
	acc := account("0", "0")
	steps := []func() error{
		func() error { _, err := ApplyDeposit(acc, dec("50"), domain.PoolTrading); return err },
		func() error { _, err := TransferTradingToWallet(acc, dec("70")); return err },
		func() error { _, err := TransferTradingToWallet(acc, dec("20")); return err },
		func() error { _, err := ApplyWithdrawal(acc, dec("25"), domain.PoolWallet); return err },
		func() error { _, err := ApplyWithdrawal(acc, dec("20"), domain.PoolWallet); return err },
		func() error { _, err := ApplyWithdrawal(acc, dec("31"), domain.PoolTrading); return err },
	}
	for _, step := range steps {
		_ = step()
		require.True(t, NonNegative(acc))
	}
	assert.True(t, acc.WalletBalance.Equal(dec("0")))
	assert.True(t, acc.TradingBalance.Equal(dec("30")))
}

func TestMovementLedger(t *testing.T) {
	acc := account("0", "0")
	m, err := ApplyDeposit(acc, dec("200"), domain.PoolTrading)
	require.NoError(t, err)

	actor := uuid.New()
	now := time.Now()
	rec := m.Ledger(acc, actor, "Deposit by Manager: float", now)
	assert.Equal(t, acc.UserID, rec.UserID)
	assert.Equal(t, acc.ID, rec.AccountID)
	assert.Equal(t, actor, rec.PerformedByID)
	assert.True(t, rec.BalanceAfter.Equal(dec("200")))
	assert.Equal(t, domain.LedgerStatusCompleted, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)
}
