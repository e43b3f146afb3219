package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memstore.Store
	requests *RequestService
	accounts *AccountService
	branchA  uuid.UUID
	branchB  uuid.UUID
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:    store,
		requests: NewRequestService(store),
		accounts: NewAccountService(store, 200),
	}
	ctx := context.Background()
	for i, code := range []string{"NORTH", "SOUTH"} {
		b := &models.Branch{ID: uuid.New(), Name: code, Code: code, Leverage: 100}
		require.NoError(t, store.Queries().CreateBranch(ctx, b))
		if i == 0 {
			f.branchA = b.ID
		} else {
			f.branchB = b.ID
		}
	}
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// user seeds a user and account directly, skipping password hashing.
func (f *fixture) user(t *testing.T, role policy.Role, branch *uuid.UUID, wallet, trading string) policy.Identity {
	t.Helper()
	f.seq++
	ctx := context.Background()
	number := fmt.Sprintf("ACC-%05d", f.seq)
	u := &models.User{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("%s %d", role, f.seq),
		Email:         fmt.Sprintf("%s%d@example.com", role, f.seq),
		Role:          role,
		BranchID:      branch,
		AccountNumber: number,
		IsActive:      true,
	}
	require.NoError(t, f.store.Queries().CreateUser(ctx, u))
	require.NoError(t, f.store.Queries().CreateAccount(ctx, &models.Account{
		ID:             uuid.New(),
		UserID:         u.ID,
		AccountNumber:  number,
		WalletBalance:  dec(wallet),
		TradingBalance: dec(trading),
		Leverage:       100,
		Currency:       "USD",
		Status:         "active",
	}))
	return u.Identity()
}

func (f *fixture) account(t *testing.T, id policy.Identity) *models.Account {
	t.Helper()
	acc, err := f.store.Queries().GetAccountByUserID(context.Background(), id.UserID)
	require.NoError(t, err)
	return acc
}

func (f *fixture) setBalances(t *testing.T, id policy.Identity, wallet, trading string) {
	t.Helper()
	acc := f.account(t, id)
	ctx := context.Background()
	require.NoError(t, f.store.RunInTx(ctx, func(q repository.Querier) error {
		_, err := q.UpdateAccountBalances(ctx, repository.UpdateAccountBalancesParams{
			AccountID: acc.ID, WalletBalance: dec(wallet), TradingBalance: dec(trading), LastActivity: time.Now(),
		})
		return err
	}))
}

func (f *fixture) history(t *testing.T, id policy.Identity) []models.LedgerTransaction {
	t.Helper()
	out, err := f.store.Queries().ListLedgerTransactions(context.Background(), id.UserID, 1000)
	require.NoError(t, err)
	return out
}

func (f *fixture) request(t *testing.T, id uuid.UUID) *models.TransactionRequest {
	t.Helper()
	req, err := f.store.Queries().GetTransactionRequestForUpdate(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (f *fixture) deposit(t *testing.T, client policy.Identity, amount string) *models.TransactionRequest {
	t.Helper()
	req, err := f.requests.Create(context.Background(), client, CreateRequestInput{Type: "deposit", Amount: dec(amount)})
	require.NoError(t, err)
	return req
}

func (f *fixture) withdrawal(t *testing.T, client policy.Identity, amount string) *models.TransactionRequest {
	t.Helper()
	req, err := f.requests.Create(context.Background(), client, CreateRequestInput{Type: "withdrawal", Amount: dec(amount)})
	require.NoError(t, err)
	return req
}
