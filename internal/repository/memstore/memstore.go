// Package memstore is an in-process implementation of the repository
// contracts. Transactions run under a single lock against a copy of the
// data that replaces the live copy only when the callback succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	data *state
	idem map[string]repository.IdempotencyKey
}

func New() *Store {
	return &Store{
		data: newState(),
		idem: make(map[string]repository.IdempotencyKey),
	}
}

// Queries returns a query set that locks the store per call.
func (s *Store) Queries() repository.Querier {
	return &lockedQueries{s: s}
}

func (s *Store) Idempotency() repository.IdempotencyQuerier {
	return &idempotencyQueries{s: s}
}

// RunInTx executes fn against a snapshot and commits it when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(q repository.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// AuditEntries returns a copy of every audit row written so far.
func (s *Store) AuditEntries() []repository.InsertAuditLogParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.InsertAuditLogParams(nil), s.data.audit...)
}

type state struct {
	branches      map[uuid.UUID]models.Branch
	users         map[uuid.UUID]models.User
	accounts      map[uuid.UUID]models.Account
	accountByUser map[uuid.UUID]uuid.UUID
	ledger        []models.LedgerTransaction
	requests      map[uuid.UUID]models.TransactionRequest
	requestOrder  []uuid.UUID
	audit         []repository.InsertAuditLogParams
}

var _ repository.Querier = (*state)(nil)

func newState() *state {
	return &state{
		branches:      make(map[uuid.UUID]models.Branch),
		users:         make(map[uuid.UUID]models.User),
		accounts:      make(map[uuid.UUID]models.Account),
		accountByUser: make(map[uuid.UUID]uuid.UUID),
		requests:      make(map[uuid.UUID]models.TransactionRequest),
	}
}

func (st *state) clone() *state {
	c := &state{
		branches:      make(map[uuid.UUID]models.Branch, len(st.branches)),
		users:         make(map[uuid.UUID]models.User, len(st.users)),
		accounts:      make(map[uuid.UUID]models.Account, len(st.accounts)),
		accountByUser: make(map[uuid.UUID]uuid.UUID, len(st.accountByUser)),
		ledger:        append([]models.LedgerTransaction(nil), st.ledger...),
		requests:      make(map[uuid.UUID]models.TransactionRequest, len(st.requests)),
		requestOrder:  append([]uuid.UUID(nil), st.requestOrder...),
		audit:         append([]repository.InsertAuditLogParams(nil), st.audit...),
	}
	for k, v := range st.branches {
		c.branches[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.accountByUser {
		c.accountByUser[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	return c
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func (st *state) CreateBranch(_ context.Context, b *models.Branch) error {
	for _, existing := range st.branches {
		if existing.Code == b.Code {
			return fmt.Errorf("failed to create branch: code %q exists", b.Code)
		}
	}
	stamp(&b.CreatedAt)
	st.branches[b.ID] = *b
	return nil
}

func (st *state) GetBranch(_ context.Context, id uuid.UUID) (*models.Branch, error) {
	b, ok := st.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch: %w", domain.ErrNotFound)
	}
	return &b, nil
}

func (st *state) CreateUser(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	for _, existing := range st.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
		if existing.AccountNumber == u.AccountNumber {
			return repository.ErrDuplicateAccountNumber
		}
	}
	if u.BranchID != nil {
		if _, ok := st.branches[*u.BranchID]; !ok {
			return fmt.Errorf("failed to create user: branch: %w", domain.ErrNotFound)
		}
	}
	stamp(&u.CreatedAt)
	st.users[u.ID] = *u
	return nil
}

func (st *state) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (st *state) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	for _, u := range st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
}

func (st *state) usersByRole(role policy.Role, branchID *uuid.UUID) []models.User {
	var out []models.User
	for _, u := range st.users {
		if u.Role != role {
			continue
		}
		if branchID != nil && (u.BranchID == nil || *u.BranchID != *branchID) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AccountNumber < out[j].AccountNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (st *state) ListUsersByRole(_ context.Context, role policy.Role, branchID *uuid.UUID) ([]models.User, error) {
	return st.usersByRole(role, branchID), nil
}

func (st *state) CountUsersByRole(_ context.Context, role policy.Role, branchID *uuid.UUID) (int64, error) {
	return int64(len(st.usersByRole(role, branchID))), nil
}

func (st *state) CreateAccount(_ context.Context, a *models.Account) error {
	if _, ok := st.users[a.UserID]; !ok {
		return fmt.Errorf("failed to create account: user: %w", domain.ErrNotFound)
	}
	if _, ok := st.accountByUser[a.UserID]; ok {
		return fmt.Errorf("failed to create account: user %s already has one", a.UserID)
	}
	stamp(&a.CreatedAt)
	st.accounts[a.ID] = *a
	st.accountByUser[a.UserID] = a.ID
	return nil
}

func (st *state) GetAccountByUserID(_ context.Context, userID uuid.UUID) (*models.Account, error) {
	id, ok := st.accountByUser[userID]
	if !ok {
		return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	a := st.accounts[id]
	return &a, nil
}

// GetAccountByUserIDForUpdate needs no row lock; RunInTx already holds the
// store lock.
func (st *state) GetAccountByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return st.GetAccountByUserID(ctx, userID)
}

func (st *state) UpdateAccountBalances(_ context.Context, arg repository.UpdateAccountBalancesParams) (int64, error) {
	a, ok := st.accounts[arg.AccountID]
	if !ok {
		return 0, nil
	}
	if arg.WalletBalance.IsNegative() || arg.TradingBalance.IsNegative() {
		return 0, fmt.Errorf("failed to update account balances: %w", domain.ErrInsufficientFunds)
	}
	a.WalletBalance = arg.WalletBalance
	a.TradingBalance = arg.TradingBalance
	last := arg.LastActivity
	a.LastActivity = &last
	st.accounts[a.ID] = a
	return 1, nil
}

func (st *state) ListAccountsWithNegativePools(context.Context) ([]models.Account, error) {
	var out []models.Account
	for _, a := range st.accounts {
		if a.WalletBalance.IsNegative() || a.TradingBalance.IsNegative() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (st *state) InsertLedgerTransaction(_ context.Context, t *models.LedgerTransaction) error {
	if _, ok := st.accounts[t.AccountID]; !ok {
		return fmt.Errorf("failed to insert ledger transaction: account: %w", domain.ErrNotFound)
	}
	stamp(&t.CreatedAt)
	st.ledger = append(st.ledger, *t)
	return nil
}

func (st *state) ListLedgerTransactions(_ context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error) {
	var out []models.LedgerTransaction
	for i := len(st.ledger) - 1; i >= 0; i-- {
		t := st.ledger[i]
		if t.UserID != userID {
			continue
		}
		if p, ok := st.users[t.PerformedByID]; ok {
			t.PerformedByName = p.Name
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (st *state) InsertTransactionRequest(_ context.Context, r *models.TransactionRequest) error {
	if _, ok := st.users[r.UserID]; !ok {
		return fmt.Errorf("failed to insert transaction request: user: %w", domain.ErrNotFound)
	}
	if r.IdempotencyKey != "" {
		for _, existing := range st.requests {
			if existing.UserID == r.UserID && existing.IdempotencyKey == r.IdempotencyKey {
				return repository.ErrDuplicateIdempotencyKey
			}
		}
	}
	stamp(&r.CreatedAt)
	st.requests[r.ID] = *r
	st.requestOrder = append(st.requestOrder, r.ID)
	return nil
}

func (st *state) joined(r models.TransactionRequest) models.TransactionRequest {
	if u, ok := st.users[r.UserID]; ok {
		r.UserName = u.Name
		r.UserEmail = u.Email
	}
	r.ResolvedByName = ""
	if r.ResolvedByID != nil {
		if u, ok := st.users[*r.ResolvedByID]; ok {
			r.ResolvedByName = u.Name
		}
	}
	return r
}

func (st *state) GetTransactionRequestByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*models.TransactionRequest, error) {
	for _, r := range st.requests {
		if r.UserID == userID && key != "" && r.IdempotencyKey == key {
			out := st.joined(r)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("transaction request: %w", domain.ErrNotFound)
}

func (st *state) GetTransactionRequestForUpdate(_ context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	r, ok := st.requests[id]
	if !ok {
		return nil, fmt.Errorf("transaction request: %w", domain.ErrNotFound)
	}
	out := st.joined(r)
	return &out, nil
}

func (st *state) ResolveTransactionRequest(_ context.Context, arg repository.ResolveTransactionRequestParams) (int64, error) {
	r, ok := st.requests[arg.ID]
	if !ok || r.Status != domain.RequestStatusPending {
		return 0, nil
	}
	r.Status = arg.Status
	r.ApprovedAmount = arg.ApprovedAmount
	r.AdminNotes = arg.AdminNotes
	resolver := arg.ResolvedByID
	r.ResolvedByID = &resolver
	at := arg.ResolvedAt
	r.ResolvedAt = &at
	r.UpdatedAt = &at
	r.LedgerTransactionID = arg.LedgerTransactionID
	st.requests[r.ID] = r
	return 1, nil
}

func (st *state) ListTransactionRequests(_ context.Context, arg repository.ListTransactionRequestsParams) ([]models.TransactionRequest, error) {
	out := []models.TransactionRequest{}
	for i := len(st.requestOrder) - 1; i >= 0; i-- {
		r := st.requests[st.requestOrder[i]]
		if arg.Status != nil && r.Status != *arg.Status {
			continue
		}
		owner, ok := st.users[r.UserID]
		if !ok || !arg.Scope.Allows(owner.Subject()) {
			continue
		}
		out = append(out, st.joined(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (st *state) CountTransactionRequestsByStatus(_ context.Context, status domain.RequestStatus) (int64, error) {
	var n int64
	for _, r := range st.requests {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func (st *state) InsertAuditLog(_ context.Context, arg repository.InsertAuditLogParams) error {
	st.audit = append(st.audit, arg)
	return nil
}
