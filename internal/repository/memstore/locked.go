package memstore

import (
	"context"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
)

// lockedQueries holds the store lock for the duration of each call. Every
// state method validates before it mutates, so a failed call leaves no trace.
type lockedQueries struct {
	s *Store
}

var _ repository.Querier = (*lockedQueries)(nil)

func (q *lockedQueries) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return fn(q.s.data)
}

func (q *lockedQueries) CreateBranch(ctx context.Context, b *models.Branch) error {
	return q.do(ctx, func(st *state) error { return st.CreateBranch(ctx, b) })
}

func (q *lockedQueries) GetBranch(ctx context.Context, id uuid.UUID) (out *models.Branch, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetBranch(ctx, id); return err })
	return out, err
}

func (q *lockedQueries) CreateUser(ctx context.Context, u *models.User) error {
	return q.do(ctx, func(st *state) error { return st.CreateUser(ctx, u) })
}

func (q *lockedQueries) GetUser(ctx context.Context, id uuid.UUID) (out *models.User, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetUser(ctx, id); return err })
	return out, err
}

func (q *lockedQueries) GetUserByEmail(ctx context.Context, email string) (out *models.User, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetUserByEmail(ctx, email); return err })
	return out, err
}

func (q *lockedQueries) ListUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) (out []models.User, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.ListUsersByRole(ctx, role, branchID); return err })
	return out, err
}

func (q *lockedQueries) CountUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) (n int64, err error) {
	err = q.do(ctx, func(st *state) error { n, err = st.CountUsersByRole(ctx, role, branchID); return err })
	return n, err
}

func (q *lockedQueries) CreateAccount(ctx context.Context, a *models.Account) error {
	return q.do(ctx, func(st *state) error { return st.CreateAccount(ctx, a) })
}

func (q *lockedQueries) GetAccountByUserID(ctx context.Context, userID uuid.UUID) (out *models.Account, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetAccountByUserID(ctx, userID); return err })
	return out, err
}

func (q *lockedQueries) GetAccountByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return q.GetAccountByUserID(ctx, userID)
}

func (q *lockedQueries) UpdateAccountBalances(ctx context.Context, arg repository.UpdateAccountBalancesParams) (n int64, err error) {
	err = q.do(ctx, func(st *state) error { n, err = st.UpdateAccountBalances(ctx, arg); return err })
	return n, err
}

func (q *lockedQueries) ListAccountsWithNegativePools(ctx context.Context) (out []models.Account, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.ListAccountsWithNegativePools(ctx); return err })
	return out, err
}

func (q *lockedQueries) InsertLedgerTransaction(ctx context.Context, t *models.LedgerTransaction) error {
	return q.do(ctx, func(st *state) error { return st.InsertLedgerTransaction(ctx, t) })
}

func (q *lockedQueries) ListLedgerTransactions(ctx context.Context, userID uuid.UUID, limit int) (out []models.LedgerTransaction, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.ListLedgerTransactions(ctx, userID, limit); return err })
	return out, err
}

func (q *lockedQueries) InsertTransactionRequest(ctx context.Context, r *models.TransactionRequest) error {
	return q.do(ctx, func(st *state) error { return st.InsertTransactionRequest(ctx, r) })
}

func (q *lockedQueries) GetTransactionRequestByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (out *models.TransactionRequest, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetTransactionRequestByIdempotencyKey(ctx, userID, key); return err })
	return out, err
}

func (q *lockedQueries) GetTransactionRequestForUpdate(ctx context.Context, id uuid.UUID) (out *models.TransactionRequest, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.GetTransactionRequestForUpdate(ctx, id); return err })
	return out, err
}

func (q *lockedQueries) ResolveTransactionRequest(ctx context.Context, arg repository.ResolveTransactionRequestParams) (n int64, err error) {
	err = q.do(ctx, func(st *state) error { n, err = st.ResolveTransactionRequest(ctx, arg); return err })
	return n, err
}

func (q *lockedQueries) ListTransactionRequests(ctx context.Context, arg repository.ListTransactionRequestsParams) (out []models.TransactionRequest, err error) {
	err = q.do(ctx, func(st *state) error { out, err = st.ListTransactionRequests(ctx, arg); return err })
	return out, err
}

func (q *lockedQueries) CountTransactionRequestsByStatus(ctx context.Context, status domain.RequestStatus) (n int64, err error) {
	err = q.do(ctx, func(st *state) error { n, err = st.CountTransactionRequestsByStatus(ctx, status); return err })
	return n, err
}

func (q *lockedQueries) InsertAuditLog(ctx context.Context, arg repository.InsertAuditLogParams) error {
	return q.do(ctx, func(st *state) error { return st.InsertAuditLog(ctx, arg) })
}

type idempotencyQueries struct {
	s *Store
}

var _ repository.IdempotencyQuerier = (*idempotencyQueries)(nil)

func (q *idempotencyQueries) GetIdempotencyKey(_ context.Context, key string) (repository.IdempotencyKey, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	k, ok := q.s.idem[key]
	if !ok {
		return repository.IdempotencyKey{}, domain.ErrNotFound
	}
	return k, nil
}

func (q *idempotencyQueries) ReserveIdempotencyKey(_ context.Context, arg repository.ReserveIdempotencyKeyParams) (bool, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if _, ok := q.s.idem[arg.IdempotencyKey]; ok {
		return false, nil
	}
	q.s.idem[arg.IdempotencyKey] = repository.IdempotencyKey{
		IdempotencyKey: arg.IdempotencyKey,
		RequestHash:    arg.RequestHash,
		Method:         arg.Method,
		Path:           arg.Path,
		InProgress:     true,
	}
	return true, nil
}

func (q *idempotencyQueries) FinalizeIdempotencyKey(_ context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	k, ok := q.s.idem[arg.IdempotencyKey]
	if !ok || k.RequestHash != arg.RequestHash {
		return repository.IdempotencyKey{}, domain.ErrNotFound
	}
	k.ResponseStatus = arg.ResponseStatus
	k.ResponseBody = append([]byte(nil), arg.ResponseBody...)
	k.ContentType = arg.ContentType
	k.InProgress = false
	q.s.idem[arg.IdempotencyKey] = k
	return k, nil
}

func (q *idempotencyQueries) ReleaseIdempotencyKey(_ context.Context, key, requestHash string) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if k, ok := q.s.idem[key]; ok && k.InProgress && k.RequestHash == requestHash {
		delete(q.s.idem, key)
	}
	return nil
}
