package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries implements Querier on Postgres.
type Queries struct {
	db DBTX
}

var _ Querier = (*Queries)(nil)

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func textValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

const createBranch = `INSERT INTO branches (id, name, code, commission_per_lot, leverage, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`

func (q *Queries) CreateBranch(ctx context.Context, b *models.Branch) error {
	err := q.db.QueryRow(ctx, createBranch, b.ID, b.Name, b.Code, b.CommissionPerLot, b.Leverage).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

const getBranch = `SELECT id, name, code, commission_per_lot, leverage, created_at FROM branches WHERE id = $1`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	err := q.db.QueryRow(ctx, getBranch, id).Scan(&b.ID, &b.Name, &b.Code, &b.CommissionPerLot, &b.Leverage, &b.CreatedAt)
	if err != nil {
		return nil, notFound(err, "branch")
	}
	return &b, nil
}

const userColumns = `id, name, email, password_hash, role, branch_id, account_number, is_active, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.BranchID, &u.AccountNumber, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	r, err := policy.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = r
	return &u, nil
}

const createUser = `INSERT INTO users (id, name, email, password_hash, role, branch_id, account_number, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`

func (q *Queries) CreateUser(ctx context.Context, u *models.User) error {
	err := q.db.QueryRow(ctx, createUser, u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role.String(), u.BranchID, u.AccountNumber, u.IsActive).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return domain.ErrEmailTaken
			case strings.Contains(pgErr.ConstraintName, "account_number"):
				return ErrDuplicateAccountNumber
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (q *Queries) ListUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND ($2::uuid IS NULL OR branch_id = $2) ORDER BY created_at`
	rows, err := q.db.Query(ctx, query, role.String(), branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (q *Queries) CountUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1 AND ($2::uuid IS NULL OR branch_id = $2)`, role.String(), branchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

const accountColumns = `id, user_id, account_number, wallet_balance, trading_balance, leverage, currency, status, created_at, last_activity`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.WalletBalance, &a.TradingBalance, &a.Leverage, &a.Currency, &a.Status, &a.CreatedAt, &a.LastActivity)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const createAccount = `INSERT INTO accounts (id, user_id, account_number, wallet_balance, trading_balance, leverage, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`

func (q *Queries) CreateAccount(ctx context.Context, a *models.Account) error {
	err := q.db.QueryRow(ctx, createAccount, a.ID, a.UserID, a.AccountNumber, a.WalletBalance, a.TradingBalance, a.Leverage, a.Currency, a.Status).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err, "account")
	}
	return a, nil
}

func (q *Queries) GetAccountByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, notFound(err, "account")
	}
	return a, nil
}

const updateAccountBalances = `UPDATE accounts SET wallet_balance = $1, trading_balance = $2, last_activity = $3 WHERE id = $4`

func (q *Queries) UpdateAccountBalances(ctx context.Context, arg UpdateAccountBalancesParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateAccountBalances, arg.WalletBalance, arg.TradingBalance, arg.LastActivity, arg.AccountID)
	if err != nil {
		return 0, fmt.Errorf("failed to update account balances: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListAccountsWithNegativePools(ctx context.Context) ([]models.Account, error) {
	rows, err := q.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE wallet_balance < 0 OR trading_balance < 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

const insertLedgerTransaction = `INSERT INTO ledger_transactions
(id, user_id, account_id, transaction_type, pool, amount, balance_before, balance_after, description, status, performed_by_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (q *Queries) InsertLedgerTransaction(ctx context.Context, t *models.LedgerTransaction) error {
	_, err := q.db.Exec(ctx, insertLedgerTransaction, t.ID, t.UserID, t.AccountID, string(t.Type), string(t.Pool), t.Amount,
		t.BalanceBefore, t.BalanceAfter, t.Description, t.Status, t.PerformedByID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger transaction: %w", err)
	}
	return nil
}

const listLedgerTransactions = `SELECT t.id, t.user_id, t.account_id, t.transaction_type, t.pool, t.amount, t.balance_before, t.balance_after,
	t.description, t.status, t.performed_by_id, COALESCE(p.name, ''), t.created_at
FROM ledger_transactions t
LEFT JOIN users p ON p.id = t.performed_by_id
WHERE t.user_id = $1
ORDER BY t.created_at DESC
LIMIT $2`

func (q *Queries) ListLedgerTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error) {
	rows, err := q.db.Query(ctx, listLedgerTransactions, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerTransaction
	for rows.Next() {
		var t models.LedgerTransaction
		var typ, pool string
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &typ, &pool, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
			&t.Description, &t.Status, &t.PerformedByID, &t.PerformedByName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		t.Type = domain.LedgerType(typ)
		t.Pool = domain.Pool(pool)
		out = append(out, t)
	}
	return out, rows.Err()
}

const insertTransactionRequest = `INSERT INTO transaction_requests
(id, user_id, request_type, requested_amount, status, client_notes, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *Queries) InsertTransactionRequest(ctx context.Context, r *models.TransactionRequest) error {
	_, err := q.db.Exec(ctx, insertTransactionRequest, r.ID, r.UserID, string(r.RequestType), r.RequestedAmount,
		string(r.Status), textParam(r.ClientNotes), textParam(r.IdempotencyKey), r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "transaction_requests_idempotency_key" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert transaction request: %w", err)
	}
	return nil
}

const requestColumns = `r.id, r.user_id, r.request_type, r.requested_amount, r.approved_amount, r.status, r.client_notes, r.admin_notes,
	r.resolved_by_id, r.resolved_at, r.transaction_id, r.idempotency_key, r.created_at, r.updated_at,
	u.name, u.email, COALESCE(rb.name, '')`

const requestJoins = `FROM transaction_requests r
JOIN users u ON u.id = r.user_id
LEFT JOIN users rb ON rb.id = r.resolved_by_id`

func scanRequest(row pgx.Row) (*models.TransactionRequest, error) {
	var r models.TransactionRequest
	var typ, status string
	var approved decimal.NullDecimal
	var clientNotes, adminNotes, key *string
	err := row.Scan(&r.ID, &r.UserID, &typ, &r.RequestedAmount, &approved, &status, &clientNotes, &adminNotes,
		&r.ResolvedByID, &r.ResolvedAt, &r.LedgerTransactionID, &key, &r.CreatedAt, &r.UpdatedAt,
		&r.UserName, &r.UserEmail, &r.ResolvedByName)
	if err != nil {
		return nil, err
	}
	r.RequestType = domain.RequestType(typ)
	r.Status = domain.RequestStatus(status)
	if approved.Valid {
		r.ApprovedAmount = &approved.Decimal
	}
	r.ClientNotes = textValue(clientNotes)
	r.AdminNotes = textValue(adminNotes)
	r.IdempotencyKey = textValue(key)
	return &r, nil
}

func (q *Queries) GetTransactionRequestByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.TransactionRequest, error) {
	query := `SELECT ` + requestColumns + ` ` + requestJoins + ` WHERE r.user_id = $1 AND r.idempotency_key = $2`
	r, err := scanRequest(q.db.QueryRow(ctx, query, userID, key))
	if err != nil {
		return nil, notFound(err, "transaction request")
	}
	return r, nil
}

func (q *Queries) GetTransactionRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	query := `SELECT ` + requestColumns + ` ` + requestJoins + ` WHERE r.id = $1 FOR UPDATE OF r`
	r, err := scanRequest(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction request")
	}
	return r, nil
}

const resolveTransactionRequest = `UPDATE transaction_requests
SET status = $1, approved_amount = $2, admin_notes = $3, resolved_by_id = $4, resolved_at = $5, transaction_id = $6, updated_at = $5
WHERE id = $7 AND status = 'pending'`

func (q *Queries) ResolveTransactionRequest(ctx context.Context, arg ResolveTransactionRequestParams) (int64, error) {
	var approved decimal.NullDecimal
	if arg.ApprovedAmount != nil {
		approved = decimal.NewNullDecimal(*arg.ApprovedAmount)
	}
	tag, err := q.db.Exec(ctx, resolveTransactionRequest, string(arg.Status), approved, textParam(arg.AdminNotes),
		arg.ResolvedByID, arg.ResolvedAt, arg.LedgerTransactionID, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve transaction request: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListTransactionRequests(ctx context.Context, arg ListTransactionRequestsParams) ([]models.TransactionRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	switch arg.Scope.Kind {
	case policy.ScopeOwn:
		args = append(args, arg.Scope.UserID)
		where = append(where, fmt.Sprintf("r.user_id = $%d", len(args)))
	case policy.ScopeBranch:
		args = append(args, arg.Scope.BranchID)
		where = append(where, fmt.Sprintf("u.branch_id = $%d", len(args)))
	case policy.ScopeAll:
	default:
		return nil, nil
	}
	if arg.Status != nil {
		args = append(args, string(*arg.Status))
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}

	query := `SELECT ` + requestColumns + ` ` + requestJoins
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction requests: %w", err)
	}
	defer rows.Close()

	var out []models.TransactionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (q *Queries) CountTransactionRequestsByStatus(ctx context.Context, status domain.RequestStatus) (int64, error) {
	var n int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM transaction_requests WHERE status = $1`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transaction requests: %w", err)
	}
	return n, nil
}

const insertAuditLog = `INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog, arg.EntityType, arg.EntityID, arg.ActorID, arg.Action,
		textParam(arg.PrevState), textParam(arg.NextState), arg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

const getIdempotencyKey = `SELECT idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress
FROM idempotency_keys WHERE idempotency_key = $1`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	var k IdempotencyKey
	err := q.db.QueryRow(ctx, getIdempotencyKey, key).Scan(&k.IdempotencyKey, &k.RequestHash, &k.Method, &k.Path,
		&k.ResponseStatus, &k.ResponseBody, &k.ContentType, &k.InProgress)
	if err != nil {
		return k, notFound(err, "idempotency key")
	}
	return k, nil
}

const reserveIdempotencyKey = `INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING idempotency_key`

func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (bool, error) {
	var key string
	err := q.db.QueryRow(ctx, reserveIdempotencyKey, arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return true, nil
}

const finalizeIdempotencyKey = `UPDATE idempotency_keys
SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, updated_at = NOW()
WHERE idempotency_key = $4 AND request_hash = $5
RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error) {
	var k IdempotencyKey
	err := q.db.QueryRow(ctx, finalizeIdempotencyKey, arg.ResponseStatus, arg.ResponseBody, arg.ContentType,
		arg.IdempotencyKey, arg.RequestHash).Scan(&k.IdempotencyKey, &k.RequestHash, &k.Method, &k.Path,
		&k.ResponseStatus, &k.ResponseBody, &k.ContentType, &k.InProgress)
	if err != nil {
		return k, notFound(err, "idempotency key")
	}
	return k, nil
}

const releaseIdempotencyKey = `DELETE FROM idempotency_keys
WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress`

func (q *Queries) ReleaseIdempotencyKey(ctx context.Context, key, requestHash string) error {
	if _, err := q.db.Exec(ctx, releaseIdempotencyKey, key, requestHash); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
