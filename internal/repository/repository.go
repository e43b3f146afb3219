package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDuplicateIdempotencyKey is returned when a user reuses a request key.
var ErrDuplicateIdempotencyKey = errors.New("duplicate transaction request idempotency key")

// ErrDuplicateAccountNumber is returned when a generated account number is taken.
var ErrDuplicateAccountNumber = errors.New("duplicate account number")

// Querier is the data access contract shared by the Postgres queries and the
// in-process store. Lookups that find nothing return domain.ErrNotFound.
type Querier interface {
	CreateBranch(ctx context.Context, branch *models.Branch) error
	GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) ([]models.User, error)
	CountUsersByRole(ctx context.Context, role policy.Role, branchID *uuid.UUID) (int64, error)

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	// GetAccountByUserIDForUpdate reads the account and holds its lock until
	// the surrounding transaction ends.
	GetAccountByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	UpdateAccountBalances(ctx context.Context, arg UpdateAccountBalancesParams) (int64, error)
	ListAccountsWithNegativePools(ctx context.Context) ([]models.Account, error)

	InsertLedgerTransaction(ctx context.Context, tx *models.LedgerTransaction) error
	ListLedgerTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error)

	InsertTransactionRequest(ctx context.Context, req *models.TransactionRequest) error
	GetTransactionRequestByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.TransactionRequest, error)
	GetTransactionRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error)
	ResolveTransactionRequest(ctx context.Context, arg ResolveTransactionRequestParams) (int64, error)
	ListTransactionRequests(ctx context.Context, arg ListTransactionRequestsParams) ([]models.TransactionRequest, error)
	CountTransactionRequestsByStatus(ctx context.Context, status domain.RequestStatus) (int64, error)

	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error
}

type UpdateAccountBalancesParams struct {
	AccountID      uuid.UUID
	WalletBalance  decimal.Decimal
	TradingBalance decimal.Decimal
	LastActivity   time.Time
}

// ResolveTransactionRequestParams moves a pending request to a terminal state.
// Implementations only update rows still in pending.
type ResolveTransactionRequestParams struct {
	ID                  uuid.UUID
	Status              domain.RequestStatus
	ApprovedAmount      *decimal.Decimal
	AdminNotes          string
	ResolvedByID        uuid.UUID
	ResolvedAt          time.Time
	LedgerTransactionID *uuid.UUID
}

type ListTransactionRequestsParams struct {
	Scope  policy.RequestScope
	Status *domain.RequestStatus
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
}

// IdempotencyQuerier persists Idempotency-Key reservations and responses.
type IdempotencyQuerier interface {
	GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error)
	// ReserveIdempotencyKey reports false when the key already exists.
	ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (bool, error)
	FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error)
	// ReleaseIdempotencyKey drops an in-progress reservation so the key can be
	// retried. Finalized keys are left alone.
	ReleaseIdempotencyKey(ctx context.Context, key, requestHash string) error
}

// IdempotencyKey is a stored response for an Idempotency-Key header.
type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	IdempotencyKey string
	RequestHash    string
}
