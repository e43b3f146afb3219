package models

import (
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	Role          policy.Role `json:"role"`
	BranchID      *uuid.UUID  `json:"branch_id,omitempty"`
	AccountNumber string      `json:"account_number"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Subject returns the user as seen by the authorization policy.
func (u *User) Subject() policy.Subject {
	return policy.Subject{UserID: u.ID, Role: u.Role, BranchID: u.BranchID}
}

// Identity returns the user as an authenticated actor.
func (u *User) Identity() policy.Identity {
	return policy.Identity{UserID: u.ID, Role: u.Role, BranchID: u.BranchID}
}

type Branch struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Code             string          `json:"code"`
	CommissionPerLot decimal.Decimal `json:"commission_per_lot"`
	Leverage         int             `json:"leverage"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Account holds the two sub-balances of a user. The total is derived and never
// stored.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	AccountNumber  string          `json:"account_number"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	TradingBalance decimal.Decimal `json:"trading_balance"`
	Leverage       int             `json:"leverage"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivity   *time.Time      `json:"last_activity,omitempty"`
}

// TotalBalance is wallet plus trading, for display.
func (a *Account) TotalBalance() decimal.Decimal {
	return a.WalletBalance.Add(a.TradingBalance)
}

// TransactionRequest is a client ask for a deposit or withdrawal awaiting
// review.
type TransactionRequest struct {
	ID                  uuid.UUID            `json:"id"`
	UserID              uuid.UUID            `json:"user_id"`
	RequestType         domain.RequestType   `json:"request_type"`
	RequestedAmount     decimal.Decimal      `json:"requested_amount"`
	ApprovedAmount      *decimal.Decimal     `json:"approved_amount,omitempty"`
	Status              domain.RequestStatus `json:"status"`
	ClientNotes         string               `json:"client_notes,omitempty"`
	AdminNotes          string               `json:"admin_notes,omitempty"`
	ResolvedByID        *uuid.UUID           `json:"resolved_by_id,omitempty"`
	ResolvedAt          *time.Time           `json:"resolved_at,omitempty"`
	LedgerTransactionID *uuid.UUID           `json:"transaction_id,omitempty"`
	IdempotencyKey      string               `json:"-"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           *time.Time           `json:"updated_at,omitempty"`

	// Read-model fields joined from users.
	UserName       string `json:"user_name,omitempty"`
	UserEmail      string `json:"user_email,omitempty"`
	ResolvedByName string `json:"resolved_by_name,omitempty"`
}

// LedgerTransaction is an immutable record of one balance change.
type LedgerTransaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	AccountID       uuid.UUID         `json:"account_id"`
	Type            domain.LedgerType `json:"transaction_type"`
	Pool            domain.Pool       `json:"pool"`
	Amount          decimal.Decimal   `json:"amount"`
	BalanceBefore   decimal.Decimal   `json:"balance_before"`
	BalanceAfter    decimal.Decimal   `json:"balance_after"`
	Description     string            `json:"description"`
	Status          string            `json:"status"`
	PerformedByID   uuid.UUID         `json:"performed_by_id"`
	PerformedByName string            `json:"performed_by_name,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
