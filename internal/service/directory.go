package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DirectoryService answers the staff views of users, branches and balances.
type DirectoryService struct {
	store QueryStore
}

func NewDirectoryService(store QueryStore) *DirectoryService {
	return &DirectoryService{store: store}
}

// ClientSummary is a client together with their balances.
type ClientSummary struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	AccountNumber  string          `json:"account_number"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	TradingBalance decimal.Decimal `json:"trading_balance"`
	IsActive       bool            `json:"is_active"`
}

// AdminSummary is an admin with their float.
type AdminSummary struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	AccountNumber string          `json:"account_number"`
	BranchID      *uuid.UUID      `json:"branch_id,omitempty"`
	AdminBalance  decimal.Decimal `json:"admin_balance"`
	IsActive      bool            `json:"is_active"`
}

type BranchInfo struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Code             string          `json:"code"`
	ClientCount      int64           `json:"client_count"`
	CommissionPerLot decimal.Decimal `json:"commission_per_lot"`
	Leverage         int             `json:"leverage"`
	AdminBalance     decimal.Decimal `json:"admin_balance"`
}

type CreateBranchInput struct {
	Name             string
	Code             string
	CommissionPerLot decimal.Decimal
	Leverage         int
}

// CreateBranch adds a branch to the directory.
func (s *DirectoryService) CreateBranch(ctx context.Context, in CreateBranchInput) (*models.Branch, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("%w: branch name and code are required", domain.ErrInvalidInput)
	}
	if in.Leverage <= 0 {
		in.Leverage = domain.DefaultLeverage
	}
	b := &models.Branch{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(in.Name),
		Code:             strings.ToUpper(strings.TrimSpace(in.Code)),
		CommissionPerLot: in.CommissionPerLot,
		Leverage:         in.Leverage,
	}
	if err := s.store.Queries().CreateBranch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// BranchClients lists the clients of the admin's branch.
func (s *DirectoryService) BranchClients(ctx context.Context, actor policy.Identity) ([]ClientSummary, error) {
	branchID, err := adminBranch(actor)
	if err != nil {
		return nil, err
	}
	return s.clients(ctx, &branchID)
}

// BranchInfo describes the admin's branch and the admin's float.
func (s *DirectoryService) BranchInfo(ctx context.Context, actor policy.Identity) (*BranchInfo, error) {
	branchID, err := adminBranch(actor)
	if err != nil {
		return nil, err
	}
	q := s.store.Queries()
	branch, err := q.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	count, err := q.CountUsersByRole(ctx, policy.RoleClient, &branchID)
	if err != nil {
		return nil, err
	}
	float := decimal.Zero
	if acc, err := q.GetAccountByUserID(ctx, actor.UserID); err == nil {
		float = acc.WalletBalance
	}
	return &BranchInfo{
		ID:               branch.ID,
		Name:             branch.Name,
		Code:             branch.Code,
		ClientCount:      count,
		CommissionPerLot: branch.CommissionPerLot,
		Leverage:         branch.Leverage,
		AdminBalance:     float,
	}, nil
}

// Admins lists every admin with their float. Managers only.
func (s *DirectoryService) Admins(ctx context.Context, actor policy.Identity) ([]AdminSummary, error) {
	if actor.Role != policy.RoleManager {
		return nil, fmt.Errorf("%w: only managers can list admins", domain.ErrForbidden)
	}
	q := s.store.Queries()
	users, err := q.ListUsersByRole(ctx, policy.RoleAdmin, nil)
	if err != nil {
		return nil, err
	}
	out := make([]AdminSummary, 0, len(users))
	for _, u := range users {
		float := decimal.Zero
		if acc, err := q.GetAccountByUserID(ctx, u.ID); err == nil {
			float = acc.WalletBalance
		}
		out = append(out, AdminSummary{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			AccountNumber: u.AccountNumber,
			BranchID:      u.BranchID,
			AdminBalance:  float,
			IsActive:      u.IsActive,
		})
	}
	return out, nil
}

// Clients lists every client on the platform. Managers only.
func (s *DirectoryService) Clients(ctx context.Context, actor policy.Identity) ([]ClientSummary, error) {
	if actor.Role != policy.RoleManager {
		return nil, fmt.Errorf("%w: only managers can list all clients", domain.ErrForbidden)
	}
	return s.clients(ctx, nil)
}

func (s *DirectoryService) clients(ctx context.Context, branchID *uuid.UUID) ([]ClientSummary, error) {
	q := s.store.Queries()
	users, err := q.ListUsersByRole(ctx, policy.RoleClient, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]ClientSummary, 0, len(users))
	for _, u := range users {
		sum := ClientSummary{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			AccountNumber:  u.AccountNumber,
			BranchID:       u.BranchID,
			Balance:        decimal.Zero,
			WalletBalance:  decimal.Zero,
			TradingBalance: decimal.Zero,
			IsActive:       u.IsActive,
		}
		if acc, err := q.GetAccountByUserID(ctx, u.ID); err == nil {
			sum.WalletBalance = acc.WalletBalance
			sum.TradingBalance = acc.TradingBalance
			sum.Balance = acc.TotalBalance()
		}
		out = append(out, sum)
	}
	return out, nil
}

func adminBranch(actor policy.Identity) (uuid.UUID, error) {
	if actor.Role != policy.RoleAdmin {
		return uuid.Nil, fmt.Errorf("%w: only admins can access this view", domain.ErrForbidden)
	}
	if actor.BranchID == nil {
		return uuid.Nil, domain.ErrNoBranch
	}
	return *actor.BranchID, nil
}
