package client

import (
	"context"
	"fmt"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/market"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Account is the caller's account as served, including the derived total.
type Account struct {
	models.Account
	Balance decimal.Decimal `json:"balance"`
}

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type RegisterInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return post[*models.User](ctx, c, "/v1/auth/register", in)
}

// Login signs in and starts the session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := post[sessionResponse](ctx, c, "/v1/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%w: login response without user", domain.ErrTransportFailure)
	}
	c.session.Start(resp.User.Identity(), resp.User.Name, session.Tokens{Access: resp.AccessToken, Refresh: resp.RefreshToken})
	c.Invalidate()
	return resp.User, nil
}

// Refresh rotates the session's tokens.
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.session.Tokens().Refresh
	if refresh == "" {
		return domain.ErrInvalidToken
	}
	resp, err := post[sessionResponse](ctx, c, "/v1/auth/refresh", map[string]string{"refresh_token": refresh})
	if err != nil {
		return err
	}
	c.session.Rotate(session.Tokens{Access: resp.AccessToken, Refresh: resp.RefreshToken})
	return nil
}

// Logout ends the session and drops every cached read.
func (c *Client) Logout() {
	c.session.End()
	c.mu.Lock()
	c.cache = map[string]cached{}
	c.gen++
	c.mu.Unlock()
}

func (c *Client) Account(ctx context.Context) (*Account, error) {
	return cachedGet(c, "account", func() (*Account, error) {
		return get[*Account](ctx, c, "/v1/accounts/me", nil)
	})
}

// Requests lists the requests visible to the session. A nil status lists all.
func (c *Client) Requests(ctx context.Context, status *domain.RequestStatus) ([]models.TransactionRequest, error) {
	key := "requests"
	var query map[string]string
	if status != nil {
		key += ":" + string(*status)
		query = map[string]string{"status_filter": string(*status)}
	}
	return cachedGet(c, key, func() ([]models.TransactionRequest, error) {
		return get[[]models.TransactionRequest](ctx, c, "/v1/transactions/requests", query)
	})
}

func (c *Client) History(ctx context.Context, limit int) ([]models.LedgerTransaction, error) {
	return cachedGet(c, fmt.Sprintf("history:%d", limit), func() ([]models.LedgerTransaction, error) {
		return get[[]models.LedgerTransaction](ctx, c, "/v1/transactions/history", limitQuery(limit))
	})
}

func (c *Client) CreateRequest(ctx context.Context, t domain.RequestType, amount decimal.Decimal, notes string) (*models.TransactionRequest, error) {
	return mutate[*models.TransactionRequest](ctx, c, "/v1/transactions/request", map[string]any{
		"request_type":     t,
		"requested_amount": amount,
		"client_notes":     notes,
	})
}

// Approve resolves a request, optionally for less than requested, and
// returns the server's message.
func (c *Client) Approve(ctx context.Context, requestID uuid.UUID, amount *decimal.Decimal, notes string) (string, error) {
	body := map[string]any{"request_id": requestID, "action": domain.ActionApprove}
	if amount != nil {
		body["approved_amount"] = *amount
	}
	if notes != "" {
		body["admin_notes"] = notes
	}
	resp, err := mutate[messageResponse](ctx, c, "/v1/transactions/approve-request", body)
	return resp.Message, err
}

func (c *Client) Reject(ctx context.Context, requestID uuid.UUID, notes string) (string, error) {
	body := map[string]any{"request_id": requestID, "action": domain.ActionReject}
	if notes != "" {
		body["admin_notes"] = notes
	}
	resp, err := mutate[messageResponse](ctx, c, "/v1/transactions/approve-request", body)
	return resp.Message, err
}

func (c *Client) TransferProfit(ctx context.Context, amount decimal.Decimal) (string, error) {
	resp, err := mutate[messageResponse](ctx, c, "/v1/transactions/transfer-profit", map[string]any{"amount": amount})
	return resp.Message, err
}

// DirectEndpoint names one staff deposit or withdrawal route.
type DirectEndpoint string

const (
	ManagerDepositAdmin   DirectEndpoint = "/v1/transactions/manager/deposit-admin"
	ManagerWithdrawAdmin  DirectEndpoint = "/v1/transactions/manager/withdraw-admin"
	ManagerDepositClient  DirectEndpoint = "/v1/transactions/manager/deposit-client"
	ManagerWithdrawClient DirectEndpoint = "/v1/transactions/manager/withdraw-client"
	AdminDepositClient    DirectEndpoint = "/v1/transactions/admin/deposit-client"
	AdminWithdrawClient   DirectEndpoint = "/v1/transactions/admin/withdraw-client"
)

// DirectEndpointFor picks the route for actor moving money on a target role.
func DirectEndpointFor(actor, target policy.Role, t domain.LedgerType) (DirectEndpoint, error) {
	deposit := t == domain.LedgerDeposit
	if !deposit && t != domain.LedgerWithdraw {
		return "", domain.ErrInvalidInput
	}
	switch actor {
	case policy.RoleManager:
		switch target {
		case policy.RoleAdmin:
			if deposit {
				return ManagerDepositAdmin, nil
			}
			return ManagerWithdrawAdmin, nil
		case policy.RoleClient:
			if deposit {
				return ManagerDepositClient, nil
			}
			return ManagerWithdrawClient, nil
		}
	case policy.RoleAdmin:
		if target == policy.RoleClient {
			if deposit {
				return AdminDepositClient, nil
			}
			return AdminWithdrawClient, nil
		}
	case policy.RoleClient:
	}
	return "", domain.ErrForbidden
}

func (c *Client) Direct(ctx context.Context, endpoint DirectEndpoint, target uuid.UUID, amount decimal.Decimal, notes string) (string, error) {
	resp, err := mutate[messageResponse](ctx, c, string(endpoint), map[string]any{
		"target_user_id": target,
		"amount":         amount,
		"notes":          notes,
	})
	return resp.Message, err
}

type ClientSummary struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	AccountNumber  string          `json:"account_number"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	TradingBalance decimal.Decimal `json:"trading_balance"`
}

type AdminSummary struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	AccountNumber string          `json:"account_number"`
	BranchID      *uuid.UUID      `json:"branch_id,omitempty"`
	AdminBalance  decimal.Decimal `json:"admin_balance"`
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

func (c *Client) BranchClients(ctx context.Context) ([]ClientSummary, error) {
	return cachedGet(c, "branch-clients", func() ([]ClientSummary, error) {
		return get[[]ClientSummary](ctx, c, "/v1/admin/branch-clients", nil)
	})
}

func (c *Client) BranchInfo(ctx context.Context) (*BranchInfo, error) {
	return cachedGet(c, "branch-info", func() (*BranchInfo, error) {
		return get[*BranchInfo](ctx, c, "/v1/admin/branch-info", nil)
	})
}

func (c *Client) Admins(ctx context.Context) ([]AdminSummary, error) {
	return cachedGet(c, "admins", func() ([]AdminSummary, error) {
		return get[[]AdminSummary](ctx, c, "/v1/manager/admins", nil)
	})
}

func (c *Client) Clients(ctx context.Context) ([]ClientSummary, error) {
	return cachedGet(c, "clients", func() ([]ClientSummary, error) {
		return get[[]ClientSummary](ctx, c, "/v1/manager/clients", nil)
	})
}

// Quotes pulls the next board. Quotes are never cached.
func (c *Client) Quotes(ctx context.Context) (market.Board, error) {
	return get[market.Board](ctx, c, "/v1/market/quotes", nil)
}

// Dashboard is what a signed-in user sees on load.
type Dashboard struct {
	Account  *Account
	Requests []models.TransactionRequest
	History  []models.LedgerTransaction
}

// Dashboard loads the account, the visible requests and recent history
// concurrently.
func (c *Client) Dashboard(ctx context.Context, historyLimit int) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acc, err := c.Account(gctx)
		d.Account = acc
		return err
	})
	g.Go(func() error {
		reqs, err := c.Requests(gctx, nil)
		d.Requests = reqs
		return err
	})
	g.Go(func() error {
		hist, err := c.History(gctx, historyLimit)
		d.History = hist
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
