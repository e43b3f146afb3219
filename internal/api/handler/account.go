package handler

import (
	"net/http"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// accountView adds the derived total to the stored pools.
type accountView struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	AccountNumber  string          `json:"account_number"`
	Balance        decimal.Decimal `json:"balance"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	TradingBalance decimal.Decimal `json:"trading_balance"`
	Leverage       int             `json:"leverage"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivity   *time.Time      `json:"last_activity,omitempty"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:             a.ID,
		UserID:         a.UserID,
		AccountNumber:  a.AccountNumber,
		Balance:        a.TotalBalance(),
		WalletBalance:  a.WalletBalance,
		TradingBalance: a.TradingBalance,
		Leverage:       a.Leverage,
		Currency:       a.Currency,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
		LastActivity:   a.LastActivity,
	}
}

// GetMyAccount handles GET /v1/accounts/me.
func (h *AccountHandler) GetMyAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	account, err := h.svc.GetAccount(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "get account")
		return
	}
	RespondJSON(w, http.StatusOK, newAccountView(account))
}

type transferProfitBody struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferProfit handles POST /v1/transactions/transfer-profit.
func (h *AccountHandler) TransferProfit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req transferProfitBody
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.TransferProfit(r.Context(), actor, req.Amount)
	if err != nil {
		respondServiceError(w, r, err, "transfer profit")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// History handles GET /v1/transactions/history?limit=.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
		return
	}
	entries, err := h.svc.History(r.Context(), actor, limit)
	if err != nil {
		respondServiceError(w, r, err, "get history")
		return
	}
	RespondJSON(w, http.StatusOK, entries)
}
