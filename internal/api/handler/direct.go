package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DirectHandler serves staff deposits and withdrawals that bypass the
// request queue.
type DirectHandler struct {
	svc *service.AccountService
}

func NewDirectHandler(svc *service.AccountService) *DirectHandler {
	return &DirectHandler{svc: svc}
}

type directBody struct {
	TargetUserID string          `json:"target_user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes"`
}

// Handle returns the handler for one (type, target role) endpoint, e.g.
// POST /v1/transactions/manager/deposit-admin.
func (h *DirectHandler) Handle(t domain.LedgerType, target policy.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requestActor(w, r)
		if !ok {
			return
		}
		var req directBody
		if !decodeBody(w, r, &req) {
			return
		}
		targetID, err := uuid.Parse(strings.TrimSpace(req.TargetUserID))
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-target-user-id", "Invalid target_user_id")
			return
		}

		result, err := h.svc.DirectTransact(r.Context(), actor, service.DirectInput{
			TargetUserID: targetID,
			TargetRole:   target,
			Type:         t,
			Amount:       req.Amount,
			Notes:        req.Notes,
		})
		if err != nil {
			respondServiceError(w, r, err, "direct "+string(t))
			return
		}
		RespondJSON(w, http.StatusOK, result)
	}
}
