package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/api/middleware"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestHandler serves the transaction request queue.
type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type createRequestBody struct {
	RequestType     domain.RequestType `json:"request_type"`
	RequestedAmount decimal.Decimal    `json:"requested_amount"`
	ClientNotes     string             `json:"client_notes"`
}

// CreateRequest handles POST /v1/transactions/request.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req createRequestBody
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.svc.Create(r.Context(), actor, service.CreateRequestInput{
		Type:           req.RequestType,
		Amount:         req.RequestedAmount,
		ClientNotes:    req.ClientNotes,
		IdempotencyKey: r.Header.Get(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		respondServiceError(w, r, err, "create transaction request")
		return
	}
	RespondJSON(w, http.StatusCreated, created)
}

type approveRequestBody struct {
	RequestID      string           `json:"request_id"`
	Action         string           `json:"action"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
	AdminNotes     string           `json:"admin_notes,omitempty"`
}

// ApproveRequest handles POST /v1/transactions/approve-request. The action
// field selects approve or reject.
func (h *RequestHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req approveRequestBody
	if !decodeBody(w, r, &req) {
		return
	}
	requestID, err := uuid.Parse(strings.TrimSpace(req.RequestID))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid request_id")
		return
	}

	result, err := h.svc.Resolve(r.Context(), actor, service.ResolveInput{
		RequestID:      requestID,
		Action:         strings.ToLower(strings.TrimSpace(req.Action)),
		ApprovedAmount: req.ApprovedAmount,
		AdminNotes:     req.AdminNotes,
	})
	if err != nil {
		respondServiceError(w, r, err, "resolve transaction request")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// ListRequests handles GET /v1/transactions/requests?status_filter=.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var status *domain.RequestStatus
	if v := strings.TrimSpace(r.URL.Query().Get("status_filter")); v != "" {
		s := domain.RequestStatus(strings.ToLower(v))
		if !s.Valid() {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-status", domain.ErrInvalidStatus.Error())
			return
		}
		status = &s
	}

	requests, err := h.svc.List(r.Context(), actor, status)
	if err != nil {
		respondServiceError(w, r, err, "list transaction requests")
		return
	}
	RespondJSON(w, http.StatusOK, requests)
}
