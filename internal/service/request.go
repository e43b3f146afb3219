package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/balance"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestService runs the deposit/withdrawal request lifecycle:
// pending -> approved or pending -> rejected.
type RequestService struct {
	store QueryStore
	audit *AuditService
	now   func() time.Time
}

func NewRequestService(store QueryStore) *RequestService {
	return &RequestService{
		store: store,
		audit: NewAuditService(store),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequestInput holds the parameters for a new request. IdempotencyKey is
// optional; when set, a repeat call returns the request created first.
type CreateRequestInput struct {
	Type           domain.RequestType
	Amount         decimal.Decimal
	ClientNotes    string
	IdempotencyKey string
}

// ResolveInput is the approve-or-reject command. ApprovedAmount is ignored on
// reject and defaults to the requested amount on approve.
type ResolveInput struct {
	RequestID      uuid.UUID
	Action         string
	ApprovedAmount *decimal.Decimal
	AdminNotes     string
}

// ResolveResult is returned by a successful approval or rejection.
type ResolveResult struct {
	Message     string                     `json:"message"`
	Request     *models.TransactionRequest `json:"request"`
	Transaction *models.LedgerTransaction  `json:"transaction,omitempty"`
}

// Create records a pending request for the calling client. Withdrawals larger
// than the current wallet balance fail fast; approval checks again.
func (s *RequestService) Create(ctx context.Context, actor policy.Identity, in CreateRequestInput) (*models.TransactionRequest, error) {
	if !policy.CanCreateRequest(actor) {
		return nil, fmt.Errorf("%w: only clients can create requests", domain.ErrForbidden)
	}
	if !in.Type.Valid() {
		return nil, domain.ErrInvalidRequestType
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateNotes(in.ClientNotes); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	var (
		created *models.TransactionRequest
		replay  bool
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		acc, err := qtx.GetAccountByUserIDForUpdate(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if key != "" {
			existing, err := qtx.GetTransactionRequestByIdempotencyKey(ctx, actor.UserID, key)
			if err == nil {
				created, replay = existing, true
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		if in.Type == domain.RequestTypeWithdrawal && in.Amount.GreaterThan(acc.WalletBalance) {
			return fmt.Errorf("%w: wallet balance is %s", domain.ErrInsufficientFunds, domain.FormatAmount(acc.WalletBalance))
		}
		user, err := qtx.GetUser(ctx, actor.UserID)
		if err != nil {
			return err
		}

		req := &models.TransactionRequest{
			ID:              uuid.New(),
			UserID:          actor.UserID,
			RequestType:     in.Type,
			RequestedAmount: in.Amount,
			Status:          domain.RequestStatusPending,
			ClientNotes:     in.ClientNotes,
			IdempotencyKey:  key,
			CreatedAt:       s.now(),
			UserName:        user.Name,
			UserEmail:       user.Email,
		}
		if err := qtx.InsertTransactionRequest(ctx, req); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, AuditEntry{
			Entity:    entityTransactionRequest,
			EntityID:  req.ID,
			Actor:     actorRef(actor.UserID),
			Action:    "request_created",
			NextState: string(req.Status),
			Fields:    map[string]string{"request_type": string(in.Type), "amount": in.Amount.StringFixed(domain.AmountScale)},
		}); err != nil {
			return err
		}
		created = req
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		return s.store.Queries().GetTransactionRequestByIdempotencyKey(ctx, actor.UserID, key)
	}
	if err != nil {
		return nil, err
	}
	if replay {
		return created, nil
	}

	observability.IncrementRequestTransition("created", string(created.RequestType))
	zap.L().Info("transaction request created",
		zap.String("request_id", created.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("type", string(created.RequestType)),
		zap.String("amount", created.RequestedAmount.StringFixed(domain.AmountScale)),
	)
	return created, nil
}

// Resolve dispatches to Approve or Reject by action name.
func (s *RequestService) Resolve(ctx context.Context, actor policy.Identity, in ResolveInput) (*ResolveResult, error) {
	switch strings.ToLower(strings.TrimSpace(in.Action)) {
	case domain.ActionApprove:
		return s.Approve(ctx, actor, in.RequestID, in.ApprovedAmount, in.AdminNotes)
	case domain.ActionReject:
		return s.Reject(ctx, actor, in.RequestID, in.AdminNotes)
	default:
		return nil, domain.ErrInvalidAction
	}
}

// Approve resolves a pending request and applies its balance effect in the
// same transaction: deposits credit the trading pool, withdrawals debit the
// wallet pool. A balance failure leaves the request pending.
func (s *RequestService) Approve(ctx context.Context, actor policy.Identity, requestID uuid.UUID, approvedAmount *decimal.Decimal, adminNotes string) (*ResolveResult, error) {
	if !actor.Role.IsResolver() {
		return nil, fmt.Errorf("%w: only managers and admins can approve requests", domain.ErrForbidden)
	}
	if approvedAmount != nil {
		if err := domain.ValidateAmount(*approvedAmount); err != nil {
			return nil, err
		}
	}
	if err := domain.ValidateNotes(adminNotes); err != nil {
		return nil, err
	}

	var (
		result *models.TransactionRequest
		ledger models.LedgerTransaction
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		req, err := s.lockForResolution(ctx, qtx, actor, requestID)
		if err != nil {
			return err
		}

		amount := req.RequestedAmount
		if approvedAmount != nil {
			amount = *approvedAmount
		}
		if amount.GreaterThan(req.RequestedAmount) {
			return fmt.Errorf("%w: approved amount %s exceeds requested %s", domain.ErrInvalidAmount,
				domain.FormatAmount(amount), domain.FormatAmount(req.RequestedAmount))
		}

		acc, err := qtx.GetAccountByUserIDForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}

		var (
			move        balance.Movement
			description string
		)
		switch req.RequestType {
		case domain.RequestTypeDeposit:
			move, err = balance.ApplyDeposit(acc, amount, domain.PoolTrading)
			description = "Approved deposit request. Notes: " + notesOrNA(adminNotes)
		case domain.RequestTypeWithdrawal:
			move, err = balance.ApplyWithdrawal(acc, amount, domain.PoolWallet)
			description = "Approved withdrawal request. Notes: " + notesOrNA(adminNotes)
		default:
			return domain.ErrInvalidRequestType
		}
		if err != nil {
			return err
		}

		now := s.now()
		ledger, err = persistMovement(ctx, qtx, acc, move, actor.UserID, description, now)
		if err != nil {
			return err
		}

		ledgerID := ledger.ID
		approved := amount
		fields := map[string]string{"approved_amount": amount.StringFixed(domain.AmountScale), "transaction_id": ledgerID.String()}
		if err := transitionRequestState(ctx, qtx, s.audit, req, repository.ResolveTransactionRequestParams{
			ID:                  req.ID,
			Status:              domain.RequestStatusApproved,
			ApprovedAmount:      &approved,
			AdminNotes:          adminNotes,
			ResolvedByID:        actor.UserID,
			ResolvedAt:          now,
			LedgerTransactionID: &ledgerID,
		}, "request_approved", fields); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementRequestTransition("approved", string(result.RequestType))
	observability.IncrementLedgerMovement(string(ledger.Type), string(ledger.Pool))
	zap.L().Info("transaction request approved",
		zap.String("request_id", result.ID.String()),
		zap.String("resolver_id", actor.UserID.String()),
		zap.String("resolver_role", actor.Role.String()),
		zap.String("approved_amount", result.ApprovedAmount.StringFixed(domain.AmountScale)),
	)

	verb := "deposited"
	if result.RequestType == domain.RequestTypeWithdrawal {
		verb = "withdrawn"
	}
	return &ResolveResult{
		Message:     fmt.Sprintf("Request approved. %s %s", domain.FormatAmount(*result.ApprovedAmount), verb),
		Request:     result,
		Transaction: &ledger,
	}, nil
}

// Reject resolves a pending request without any balance effect.
func (s *RequestService) Reject(ctx context.Context, actor policy.Identity, requestID uuid.UUID, adminNotes string) (*ResolveResult, error) {
	if !actor.Role.IsResolver() {
		return nil, fmt.Errorf("%w: only managers and admins can reject requests", domain.ErrForbidden)
	}
	if err := domain.ValidateNotes(adminNotes); err != nil {
		return nil, err
	}

	var result *models.TransactionRequest
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		req, err := s.lockForResolution(ctx, qtx, actor, requestID)
		if err != nil {
			return err
		}
		if err := transitionRequestState(ctx, qtx, s.audit, req, repository.ResolveTransactionRequestParams{
			ID:           req.ID,
			Status:       domain.RequestStatusRejected,
			AdminNotes:   adminNotes,
			ResolvedByID: actor.UserID,
			ResolvedAt:   s.now(),
		}, "request_rejected", nil); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementRequestTransition("rejected", string(result.RequestType))
	zap.L().Info("transaction request rejected",
		zap.String("request_id", result.ID.String()),
		zap.String("resolver_id", actor.UserID.String()),
	)
	return &ResolveResult{Message: "Request rejected successfully", Request: result}, nil
}

// lockForResolution loads the request under lock and runs the checks shared
// by approve and reject: existence, resolver scope, and pending status.
func (s *RequestService) lockForResolution(ctx context.Context, qtx repository.Querier, actor policy.Identity, requestID uuid.UUID) (*models.TransactionRequest, error) {
	req, err := qtx.GetTransactionRequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	requester, err := qtx.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !policy.CanResolve(actor, requester.Subject()) {
		if actor.Role == policy.RoleAdmin {
			return nil, fmt.Errorf("%w: you can only resolve requests from clients in your branch", domain.ErrForbidden)
		}
		return nil, fmt.Errorf("%w: you cannot resolve this request", domain.ErrForbidden)
	}
	if req.Status != domain.RequestStatusPending {
		return nil, alreadyResolved(req)
	}
	resolver, err := qtx.GetUser(ctx, actor.UserID)
	if err == nil {
		req.ResolvedByName = resolver.Name
	}
	return req, nil
}

// List returns the requests visible to the actor, newest first.
func (s *RequestService) List(ctx context.Context, actor policy.Identity, status *domain.RequestStatus) ([]models.TransactionRequest, error) {
	if status != nil && !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	scope := policy.VisibleRequests(actor)
	if scope.Kind == policy.ScopeNone {
		return []models.TransactionRequest{}, nil
	}
	out, err := s.store.Queries().ListTransactionRequests(ctx, repository.ListTransactionRequestsParams{Scope: scope, Status: status})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.TransactionRequest{}
	}
	return out, nil
}

// PendingCount reports how many requests still await review.
func (s *RequestService) PendingCount(ctx context.Context) (int64, error) {
	return s.store.Queries().CountTransactionRequestsByStatus(ctx, domain.RequestStatusPending)
}

func notesOrNA(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return "N/A"
	}
	return notes
}
