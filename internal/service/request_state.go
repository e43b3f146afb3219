package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
)

var requestTransitions = map[domain.RequestStatus]map[domain.RequestStatus]struct{}{
	domain.RequestStatusPending: {
		domain.RequestStatusApproved: {},
		domain.RequestStatusRejected: {},
	},
	domain.RequestStatusApproved: {},
	domain.RequestStatusRejected: {},
}

func canTransition(current, next domain.RequestStatus) bool {
	nextStates, ok := requestTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

func alreadyResolved(req *models.TransactionRequest) error {
	return fmt.Errorf("%w: request is already %s", domain.ErrAlreadyResolved, req.Status)
}

// transitionRequestState resolves a locked request and audits the change. The
// update only matches pending rows, so a concurrent resolution surfaces as
// ErrAlreadyResolved instead of a second write.
func transitionRequestState(ctx context.Context, qtx repository.Querier, audit *AuditService, req *models.TransactionRequest, arg repository.ResolveTransactionRequestParams, action string, fields map[string]string) error {
	if !canTransition(req.Status, arg.Status) {
		return alreadyResolved(req)
	}

	rows, err := qtx.ResolveTransactionRequest(ctx, arg)
	if err != nil {
		return fmt.Errorf("resolve transaction request: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: request is no longer pending", domain.ErrAlreadyResolved)
	}
	if err := requireExactlyOne(rows, "resolve transaction request"); err != nil {
		return err
	}

	if err := audit.Write(ctx, qtx, AuditEntry{
		Entity:    entityTransactionRequest,
		EntityID:  req.ID,
		Actor:     actorRef(arg.ResolvedByID),
		Action:    action,
		PrevState: string(req.Status),
		NextState: string(arg.Status),
		Fields:    fields,
	}); err != nil {
		return err
	}

	req.Status = arg.Status
	req.ApprovedAmount = arg.ApprovedAmount
	req.AdminNotes = arg.AdminNotes
	req.ResolvedByID = uuidPtr(arg.ResolvedByID)
	resolvedAt := arg.ResolvedAt
	req.ResolvedAt = &resolvedAt
	req.UpdatedAt = &resolvedAt
	req.LedgerTransactionID = arg.LedgerTransactionID
	return nil
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
