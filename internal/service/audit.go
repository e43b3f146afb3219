package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
)

const (
	entityTransactionRequest = "transaction_request"
	entityAccount            = "account"
	entityUser               = "user"
)

// AuditEntry is one immutable audit record. Actor is nil for self-service
// registration.
type AuditEntry struct {
	Entity    string
	EntityID  uuid.UUID
	Actor     *uuid.UUID
	Action    string
	PrevState string
	NextState string
	Fields    map[string]string
}

// AuditService writes the audit trail for money movements and account
// lifecycle events.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

// Write records e inside the caller's transaction, so the entry commits or
// rolls back with the change it describes.
func (s *AuditService) Write(ctx context.Context, qtx repository.Querier, e AuditEntry) error {
	var metadata []byte
	if len(e.Fields) > 0 {
		b, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = b
	}
	if err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: e.Entity,
		EntityID:   e.EntityID,
		ActorID:    e.Actor,
		Action:     e.Action,
		PrevState:  e.PrevState,
		NextState:  e.NextState,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func actorRef(id uuid.UUID) *uuid.UUID {
	return &id
}
