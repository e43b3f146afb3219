// Package policy holds the role-scoped authorization rules for the
// back-office. Every function here is pure: identities and branch membership
// are supplied by the caller, typically from the token claims and the users
// table.
package policy

import "github.com/google/uuid"

// Identity is the authenticated actor, passed explicitly into every core
// operation.
type Identity struct {
	UserID   uuid.UUID
	Role     Role
	BranchID *uuid.UUID
}

// Subject describes the user on the other side of an operation: the
// requester of a transaction request, or the target of a direct transaction.
type Subject struct {
	UserID   uuid.UUID
	Role     Role
	BranchID *uuid.UUID
}

// Subject returns the identity viewed as a subject.
func (id Identity) Subject() Subject {
	return Subject{UserID: id.UserID, Role: id.Role, BranchID: id.BranchID}
}

// CanCreateRequest reports whether the actor may submit deposit or withdrawal
// requests. Only clients can, and only for themselves.
func CanCreateRequest(actor Identity) bool {
	switch actor.Role {
	case RoleClient:
		return true
	case RoleAdmin, RoleManager:
		return false
	default:
		return false
	}
}

// CanTransferProfit reports whether the actor may move funds from the trading
// pool to the wallet pool of the given account owner.
func CanTransferProfit(actor Identity, owner uuid.UUID) bool {
	switch actor.Role {
	case RoleClient:
		return actor.UserID == owner
	case RoleAdmin, RoleManager:
		return false
	default:
		return false
	}
}

// CanResolve reports whether the actor may approve or reject a request raised
// by requester.
func CanResolve(actor Identity, requester Subject) bool {
	switch actor.Role {
	case RoleClient:
		return false
	case RoleAdmin:
		return requester.Role == RoleClient && sameBranch(actor.BranchID, requester.BranchID)
	case RoleManager:
		return requester.Role == RoleClient || requester.Role == RoleAdmin
	default:
		return false
	}
}

// CanDirectTransact reports whether the actor may deposit to or withdraw from
// the target's account without a request.
func CanDirectTransact(actor Identity, target Subject) bool {
	switch actor.Role {
	case RoleClient:
		return target.UserID == actor.UserID
	case RoleAdmin:
		return target.Role == RoleClient && sameBranch(actor.BranchID, target.BranchID)
	case RoleManager:
		return target.Role == RoleClient || target.Role == RoleAdmin
	default:
		return false
	}
}

// ScopeKind selects which requests a caller may list.
type ScopeKind uint8

const (
	ScopeNone ScopeKind = iota
	ScopeOwn
	ScopeBranch
	ScopeAll
)

// RequestScope narrows request listings to what the actor may see.
type RequestScope struct {
	Kind     ScopeKind
	UserID   uuid.UUID
	BranchID uuid.UUID
}

// VisibleRequests returns the listing scope for the actor. An admin without a
// branch sees nothing.
func VisibleRequests(actor Identity) RequestScope {
	switch actor.Role {
	case RoleClient:
		return RequestScope{Kind: ScopeOwn, UserID: actor.UserID}
	case RoleAdmin:
		if actor.BranchID == nil {
			return RequestScope{Kind: ScopeNone}
		}
		return RequestScope{Kind: ScopeBranch, BranchID: *actor.BranchID}
	case RoleManager:
		return RequestScope{Kind: ScopeAll}
	default:
		return RequestScope{Kind: ScopeNone}
	}
}

// Allows reports whether a request raised by requester falls inside the scope.
func (s RequestScope) Allows(requester Subject) bool {
	switch s.Kind {
	case ScopeOwn:
		return requester.UserID == s.UserID
	case ScopeBranch:
		return requester.BranchID != nil && *requester.BranchID == s.BranchID
	case ScopeAll:
		return true
	default:
		return false
	}
}

func sameBranch(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
