package client

import (
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/ayo6706/trading-backoffice/internal/domain"
)

// APIError is a problem document returned by the server. Detail is the text
// to show the user.
type APIError struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	return e.Detail
}

var problemSentinels = map[string]error{
	"request/invalid-amount":     domain.ErrInvalidAmount,
	"balance/insufficient-funds": domain.ErrInsufficientFunds,
	"request/notes-too-long":     domain.ErrNotesTooLong,
	"request/notes-required":     domain.ErrNotesRequired,
	"request/invalid-type":       domain.ErrInvalidRequestType,
	"request/invalid-action":     domain.ErrInvalidAction,
	"request/invalid-status":     domain.ErrInvalidStatus,
	"request/invalid-input":      domain.ErrInvalidInput,
	"auth/weak-password":         domain.ErrWeakPassword,
	"directory/no-branch":        domain.ErrNoBranch,
	"auth/forbidden":             domain.ErrForbidden,
	"resource/not-found":         domain.ErrNotFound,
	"request/already-resolved":   domain.ErrAlreadyResolved,
	"auth/email-taken":           domain.ErrEmailTaken,
	"auth/invalid-credentials":   domain.ErrInvalidCredentials,
	"auth/invalid-token":         domain.ErrInvalidToken,
}

// Unwrap maps the problem type, or failing that the status, onto the domain
// sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	if err, ok := problemSentinels[problem.Slug(e.Type)]; ok {
		return err
	}
	switch e.Status {
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrInvalidToken
	}
	return nil
}
