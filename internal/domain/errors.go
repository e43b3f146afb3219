package domain

import "errors"

// Domain rejections. They are detected before any state is touched and are
// safe to retry once the input is corrected.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyResolved    = errors.New("request already resolved")
	ErrNotFound           = errors.New("not found")
	ErrNotesTooLong       = errors.New("notes exceed 500 characters")
	ErrNotesRequired      = errors.New("notes are required")
	ErrInvalidRequestType = errors.New("request_type must be either deposit or withdrawal")
	ErrInvalidAction      = errors.New("action must be either approve or reject")
	ErrInvalidStatus      = errors.New("status_filter must be pending, approved or rejected")
	ErrInvalidInput       = errors.New("invalid input")
)

// Identity and directory failures.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrNoBranch           = errors.New("admin is not assigned to a branch")
)

// ErrTransportFailure marks a remote call that failed or timed out. Unlike the
// domain rejections above, a mutation that ends in this error may or may not
// have been applied; callers re-query authoritative state.
var ErrTransportFailure = errors.New("transport failure")
