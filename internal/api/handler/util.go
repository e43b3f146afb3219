package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/api/middleware"
	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

type messageResponse struct {
	Message string `json:"message"`
}

func requestActor(w http.ResponseWriter, r *http.Request) (policy.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
	}
	return identity, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// domainErrors maps sentinels to a status and problem slug. The error text
// itself becomes the problem detail so clients can show it verbatim.
var domainErrors = []struct {
	err    error
	status int
	slug   string
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest, "request/invalid-amount"},
	{domain.ErrInsufficientFunds, http.StatusBadRequest, "balance/insufficient-funds"},
	{domain.ErrNotesTooLong, http.StatusBadRequest, "request/notes-too-long"},
	{domain.ErrNotesRequired, http.StatusBadRequest, "request/notes-required"},
	{domain.ErrInvalidRequestType, http.StatusBadRequest, "request/invalid-type"},
	{domain.ErrInvalidAction, http.StatusBadRequest, "request/invalid-action"},
	{domain.ErrInvalidStatus, http.StatusBadRequest, "request/invalid-status"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "request/invalid-input"},
	{domain.ErrWeakPassword, http.StatusBadRequest, "auth/weak-password"},
	{domain.ErrNoBranch, http.StatusBadRequest, "directory/no-branch"},
	{domain.ErrForbidden, http.StatusForbidden, "auth/forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "resource/not-found"},
	{domain.ErrAlreadyResolved, http.StatusConflict, "request/already-resolved"},
	{domain.ErrEmailTaken, http.StatusConflict, "auth/email-taken"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "auth/invalid-credentials"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "auth/invalid-token"},
}

// respondServiceError writes the problem document for err. Unknown errors are
// logged and reported as 500 with a generic detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			RespondError(w, r, m.status, m.slug, err.Error())
			return
		}
	}
	if status, pType, msg, ok := mapDBError(err); ok {
		RespondError(w, r, status, pType, msg)
		return
	}
	zap.L().Error(op+" failed", zap.Error(err), zap.String("path", r.URL.Path))
	RespondError(w, r, http.StatusInternalServerError, "internal", "internal server error")
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
