package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/ayo6706/trading-backoffice/internal/idempotency"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayHeader         = "X-Idempotent-Replay"
	maxIdempotencyKeyLen = 255
)

// IdempotencyMiddleware enforces the Idempotency-Key contract for mutating
// requests. Keys are scoped to the authenticated caller, so it must run after
// AuthMiddleware.
//
// Responses below 500 are stored and replayed for the key. A 5xx releases the
// key so the client's retry runs the operation again.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := r.Header.Get(IdempotencyKeyHeader)
			if clientKey == "" {
				observability.IncrementIdempotencyEvent("missing_key")
				idempotencyProblem(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required")
				return
			}
			if !validIdempotencyKey(clientKey) {
				observability.IncrementIdempotencyEvent("invalid_key")
				idempotencyProblem(w, r, http.StatusBadRequest, "idempotency/invalid-key", "Idempotency-Key must be 1-255 printable ASCII characters")
				return
			}

			subject := "anonymous"
			if identity, ok := IdentityFromContext(r.Context()); ok {
				subject = identity.UserID.String()
			}
			key := idempotency.ScopedKey(subject, clientKey)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				idempotencyProblem(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := idempotency.Fingerprint(r.Method, r.URL.Path, body)

			rec, err := store.Lookup(r.Context(), key, hash)
			switch {
			case err == nil:
				observability.IncrementIdempotencyEvent("replay")
				replay(w, rec)
				return
			case errors.Is(err, idempotency.ErrHashMismatch):
				observability.IncrementIdempotencyEvent("hash_mismatch")
				idempotencyProblem(w, r, http.StatusConflict, "idempotency/key-conflict", "Idempotency-Key was already used with a different request")
				return
			case errors.Is(err, idempotency.ErrInProgress):
				waitAndReplay(w, r, store, logger, key, hash)
				return
			case !errors.Is(err, idempotency.ErrNotFound):
				observability.IncrementIdempotencyEvent("lookup_error")
				logger.Warn("idempotency lookup failed", zap.Error(err))
			}

			reserved, err := store.Reserve(r.Context(), key, hash, r.Method, r.URL.Path)
			if err != nil {
				observability.IncrementIdempotencyEvent("reserve_error")
				logger.Error("idempotency reserve failed", zap.Error(err))
				idempotencyProblem(w, r, http.StatusInternalServerError, "idempotency/unavailable", "idempotency unavailable")
				return
			}
			if !reserved {
				waitAndReplay(w, r, store, logger, key, hash)
				return
			}
			observability.IncrementIdempotencyEvent("reserved")

			recorder := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)
			if recorder.status == 0 {
				recorder.status = http.StatusOK
			}

			if recorder.status >= http.StatusInternalServerError {
				if err := store.Release(r.Context(), key, hash); err != nil {
					logger.Warn("idempotency release failed", zap.Error(err), zap.String("key", key))
				}
				observability.IncrementIdempotencyEvent("released")
				return
			}

			contentType := recorder.Header().Get("Content-Type")
			if contentType == "" {
				contentType = "application/json"
			}
			if _, err := store.Finalize(r.Context(), key, hash, recorder.status, recorder.body.Bytes(), contentType); err != nil {
				observability.IncrementIdempotencyEvent("finalize_error")
				logger.Warn("idempotency finalize failed", zap.Error(err), zap.String("key", key))
				return
			}
			observability.IncrementIdempotencyEvent("finalized")
		})
	}
}

func waitAndReplay(w http.ResponseWriter, r *http.Request, store *idempotency.Store, logger *zap.Logger, key, hash string) {
	rec, err := store.WaitForCompletion(r.Context(), key, hash)
	if err == nil {
		observability.IncrementIdempotencyEvent("replay_after_wait")
		replay(w, rec)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	logger.Warn("idempotency wait failed", zap.Error(err))
	if errors.Is(err, idempotency.ErrNotFound) {
		idempotencyProblem(w, r, http.StatusConflict, "idempotency/retry", "the earlier request with this Idempotency-Key failed, retry it")
		return
	}
	idempotencyProblem(w, r, http.StatusConflict, "idempotency/in-progress", "a request with this Idempotency-Key is still processing")
}

func validIdempotencyKey(key string) bool {
	if len(key) == 0 || len(key) > maxIdempotencyKeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return false
		}
	}
	return true
}

func idempotencyProblem(w http.ResponseWriter, r *http.Request, status int, slug, detail string) {
	problem.Write(w, r, status, problem.Type(slug), http.StatusText(status), detail)
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.status == 0 {
		br.status = http.StatusOK
	}
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(ReplayHeader, string(rec.Source))
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
