package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/idempotency"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func idempotentHandler(t *testing.T, statuses ...int) (http.Handler, *int) {
	t.Helper()
	calls := 0
	store := idempotency.NewStore(nil, memstore.New().Idempotency(), time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := statuses[min(calls, len(statuses)-1)]
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"call":` + strconv.Itoa(calls) + `}`))
	})
	return IdempotencyMiddleware(store, zap.NewNop())(next), &calls
}

func post(h http.Handler, user uuid.UUID, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/transfer-profit", strings.NewReader(body))
	req.Header.Set(IdempotencyKeyHeader, key)
	req = req.WithContext(WithIdentity(req.Context(), policy.Identity{UserID: user, Role: policy.RoleClient}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysClientErrors(t *testing.T) {
	h, calls := idempotentHandler(t, http.StatusBadRequest, http.StatusOK)
	user := uuid.New()

	first := post(h, user, "k1", `{"amount":"5"}`)
	second := post(h, user, "k1", `{"amount":"5"}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, string(idempotency.SourceDatabase), second.Header().Get(ReplayHeader))
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyReleasesServerErrors(t *testing.T) {
	h, calls := idempotentHandler(t, http.StatusInternalServerError, http.StatusOK)
	user := uuid.New()

	first := post(h, user, "k1", `{"amount":"5"}`)
	require.Equal(t, http.StatusInternalServerError, first.Code)
	retry := post(h, user, "k1", `{"amount":"5"}`)
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Empty(t, retry.Header().Get(ReplayHeader))
	assert.Equal(t, 2, *calls)

	replayed := post(h, user, "k1", `{"amount":"5"}`)
	assert.Equal(t, http.StatusOK, replayed.Code)
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyKeyValidation(t *testing.T) {
	h, calls := idempotentHandler(t, http.StatusOK)
	user := uuid.New()

	for _, key := range []string{"", "with space", strings.Repeat("k", 256), "tab\tkey"} {
		w := post(h, user, key, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, key)
	}
	assert.Equal(t, 0, *calls)

	assert.Equal(t, http.StatusOK, post(h, user, strings.Repeat("k", 255), `{}`).Code)
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	h, calls := idempotentHandler(t, http.StatusOK)

	post(h, uuid.New(), "shared", `{}`)
	w := post(h, uuid.New(), "shared", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(ReplayHeader))
	assert.Equal(t, 2, *calls)
}
