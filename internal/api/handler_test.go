package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/api"
	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/config"
	"github.com/ayo6706/trading-backoffice/internal/idempotency"
	"github.com/ayo6706/trading-backoffice/internal/market"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "trading-backoffice-test"
	testJWTAudience = "backoffice-api-test"
)

func TestMain(m *testing.M) {
	observability.Init()
	os.Exit(m.Run())
}

type testAPI struct {
	store   *memstore.Store
	tokens  *auth.Manager
	handler http.Handler
	branch  uuid.UUID
	seq     int
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memstore.New()
	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    24 * time.Hour,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
		CORSAllowedOrigins: []string{"*"},
		HistoryMaxLimit:    200,
	}
	tokens := auth.NewManager(auth.Config{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, nil)
	idemStore := idempotency.NewStore(nil, store.Idempotency(), cfg.IdempotencyTTL)
	feed := market.NewFeed(1)
	t.Cleanup(feed.Close)

	branch := &models.Branch{ID: uuid.New(), Name: "Lagos", Code: "LAG", Leverage: 100}
	require.NoError(t, store.Queries().CreateBranch(context.Background(), branch))

	router := api.NewRouter(cfg, zap.NewNop(), store, tokens, idemStore, nil, feed)
	return &testAPI{store: store, tokens: tokens, handler: router.Routes(), branch: branch.ID}
}

// seed creates a user with an account and returns it with an access token.
func (a *testAPI) seed(t *testing.T, role policy.Role, branch *uuid.UUID, wallet, trading string) (*models.User, string) {
	t.Helper()
	a.seq++
	ctx := context.Background()
	u := &models.User{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("%s %d", role, a.seq),
		Email:         fmt.Sprintf("%s%d@example.com", role, a.seq),
		Role:          role,
		BranchID:      branch,
		AccountNumber: fmt.Sprintf("ACC-%05d", 10000+a.seq),
		IsActive:      true,
	}
	require.NoError(t, a.store.Queries().CreateUser(ctx, u))
	require.NoError(t, a.store.Queries().CreateAccount(ctx, &models.Account{
		ID:             uuid.New(),
		UserID:         u.ID,
		AccountNumber:  u.AccountNumber,
		WalletBalance:  decimal.RequireFromString(wallet),
		TradingBalance: decimal.RequireFromString(trading),
		Leverage:       100,
		Currency:       "USD",
		Status:         "active",
	}))
	pair, err := a.tokens.Issue(ctx, u)
	require.NoError(t, err)
	return u, pair.AccessToken
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, idemKey string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func problemDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
	body := decodeJSON[map[string]any](t, w)
	detail, _ := body["detail"].(string)
	return detail
}

func (a *testAPI) account(t *testing.T, token string) map[string]any {
	t.Helper()
	w := a.do(t, http.MethodGet, "/v1/accounts/me", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeJSON[map[string]any](t, w)
}

func amountOf(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "amount %v is not a string", v)
	return decimal.RequireFromString(s)
}

func TestRFC7807ProblemDetails(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/accounts/me", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	body := decodeJSON[map[string]any](t, w)
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/accounts/me", body["instance"])
	assert.NotEmpty(t, body["request_id"])

	w = a.do(t, http.MethodGet, "/v1/accounts/me", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":      "Ada",
		"email":     "ada@example.com",
		"password":  "Str0ng!Passw0rd",
		"branch_id": a.branch.String(),
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "client", user["role"])
	assert.Regexp(t, `^ACC-\d{5}$`, user["account_number"])
	assert.NotContains(t, w.Body.String(), "password")

	w = a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "Str0ng!Passw0rd",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Weak", "email": "weak@example.com", "password": "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, problemDetail(t, w), "password")

	w = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Str0ng!Passw0rd"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decodeJSON[map[string]any](t, w)
	access, _ := session["access_token"].(string)
	refresh, _ := session["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Equal(t, "bearer", session["token_type"])

	acc := a.account(t, access)
	assert.True(t, amountOf(t, acc["balance"]).IsZero())
	assert.True(t, amountOf(t, acc["wallet_balance"]).IsZero())
	assert.True(t, amountOf(t, acc["trading_balance"]).IsZero())

	w = a.do(t, http.MethodGet, "/v1/auth/me", access, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decodeJSON[map[string]any](t, w)["email"])

	w = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Refresh tokens are not access tokens.
	w = a.do(t, http.MethodGet, "/v1/accounts/me", refresh, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestLifecycle(t *testing.T) {
	a := setupAPI(t)
	_, clientToken := a.seed(t, policy.RoleClient, &a.branch, "0", "0")
	_, adminToken := a.seed(t, policy.RoleAdmin, &a.branch, "0", "0")

	w := a.do(t, http.MethodPost, "/v1/transactions/request", clientToken, map[string]string{
		"request_type": "deposit", "requested_amount": "100", "client_notes": "salary",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Idempotency-Key header is required", problemDetail(t, w))

	w = a.do(t, http.MethodPost, "/v1/transactions/request", clientToken, map[string]string{
		"request_type": "deposit", "requested_amount": "100", "client_notes": "salary",
	}, "create-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "pending", created["status"])
	requestID := created["id"].(string)

	// Clients cannot resolve.
	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", clientToken, map[string]string{
		"request_id": requestID, "action": "approve",
	}, "client-approve")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", adminToken, map[string]string{
		"request_id": requestID, "action": "approve", "approved_amount": "150",
	}, "approve-too-much")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", adminToken, map[string]string{
		"request_id": requestID, "action": "approve", "approved_amount": "60", "admin_notes": "partial",
	}, "approve-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Request approved. $60.00 deposited", decodeJSON[map[string]any](t, w)["message"])

	acc := a.account(t, clientToken)
	assert.True(t, amountOf(t, acc["trading_balance"]).Equal(decimal.NewFromInt(60)))
	assert.True(t, amountOf(t, acc["balance"]).Equal(decimal.NewFromInt(60)))

	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", adminToken, map[string]string{
		"request_id": requestID, "action": "reject",
	}, "reject-after")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, problemDetail(t, w), "request already resolved")

	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", adminToken, map[string]string{
		"request_id": uuid.NewString(), "action": "approve",
	}, "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/v1/transactions/requests?status_filter=approved", adminToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	listed := decodeJSON[[]map[string]any](t, w)
	require.Len(t, listed, 1)
	assert.True(t, amountOf(t, listed[0]["approved_amount"]).Equal(decimal.NewFromInt(60)))
	assert.NotEmpty(t, listed[0]["user_name"])
	assert.NotEmpty(t, listed[0]["resolved_by_name"])

	w = a.do(t, http.MethodGet, "/v1/transactions/requests?status_filter=bogus", adminToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/v1/transactions/history", clientToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeJSON[[]map[string]any](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "deposit", history[0]["transaction_type"])
	assert.True(t, amountOf(t, history[0]["balance_after"]).Equal(decimal.NewFromInt(60)))

	w = a.do(t, http.MethodGet, "/v1/transactions/history?limit=abc", clientToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdrawalWithoutFundsStaysPending(t *testing.T) {
	a := setupAPI(t)
	_, clientToken := a.seed(t, policy.RoleClient, &a.branch, "100", "0")
	_, managerToken := a.seed(t, policy.RoleManager, nil, "0", "0")

	w := a.do(t, http.MethodPost, "/v1/transactions/request", clientToken, map[string]string{
		"request_type": "withdrawal", "requested_amount": "500",
	}, "w-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decodeJSON[map[string]any](t, w)["id"].(string)

	w = a.do(t, http.MethodPost, "/v1/transactions/approve-request", managerToken, map[string]string{
		"request_id": requestID, "action": "approve",
	}, "w-approve")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, problemDetail(t, w), "insufficient funds")

	w = a.do(t, http.MethodGet, "/v1/transactions/requests?status_filter=pending", managerToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 1)
	assert.True(t, amountOf(t, a.account(t, clientToken)["wallet_balance"]).Equal(decimal.NewFromInt(100)))
}

func TestIdempotentReplay(t *testing.T) {
	a := setupAPI(t)
	_, clientToken := a.seed(t, policy.RoleClient, &a.branch, "0", "50")

	body := map[string]string{"amount": "20"}
	first := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", clientToken, body, "tp-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "Successfully transferred $20.00 to wallet", decodeJSON[map[string]any](t, first)["message"])

	replay := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", clientToken, body, "tp-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "database", replay.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	conflict := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", clientToken, map[string]string{"amount": "5"}, "tp-1")
	assert.Equal(t, http.StatusConflict, conflict.Code)

	invalid := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", clientToken, body, "has space")
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	acc := a.account(t, clientToken)
	assert.True(t, amountOf(t, acc["trading_balance"]).Equal(decimal.NewFromInt(30)))
	assert.True(t, amountOf(t, acc["wallet_balance"]).Equal(decimal.NewFromInt(20)))
	assert.True(t, amountOf(t, acc["balance"]).Equal(decimal.NewFromInt(50)))

	// Keys are scoped per caller.
	_, otherToken := a.seed(t, policy.RoleClient, &a.branch, "0", "50")
	w := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", otherToken, body, "tp-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Idempotent-Replay"))
}

func TestTransferProfitRejections(t *testing.T) {
	a := setupAPI(t)
	_, clientToken := a.seed(t, policy.RoleClient, &a.branch, "0", "10")
	_, adminToken := a.seed(t, policy.RoleAdmin, &a.branch, "0", "10")

	cases := []struct {
		name   string
		token  string
		amount string
		status int
	}{
		{"overdraw", clientToken, "11", http.StatusBadRequest},
		{"zero", clientToken, "0", http.StatusBadRequest},
		{"too many decimals", clientToken, "1.001", http.StatusBadRequest},
		{"admin", adminToken, "1", http.StatusForbidden},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/v1/transactions/transfer-profit", tc.token, map[string]string{"amount": tc.amount}, fmt.Sprintf("tp-%d", i))
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
	assert.True(t, amountOf(t, a.account(t, clientToken)["trading_balance"]).Equal(decimal.NewFromInt(10)))
}

func TestDirectTransactions(t *testing.T) {
	a := setupAPI(t)
	otherBranch := &models.Branch{ID: uuid.New(), Name: "Abuja", Code: "ABJ", Leverage: 100}
	require.NoError(t, a.store.Queries().CreateBranch(context.Background(), otherBranch))

	_, managerToken := a.seed(t, policy.RoleManager, nil, "0", "0")
	admin, adminToken := a.seed(t, policy.RoleAdmin, &a.branch, "0", "0")
	client, clientToken := a.seed(t, policy.RoleClient, &a.branch, "0", "0")
	outsider, _ := a.seed(t, policy.RoleClient, &otherBranch.ID, "0", "0")

	w := a.do(t, http.MethodPost, "/v1/transactions/manager/deposit-admin", managerToken, map[string]string{
		"target_user_id": admin.ID.String(), "amount": "1000", "notes": "float top-up",
	}, "d-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, fmt.Sprintf("Successfully deposited $1000.00 to %s", admin.Name), decodeJSON[map[string]any](t, w)["message"])
	assert.True(t, amountOf(t, a.account(t, adminToken)["wallet_balance"]).Equal(decimal.NewFromInt(1000)))

	w = a.do(t, http.MethodPost, "/v1/transactions/admin/deposit-client", adminToken, map[string]string{
		"target_user_id": client.ID.String(), "amount": "200", "notes": "bonus",
	}, "d-2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, amountOf(t, a.account(t, clientToken)["trading_balance"]).Equal(decimal.NewFromInt(200)))

	w = a.do(t, http.MethodPost, "/v1/transactions/admin/deposit-client", adminToken, map[string]string{
		"target_user_id": outsider.ID.String(), "amount": "5", "notes": "nope",
	}, "d-3")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/manager/deposit-admin", managerToken, map[string]string{
		"target_user_id": client.ID.String(), "amount": "5", "notes": "wrong role",
	}, "d-4")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/admin/withdraw-client", adminToken, map[string]string{
		"target_user_id": client.ID.String(), "amount": "5", "notes": "",
	}, "d-5")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/manager/deposit-client", clientToken, map[string]string{
		"target_user_id": client.ID.String(), "amount": "5", "notes": "self",
	}, "d-6")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/v1/transactions/manager/deposit-client", managerToken, map[string]string{
		"target_user_id": "not-a-uuid", "amount": "5", "notes": "x",
	}, "d-7")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectoryEndpoints(t *testing.T) {
	a := setupAPI(t)
	_, managerToken := a.seed(t, policy.RoleManager, nil, "0", "0")
	_, adminToken := a.seed(t, policy.RoleAdmin, &a.branch, "750", "0")
	_, loneAdminToken := a.seed(t, policy.RoleAdmin, nil, "0", "0")
	_, clientToken := a.seed(t, policy.RoleClient, &a.branch, "10", "15")

	w := a.do(t, http.MethodGet, "/v1/admin/branch-info", adminToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "LAG", info["code"])
	assert.Equal(t, float64(1), info["client_count"])
	assert.True(t, amountOf(t, info["admin_balance"]).Equal(decimal.NewFromInt(750)))

	w = a.do(t, http.MethodGet, "/v1/admin/branch-clients", adminToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	clients := decodeJSON[[]map[string]any](t, w)
	require.Len(t, clients, 1)
	assert.True(t, amountOf(t, clients[0]["balance"]).Equal(decimal.NewFromInt(25)))

	w = a.do(t, http.MethodGet, "/v1/admin/branch-clients", loneAdminToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/v1/manager/admins", managerToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 2)

	w = a.do(t, http.MethodGet, "/v1/manager/clients", managerToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 1)

	w = a.do(t, http.MethodGet, "/v1/manager/clients", clientToken, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodGet, "/v1/admin/branch-info", managerToken, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthDocsMetricsAndQuotes(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/health/live", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, "/health/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/openapi.yaml", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/v1/transactions/approve-request")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	req.Header.Set("If-None-Match", etag)
	notModified := httptest.NewRecorder()
	a.handler.ServeHTTP(notModified, req)
	assert.Equal(t, http.StatusNotModified, notModified.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "edge-42")
	traced := httptest.NewRecorder()
	a.handler.ServeHTTP(traced, req)
	assert.Equal(t, "edge-42", traced.Header().Get("X-Trace-ID"))

	w = a.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_request_duration_seconds"))

	first := a.do(t, http.MethodGet, "/v1/market/quotes", "", nil, "")
	require.Equal(t, http.StatusOK, first.Code)
	second := a.do(t, http.MethodGet, "/v1/market/quotes", "", nil, "")
	b1 := decodeJSON[market.Board](t, first)
	b2 := decodeJSON[market.Board](t, second)
	assert.Len(t, b1.Quotes, 5)
	assert.Equal(t, b1.Seq+1, b2.Seq)
	assert.Equal(t, "EURUSD", b1.Quotes[0].Symbol)
}
