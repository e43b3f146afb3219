package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Str0ng!Passw0rd"

func newAuthService(store *memstore.Store) *AuthService {
	tokens := auth.NewManager(auth.Config{
		Secret:     "0123456789abcdef0123456789abcdef",
		Issuer:     "trading-backoffice",
		Audience:   "backoffice-api",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, auth.NewMemoryRefreshStore())
	return NewAuthService(store, tokens)
}

func TestRegisterLoginRefresh(t *testing.T) {
	store := memstore.New()
	svc := newAuthService(store)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "Grace@Example.com", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, policy.RoleClient, user.Role)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Regexp(t, regexp.MustCompile(`^ACC-\d{5}$`), user.AccountNumber)

	acc, err := store.Queries().GetAccountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, acc.WalletBalance.IsZero())
	assert.True(t, acc.TradingBalance.IsZero())
	assert.Equal(t, user.AccountNumber, acc.AccountNumber)

	_, err = svc.Register(ctx, RegisterInput{Name: "Dup", Email: "grace@example.com", Password: strongPassword})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.Login(ctx, "grace@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", strongPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	session, err := svc.Login(ctx, "GRACE@example.com", strongPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, user.ID, session.User.ID)

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(memstore.New())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Weak", Email: "weak@example.com", Password: "password"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.Register(ctx, RegisterInput{Name: "Bad", Email: "not-an-email", Password: strongPassword})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	missing := uuid.New()
	_, err = svc.Register(ctx, RegisterInput{Name: "Lost", Email: "lost@example.com", Password: strongPassword, BranchID: &missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProvisionStaffWithBranch(t *testing.T) {
	store := memstore.New()
	svc := newAuthService(store)
	dir := NewDirectoryService(store)
	ctx := context.Background()

	branch, err := dir.CreateBranch(ctx, CreateBranchInput{Name: "Lagos", Code: "lag", Leverage: 200})
	require.NoError(t, err)
	assert.Equal(t, "LAG", branch.Code)

	admin, err := svc.Provision(ctx, ProvisionInput{
		RegisterInput: RegisterInput{Name: "Admin", Email: "admin@example.com", Password: strongPassword, BranchID: &branch.ID},
		Role:          policy.RoleAdmin,
		OpeningWallet: dec("1000"),
	})
	require.NoError(t, err)

	acc, err := store.Queries().GetAccountByUserID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, acc.Leverage)
	assert.True(t, acc.WalletBalance.Equal(dec("1000")))

	me, err := svc.Me(ctx, admin.Identity())
	require.NoError(t, err)
	assert.Equal(t, policy.RoleAdmin, me.Role)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc := newAuthService(memstore.New())
	ctx := context.Background()
	in := ProvisionInput{
		RegisterInput: RegisterInput{Name: "Manager", Email: "boss@example.com", Password: strongPassword},
		Role:          policy.RoleManager,
	}

	first, created, err := svc.EnsureUser(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, policy.RoleManager, first.Role)

	in.Email = " BOSS@example.com "
	second, created, err := svc.EnsureUser(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
