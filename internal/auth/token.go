// Package auth issues and verifies the bearer credentials of the back-office
// API and hashes user passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrRefreshReused is returned for refresh tokens that were already used or
// never issued by this server.
var ErrRefreshReused = fmt.Errorf("%w: refresh token is no longer valid", domain.ErrInvalidToken)

type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// Pair is the login and refresh response payload.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Config struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Manager signs HS256 tokens and tracks refresh token ids.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	refresh    RefreshStore
	now        func() time.Time
}

func NewManager(cfg Config, refresh RefreshStore) *Manager {
	if refresh == nil {
		refresh = NewMemoryRefreshStore()
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		issuer:     strings.TrimSpace(cfg.Issuer),
		audience:   strings.TrimSpace(cfg.Audience),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		refresh:    refresh,
		now:        time.Now,
	}
}

// Issue signs a new access and refresh token for user.
func (m *Manager) Issue(ctx context.Context, user *models.User) (Pair, error) {
	access, err := m.sign(user, TokenTypeAccess, m.accessTTL, "")
	if err != nil {
		return Pair{}, err
	}
	jti := uuid.NewString()
	refresh, err := m.sign(user, TokenTypeRefresh, m.refreshTTL, jti)
	if err != nil {
		return Pair{}, err
	}
	if err := m.refresh.Save(ctx, jti, user.ID, m.refreshTTL); err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *Manager) sign(user *models.User, typ string, ttl time.Duration, jti string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.ID.String(),
		Role:   user.Role.String(),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	if user.BranchID != nil {
		claims.BranchID = user.BranchID.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString, typ string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, errors.New("auth is not configured")
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Type != typ || claims.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// ParseAccess validates an access token and returns the identity it carries.
func (m *Manager) ParseAccess(tokenString string) (policy.Identity, error) {
	claims, err := m.parse(tokenString, TokenTypeAccess)
	if err != nil {
		return policy.Identity{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return policy.Identity{}, domain.ErrInvalidToken
	}
	role, err := policy.ParseRole(claims.Role)
	if err != nil {
		return policy.Identity{}, domain.ErrInvalidToken
	}
	id := policy.Identity{UserID: userID, Role: role}
	if claims.BranchID != "" {
		branchID, err := uuid.Parse(claims.BranchID)
		if err != nil {
			return policy.Identity{}, domain.ErrInvalidToken
		}
		id.BranchID = &branchID
	}
	return id, nil
}

// ConsumeRefresh validates a refresh token and spends it. The caller reloads
// the user and issues a fresh pair.
func (m *Manager) ConsumeRefresh(ctx context.Context, tokenString string) (uuid.UUID, error) {
	claims, err := m.parse(tokenString, TokenTypeRefresh)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.ID == "" {
		return uuid.Nil, domain.ErrInvalidToken
	}
	userID, err := m.refresh.Consume(ctx, claims.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if userID.String() != claims.UserID {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return userID, nil
}
