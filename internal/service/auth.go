package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	store  QueryStore
	tokens *auth.Manager
	audit  *AuditService
}

func NewAuthService(store QueryStore, tokens *auth.Manager) *AuthService {
	return &AuthService{store: store, tokens: tokens, audit: NewAuditService(store)}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	BranchID *uuid.UUID
}

// ProvisionInput creates a user of any role. Opening balances land in the
// wallet pool.
type ProvisionInput struct {
	RegisterInput
	Role          policy.Role
	OpeningWallet decimal.Decimal
}

// Session is the login and refresh response.
type Session struct {
	auth.Pair
	User *models.User `json:"user"`
}

// Register creates a client with an empty account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.Provision(ctx, ProvisionInput{RegisterInput: in, Role: policy.RoleClient})
}

// Provision creates a user and their account in one transaction.
func (s *AuthService) Provision(ctx context.Context, in ProvisionInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address %q", domain.ErrInvalidInput, in.Email)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidInput, in.Role)
	}
	if in.OpeningWallet.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		BranchID:     in.BranchID,
		IsActive:     true,
	}
	for attempt := 1; ; attempt++ {
		number, err := newAccountNumber()
		if err != nil {
			return nil, err
		}
		user.AccountNumber = number
		err = s.createWithAccount(ctx, user, in)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateAccountNumber) || attempt == maxAccountNumberAttempts {
			return nil, err
		}
	}

	zap.L().Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()),
		zap.String("account_number", user.AccountNumber),
	)
	return user, nil
}

func (s *AuthService) createWithAccount(ctx context.Context, user *models.User, in ProvisionInput) error {
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		leverage := domain.DefaultLeverage
		if in.BranchID != nil {
			branch, err := qtx.GetBranch(ctx, *in.BranchID)
			if err != nil {
				return err
			}
			leverage = branch.Leverage
		}
		if err := qtx.CreateUser(ctx, user); err != nil {
			return err
		}
		account := &models.Account{
			ID:             uuid.New(),
			UserID:         user.ID,
			AccountNumber:  user.AccountNumber,
			WalletBalance:  in.OpeningWallet,
			TradingBalance: decimal.Zero,
			Leverage:       leverage,
			Currency:       domain.DefaultCurrency,
			Status:         domain.AccountStatusActive,
		}
		if err := qtx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, AuditEntry{
			Entity:    entityUser,
			EntityID:  user.ID,
			Action:    "user_registered",
			NextState: user.Role.String(),
			Fields:    map[string]string{"account_number": user.AccountNumber},
		})
	})
}

// EnsureUser provisions in unless a user with its email already exists. The
// bool reports whether a user was created.
func (s *AuthService) EnsureUser(ctx context.Context, in ProvisionInput) (*models.User, bool, error) {
	existing, err := s.store.Queries().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	user, err := s.Provision(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Login checks the password and returns a fresh token pair. Unknown emails,
// wrong passwords and inactive users all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Queries().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh spends a refresh token and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Queries().GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidToken
	}
	return s.issue(ctx, user)
}

// Me returns the profile behind an identity.
func (s *AuthService) Me(ctx context.Context, actor policy.Identity) (*models.User, error) {
	return s.store.Queries().GetUser(ctx, actor.UserID)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{Pair: pair, User: user}, nil
}

const maxAccountNumberAttempts = 5

// newAccountNumber returns ACC-NNNNN with NNNNN in [10000, 99999].
func newAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}
	return fmt.Sprintf("ACC-%d", n.Int64()+10000), nil
}
