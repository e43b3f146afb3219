package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/balance"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/models"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 50

type AccountService struct {
	store        QueryStore
	audit        *AuditService
	historyLimit int
	now          func() time.Time
}

func NewAccountService(store QueryStore, historyLimit int) *AccountService {
	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}
	return &AccountService{
		store:        store,
		audit:        NewAuditService(store),
		historyLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// DirectInput describes a deposit or withdrawal performed by staff straight
// against a target account, bypassing the request queue.
type DirectInput struct {
	TargetUserID uuid.UUID
	TargetRole   policy.Role
	Type         domain.LedgerType
	Amount       decimal.Decimal
	Notes        string
}

// MessageResult carries the human readable outcome of a balance operation.
type MessageResult struct {
	Message     string                    `json:"message"`
	Transaction *models.LedgerTransaction `json:"transaction,omitempty"`
}

func (s *AccountService) GetAccount(ctx context.Context, actor policy.Identity) (*models.Account, error) {
	return s.store.Queries().GetAccountByUserID(ctx, actor.UserID)
}

// TransferProfit moves amount from the caller's trading pool to their wallet.
func (s *AccountService) TransferProfit(ctx context.Context, actor policy.Identity, amount decimal.Decimal) (*MessageResult, error) {
	if !policy.CanTransferProfit(actor, actor.UserID) {
		return nil, fmt.Errorf("%w: only clients can transfer profit", domain.ErrForbidden)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var ledger models.LedgerTransaction
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		acc, err := qtx.GetAccountByUserIDForUpdate(ctx, actor.UserID)
		if err != nil {
			return err
		}
		move, err := balance.TransferTradingToWallet(acc, amount)
		if err != nil {
			return err
		}
		ledger, err = persistMovement(ctx, qtx, acc, move, actor.UserID, "Profit transfer from trading balance to wallet balance", s.now())
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, AuditEntry{
			Entity:   entityAccount,
			EntityID: acc.ID,
			Actor:    actorRef(actor.UserID),
			Action:   "profit_transferred",
			Fields:   map[string]string{"amount": amount.StringFixed(domain.AmountScale), "transaction_id": ledger.ID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementLedgerMovement(string(ledger.Type), string(ledger.Pool))
	zap.L().Info("profit transferred",
		zap.String("user_id", actor.UserID.String()),
		zap.String("amount", amount.StringFixed(domain.AmountScale)),
	)
	return &MessageResult{
		Message:     fmt.Sprintf("Successfully transferred %s to wallet", domain.FormatAmount(amount)),
		Transaction: &ledger,
	}, nil
}

// History returns the caller's ledger, newest first. A non-positive limit
// selects the default; larger values are capped.
func (s *AccountService) History(ctx context.Context, actor policy.Identity, limit int) ([]models.LedgerTransaction, error) {
	if limit <= 0 {
		limit = min(DefaultHistoryLimit, s.historyLimit)
	}
	limit = min(limit, s.historyLimit)
	out, err := s.store.Queries().ListLedgerTransactions(ctx, actor.UserID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.LedgerTransaction{}
	}
	return out, nil
}

// DirectTransact applies a staff deposit or withdrawal. Client targets are
// credited on the trading pool and debited on the wallet pool; admin targets
// move their float, which is the wallet pool of the admin's account.
func (s *AccountService) DirectTransact(ctx context.Context, actor policy.Identity, in DirectInput) (*MessageResult, error) {
	if in.Type != domain.LedgerDeposit && in.Type != domain.LedgerWithdraw {
		return nil, fmt.Errorf("%w: unsupported direct transaction type %q", domain.ErrInvalidInput, in.Type)
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Notes == "" {
		return nil, domain.ErrNotesRequired
	}
	if err := domain.ValidateNotes(in.Notes); err != nil {
		return nil, err
	}

	var (
		ledger models.LedgerTransaction
		target *models.User
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		target, err = qtx.GetUser(ctx, in.TargetUserID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s user: %w", in.TargetRole, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if target.Role != in.TargetRole {
			return fmt.Errorf("%s user: %w", in.TargetRole, domain.ErrNotFound)
		}
		if !policy.CanDirectTransact(actor, target.Subject()) {
			if actor.Role == policy.RoleAdmin {
				return fmt.Errorf("%w: client is not in your branch", domain.ErrForbidden)
			}
			return fmt.Errorf("%w: you cannot transact against this account", domain.ErrForbidden)
		}

		acc, err := qtx.GetAccountByUserIDForUpdate(ctx, target.ID)
		if err != nil {
			return err
		}
		pool := directPool(target.Role, in.Type)

		var move balance.Movement
		if in.Type == domain.LedgerDeposit {
			move, err = balance.ApplyDeposit(acc, in.Amount, pool)
		} else {
			move, err = balance.ApplyWithdrawal(acc, in.Amount, pool)
		}
		if err != nil {
			return err
		}

		ledger, err = persistMovement(ctx, qtx, acc, move, actor.UserID, directDescription(actor.Role, in.Type, in.Notes), s.now())
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, AuditEntry{
			Entity:   entityAccount,
			EntityID: acc.ID,
			Actor:    actorRef(actor.UserID),
			Action:   "direct_" + string(in.Type),
			Fields: map[string]string{
				"amount":         in.Amount.StringFixed(domain.AmountScale),
				"pool":           string(pool),
				"transaction_id": ledger.ID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementLedgerMovement(string(ledger.Type), string(ledger.Pool))
	zap.L().Info("direct transaction applied",
		zap.String("actor_id", actor.UserID.String()),
		zap.String("actor_role", actor.Role.String()),
		zap.String("target_id", target.ID.String()),
		zap.String("type", string(in.Type)),
		zap.String("amount", in.Amount.StringFixed(domain.AmountScale)),
	)

	msg := fmt.Sprintf("Successfully deposited %s to %s", domain.FormatAmount(in.Amount), target.Name)
	if in.Type == domain.LedgerWithdraw {
		msg = fmt.Sprintf("Successfully withdrew %s from %s", domain.FormatAmount(in.Amount), target.Name)
	}
	return &MessageResult{Message: msg, Transaction: &ledger}, nil
}

func directPool(target policy.Role, t domain.LedgerType) domain.Pool {
	switch target {
	case policy.RoleClient:
		if t == domain.LedgerDeposit {
			return domain.PoolTrading
		}
		return domain.PoolWallet
	default:
		return domain.PoolWallet
	}
}

func directDescription(actor policy.Role, t domain.LedgerType, notes string) string {
	by := "Manager"
	switch actor {
	case policy.RoleAdmin:
		by = "Admin"
	case policy.RoleClient:
		by = "Client"
	}
	if t == domain.LedgerDeposit {
		return fmt.Sprintf("Deposit by %s: %s", by, notes)
	}
	return fmt.Sprintf("Withdrawal by %s: %s", by, notes)
}

// persistMovement writes the account's new balances and appends the ledger
// record for move inside qtx.
func persistMovement(ctx context.Context, qtx repository.Querier, acc *models.Account, move balance.Movement, performedBy uuid.UUID, description string, now time.Time) (models.LedgerTransaction, error) {
	if !balance.NonNegative(acc) {
		return models.LedgerTransaction{}, fmt.Errorf("%w: balance would go negative", domain.ErrInsufficientFunds)
	}
	rows, err := qtx.UpdateAccountBalances(ctx, repository.UpdateAccountBalancesParams{
		AccountID:      acc.ID,
		WalletBalance:  acc.WalletBalance,
		TradingBalance: acc.TradingBalance,
		LastActivity:   now,
	})
	if err != nil {
		return models.LedgerTransaction{}, fmt.Errorf("update account balances: %w", err)
	}
	if err := requireExactlyOne(rows, "update account balances"); err != nil {
		return models.LedgerTransaction{}, err
	}

	ledger := move.Ledger(acc, performedBy, description, now)
	if err := qtx.InsertLedgerTransaction(ctx, &ledger); err != nil {
		return models.LedgerTransaction{}, fmt.Errorf("insert ledger transaction: %w", err)
	}
	acc.LastActivity = &now
	return ledger, nil
}
