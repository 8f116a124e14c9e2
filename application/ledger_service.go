package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"farmledger/config"
	"farmledger/domain/entities"
	"farmledger/domain/events"
	"farmledger/domain/services"
	"farmledger/infrastructure/observability"
)

// RecordResult is the outcome of routing a transaction through the ingress.
// AlreadyApplied marks attempts that were recognized as duplicates of an
// earlier credit; callers treat those as success, not failure.
type RecordResult struct {
	Transaction    *entities.Transaction
	AlreadyApplied bool
}

// LedgerService is the single ingress for ledger mutations. Deposit kinds
// pass the deduplication guard, every kind lands in the ledger and the
// balance cache, and reward kinds fan out referral commissions, all inside
// one unit of work.
type LedgerService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, cfg *config.Config) *LedgerService {
	return &LedgerService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

func (s *LedgerService) referralConfig() services.ReferralConfig {
	return services.ReferralConfig{
		Rates:     s.cfg.ReferralRates,
		MaxLevel:  s.cfg.ReferralMaxLevel,
		MinPayout: s.cfg.ReferralMinPayout,
	}
}

// RecordTransaction routes a transaction through the full ingress pipeline
func (s *LedgerService) RecordTransaction(ctx context.Context, tx *entities.Transaction) (*RecordResult, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := s.recordInUow(ctx, uow, tx)
	if err != nil {
		return nil, err
	}
	if result.AlreadyApplied {
		// Nothing was written; commit anyway to release the advisory lock
		// cleanly and keep the earlier transaction authoritative.
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return result, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// recordInUow runs the ingress pipeline against an already-open unit of work
func (s *LedgerService) recordInUow(ctx context.Context, uow UnitOfWork, tx *entities.Transaction) (*RecordResult, error) {
	txRepo := uow.TransactionRepository()
	balanceService := services.NewBalanceService(uow.UserRepository(), txRepo, uow.EventBus())

	if tx.Kind.IsExternallySourced() {
		dedupService := services.NewDedupService(txRepo, s.cfg.DedupWindow)
		earlier, err := dedupService.Admit(ctx, tx.UserID, tx.Kind, tx.Currency, tx.Amount.Abs(), time.Now())
		if errors.Is(err, entities.ErrDuplicateDeposit) {
			if metrics := observability.GetMetrics(); metrics != nil {
				metrics.RecordDedupRejection(string(tx.Currency))
			}
			return &RecordResult{Transaction: earlier, AlreadyApplied: true}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if err := txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, entities.ErrDuplicateExternalReference) && tx.ExternalRef != nil {
			// The reference was credited earlier, outside the dedup window
			// or under a different amount; the original row stands.
			earlier, lookupErr := txRepo.GetByExternalRef(ctx, *tx.ExternalRef)
			if lookupErr != nil {
				return nil, lookupErr
			}
			log.WithFields(log.Fields{
				"userID":      tx.UserID,
				"externalRef": *tx.ExternalRef,
			}).Warn("external reference already credited")
			return &RecordResult{Transaction: earlier, AlreadyApplied: true}, nil
		}
		return nil, err
	}

	if tx.CountsTowardBalance() {
		if _, err := balanceService.ApplyDelta(ctx, tx.UserID, tx.Currency, tx.Amount, tx.ID); err != nil {
			return nil, err
		}
	}

	if tx.Kind.IsRewardKind() {
		referralService := services.NewReferralService(uow.UserRepository(), txRepo, balanceService, uow.EventBus(), s.referralConfig())
		if _, err := referralService.FanOut(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := uow.EventBus().Publish(events.TransactionRecordedEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Kind:          tx.Kind,
		Currency:      tx.Currency,
		Amount:        tx.Amount,
		RecordedAt:    time.Now(),
	}); err != nil {
		log.WithError(err).Warn("failed to publish transaction recorded event")
	}

	if metrics := observability.GetMetrics(); metrics != nil {
		metrics.RecordTransaction(string(tx.Kind), string(tx.Currency))
	}

	return &RecordResult{Transaction: tx}, nil
}

// CompleteTransaction moves a pending transaction to completed and applies
// its delta to the balance cache
func (s *LedgerService) CompleteTransaction(ctx context.Context, id int64) (*entities.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txRepo := uow.TransactionRepository()
	tx, err := txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, entities.ErrTransactionNotFound
	}
	if tx.Status != entities.TransactionStatusPending {
		return nil, fmt.Errorf("transaction %d is %s, only pending transactions can complete", id, tx.Status)
	}

	if err := txRepo.UpdateStatus(ctx, id, entities.TransactionStatusCompleted); err != nil {
		return nil, err
	}
	tx.Status = entities.TransactionStatusCompleted

	balanceService := services.NewBalanceService(uow.UserRepository(), txRepo, uow.EventBus())
	if _, err := balanceService.ApplyDelta(ctx, tx.UserID, tx.Currency, tx.Amount, tx.ID); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx, nil
}

// FailTransaction moves a pending transaction to failed. Failed rows never
// touch the balance cache and free their external reference for a retry.
func (s *LedgerService) FailTransaction(ctx context.Context, id int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txRepo := uow.TransactionRepository()
	tx, err := txRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tx == nil {
		return entities.ErrTransactionNotFound
	}
	if tx.Status != entities.TransactionStatusPending {
		return fmt.Errorf("transaction %d is %s, only pending transactions can fail", id, tx.Status)
	}

	if err := txRepo.UpdateStatus(ctx, id, entities.TransactionStatusFailed); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBalance returns the cached balance for one user and currency
func (s *LedgerService) GetBalance(ctx context.Context, userID int64, currency entities.Currency) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, entities.ErrUserNotFound
	}
	return user.Balance(currency), nil
}

// GetTransactionHistory returns a user's transactions, newest first
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userID int64, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().ListByUser(ctx, userID, filter)
}

// GetOrCreateUser retrieves the user with the given Telegram ID, creating it
// on first contact. The inviter binding happens exactly once, at creation:
// unknown invite codes and self-referrals leave referred_by null.
func (s *LedgerService) GetOrCreateUser(ctx context.Context, telegramID int64, inviteCode string) (*entities.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	existing, err := userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &entities.User{
		TelegramID: telegramID,
		InviteCode: newInviteCode(),
	}

	if inviteCode != "" {
		inviter, err := userRepo.GetByInviteCode(ctx, inviteCode)
		if err != nil {
			return nil, err
		}
		switch {
		case inviter == nil:
			log.WithFields(log.Fields{
				"telegramID": telegramID,
				"inviteCode": inviteCode,
			}).Warn("unknown invite code, creating user without inviter")
		case inviter.TelegramID == telegramID:
			log.WithField("telegramID", telegramID).Warn("self-referral ignored")
		default:
			user.ReferredBy = &inviter.ID
		}
	}

	if err := userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// Reconcile replays the ledger for one user and corrects any cached drift
func (s *LedgerService) Reconcile(ctx context.Context, userID int64) ([]*entities.BalanceDriftError, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balanceService := services.NewBalanceService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	drifts, err := balanceService.Reconcile(ctx, userID)
	if err != nil {
		return drifts, err
	}

	if err := uow.Commit(); err != nil {
		return drifts, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if metrics := observability.GetMetrics(); metrics != nil {
		for _, drift := range drifts {
			metrics.RecordDriftCorrection(string(drift.Currency))
		}
	}
	return drifts, nil
}

// newInviteCode returns a short unique invite code
func newInviteCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
