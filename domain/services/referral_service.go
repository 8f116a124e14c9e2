package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"farmledger/domain/entities"
	"farmledger/domain/events"
	"farmledger/domain/interfaces"
	"farmledger/infrastructure/observability"
)

// ReferralConfig holds the commission parameters for the propagator.
type ReferralConfig struct {
	// Rates maps level 1..len(Rates) to a commission fraction. Levels past
	// the end of the slice pay nothing.
	Rates []decimal.Decimal

	// MaxLevel is the hard cap on chain depth walked, independent of Rates.
	MaxLevel int

	// MinPayout suppresses commissions below this amount.
	MinPayout decimal.Decimal
}

// Validate rejects rate tables that are not monotonically non-increasing or
// caps that cannot terminate the walk.
func (c ReferralConfig) Validate() error {
	if c.MaxLevel <= 0 {
		return errors.New("referral max level must be positive")
	}
	for i, rate := range c.Rates {
		if rate.IsNegative() {
			return fmt.Errorf("referral rate for level %d is negative", i+1)
		}
		if i > 0 && rate.GreaterThan(c.Rates[i-1]) {
			return fmt.Errorf("referral rate for level %d exceeds level %d", i+1, i)
		}
	}
	return nil
}

// RateForLevel returns the commission fraction for a 1-based level.
func (c ReferralConfig) RateForLevel(level int) decimal.Decimal {
	if level < 1 || level > len(c.Rates) {
		return decimal.Zero
	}
	return c.Rates[level-1]
}

// referralService implements the ReferralService interface
type referralService struct {
	userRepo       interfaces.UserRepository
	txRepo         interfaces.TransactionRepository
	balanceService interfaces.BalanceService
	eventPublisher interfaces.EventPublisher
	cfg            ReferralConfig
}

// NewReferralService creates a new referral commission propagator
func NewReferralService(
	userRepo interfaces.UserRepository,
	txRepo interfaces.TransactionRepository,
	balanceService interfaces.BalanceService,
	eventPublisher interfaces.EventPublisher,
	cfg ReferralConfig,
) interfaces.ReferralService {
	return &referralService{
		userRepo:       userRepo,
		txRepo:         txRepo,
		balanceService: balanceService,
		eventPublisher: eventPublisher,
		cfg:            cfg,
	}
}

// FanOut walks the recipient's inviter chain level by level and credits each
// ancestor its commission on the reward. The walk is iterative with a hard
// depth cap, so a cyclic referred_by graph cannot hang it. A level whose
// ancestor row cannot be resolved is skipped without failing the fan-out;
// the dangling link leaves no further chain to follow, so the walk ends
// there. Re-invocation for the same causing transaction is a no-op, and a
// cycle that re-targets an already-credited recipient pays nothing twice:
// the ledger's uniqueness on (causing transaction, recipient) makes the
// second insert insert nothing, and that sentinel skips the level here.
func (s *referralService) FanOut(ctx context.Context, rewardTx *entities.Transaction) ([]*entities.Transaction, error) {
	if !rewardTx.Kind.IsRewardKind() {
		return nil, nil
	}

	source, err := s.userRepo.GetByID(ctx, rewardTx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward recipient %d: %w", rewardTx.UserID, err)
	}
	if source == nil {
		return nil, entities.ErrUserNotFound
	}

	var payouts []*entities.Transaction
	next := source.ReferredBy
	for level := 1; level <= s.cfg.MaxLevel && next != nil; level++ {
		ancestorID := *next

		ancestor, err := s.userRepo.GetByID(ctx, ancestorID)
		if err != nil {
			return payouts, fmt.Errorf("failed to get ancestor %d at level %d: %w", ancestorID, level, err)
		}
		if ancestor == nil {
			log.WithFields(log.Fields{
				"sourceUserID": rewardTx.UserID,
				"ancestorID":   ancestorID,
				"level":        level,
				"error":        entities.ErrUnknownAncestor,
			}).Warn("referral chain link points at unknown user, skipping level")
			break
		}
		next = ancestor.ReferredBy

		rate := s.cfg.RateForLevel(level)
		if rate.IsZero() {
			continue
		}
		commission := rewardTx.Amount.Abs().Mul(rate)
		if commission.LessThan(s.cfg.MinPayout) {
			continue
		}

		payout := entities.NewReferralReward(ancestor.ID, rewardTx.Currency, commission, rewardTx.ID, level)
		if err := s.txRepo.Create(ctx, payout); err != nil {
			if errors.Is(err, entities.ErrDuplicateReferralPayout) {
				log.WithFields(log.Fields{
					"causingTxID": rewardTx.ID,
					"recipientID": ancestor.ID,
					"level":       level,
				}).Info("referral payout already recorded, skipping")
				continue
			}
			return payouts, fmt.Errorf("failed to record referral payout at level %d: %w", level, err)
		}

		if _, err := s.balanceService.ApplyDelta(ctx, ancestor.ID, payout.Currency, payout.Amount, payout.ID); err != nil {
			return payouts, fmt.Errorf("failed to credit referral payout at level %d: %w", level, err)
		}

		if metrics := observability.GetMetrics(); metrics != nil {
			metrics.RecordReferralPayout(level)
		}

		if err := s.eventPublisher.Publish(events.ReferralPayoutEvent{
			RecipientID:          ancestor.ID,
			SourceUserID:         rewardTx.UserID,
			Level:                level,
			Currency:             payout.Currency,
			Amount:               payout.Amount,
			CausingTransactionID: rewardTx.ID,
		}); err != nil {
			log.WithError(err).Warn("failed to publish referral payout event")
		}

		payouts = append(payouts, payout)
	}

	return payouts, nil
}
