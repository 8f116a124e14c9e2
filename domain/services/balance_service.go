package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"farmledger/domain/entities"
	"farmledger/domain/events"
	"farmledger/domain/interfaces"
)

// balanceService implements the BalanceService interface
type balanceService struct {
	userRepo       interfaces.UserRepository
	txRepo         interfaces.TransactionRepository
	eventPublisher interfaces.EventPublisher
}

// NewBalanceService creates a new balance service
func NewBalanceService(
	userRepo interfaces.UserRepository,
	txRepo interfaces.TransactionRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.BalanceService {
	return &balanceService{
		userRepo:       userRepo,
		txRepo:         txRepo,
		eventPublisher: eventPublisher,
	}
}

// ApplyDelta applies a signed delta to the user's cached balance. The storage
// layer performs a single atomic row update, so concurrent deltas for the same
// user serialize on the row without a lost update.
func (s *balanceService) ApplyDelta(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal, causingTxID int64) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, entities.ErrInvalidAmount
	}
	if !currency.IsSupported() {
		return decimal.Zero, entities.ErrUnsupportedCurrency
	}

	newBalance, err := s.userRepo.AdjustBalance(ctx, userID, currency, delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance for user %d: %w", userID, err)
	}

	if err := s.eventPublisher.Publish(events.BalanceChangeEvent{
		UserID:        userID,
		Currency:      currency,
		Delta:         delta,
		NewBalance:    newBalance,
		TransactionID: causingTxID,
		ChangedAt:     time.Now(),
	}); err != nil {
		log.WithError(err).Warn("failed to publish balance change event")
	}

	return newBalance, nil
}

// Reconcile replays the completed ledger for one user and corrects the cached
// balance where it disagrees. Every drift found is returned and corrected;
// the replayed sum is authoritative.
func (s *balanceService) Reconcile(ctx context.Context, userID int64) ([]*entities.BalanceDriftError, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	var drifts []*entities.BalanceDriftError
	for _, currency := range entities.SupportedCurrencies {
		replayed, err := s.txRepo.SumCompletedByUser(ctx, userID, currency)
		if err != nil {
			return drifts, fmt.Errorf("failed to replay ledger for user %d %s: %w", userID, currency, err)
		}

		cached := user.Balance(currency)
		if cached.Equal(replayed) {
			continue
		}

		drift := &entities.BalanceDriftError{
			UserID:   userID,
			Currency: currency,
			Cached:   cached,
			Replayed: replayed,
		}
		drifts = append(drifts, drift)

		log.WithFields(log.Fields{
			"userID":   userID,
			"currency": currency,
			"cached":   cached.String(),
			"replayed": replayed.String(),
			"drift":    drift.Drift().String(),
		}).Error("cached balance drifted from ledger, correcting")

		if err := s.userRepo.SetBalance(ctx, userID, currency, replayed); err != nil {
			return drifts, fmt.Errorf("failed to correct balance for user %d %s: %w", userID, currency, err)
		}

		if err := s.eventPublisher.Publish(events.BalanceDriftEvent{
			UserID:     userID,
			Currency:   currency,
			Cached:     cached,
			Replayed:   replayed,
			Drift:      drift.Drift(),
			DetectedAt: time.Now(),
		}); err != nil {
			log.WithError(err).Warn("failed to publish balance drift event")
		}
	}

	return drifts, nil
}
