package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"farmledger/domain/entities"
	"farmledger/domain/interfaces"
)

// dedupService implements the DedupService interface
type dedupService struct {
	txRepo interfaces.TransactionRepository
	window time.Duration
}

// NewDedupService creates a new deduplication guard with the given window
func NewDedupService(txRepo interfaces.TransactionRepository, window time.Duration) interfaces.DedupService {
	return &dedupService{
		txRepo: txRepo,
		window: window,
	}
}

// Admit applies the graduated duplicate policy to a deposit attempt:
//   - a non-failed transaction with the same (user, kind, currency, amount)
//     inside the window rejects the attempt
//   - the most recent match being failed allows a retry
//   - no match, a different amount, or a match outside the window allows
//
// Concurrent attempts for the same key serialize on a transaction-scoped
// advisory lock so only one of them sees "no recent match".
func (s *dedupService) Admit(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, now time.Time) (*entities.Transaction, error) {
	key := dedupKey(userID, kind, currency, amount)
	if err := s.txRepo.AcquireDedupLock(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to acquire dedup lock: %w", err)
	}

	cutoff := now.Add(-s.window)
	recent, err := s.txRepo.FindRecentMatching(ctx, userID, kind, currency, amount, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to look up recent transactions: %w", err)
	}
	if recent == nil {
		return nil, nil
	}

	// FindRecentMatching excludes failed rows, so any hit is a live
	// duplicate inside the window.
	log.WithFields(log.Fields{
		"userID":      userID,
		"kind":        kind,
		"currency":    currency,
		"amount":      amount.String(),
		"earlierTxID": recent.ID,
	}).Warn("duplicate deposit attempt rejected")
	return recent, entities.ErrDuplicateDeposit
}

func dedupKey(userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal) string {
	return fmt.Sprintf("%d:%s:%s:%s", userID, kind, currency, amount.String())
}
