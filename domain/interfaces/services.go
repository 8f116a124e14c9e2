package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"farmledger/domain/entities"
)

// BalanceService defines the interface for cached balance maintenance
type BalanceService interface {
	// ApplyDelta applies a signed delta to the cached balance inside the
	// caller's unit of work and returns the new balance
	ApplyDelta(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal, causingTxID int64) (decimal.Decimal, error)

	// Reconcile replays the ledger for one user across all currencies,
	// corrects the cache on mismatch and returns any drift found
	Reconcile(ctx context.Context, userID int64) ([]*entities.BalanceDriftError, error)
}

// DedupService defines the interface for the deposit deduplication guard
type DedupService interface {
	// Admit decides whether a deposit attempt may proceed. It returns the
	// earlier matching transaction when the attempt is a duplicate.
	Admit(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, now time.Time) (*entities.Transaction, error)
}

// ReferralService defines the interface for commission propagation
type ReferralService interface {
	// FanOut walks the inviter chain of the reward's recipient and credits
	// each ancestor its per-level commission. Returns the payouts written.
	FanOut(ctx context.Context, rewardTx *entities.Transaction) ([]*entities.Transaction, error)
}

// AccrualService defines the interface for farming yield computation
type AccrualService interface {
	// ProcessPosition pays all whole windows elapsed on the position as of
	// now, advancing its accrual timestamp. Returns the reward transaction,
	// or nil when no whole window has elapsed.
	ProcessPosition(ctx context.Context, pos *entities.FarmingPosition, now time.Time) (*entities.Transaction, error)
}
