package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"farmledger/domain/entities"
	"farmledger/domain/events"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by internal ID
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// GetByTelegramID retrieves a user by their Telegram ID
	GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error)

	// GetByInviteCode retrieves a user by their invite code
	GetByInviteCode(ctx context.Context, code string) (*entities.User, error)

	// Create creates a new user with zero balances
	Create(ctx context.Context, user *entities.User) error

	// AdjustBalance atomically applies a signed delta to the cached balance
	// and returns the resulting balance
	AdjustBalance(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal) (decimal.Decimal, error)

	// SetBalance overwrites the cached balance, used only by reconciliation
	SetBalance(ctx context.Context, userID int64, currency entities.Currency, balance decimal.Decimal) error

	// ListIDs returns all user IDs ordered ascending
	ListIDs(ctx context.Context) ([]int64, error)
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Create appends a transaction to the ledger
	Create(ctx context.Context, tx *entities.Transaction) error

	// UpdateStatus moves a transaction to the given status
	UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id int64) (*entities.Transaction, error)

	// GetByExternalRef retrieves the live (non-failed) transaction carrying
	// the external reference, or nil when none exists
	GetByExternalRef(ctx context.Context, externalRef string) (*entities.Transaction, error)

	// ListByUser returns a user's transactions, newest first, with optional filters
	ListByUser(ctx context.Context, userID int64, filter entities.TransactionFilter) ([]*entities.Transaction, error)

	// SumCompletedByUser replays the ledger for one user and currency
	SumCompletedByUser(ctx context.Context, userID int64, currency entities.Currency) (decimal.Decimal, error)

	// FindRecentMatching returns the most recent non-failed transaction
	// matching (user, kind, currency, amount) created after the cutoff, or
	// nil when none exists
	FindRecentMatching(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, cutoff time.Time) (*entities.Transaction, error)

	// AcquireDedupLock takes a transaction-scoped advisory lock for the given
	// dedup key, serializing concurrent admits for the same key
	AcquireDedupLock(ctx context.Context, key string) error
}

// FarmingPositionRepository defines the interface for farming position data access
type FarmingPositionRepository interface {
	// Create creates a new farming position
	Create(ctx context.Context, pos *entities.FarmingPosition) error

	// GetByUserAndProduct retrieves a user's position in a product regardless of state
	GetByUserAndProduct(ctx context.Context, userID int64, product string) (*entities.FarmingPosition, error)

	// GetActive returns all active positions ordered by ID
	GetActive(ctx context.Context) ([]*entities.FarmingPosition, error)

	// UpdateDeposit sets the deposit amount and active flag
	UpdateDeposit(ctx context.Context, id int64, deposit decimal.Decimal, active bool) error

	// AdvanceAccrual moves last_accrual_at forward to the given timestamp
	AdvanceAccrual(ctx context.Context, id int64, accruedThru time.Time) error
}

// EventPublisher publishes domain events after the owning transaction commits
type EventPublisher interface {
	Publish(event events.Event) error
}
