package application

import (
	"context"

	"farmledger/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations.
// Every ledger mutation and its side effects run inside exactly one unit of
// work, so a failure anywhere rolls the whole operation back.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	TransactionRepository() interfaces.TransactionRepository
	FarmingPositionRepository() interfaces.FarmingPositionRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}

// TransactionalEventPublisher buffers events during a transaction and
// releases them only once the transaction commits
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush publishes all pending events, called after commit
	Flush(ctx context.Context) error

	// Discard drops all pending events, called on rollback
	Discard()
}
