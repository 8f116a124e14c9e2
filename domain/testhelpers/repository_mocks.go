package testhelpers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"farmledger/domain/entities"
	"farmledger/domain/events"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByInviteCode(ctx context.Context, code string) (*entities.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AdjustBalance(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, currency, delta)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUserRepository) SetBalance(ctx context.Context, userID int64, currency entities.Currency, balance decimal.Decimal) error {
	args := m.Called(ctx, userID, currency, balance)
	return args.Error(0)
}

func (m *MockUserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByExternalRef(ctx context.Context, externalRef string) (*entities.Transaction, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID int64, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumCompletedByUser(ctx context.Context, userID int64, currency entities.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) FindRecentMatching(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, cutoff time.Time) (*entities.Transaction, error) {
	args := m.Called(ctx, userID, kind, currency, amount, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AcquireDedupLock(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockFarmingPositionRepository is a mock implementation of FarmingPositionRepository
type MockFarmingPositionRepository struct {
	mock.Mock
}

func (m *MockFarmingPositionRepository) Create(ctx context.Context, pos *entities.FarmingPosition) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *MockFarmingPositionRepository) GetByUserAndProduct(ctx context.Context, userID int64, product string) (*entities.FarmingPosition, error) {
	args := m.Called(ctx, userID, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.FarmingPosition), args.Error(1)
}

func (m *MockFarmingPositionRepository) GetActive(ctx context.Context) ([]*entities.FarmingPosition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.FarmingPosition), args.Error(1)
}

func (m *MockFarmingPositionRepository) UpdateDeposit(ctx context.Context, id int64, deposit decimal.Decimal, active bool) error {
	args := m.Called(ctx, id, deposit, active)
	return args.Error(0)
}

func (m *MockFarmingPositionRepository) AdvanceAccrual(ctx context.Context, id int64, accruedThru time.Time) error {
	args := m.Called(ctx, id, accruedThru)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher. Published
// events are additionally captured in Events for assertions.
type MockEventPublisher struct {
	mock.Mock
	Events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	m.Events = append(m.Events, event)
	args := m.Called(event)
	return args.Error(0)
}
