package testhelpers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"farmledger/domain/entities"
)

// MockBalanceService is a mock implementation of BalanceService
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) ApplyDelta(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal, causingTxID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, currency, delta, causingTxID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceService) Reconcile(ctx context.Context, userID int64) ([]*entities.BalanceDriftError, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceDriftError), args.Error(1)
}

// MockDedupService is a mock implementation of DedupService
type MockDedupService struct {
	mock.Mock
}

func (m *MockDedupService) Admit(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, now time.Time) (*entities.Transaction, error) {
	args := m.Called(ctx, userID, kind, currency, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

// MockReferralService is a mock implementation of ReferralService
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) FanOut(ctx context.Context, rewardTx *entities.Transaction) ([]*entities.Transaction, error) {
	args := m.Called(ctx, rewardTx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

// MockAccrualService is a mock implementation of AccrualService
type MockAccrualService struct {
	mock.Mock
}

func (m *MockAccrualService) ProcessPosition(ctx context.Context, pos *entities.FarmingPosition, now time.Time) (*entities.Transaction, error) {
	args := m.Called(ctx, pos, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}
