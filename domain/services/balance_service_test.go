package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"farmledger/domain/entities"
	"farmledger/domain/events"
	"farmledger/domain/testhelpers"
)

func TestBalanceService_ApplyDelta(t *testing.T) {
	t.Parallel()

	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)

	delta := decimal.RequireFromString("12.5")
	mockUserRepo.On("AdjustBalance", mock.Anything, int64(1), entities.CurrencyPoints, delta).
		Return(decimal.RequireFromString("112.5"), nil)
	mockPublisher.On("Publish", mock.Anything).Return(nil)

	svc := NewBalanceService(mockUserRepo, mockTxRepo, mockPublisher)
	newBalance, err := svc.ApplyDelta(context.Background(), 1, entities.CurrencyPoints, delta, 42)

	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.RequireFromString("112.5")))

	require.Len(t, mockPublisher.Events, 1)
	evt, ok := mockPublisher.Events[0].(events.BalanceChangeEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), evt.UserID)
	assert.Equal(t, int64(42), evt.TransactionID)
	assert.True(t, evt.NewBalance.Equal(decimal.RequireFromString("112.5")))
}

func TestBalanceService_ApplyDelta_RejectsZero(t *testing.T) {
	t.Parallel()

	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)

	svc := NewBalanceService(mockUserRepo, mockTxRepo, mockPublisher)
	_, err := svc.ApplyDelta(context.Background(), 1, entities.CurrencyPoints, decimal.Zero, 42)

	require.ErrorIs(t, err, entities.ErrInvalidAmount)
	mockUserRepo.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBalanceService_Reconcile_NoDrift(t *testing.T) {
	t.Parallel()

	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)

	user := &entities.User{
		ID:            1,
		BalancePoints: decimal.NewFromInt(50),
		BalanceTON:    decimal.Zero,
	}
	mockUserRepo.On("GetByID", mock.Anything, int64(1)).Return(user, nil)
	mockTxRepo.On("SumCompletedByUser", mock.Anything, int64(1), entities.CurrencyPoints).
		Return(decimal.NewFromInt(50), nil)
	mockTxRepo.On("SumCompletedByUser", mock.Anything, int64(1), entities.CurrencyTON).
		Return(decimal.Zero, nil)

	svc := NewBalanceService(mockUserRepo, mockTxRepo, mockPublisher)
	drifts, err := svc.Reconcile(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, drifts)
	mockUserRepo.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBalanceService_Reconcile_CorrectsDrift(t *testing.T) {
	t.Parallel()

	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)

	// Cache says 60, the ledger replays to 50. The replayed sum wins.
	user := &entities.User{
		ID:            1,
		BalancePoints: decimal.NewFromInt(60),
		BalanceTON:    decimal.Zero,
	}
	mockUserRepo.On("GetByID", mock.Anything, int64(1)).Return(user, nil)
	mockTxRepo.On("SumCompletedByUser", mock.Anything, int64(1), entities.CurrencyPoints).
		Return(decimal.NewFromInt(50), nil)
	mockTxRepo.On("SumCompletedByUser", mock.Anything, int64(1), entities.CurrencyTON).
		Return(decimal.Zero, nil)
	mockUserRepo.On("SetBalance", mock.Anything, int64(1), entities.CurrencyPoints, decimal.NewFromInt(50)).
		Return(nil)
	mockPublisher.On("Publish", mock.Anything).Return(nil)

	svc := NewBalanceService(mockUserRepo, mockTxRepo, mockPublisher)
	drifts, err := svc.Reconcile(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, entities.CurrencyPoints, drifts[0].Currency)
	assert.True(t, drifts[0].Drift().Equal(decimal.NewFromInt(10)))
	mockUserRepo.AssertExpectations(t)
}

func TestBalanceService_Reconcile_UnknownUser(t *testing.T) {
	t.Parallel()

	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)

	mockUserRepo.On("GetByID", mock.Anything, int64(9)).Return(nil, nil)

	svc := NewBalanceService(mockUserRepo, mockTxRepo, mockPublisher)
	_, err := svc.Reconcile(context.Background(), 9)

	require.ErrorIs(t, err, entities.ErrUserNotFound)
}
