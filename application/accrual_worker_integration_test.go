package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmledger/application"
	"farmledger/config"
	"farmledger/domain/entities"
	"farmledger/repository"
	"farmledger/repository/testutil"
)

func setupFarming(t *testing.T) (*application.LedgerService, *application.FarmingService, *application.AccrualWorker, *testutil.TestDatabase, *config.Config) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)
	factory := &testUowFactory{db: testDB, publisher: &recordingPublisher{}}
	cfg := config.NewTestConfig()
	return application.NewLedgerService(factory, cfg),
		application.NewFarmingService(factory),
		application.NewAccrualWorker(factory, cfg),
		testDB,
		cfg
}

func fundUser(t *testing.T, svc *application.LedgerService, telegramID int64, amount decimal.Decimal) *entities.User {
	t.Helper()
	ctx := context.Background()
	user, err := svc.GetOrCreateUser(ctx, telegramID, "")
	require.NoError(t, err)
	_, err = svc.RecordTransaction(ctx, entities.NewManualAdjustment(user.ID, entities.CurrencyPoints, amount, "test funding"))
	require.NoError(t, err)
	return user
}

func TestFarmingService_StakeAndUnstake(t *testing.T) {
	t.Parallel()
	ledger, farming, _, _, _ := setupFarming(t)
	ctx := context.Background()

	user := fundUser(t, ledger, 1001, decimal.NewFromInt(200))
	rate := decimal.RequireFromString("0.01").Div(decimal.NewFromInt(288))

	t.Run("stake debits and opens the position", func(t *testing.T) {
		pos, err := farming.Stake(ctx, user.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(100), rate)
		require.NoError(t, err)
		assert.True(t, pos.DepositAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, pos.IsActive)

		balance, err := ledger.GetBalance(ctx, user.ID, entities.CurrencyPoints)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("stake tops up the existing position", func(t *testing.T) {
		pos, err := farming.Stake(ctx, user.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(50), rate)
		require.NoError(t, err)
		assert.True(t, pos.DepositAmount.Equal(decimal.NewFromInt(150)))
	})

	t.Run("stake beyond the balance is rejected", func(t *testing.T) {
		_, err := farming.Stake(ctx, user.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(1000), rate)
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	})

	t.Run("partial unstake keeps the position active", func(t *testing.T) {
		pos, err := farming.Unstake(ctx, user.ID, "core", decimal.NewFromInt(50))
		require.NoError(t, err)
		assert.True(t, pos.DepositAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, pos.IsActive)

		balance, err := ledger.GetBalance(ctx, user.ID, entities.CurrencyPoints)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("full unstake deactivates", func(t *testing.T) {
		pos, err := farming.Unstake(ctx, user.ID, "core", decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, pos.DepositAmount.IsZero())
		assert.False(t, pos.IsActive)

		balance, err := ledger.GetBalance(ctx, user.ID, entities.CurrencyPoints)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(200)))
	})
}

func TestAccrualWorker_RunOnce(t *testing.T) {
	t.Parallel()
	ledger, farming, worker, testDB, cfg := setupFarming(t)
	ctx := context.Background()

	user := fundUser(t, ledger, 1001, decimal.NewFromInt(100))
	rate := decimal.RequireFromString("0.01").Div(decimal.NewFromInt(288))
	_, err := farming.Stake(ctx, user.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(100), rate)
	require.NoError(t, err)

	// Rewind the accrual timestamp so exactly one window has elapsed.
	posRepo := repository.NewFarmingPositionRepository(testDB.DB)
	pos, err := posRepo.GetByUserAndProduct(ctx, user.ID, "core")
	require.NoError(t, err)
	require.NoError(t, posRepo.AdvanceAccrual(ctx, pos.ID, time.Now().UTC().Add(-cfg.AccrualPeriod)))

	worker.RunOnce(ctx, time.Now())

	wantReward := decimal.NewFromInt(100).Mul(rate)
	balance, err := ledger.GetBalance(ctx, user.ID, entities.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, balance.Equal(wantReward), "got %s want %s", balance, wantReward)

	kind := entities.TransactionKindFarmingReward
	rewards, err := ledger.GetTransactionHistory(ctx, user.ID, entities.TransactionFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, rewards, 1)

	// An immediate second sweep finds no whole window and pays nothing.
	worker.RunOnce(ctx, time.Now())
	rewards, err = ledger.GetTransactionHistory(ctx, user.ID, entities.TransactionFilter{Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, rewards, 1)
}

func TestAccrualWorker_RewardFansOutToInviter(t *testing.T) {
	t.Parallel()
	ledger, farming, worker, testDB, cfg := setupFarming(t)
	ctx := context.Background()

	inviter, err := ledger.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	farmer, err := ledger.GetOrCreateUser(ctx, 2, inviter.InviteCode)
	require.NoError(t, err)
	_, err = ledger.RecordTransaction(ctx, entities.NewManualAdjustment(farmer.ID, entities.CurrencyPoints, decimal.NewFromInt(1000), "test funding"))
	require.NoError(t, err)

	// 10% per window makes the commission comfortably above the floor.
	_, err = farming.Stake(ctx, farmer.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(1000), decimal.RequireFromString("0.1"))
	require.NoError(t, err)

	posRepo := repository.NewFarmingPositionRepository(testDB.DB)
	pos, err := posRepo.GetByUserAndProduct(ctx, farmer.ID, "core")
	require.NoError(t, err)
	require.NoError(t, posRepo.AdvanceAccrual(ctx, pos.ID, time.Now().UTC().Add(-cfg.AccrualPeriod)))

	worker.RunOnce(ctx, time.Now())

	// Reward 100, level-1 rate 0.05 -> the inviter is credited 5.
	balance, err := ledger.GetBalance(ctx, inviter.ID, entities.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5)), "got %s", balance)
}

func TestAccrualWorker_CatchUpCap(t *testing.T) {
	t.Parallel()
	ledger, farming, worker, testDB, cfg := setupFarming(t)
	ctx := context.Background()

	user := fundUser(t, ledger, 1001, decimal.NewFromInt(100))
	rate := decimal.RequireFromString("0.01").Div(decimal.NewFromInt(288))
	_, err := farming.Stake(ctx, user.ID, "core", entities.CurrencyPoints, decimal.NewFromInt(100), rate)
	require.NoError(t, err)

	// Three days behind, capped at one day's worth of windows.
	posRepo := repository.NewFarmingPositionRepository(testDB.DB)
	pos, err := posRepo.GetByUserAndProduct(ctx, user.ID, "core")
	require.NoError(t, err)
	require.NoError(t, posRepo.AdvanceAccrual(ctx, pos.ID, time.Now().UTC().Add(-72*time.Hour)))

	worker.RunOnce(ctx, time.Now())

	wantReward := decimal.NewFromInt(100).Mul(rate).Mul(decimal.NewFromInt(cfg.MaxCatchUpWindows))
	balance, err := ledger.GetBalance(ctx, user.ID, entities.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, balance.Equal(wantReward), "got %s want %s", balance, wantReward)
}
