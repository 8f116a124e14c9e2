package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmledger/domain/entities"
	"farmledger/repository/testutil"
)

func TestUserRepository_GetByTelegramID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByTelegramID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found", func(t *testing.T) {
		testUser := testutil.CreateTestUser(123456)
		require.NoError(t, repo.Create(ctx, testUser))

		user, err := repo.GetByTelegramID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, testUser.ID, user.ID)
		assert.Equal(t, testUser.InviteCode, user.InviteCode)
		assert.True(t, user.BalancePoints.IsZero())
		assert.True(t, user.BalanceTON.IsZero())
	})
}

func TestUserRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		testUser := testutil.CreateTestUser(123456)

		require.NoError(t, repo.Create(ctx, testUser))
		assert.NotZero(t, testUser.ID)
		assert.False(t, testUser.CreatedAt.IsZero())
	})

	t.Run("duplicate telegram ID", func(t *testing.T) {
		first := testutil.CreateTestUser(789012)
		require.NoError(t, repo.Create(ctx, first))

		dup := testutil.CreateTestUser(789012)
		dup.InviteCode = "different-code"
		assert.Error(t, repo.Create(ctx, dup))
	})

	t.Run("referral binding persists", func(t *testing.T) {
		inviter := testutil.CreateTestUser(111111)
		require.NoError(t, repo.Create(ctx, inviter))

		invited := testutil.CreateTestUserReferredBy(222222, inviter.ID)
		require.NoError(t, repo.Create(ctx, invited))

		got, err := repo.GetByID(ctx, invited.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReferredBy)
		assert.Equal(t, inviter.ID, *got.ReferredBy)
	})
}

func TestUserRepository_GetByInviteCode(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testUser := testutil.CreateTestUser(123456)
	require.NoError(t, repo.Create(ctx, testUser))

	got, err := repo.GetByInviteCode(ctx, testUser.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testUser.ID, got.ID)

	missing, err := repo.GetByInviteCode(ctx, "no-such-code")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_AdjustBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testUser := testutil.CreateTestUser(123456)
	require.NoError(t, repo.Create(ctx, testUser))

	t.Run("credit and debit", func(t *testing.T) {
		newBalance, err := repo.AdjustBalance(ctx, testUser.ID, entities.CurrencyPoints, decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.NewFromInt(100)))

		newBalance, err = repo.AdjustBalance(ctx, testUser.ID, entities.CurrencyPoints, decimal.NewFromInt(-30))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.NewFromInt(70)))
	})

	t.Run("currencies are independent", func(t *testing.T) {
		newBalance, err := repo.AdjustBalance(ctx, testUser.ID, entities.CurrencyTON, decimal.RequireFromString("1.5"))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.RequireFromString("1.5")))

		user, err := repo.GetByID(ctx, testUser.ID)
		require.NoError(t, err)
		assert.True(t, user.BalancePoints.Equal(decimal.NewFromInt(70)))
		assert.True(t, user.BalanceTON.Equal(decimal.RequireFromString("1.5")))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, 999999, entities.CurrencyPoints, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, entities.ErrUserNotFound)
	})
}

func TestUserRepository_AdjustBalance_ConcurrentDeltas(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testUser := testutil.CreateTestUser(123456)
	require.NoError(t, repo.Create(ctx, testUser))

	// Fifty concurrent one-point credits must sum exactly; the atomic row
	// update leaves no room for lost updates.
	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustBalance(ctx, testUser.ID, entities.CurrencyPoints, decimal.NewFromInt(1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	user, err := repo.GetByID(ctx, testUser.ID)
	require.NoError(t, err)
	assert.True(t, user.BalancePoints.Equal(decimal.NewFromInt(workers)))
}

func TestUserRepository_SetBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testUser := testutil.CreateTestUser(123456)
	require.NoError(t, repo.Create(ctx, testUser))

	require.NoError(t, repo.SetBalance(ctx, testUser.ID, entities.CurrencyPoints, decimal.NewFromInt(42)))

	user, err := repo.GetByID(ctx, testUser.ID)
	require.NoError(t, err)
	assert.True(t, user.BalancePoints.Equal(decimal.NewFromInt(42)))

	assert.ErrorIs(t, repo.SetBalance(ctx, 999999, entities.CurrencyPoints, decimal.Zero), entities.ErrUserNotFound)
}
