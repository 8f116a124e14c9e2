package application_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmledger/application"
	"farmledger/config"
	"farmledger/domain/entities"
	"farmledger/domain/interfaces"
)

// blockingPositionRepo parks GetActive until released so a sweep can be
// held in flight from the test.
type blockingPositionRepo struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (r *blockingPositionRepo) GetActive(ctx context.Context) ([]*entities.FarmingPosition, error) {
	r.calls.Add(1)
	r.entered <- struct{}{}
	<-r.release
	return nil, nil
}

func (r *blockingPositionRepo) Create(ctx context.Context, pos *entities.FarmingPosition) error {
	return nil
}

func (r *blockingPositionRepo) GetByUserAndProduct(ctx context.Context, userID int64, product string) (*entities.FarmingPosition, error) {
	return nil, nil
}

func (r *blockingPositionRepo) UpdateDeposit(ctx context.Context, id int64, deposit decimal.Decimal, active bool) error {
	return nil
}

func (r *blockingPositionRepo) AdvanceAccrual(ctx context.Context, id int64, accruedThru time.Time) error {
	return nil
}

type stubUnitOfWork struct {
	positions *blockingPositionRepo
}

func (u *stubUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *stubUnitOfWork) Commit() error                   { return nil }
func (u *stubUnitOfWork) Rollback() error                 { return nil }
func (u *stubUnitOfWork) UserRepository() interfaces.UserRepository {
	return nil
}
func (u *stubUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return nil
}
func (u *stubUnitOfWork) FarmingPositionRepository() interfaces.FarmingPositionRepository {
	return u.positions
}
func (u *stubUnitOfWork) EventBus() interfaces.EventPublisher { return nil }

type stubUowFactory struct {
	positions *blockingPositionRepo
}

func (f *stubUowFactory) Create() application.UnitOfWork {
	return &stubUnitOfWork{positions: f.positions}
}

func TestAccrualWorker_RunOnce_SkipsWhileSweepInFlight(t *testing.T) {
	t.Parallel()

	repo := &blockingPositionRepo{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	worker := application.NewAccrualWorker(&stubUowFactory{positions: repo}, config.NewTestConfig())
	ctx := context.Background()
	now := time.Now()

	done := make(chan struct{})
	go func() {
		worker.RunOnce(ctx, now)
		close(done)
	}()

	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first sweep never reached the position repository")
	}

	// The first sweep is still inside GetActive, so a second tick must
	// return immediately without touching storage again.
	worker.RunOnce(ctx, now)
	assert.Equal(t, int32(1), repo.calls.Load())

	close(repo.release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first sweep did not finish after release")
	}

	// With the sweep finished the guard resets and the next tick runs.
	worker.RunOnce(ctx, now)
	require.Equal(t, int32(2), repo.calls.Load())
}
