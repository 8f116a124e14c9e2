package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"farmledger/config"
	"farmledger/domain/entities"
	"farmledger/domain/services"
	"farmledger/infrastructure/observability"
)

// AccrualWorker drives the farming accrual scheduler. Each tick sweeps all
// active positions; each position is one unit of work, so a mid-batch crash
// leaves untouched positions safe to retry and finished positions already
// advanced.
type AccrualWorker struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	running    atomic.Bool
}

// NewAccrualWorker creates a new accrual worker
func NewAccrualWorker(uowFactory UnitOfWorkFactory, cfg *config.Config) *AccrualWorker {
	return &AccrualWorker{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// Start begins the accrual loop and returns a cleanup function. Stopping
// lets an in-flight sweep finish its current position.
func (w *AccrualWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("period", w.cfg.AccrualPeriod).Info("accrual worker started")
		ticker := time.NewTicker(w.cfg.AccrualPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("accrual worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("accrual worker shutting down (stop requested)")
				return
			case <-ticker.C:
				w.RunOnce(ctx, time.Now())
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunOnce performs a single accrual sweep as of now. A sweep still running
// from the previous tick makes this one a logged no-op rather than a
// concurrent double accrual.
func (w *AccrualWorker) RunOnce(ctx context.Context, now time.Time) {
	if !w.running.CompareAndSwap(false, true) {
		log.WithField("error", entities.ErrSchedulerOverlap).Warn("previous accrual sweep still running, skipping tick")
		if metrics := observability.GetMetrics(); metrics != nil {
			metrics.RecordAccrualCycle(observability.OutcomeOverlap, 0)
		}
		return
	}
	defer w.running.Store(false)

	positions, err := w.listActivePositions(ctx)
	if err != nil {
		log.Errorf("failed to list active positions: %v", err)
		if metrics := observability.GetMetrics(); metrics != nil {
			metrics.RecordAccrualCycle(observability.OutcomeFailed, 0)
		}
		return
	}

	var processed, accrued, failed int
	for _, pos := range positions {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tx, err := w.processPosition(ctx, pos, now)
		if err != nil {
			log.Errorf("failed to accrue position %d: %v", pos.ID, err)
			failed++
			continue
		}
		processed++
		if tx != nil {
			accrued++
		}
	}

	log.WithFields(log.Fields{
		"positions": len(positions),
		"processed": processed,
		"accrued":   accrued,
		"failed":    failed,
	}).Info("accrual sweep complete")

	if metrics := observability.GetMetrics(); metrics != nil {
		metrics.RecordAccrualCycle(observability.OutcomeCompleted, int64(processed))
	}
}

func (w *AccrualWorker) listActivePositions(ctx context.Context) ([]*entities.FarmingPosition, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.FarmingPositionRepository().GetActive(ctx)
}

// processPosition accrues a single position inside its own unit of work
func (w *AccrualWorker) processPosition(ctx context.Context, pos *entities.FarmingPosition, now time.Time) (*entities.Transaction, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balanceService := services.NewBalanceService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	referralService := services.NewReferralService(uow.UserRepository(), uow.TransactionRepository(), balanceService, uow.EventBus(), services.ReferralConfig{
		Rates:     w.cfg.ReferralRates,
		MaxLevel:  w.cfg.ReferralMaxLevel,
		MinPayout: w.cfg.ReferralMinPayout,
	})
	accrualService := services.NewAccrualService(
		uow.FarmingPositionRepository(),
		uow.TransactionRepository(),
		balanceService,
		referralService,
		uow.EventBus(),
		w.cfg.AccrualPeriod,
		w.cfg.MaxCatchUpWindows,
	)

	tx, err := accrualService.ProcessPosition(ctx, pos, now)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		// No whole window elapsed; nothing to commit.
		return nil, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx, nil
}
