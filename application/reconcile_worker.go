package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"farmledger/config"
)

// ReconcileWorker periodically replays the ledger for every user and
// corrects any cached balance that drifted. Drift is always logged; silent
// correction would hide the upstream anomaly that caused it.
type ReconcileWorker struct {
	ledgerService *LedgerService
	uowFactory    UnitOfWorkFactory
	cfg           *config.Config
}

// NewReconcileWorker creates a new reconciliation worker
func NewReconcileWorker(ledgerService *LedgerService, uowFactory UnitOfWorkFactory, cfg *config.Config) *ReconcileWorker {
	return &ReconcileWorker{
		ledgerService: ledgerService,
		uowFactory:    uowFactory,
		cfg:           cfg,
	}
}

// Start begins the reconciliation loop and returns a cleanup function
func (w *ReconcileWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.cfg.ReconcileInterval).Info("reconcile worker started")

		for {
			select {
			case <-ctx.Done():
				log.Info("reconcile worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("reconcile worker shutting down (stop requested)")
				return
			case <-time.After(w.cfg.ReconcileInterval):
				w.RunOnce(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunOnce sweeps every user once. A failure on one user is logged and does
// not abort the rest of the sweep.
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	ids, err := w.listUserIDs(ctx)
	if err != nil {
		log.Errorf("failed to list users for reconciliation: %v", err)
		return
	}

	var drifted, failed int
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}

		drifts, err := w.ledgerService.Reconcile(ctx, id)
		if err != nil {
			log.Errorf("failed to reconcile user %d: %v", id, err)
			failed++
			continue
		}
		if len(drifts) > 0 {
			drifted++
		}
	}

	log.WithFields(log.Fields{
		"users":   len(ids),
		"drifted": drifted,
		"failed":  failed,
	}).Info("reconciliation sweep complete")
}

func (w *ReconcileWorker) listUserIDs(ctx context.Context) ([]int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.UserRepository().ListIDs(ctx)
}
