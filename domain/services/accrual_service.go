package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"farmledger/domain/entities"
	"farmledger/domain/events"
	"farmledger/domain/interfaces"
)

// accrualService implements the AccrualService interface
type accrualService struct {
	positionRepo    interfaces.FarmingPositionRepository
	txRepo          interfaces.TransactionRepository
	balanceService  interfaces.BalanceService
	referralService interfaces.ReferralService
	eventPublisher  interfaces.EventPublisher
	period          time.Duration
	maxCatchUp      int64
}

// NewAccrualService creates a new farming accrual service
func NewAccrualService(
	positionRepo interfaces.FarmingPositionRepository,
	txRepo interfaces.TransactionRepository,
	balanceService interfaces.BalanceService,
	referralService interfaces.ReferralService,
	eventPublisher interfaces.EventPublisher,
	period time.Duration,
	maxCatchUp int64,
) interfaces.AccrualService {
	return &accrualService{
		positionRepo:    positionRepo,
		txRepo:          txRepo,
		balanceService:  balanceService,
		referralService: referralService,
		eventPublisher:  eventPublisher,
		period:          period,
		maxCatchUp:      maxCatchUp,
	}
}

// ProcessPosition pays every whole accrual window elapsed on the position as
// of now, capped at the catch-up limit. The accrual timestamp advances by
// exactly the windows paid, so a partially elapsed window stays payable on
// the next tick and a paid window can never pay twice. Zero elapsed windows
// leaves the position untouched.
func (s *accrualService) ProcessPosition(ctx context.Context, pos *entities.FarmingPosition, now time.Time) (*entities.Transaction, error) {
	if !pos.IsActive {
		return nil, nil
	}

	windows := pos.ElapsedWindows(now, s.period, s.maxCatchUp)
	if windows == 0 {
		return nil, nil
	}

	reward := pos.AccrualAmount(windows)
	if !reward.IsPositive() {
		return nil, nil
	}
	accruedThru := pos.NextAccrualAt(windows, s.period)

	tx := entities.NewFarmingReward(pos.UserID, pos.Currency, reward, pos.Product)
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record farming reward for position %d: %w", pos.ID, err)
	}

	if _, err := s.balanceService.ApplyDelta(ctx, pos.UserID, pos.Currency, reward, tx.ID); err != nil {
		return nil, fmt.Errorf("failed to credit farming reward for position %d: %w", pos.ID, err)
	}

	if err := s.positionRepo.AdvanceAccrual(ctx, pos.ID, accruedThru); err != nil {
		return nil, fmt.Errorf("failed to advance accrual timestamp for position %d: %w", pos.ID, err)
	}
	pos.LastAccrualAt = accruedThru

	if _, err := s.referralService.FanOut(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to fan out referral commissions for position %d: %w", pos.ID, err)
	}

	if err := s.eventPublisher.Publish(events.PositionAccruedEvent{
		PositionID:    pos.ID,
		UserID:        pos.UserID,
		Product:       pos.Product,
		Currency:      pos.Currency,
		Windows:       windows,
		Amount:        reward,
		AccruedThru:   accruedThru,
		TransactionID: tx.ID,
	}); err != nil {
		log.WithError(err).Warn("failed to publish position accrued event")
	}

	return tx, nil
}
