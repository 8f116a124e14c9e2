package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"farmledger/domain/entities"
	"farmledger/domain/services"
)

// FarmingService manages farming positions. Stakes and unstakes move value
// through the ledger like any other transaction; the position row only
// carries the deposit the accrual scheduler pays yield on.
type FarmingService struct {
	uowFactory UnitOfWorkFactory
}

// NewFarmingService creates a new farming service
func NewFarmingService(uowFactory UnitOfWorkFactory) *FarmingService {
	return &FarmingService{uowFactory: uowFactory}
}

// Stake debits the user and creates or tops up their position in a product.
// A previously drained position reactivates.
func (s *FarmingService) Stake(ctx context.Context, userID int64, product string, currency entities.Currency, amount decimal.Decimal, ratePerPeriod decimal.Decimal) (*entities.FarmingPosition, error) {
	if !amount.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}
	if !user.CanAfford(currency, amount) {
		return nil, entities.ErrInsufficientBalance
	}

	purchase := entities.NewProductPurchase(userID, currency, amount, product)
	txRepo := uow.TransactionRepository()
	if err := txRepo.Create(ctx, purchase); err != nil {
		return nil, err
	}

	balanceService := services.NewBalanceService(userRepo, txRepo, uow.EventBus())
	if _, err := balanceService.ApplyDelta(ctx, userID, currency, purchase.Amount, purchase.ID); err != nil {
		return nil, err
	}

	positionRepo := uow.FarmingPositionRepository()
	pos, err := positionRepo.GetByUserAndProduct(ctx, userID, product)
	if err != nil {
		return nil, err
	}

	if pos == nil {
		pos = &entities.FarmingPosition{
			UserID:        userID,
			Product:       product,
			Currency:      currency,
			DepositAmount: amount,
			RatePerPeriod: ratePerPeriod,
			LastAccrualAt: time.Now().UTC(),
			IsActive:      true,
		}
		if err := positionRepo.Create(ctx, pos); err != nil {
			return nil, err
		}
	} else {
		if pos.Currency != currency {
			return nil, fmt.Errorf("position for product %s is denominated in %s", product, pos.Currency)
		}
		pos.DepositAmount = pos.DepositAmount.Add(amount)
		pos.IsActive = true
		if err := positionRepo.UpdateDeposit(ctx, pos.ID, pos.DepositAmount, true); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"product": product,
		"amount":  amount.String(),
		"deposit": pos.DepositAmount.String(),
	}).Info("stake recorded")
	return pos, nil
}

// Unstake credits part of the deposit back to the user, deactivating the
// position when fully drained.
func (s *FarmingService) Unstake(ctx context.Context, userID int64, product string, amount decimal.Decimal) (*entities.FarmingPosition, error) {
	if !amount.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	positionRepo := uow.FarmingPositionRepository()
	pos, err := positionRepo.GetByUserAndProduct(ctx, userID, product)
	if err != nil {
		return nil, err
	}
	if pos == nil || !pos.IsActive {
		return nil, entities.ErrPositionNotFound
	}
	if amount.GreaterThan(pos.DepositAmount) {
		return nil, entities.ErrInsufficientBalance
	}

	refund := entities.NewStakeRefund(userID, pos.Currency, amount, product)

	txRepo := uow.TransactionRepository()
	if err := txRepo.Create(ctx, refund); err != nil {
		return nil, err
	}

	balanceService := services.NewBalanceService(uow.UserRepository(), txRepo, uow.EventBus())
	if _, err := balanceService.ApplyDelta(ctx, userID, pos.Currency, refund.Amount, refund.ID); err != nil {
		return nil, err
	}

	pos.DepositAmount = pos.DepositAmount.Sub(amount)
	pos.IsActive = pos.DepositAmount.IsPositive()
	if err := positionRepo.UpdateDeposit(ctx, pos.ID, pos.DepositAmount, pos.IsActive); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"product": product,
		"amount":  amount.String(),
		"deposit": pos.DepositAmount.String(),
	}).Info("unstake recorded")
	return pos, nil
}
