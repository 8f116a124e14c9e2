package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"farmledger/domain/entities"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(telegramID int64) *entities.User {
	return &entities.User{
		TelegramID:    telegramID,
		InviteCode:    fmt.Sprintf("invite-%d", telegramID),
		BalancePoints: decimal.Zero,
		BalanceTON:    decimal.Zero,
	}
}

// CreateTestUserReferredBy creates a test user bound to an inviter
func CreateTestUserReferredBy(telegramID int64, inviterID int64) *entities.User {
	user := CreateTestUser(telegramID)
	user.ReferredBy = &inviterID
	return user
}

// CreateTestDeposit creates a completed deposit transaction
func CreateTestDeposit(userID int64, amount decimal.Decimal, externalRef string) *entities.Transaction {
	return entities.NewDeposit(userID, entities.CurrencyTON, amount, externalRef)
}

// CreateTestPosition creates an active farming position with a daily 1% rate
// split across 288 five-minute windows
func CreateTestPosition(userID int64, product string, deposit decimal.Decimal, lastAccrual time.Time) *entities.FarmingPosition {
	return &entities.FarmingPosition{
		UserID:        userID,
		Product:       product,
		Currency:      entities.CurrencyPoints,
		DepositAmount: deposit,
		RatePerPeriod: decimal.RequireFromString("0.01").Div(decimal.NewFromInt(288)),
		LastAccrualAt: lastAccrual,
		IsActive:      true,
	}
}
