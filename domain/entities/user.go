package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a mini-app account with its cached per-currency balances.
// ReferredBy is bound at most once, at creation, and is immutable afterwards.
type User struct {
	ID            int64           `db:"id"`
	TelegramID    int64           `db:"telegram_id"`
	InviteCode    string          `db:"invite_code"`
	ReferredBy    *int64          `db:"referred_by"`
	BalancePoints decimal.Decimal `db:"balance_points"`
	BalanceTON    decimal.Decimal `db:"balance_ton"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Balance returns the cached balance for the given currency.
func (u *User) Balance(currency Currency) decimal.Decimal {
	switch currency {
	case CurrencyPoints:
		return u.BalancePoints
	case CurrencyTON:
		return u.BalanceTON
	}
	return decimal.Zero
}

// CanAfford checks if the user has sufficient cached balance for a debit.
func (u *User) CanAfford(currency Currency, amount decimal.Decimal) bool {
	return u.Balance(currency).GreaterThanOrEqual(amount)
}

// HasInviter returns true if the user was referred by someone.
func (u *User) HasInviter() bool {
	return u.ReferredBy != nil
}
