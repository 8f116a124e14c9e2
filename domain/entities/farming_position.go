package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// FarmingPosition is one user's active stake in a yield product. One position
// exists per (user, product); the accrual scheduler is the only writer of
// LastAccrualAt.
type FarmingPosition struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	Product       string          `db:"product"`
	Currency      Currency        `db:"currency"`
	DepositAmount decimal.Decimal `db:"deposit_amount"`
	RatePerPeriod decimal.Decimal `db:"rate_per_period"` // fraction of deposit per accrual period
	LastAccrualAt time.Time       `db:"last_accrual_at"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// ElapsedWindows returns the number of whole accrual windows between
// LastAccrualAt and now, capped at maxWindows. Partial windows never count,
// so a window is paid exactly once.
func (p *FarmingPosition) ElapsedWindows(now time.Time, period time.Duration, maxWindows int64) int64 {
	if period <= 0 || !now.After(p.LastAccrualAt) {
		return 0
	}
	windows := int64(now.Sub(p.LastAccrualAt) / period)
	if windows > maxWindows {
		return maxWindows
	}
	return windows
}

// AccrualAmount returns deposit * rate * windows.
func (p *FarmingPosition) AccrualAmount(windows int64) decimal.Decimal {
	if windows <= 0 {
		return decimal.Zero
	}
	return p.DepositAmount.Mul(p.RatePerPeriod).Mul(decimal.NewFromInt(windows))
}

// NextAccrualAt returns the timestamp the position must be advanced to after
// paying the given number of windows. Advancing by whole windows (not to the
// wall clock) is what keeps partially elapsed windows payable next tick.
func (p *FarmingPosition) NextAccrualAt(windows int64, period time.Duration) time.Time {
	return p.LastAccrualAt.Add(time.Duration(windows) * period)
}
