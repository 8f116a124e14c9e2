package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFarmingPosition_ElapsedWindows(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	period := 5 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{
			name: "no time elapsed",
			now:  base,
			want: 0,
		},
		{
			name: "partial window does not count",
			now:  base.Add(4*time.Minute + 59*time.Second),
			want: 0,
		},
		{
			name: "exactly one window",
			now:  base.Add(5 * time.Minute),
			want: 1,
		},
		{
			name: "one window plus partial",
			now:  base.Add(9 * time.Minute),
			want: 1,
		},
		{
			name: "several windows",
			now:  base.Add(37 * time.Minute),
			want: 7,
		},
		{
			name: "clock before last accrual",
			now:  base.Add(-time.Hour),
			want: 0,
		},
		{
			name: "capped at max windows",
			now:  base.Add(72 * time.Hour),
			want: 288,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pos := &FarmingPosition{LastAccrualAt: base}
			assert.Equal(t, tt.want, pos.ElapsedWindows(tt.now, period, 288))
		})
	}
}

func TestFarmingPosition_ElapsedWindows_ZeroPeriod(t *testing.T) {
	t.Parallel()

	pos := &FarmingPosition{LastAccrualAt: time.Now().Add(-time.Hour)}
	assert.Zero(t, pos.ElapsedWindows(time.Now(), 0, 288))
}

func TestFarmingPosition_AccrualAmount(t *testing.T) {
	t.Parallel()

	pos := &FarmingPosition{
		DepositAmount: decimal.RequireFromString("100"),
		RatePerPeriod: decimal.RequireFromString("0.01"),
	}

	assert.True(t, pos.AccrualAmount(0).IsZero())
	assert.True(t, decimal.RequireFromString("1").Equal(pos.AccrualAmount(1)))
	assert.True(t, decimal.RequireFromString("3").Equal(pos.AccrualAmount(3)))
}

func TestFarmingPosition_NextAccrualAt_AdvancesByWholeWindows(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	period := 5 * time.Minute
	pos := &FarmingPosition{LastAccrualAt: base}

	// 9 minutes elapsed pays one window and leaves the 4-minute remainder
	// counting toward the next one.
	now := base.Add(9 * time.Minute)
	windows := pos.ElapsedWindows(now, period, 288)
	assert.Equal(t, int64(1), windows)
	assert.Equal(t, base.Add(5*time.Minute), pos.NextAccrualAt(windows, period))
}
