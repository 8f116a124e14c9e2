package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Validate(t *testing.T) {
	t.Parallel()

	ref := "0xabc"
	causingID := int64(42)
	level := 2

	tests := []struct {
		name    string
		tx      *Transaction
		wantErr error
	}{
		{
			name: "valid deposit with external ref",
			tx:   NewDeposit(1, CurrencyTON, decimal.RequireFromString("10"), ref),
		},
		{
			name: "valid manual deposit without external ref",
			tx:   NewDeposit(1, CurrencyPoints, decimal.RequireFromString("10"), ""),
		},
		{
			name:    "zero amount rejected",
			tx:      NewManualAdjustment(1, CurrencyPoints, decimal.Zero, "noop"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unsupported currency rejected",
			tx:      NewDeposit(1, Currency("doge"), decimal.RequireFromString("10"), ""),
			wantErr: ErrUnsupportedCurrency,
		},
		{
			name: "referral reward requires causing transaction",
			tx: &Transaction{
				UserID:        1,
				Kind:          TransactionKindReferralReward,
				Currency:      CurrencyPoints,
				Amount:        decimal.RequireFromString("5"),
				Status:        TransactionStatusCompleted,
				ReferralLevel: &level,
			},
			wantErr: ErrInvalidMetadata,
		},
		{
			name: "valid referral reward",
			tx:   NewReferralReward(1, CurrencyPoints, decimal.RequireFromString("5"), causingID, level),
		},
		{
			name: "external ref on non-deposit rejected",
			tx: &Transaction{
				UserID:      1,
				Kind:        TransactionKindFarmingReward,
				Currency:    CurrencyPoints,
				Amount:      decimal.RequireFromString("5"),
				Status:      TransactionStatusCompleted,
				ExternalRef: &ref,
			},
			wantErr: ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.tx.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_SignConventions(t *testing.T) {
	t.Parallel()

	amount := decimal.RequireFromString("25")

	deposit := NewDeposit(1, CurrencyTON, amount, "")
	assert.True(t, deposit.IsCredit())

	withdrawal := NewWithdrawal(1, CurrencyTON, amount)
	assert.True(t, withdrawal.IsDebit())
	assert.True(t, amount.Neg().Equal(withdrawal.Amount))

	purchase := NewProductPurchase(1, CurrencyPoints, amount, "stake gold-farm")
	assert.True(t, purchase.IsDebit())

	refund := NewStakeRefund(1, CurrencyPoints, amount, "gold-farm")
	assert.True(t, refund.IsCredit())
	assert.Equal(t, TransactionKindWithdrawal, refund.Kind)
	assert.Equal(t, "unstake gold-farm", refund.Note)
}

func TestTransaction_AsPending(t *testing.T) {
	t.Parallel()

	tx := NewDeposit(1, CurrencyTON, decimal.RequireFromString("10"), "0xabc").AsPending()
	require.Equal(t, TransactionStatusPending, tx.Status)
	assert.False(t, tx.CountsTowardBalance())
}
