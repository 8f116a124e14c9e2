package entities

// TransactionKind represents the kind of monetary event recorded in the ledger
type TransactionKind string

// All transaction kinds supported by the ledger
const (
	// Externally sourced movements
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"

	// Yield movements
	TransactionKindFarmingReward  TransactionKind = "farming_reward"
	TransactionKindReferralReward TransactionKind = "referral_reward"

	// System movements
	TransactionKindProductPurchase  TransactionKind = "product_purchase"
	TransactionKindManualAdjustment TransactionKind = "manual_adjustment"
)

// IsRewardKind returns true if the kind represents earned yield that feeds
// referral commission propagation
func (tk TransactionKind) IsRewardKind() bool {
	return tk == TransactionKindFarmingReward
}

// IsExternallySourced returns true if the kind originates outside the system
// and must pass the deposit deduplication guard
func (tk TransactionKind) IsExternallySourced() bool {
	return tk == TransactionKindDeposit
}

// String returns the string representation of the transaction kind
func (tk TransactionKind) String() string {
	return string(tk)
}

// TransactionStatus represents the lifecycle state of a ledger row.
// The only legal transitions are pending -> completed and pending -> failed.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// CountsTowardBalance returns true if rows in this status contribute to a
// user's derived balance
func (ts TransactionStatus) CountsTowardBalance() bool {
	return ts == TransactionStatusCompleted
}

// Currency identifies one of the supported balance currencies
type Currency string

const (
	// CurrencyPoints is the internal yield currency
	CurrencyPoints Currency = "points"
	// CurrencyTON is the external deposit currency
	CurrencyTON Currency = "ton"
)

// SupportedCurrencies lists every currency the ledger accepts
var SupportedCurrencies = []Currency{CurrencyPoints, CurrencyTON}

// IsSupported returns true if the currency is one the ledger accepts
func (c Currency) IsSupported() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}
