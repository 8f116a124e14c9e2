package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one immutable row of the append-only ledger. Only the status
// may change after insertion, and only pending -> completed/failed.
//
// Metadata is a fixed set of typed fields keyed by kind rather than a
// free-form payload: deposits carry ExternalRef; referral rewards carry
// CausingTransactionID and ReferralLevel; every other kind carries neither.
type Transaction struct {
	ID       int64             `db:"id"`
	UserID   int64             `db:"user_id"`
	Kind     TransactionKind   `db:"kind"`
	Currency Currency          `db:"currency"`
	Amount   decimal.Decimal   `db:"amount"` // signed; credits positive, debits negative
	Status   TransactionStatus `db:"status"`

	// Deposit-kind only: hash/reference of the external transfer.
	ExternalRef *string `db:"external_ref"`

	// Referral-reward-kind only: the completed reward transaction that caused
	// this commission and the ancestor's distance from the rewarded user.
	CausingTransactionID *int64 `db:"causing_transaction_id"`
	ReferralLevel        *int   `db:"referral_level"`

	Note      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

// NewDeposit builds a pending deposit credit carrying the external reference.
func NewDeposit(userID int64, currency Currency, amount decimal.Decimal, externalRef string) *Transaction {
	tx := &Transaction{
		UserID:   userID,
		Kind:     TransactionKindDeposit,
		Currency: currency,
		Amount:   amount,
		Status:   TransactionStatusCompleted,
	}
	if externalRef != "" {
		tx.ExternalRef = &externalRef
	}
	return tx
}

// NewWithdrawal builds a withdrawal debit. Amount is given as a positive
// magnitude and stored negated.
func NewWithdrawal(userID int64, currency Currency, amount decimal.Decimal) *Transaction {
	return &Transaction{
		UserID:   userID,
		Kind:     TransactionKindWithdrawal,
		Currency: currency,
		Amount:   amount.Neg(),
		Status:   TransactionStatusCompleted,
	}
}

// NewStakeRefund builds a completed withdrawal crediting staked funds back
// from a farming product. The ledger is signed, so the positive amount
// distinguishes a refund from an outbound withdrawal of the same kind.
func NewStakeRefund(userID int64, currency Currency, amount decimal.Decimal, product string) *Transaction {
	return &Transaction{
		UserID:   userID,
		Kind:     TransactionKindWithdrawal,
		Currency: currency,
		Amount:   amount,
		Status:   TransactionStatusCompleted,
		Note:     "unstake " + product,
	}
}

// NewFarmingReward builds a completed farming yield credit, noted with the
// product it accrued from.
func NewFarmingReward(userID int64, currency Currency, amount decimal.Decimal, product string) *Transaction {
	return &Transaction{
		UserID:   userID,
		Kind:     TransactionKindFarmingReward,
		Currency: currency,
		Amount:   amount,
		Status:   TransactionStatusCompleted,
		Note:     product,
	}
}

// NewReferralReward builds a completed commission credit tagged with the
// causing transaction and the ancestor's level.
func NewReferralReward(recipientID int64, currency Currency, amount decimal.Decimal, causingTxID int64, level int) *Transaction {
	return &Transaction{
		UserID:               recipientID,
		Kind:                 TransactionKindReferralReward,
		Currency:             currency,
		Amount:               amount,
		Status:               TransactionStatusCompleted,
		CausingTransactionID: &causingTxID,
		ReferralLevel:        &level,
	}
}

// NewProductPurchase builds a purchase debit (e.g. staking into a yield
// product). Amount is given as a positive magnitude and stored negated.
func NewProductPurchase(userID int64, currency Currency, amount decimal.Decimal, note string) *Transaction {
	return &Transaction{
		UserID:   userID,
		Kind:     TransactionKindProductPurchase,
		Currency: currency,
		Amount:   amount.Neg(),
		Status:   TransactionStatusCompleted,
		Note:     note,
	}
}

// NewManualAdjustment builds a signed corrective entry. Corrections go
// through the ledger like any other movement so they stay auditable.
func NewManualAdjustment(userID int64, currency Currency, signedAmount decimal.Decimal, note string) *Transaction {
	return &Transaction{
		UserID:   userID,
		Kind:     TransactionKindManualAdjustment,
		Currency: currency,
		Amount:   signedAmount,
		Status:   TransactionStatusCompleted,
		Note:     note,
	}
}

// Validate checks the invariants every ledger row must satisfy before insert.
func (t *Transaction) Validate() error {
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !t.Currency.IsSupported() {
		return ErrUnsupportedCurrency
	}
	switch t.Kind {
	case TransactionKindReferralReward:
		if t.CausingTransactionID == nil || t.ReferralLevel == nil {
			return ErrInvalidMetadata
		}
	case TransactionKindDeposit:
		// external ref optional (manual deposits have none)
	default:
		if t.ExternalRef != nil || t.CausingTransactionID != nil || t.ReferralLevel != nil {
			return ErrInvalidMetadata
		}
	}
	return nil
}

// AsPending downgrades a freshly built transaction to pending so it can be
// completed or failed later via the ledger status transitions.
func (t *Transaction) AsPending() *Transaction {
	t.Status = TransactionStatusPending
	return t
}

// IsCredit returns true if the transaction increases the balance
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit returns true if the transaction decreases the balance
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// CountsTowardBalance returns true if this row contributes to the user's
// derived balance
func (t *Transaction) CountsTowardBalance() bool {
	return t.Status.CountsTowardBalance()
}

// TransactionFilter narrows ledger reads for history queries.
type TransactionFilter struct {
	Kind     *TransactionKind
	Currency *Currency
	Status   *TransactionStatus
	Limit    int
	Offset   int
}
