package entities

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the ledger and its surrounding services.
var (
	// ErrInvalidAmount is returned when a transaction amount magnitude is
	// not strictly positive. Rejected at ingress, never reaches the ledger.
	ErrInvalidAmount = errors.New("transaction amount magnitude must be positive")

	// ErrUnsupportedCurrency is returned for a currency outside the
	// supported set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrDuplicateExternalReference is surfaced when the storage layer's
	// uniqueness constraint on a deposit's external reference fires. Callers
	// treat it as already-credited, not as a failure.
	ErrDuplicateExternalReference = errors.New("external reference already recorded on a non-failed transaction")

	// ErrDuplicateReferralPayout is surfaced when a referral reward for the
	// same (causing transaction, recipient) pair already exists. Fan-out
	// treats it as already-paid and moves to the next level.
	ErrDuplicateReferralPayout = errors.New("referral payout already recorded for this transaction and recipient")

	// ErrDuplicateDeposit is the deduplication guard's rejection inside the
	// retry window. Callers treat it as success-already-applied.
	ErrDuplicateDeposit = errors.New("duplicate deposit within deduplication window")

	// ErrUnknownAncestor marks a broken referral chain link. The level is
	// skipped and propagation continues.
	ErrUnknownAncestor = errors.New("referral ancestor not found")

	// ErrSchedulerOverlap is reported when an accrual tick fires while the
	// previous one is still running. The new tick is skipped, not queued.
	ErrSchedulerOverlap = errors.New("accrual tick skipped: previous tick still running")

	// ErrInvalidMetadata is returned when a transaction carries metadata
	// fields that do not belong to its kind, or is missing required ones.
	ErrInvalidMetadata = errors.New("transaction metadata does not match its kind")

	// ErrUserNotFound is returned by lookups for a missing user.
	ErrUserNotFound = errors.New("user not found")

	// ErrTransactionNotFound is returned by ledger lookups for a missing row.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientBalance is returned when a debit would push a cached
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPositionNotFound is returned for a missing farming position.
	ErrPositionNotFound = errors.New("farming position not found")
)

// BalanceDriftError reports a mismatch between a cached balance and the value
// obtained by replaying the user's completed transactions. The drift is
// auto-corrected by reconciliation but must always reach operators.
type BalanceDriftError struct {
	UserID   int64
	Currency Currency
	Cached   decimal.Decimal
	Replayed decimal.Decimal
}

func (e *BalanceDriftError) Error() string {
	return fmt.Sprintf("balance drift for user %d (%s): cached %s, ledger replay %s",
		e.UserID, e.Currency, e.Cached.String(), e.Replayed.String())
}

// Drift returns the signed difference cached minus replayed.
func (e *BalanceDriftError) Drift() decimal.Decimal {
	return e.Cached.Sub(e.Replayed)
}
