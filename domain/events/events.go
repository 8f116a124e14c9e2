package events

import (
	"time"

	"github.com/shopspring/decimal"

	"farmledger/domain/entities"
)

// Event is implemented by all domain events published after commit.
type Event interface {
	Type() string
}

// TransactionRecordedEvent is published once per transaction that reached
// completed status through the ingress.
type TransactionRecordedEvent struct {
	TransactionID int64                    `json:"transaction_id"`
	UserID        int64                    `json:"user_id"`
	Kind          entities.TransactionKind `json:"kind"`
	Currency      entities.Currency        `json:"currency"`
	Amount        decimal.Decimal          `json:"amount"`
	RecordedAt    time.Time                `json:"recorded_at"`
}

func (e TransactionRecordedEvent) Type() string { return "transaction.recorded" }

// BalanceChangeEvent carries the post-change cached balance.
type BalanceChangeEvent struct {
	UserID        int64             `json:"user_id"`
	Currency      entities.Currency `json:"currency"`
	Delta         decimal.Decimal   `json:"delta"`
	NewBalance    decimal.Decimal   `json:"new_balance"`
	TransactionID int64             `json:"transaction_id"`
	ChangedAt     time.Time         `json:"changed_at"`
}

func (e BalanceChangeEvent) Type() string { return "balance.changed" }

// ReferralPayoutEvent is published for each ancestor credited by the
// commission fan-out of a qualifying transaction.
type ReferralPayoutEvent struct {
	RecipientID          int64             `json:"recipient_id"`
	SourceUserID         int64             `json:"source_user_id"`
	Level                int               `json:"level"`
	Currency             entities.Currency `json:"currency"`
	Amount               decimal.Decimal   `json:"amount"`
	CausingTransactionID int64             `json:"causing_transaction_id"`
}

func (e ReferralPayoutEvent) Type() string { return "referral.payout" }

// PositionAccruedEvent is published when the scheduler pays out one or more
// whole windows on a farming position.
type PositionAccruedEvent struct {
	PositionID    int64             `json:"position_id"`
	UserID        int64             `json:"user_id"`
	Product       string            `json:"product"`
	Currency      entities.Currency `json:"currency"`
	Windows       int64             `json:"windows"`
	Amount        decimal.Decimal   `json:"amount"`
	AccruedThru   time.Time         `json:"accrued_through"`
	TransactionID int64             `json:"transaction_id"`
}

func (e PositionAccruedEvent) Type() string { return "position.accrued" }

// BalanceDriftEvent is published when reconciliation finds a cached balance
// that disagrees with the ledger replay.
type BalanceDriftEvent struct {
	UserID     int64             `json:"user_id"`
	Currency   entities.Currency `json:"currency"`
	Cached     decimal.Decimal   `json:"cached"`
	Replayed   decimal.Decimal   `json:"replayed"`
	Drift      decimal.Decimal   `json:"drift"`
	DetectedAt time.Time         `json:"detected_at"`
}

func (e BalanceDriftEvent) Type() string { return "balance.drift" }
