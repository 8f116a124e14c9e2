package infrastructure

import (
	"fmt"

	"farmledger/domain/events"
)

// EventSubjectMapper maps domain events to NATS subjects.
type EventSubjectMapper struct{}

func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// GetSubject returns the NATS subject for a given domain event
func (m *EventSubjectMapper) GetSubject(event events.Event) (string, error) {
	switch event.(type) {
	case events.TransactionRecordedEvent:
		return "ledger.transaction_recorded", nil
	case events.BalanceChangeEvent:
		return "ledger.balance_changed", nil
	case events.ReferralPayoutEvent:
		return "referrals.payout", nil
	case events.PositionAccruedEvent:
		return "farming.position_accrued", nil
	case events.BalanceDriftEvent:
		return "ledger.balance_drift", nil
	default:
		return "", fmt.Errorf("unknown event type: %T", event)
	}
}

// GetAllSubjects returns every subject the mapper can produce, used for
// stream provisioning.
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"ledger.transaction_recorded",
		"ledger.balance_changed",
		"ledger.balance_drift",
		"referrals.payout",
		"farming.position_accrued",
	}
}

// EnsureDomainEventStream creates the JetStream stream covering all
// domain event subjects if it does not already exist.
func (c *NATSClient) EnsureDomainEventStream() error {
	mapper := NewEventSubjectMapper()
	return c.ensureStream("FARMLEDGER_EVENTS", mapper.GetAllSubjects())
}
