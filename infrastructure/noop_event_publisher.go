package infrastructure

import (
	log "github.com/sirupsen/logrus"

	"farmledger/domain/events"
	"farmledger/domain/interfaces"
)

// noopEventPublisher logs events without publishing them anywhere.
// Used when NATS is not configured, for example in local development.
type noopEventPublisher struct{}

func NewNoopEventPublisher() interfaces.EventPublisher {
	return &noopEventPublisher{}
}

func (p *noopEventPublisher) Publish(event events.Event) error {
	log.WithField("event_type", event.Type()).Debug("Event publishing disabled, dropping event")
	return nil
}
