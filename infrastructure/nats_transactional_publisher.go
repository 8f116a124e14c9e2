package infrastructure

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"farmledger/application"
	"farmledger/domain/events"
	"farmledger/domain/interfaces"
)

// natsTransactionalPublisher buffers domain events during a database
// transaction and publishes them to NATS only after commit. On rollback
// the buffered events are discarded so consumers never observe state
// the database rejected.
type natsTransactionalPublisher struct {
	publisher interfaces.EventPublisher
	mu        sync.Mutex
	pending   []events.Event
}

// NewNATSTransactionalPublisher wraps a real publisher with commit-time
// buffering.
func NewNATSTransactionalPublisher(publisher interfaces.EventPublisher) application.TransactionalEventPublisher {
	return &natsTransactionalPublisher{
		publisher: publisher,
	}
}

func (p *natsTransactionalPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, event)
	log.WithFields(log.Fields{
		"event_type": event.Type(),
		"pending":    len(p.pending),
	}).Debug("Buffered domain event for post-commit publish")
	return nil
}

// Flush publishes all buffered events. Called after the transaction
// commits. A failed publish is logged and the remaining events are
// still attempted; the ledger is the source of truth and consumers
// reconcile from it.
func (p *natsTransactionalPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var firstErr error
	for _, event := range pending {
		if err := p.publisher.Publish(event); err != nil {
			log.WithError(err).WithField("event_type", event.Type()).
				Error("Failed to publish buffered event")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	log.WithField("count", len(pending)).Debug("Flushed buffered domain events")
	return firstErr
}

// Discard drops all buffered events. Called when the transaction rolls
// back.
func (p *natsTransactionalPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) > 0 {
		log.WithField("count", len(p.pending)).Debug("Discarded buffered domain events")
	}
	p.pending = nil
}
