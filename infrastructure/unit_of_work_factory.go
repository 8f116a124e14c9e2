package infrastructure

import (
	"farmledger/application"
	"farmledger/database"
	"farmledger/domain/interfaces"
	"farmledger/repository"
)

// unitOfWorkFactory creates units of work whose domain events are
// buffered per transaction and published to NATS only after commit.
type unitOfWorkFactory struct {
	db        *database.DB
	publisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a UnitOfWork factory bound to an event
// publisher. Each unit of work gets its own transactional buffer so
// concurrent transactions do not interleave events.
func NewUnitOfWorkFactory(db *database.DB, publisher interfaces.EventPublisher) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:        db,
		publisher: publisher,
	}
}

func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewNATSTransactionalPublisher(f.publisher)
	return repository.NewUnitOfWorkFactory(f.db).CreateWithPublisher(transactionalPublisher)
}
