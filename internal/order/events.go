package order

import "time"

type EventKind string

const (
	EventCreated       EventKind = "order.created"
	EventStatusChanged EventKind = "order.status_changed"
)

// Event is emitted after an order change has been persisted.
type Event struct {
	Kind       EventKind
	Order      Order
	From       Status
	To         Status
	OccurredAt time.Time
}

// Publisher hands events to downstream consumers. Publish must not block
// and cannot fail the operation that produced the event.
type Publisher interface {
	Publish(e Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}
