package audit

import "context"

// Store persists audit events and answers searches, newest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	Search(ctx context.Context, q Query) ([]Event, error)
}

// Sink receives events after they are stored, e.g. a Kafka producer.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
