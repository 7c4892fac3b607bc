package queue

import "context"

// Broker is the set of queue operations the request dispatcher drives.
type Broker interface {
	Create(name string) error
	Delete(name string) error
	Enqueue(name, msg string) error
	Dequeue(name string) (string, error)
}

// QueueService defines the interface for operations on one named queue,
// local or remote.
type QueueService interface {
	Push(ctx context.Context, msg string) error
	Pop(ctx context.Context) (string, error)
	Close() error
}

var _ Broker = (*Registry)(nil)
