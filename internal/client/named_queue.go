package client

import (
	"context"

	"github.com/pkg/errors"

	"github.com/m7moud/queue-broker/internal/queue"
)

// NamedQueue is a QueueClient bound to one queue.
type NamedQueue struct {
	client *QueueClient
	name   string
}

var _ queue.QueueService = (*NamedQueue)(nil)

func (nq *NamedQueue) Name() string {
	return nq.name
}

// Ensure creates the queue unless it already exists.
func (nq *NamedQueue) Ensure(ctx context.Context) error {
	err := nq.client.CreateQueue(ctx, nq.name)
	if errors.Is(err, queue.ErrQueueAlreadyExists) {
		return nil
	}
	return err
}

func (nq *NamedQueue) Push(ctx context.Context, msg string) error {
	return nq.client.Add(ctx, nq.name, msg)
}

func (nq *NamedQueue) Pop(ctx context.Context) (string, error) {
	return nq.client.Get(ctx, nq.name)
}

// Close is a no-op; connections never outlive a single call.
func (nq *NamedQueue) Close() error {
	return nil
}
