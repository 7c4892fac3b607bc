package queue

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrQueueAlreadyExists = errors.New("queue already exists")
	ErrQueueNotFound      = errors.New("queue not found")
	ErrInvalidQueueName   = errors.New("queue name must not be empty")
)

// Registry maps queue names to queues. The registry lock only guards
// membership; message traffic runs under each queue's own lock.
type Registry struct {
	mu     sync.RWMutex
	queues map[string]*MessageQueue
}

func NewRegistry() *Registry {
	return &Registry{
		queues: make(map[string]*MessageQueue),
	}
}

// Create inserts a new empty queue called name.
func (r *Registry) Create(name string) error {
	if name == "" {
		return ErrInvalidQueueName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.queues[name]; ok {
		return errors.Wrapf(ErrQueueAlreadyExists, "create %q", name)
	}
	r.queues[name] = NewMessageQueue()
	return nil
}

// Delete removes the queue called name together with any messages it still
// holds. Operations already running on that queue finish first.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[name]
	if !ok {
		return errors.Wrapf(ErrQueueNotFound, "delete %q", name)
	}
	q.close()
	delete(r.queues, name)
	return nil
}

func (r *Registry) Enqueue(name, msg string) error {
	q, err := r.lookup(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(q.AddMessage(msg), "enqueue %q", name)
}

// Dequeue pops the head of the named queue, or returns the empty message when
// the queue holds nothing.
func (r *Registry) Dequeue(name string) (string, error) {
	q, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	msg, err := q.RetrieveMessage()
	if err != nil {
		return "", errors.Wrapf(err, "dequeue %q", name)
	}
	return msg, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queues)
}

// Names returns the current queue names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (*MessageQueue, error) {
	r.mu.RLock()
	q, ok := r.queues[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrQueueNotFound, "lookup %q", name)
	}
	return q, nil
}
