package queue

import "sync"

// MessageQueue is a FIFO of opaque messages guarded by its own lock.
type MessageQueue struct {
	messages []string
	mu       sync.Mutex
	closed   bool
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

// AddMessage appends msg at the tail of the queue.
func (mq *MessageQueue) AddMessage(msg string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return ErrQueueNotFound
	}
	mq.messages = append(mq.messages, msg)
	return nil
}

// RetrieveMessage removes and returns the head of the queue. An empty queue
// yields the empty message, not an error.
func (mq *MessageQueue) RetrieveMessage() (string, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return "", ErrQueueNotFound
	}
	if len(mq.messages) == 0 {
		return "", nil
	}

	msg := mq.messages[0]
	mq.messages[0] = ""
	mq.messages = mq.messages[1:]
	if len(mq.messages) == 0 {
		mq.messages = nil
	}
	return msg, nil
}

func (mq *MessageQueue) Len() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return len(mq.messages)
}

// close waits for in-flight operations, drops the held messages and makes
// every later operation report ErrQueueNotFound. It returns how many messages
// were dropped.
func (mq *MessageQueue) close() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	dropped := len(mq.messages)
	mq.messages = nil
	mq.closed = true
	return dropped
}
