package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/m7moud/queue-broker/internal/dispatch"
	"github.com/m7moud/queue-broker/internal/queue"
)

type QueueServer struct {
	config     Config
	registry   *queue.Registry
	dispatcher *dispatch.Dispatcher
	logger     logrus.FieldLogger
	slots      *semaphore.Weighted
	conns      sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

func NewQueueServer(config Config, logger logrus.FieldLogger) *QueueServer {
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultConfig().MaxConnections
	}
	registry := queue.NewRegistry()
	return &QueueServer{
		config:     config,
		registry:   registry,
		dispatcher: dispatch.NewDispatcher(registry, logger),
		logger:     logger,
		slots:      semaphore.NewWeighted(config.MaxConnections),
		ready:      make(chan struct{}),
	}
}

// Registry exposes the queues served by qs.
func (qs *QueueServer) Registry() *queue.Registry {
	return qs.registry
}

// Start listens on the configured address and serves until ctx is done.
func (qs *QueueServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", qs.config.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	return qs.Serve(ctx, ln)
}

// Ready is closed once the server accepts connections.
func (qs *QueueServer) Ready() <-chan struct{} {
	return qs.ready
}

// Addr returns the listening address, or nil before Serve was called.
func (qs *QueueServer) Addr() net.Addr {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	if qs.listener == nil {
		return nil
	}
	return qs.listener.Addr()
}

// Serve accepts connections on ln, one goroutine per connection, until ctx is
// done. It closes ln and waits for in-flight connections before returning.
func (qs *QueueServer) Serve(ctx context.Context, ln net.Listener) error {
	qs.mu.Lock()
	if qs.listener != nil {
		qs.mu.Unlock()
		return errors.New("server already started")
	}
	qs.listener = ln
	close(qs.ready)
	qs.mu.Unlock()

	defer qs.conns.Wait()

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()
	defer ln.Close()

	qs.logger.WithFields(logrus.Fields{
		"address": ln.Addr().String(),
	}).Info("Queue service listening")

	for {
		if err := qs.slots.Acquire(ctx, 1); err != nil {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			qs.slots.Release(1)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				qs.logger.Info("Queue service stopped")
				return nil
			}
			qs.logger.WithError(err).Warn("Accept error")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		qs.conns.Add(1)
		go func() {
			defer qs.conns.Done()
			defer qs.slots.Release(1)
			qs.handleConnection(conn)
		}()
	}
}
