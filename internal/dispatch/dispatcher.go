package dispatch

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/metrics"
	"github.com/m7moud/queue-broker/internal/protocol"
	"github.com/m7moud/queue-broker/internal/queue"
)

// Operation names, as used in logs and metrics.
const (
	OpCreate  = "create"
	OpDelete  = "delete"
	OpGet     = "get"
	OpAdd     = "add"
	OpUnknown = "unknown"
)

type handlerFunc func(d *Dispatcher, name string, req *protocol.Request) *protocol.Response

type route struct {
	method string
	prefix string
	op     string
	handle handlerFunc
}

// routes are matched in order; method is exact-case, path is by prefix and
// everything after the prefix is the queue name.
var routes = []route{
	{method: http.MethodPost, prefix: "/new/", op: OpCreate, handle: (*Dispatcher).create},
	{method: http.MethodDelete, prefix: "/delete/", op: OpDelete, handle: (*Dispatcher).delete},
	{method: http.MethodGet, prefix: "/get/", op: OpGet, handle: (*Dispatcher).get},
	{method: http.MethodPost, prefix: "/add/", op: OpAdd, handle: (*Dispatcher).add},
}

// Dispatcher routes parsed requests to queue operations.
type Dispatcher struct {
	broker queue.Broker
	logger logrus.FieldLogger
	// queueCount reports the number of queues after a create or delete.
	queueCount func() int
}

func NewDispatcher(broker queue.Broker, logger logrus.FieldLogger) *Dispatcher {
	d := &Dispatcher{
		broker: broker,
		logger: logger,
	}
	if counter, ok := broker.(interface{ Len() int }); ok {
		d.queueCount = counter.Len
	}
	return d
}

// Dispatch runs exactly one queue operation for req and returns its response.
func (d *Dispatcher) Dispatch(req *protocol.Request) *protocol.Response {
	for _, rt := range routes {
		if req.Method != rt.method || !strings.HasPrefix(req.Path, rt.prefix) {
			continue
		}
		name := strings.TrimPrefix(req.Path, rt.prefix)
		if name == "" {
			break
		}

		resp := rt.handle(d, name, req)
		metrics.RecordRequest(rt.op, resp.Status)
		return resp
	}

	d.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.Path,
	}).Info("invalid request")
	metrics.RecordRequest(OpUnknown, http.StatusNotFound)
	return protocol.NotFound()
}

func (d *Dispatcher) create(name string, _ *protocol.Request) *protocol.Response {
	logger := d.logger.WithFields(logrus.Fields{"op": OpCreate, "queue": name})

	if err := d.broker.Create(name); err != nil {
		if errors.Is(err, queue.ErrQueueAlreadyExists) {
			logger.Debug("queue already exists")
			return protocol.BadRequest(fmt.Sprintf("Queue '%s' already exists", name))
		}
		logger.WithError(err).Error("failed to create queue")
		return protocol.BadRequest(err.Error())
	}

	logger.Info("created queue")
	d.updateQueueCount()
	return protocol.OK("")
}

func (d *Dispatcher) delete(name string, _ *protocol.Request) *protocol.Response {
	logger := d.logger.WithFields(logrus.Fields{"op": OpDelete, "queue": name})

	if err := d.broker.Delete(name); err != nil {
		if !errors.Is(err, queue.ErrQueueNotFound) {
			logger.WithError(err).Error("failed to delete queue")
		}
		return protocol.BadRequest(fmt.Sprintf("Queue '%s' cannot be removed as it does not exist", name))
	}

	logger.Info("deleted queue")
	d.updateQueueCount()
	return protocol.OK("")
}

func (d *Dispatcher) get(name string, _ *protocol.Request) *protocol.Response {
	logger := d.logger.WithFields(logrus.Fields{"op": OpGet, "queue": name})

	msg, err := d.broker.Dequeue(name)
	if err != nil {
		if !errors.Is(err, queue.ErrQueueNotFound) {
			logger.WithError(err).Error("failed to retrieve message")
		}
		return protocol.NotFound()
	}

	if msg != "" {
		metrics.RecordDequeue()
	}
	logger.WithField("message", msg).Debug("retrieved message")
	return protocol.OK(msg)
}

func (d *Dispatcher) add(name string, req *protocol.Request) *protocol.Response {
	logger := d.logger.WithFields(logrus.Fields{"op": OpAdd, "queue": name})

	msg := req.Message()
	if err := d.broker.Enqueue(name, msg); err != nil {
		if !errors.Is(err, queue.ErrQueueNotFound) {
			logger.WithError(err).Error("failed to add message")
		}
		return protocol.NotFound()
	}

	metrics.RecordEnqueue()
	logger.WithField("length", len(msg)).Debug("added message")
	return protocol.OK("")
}

func (d *Dispatcher) updateQueueCount() {
	if d.queueCount != nil {
		metrics.SetQueues(d.queueCount())
	}
}
