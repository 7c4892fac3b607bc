package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/m7moud/queue-broker/internal/protocol"
	"github.com/m7moud/queue-broker/internal/queue"
)

const defaultTimeout = 5 * time.Second

// ErrInvalidPath is returned for paths the request line cannot carry.
var ErrInvalidPath = errors.New("path must not contain spaces or line breaks")

// StatusError is returned when the broker answers with an unexpected status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server error: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// QueueClient talks to a broker. The broker closes every connection after one
// response, so each call dials anew.
type QueueClient struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewQueueClient(addr string) *QueueClient {
	return &QueueClient{
		addr:    addr,
		timeout: defaultTimeout,
	}
}

// WithTimeout bounds every round trip made by the client.
func (qc *QueueClient) WithTimeout(timeout time.Duration) *QueueClient {
	qc.timeout = timeout
	return qc
}

// Ping checks that the broker accepts connections.
func (qc *QueueClient) Ping(ctx context.Context) error {
	conn, err := qc.dialer.DialContext(ctx, "tcp", qc.addr)
	if err != nil {
		return errors.Wrap(err, "failed to connect")
	}
	return conn.Close()
}

func (qc *QueueClient) CreateQueue(ctx context.Context, name string) error {
	resp, err := qc.Do(ctx, http.MethodPost, "/new/"+name, "")
	if err != nil {
		return err
	}
	switch resp.Status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return errors.Wrap(queue.ErrQueueAlreadyExists, resp.Body)
	}
	return &StatusError{Status: resp.Status, Body: resp.Body}
}

func (qc *QueueClient) DeleteQueue(ctx context.Context, name string) error {
	resp, err := qc.Do(ctx, http.MethodDelete, "/delete/"+name, "")
	if err != nil {
		return err
	}
	switch resp.Status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return errors.Wrap(queue.ErrQueueNotFound, resp.Body)
	}
	return &StatusError{Status: resp.Status, Body: resp.Body}
}

// Add enqueues msg into the named queue.
func (qc *QueueClient) Add(ctx context.Context, name, msg string) error {
	resp, err := qc.Do(ctx, http.MethodPost, "/add/"+name, msg)
	if err != nil {
		return err
	}
	return statusErr(resp, name)
}

// Get dequeues one message from the named queue. An empty queue yields the
// empty message.
func (qc *QueueClient) Get(ctx context.Context, name string) (string, error) {
	resp, err := qc.Do(ctx, http.MethodGet, "/get/"+name, "")
	if err != nil {
		return "", err
	}
	if err := statusErr(resp, name); err != nil {
		return "", err
	}
	return resp.Body, nil
}

// Do performs one raw request/response exchange.
func (qc *QueueClient) Do(ctx context.Context, method, path, body string) (*protocol.Response, error) {
	if strings.ContainsAny(path, " \r\n") {
		return nil, errors.Wrapf(ErrInvalidPath, "%q", path)
	}
	if qc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, qc.timeout)
		defer cancel()
	}

	conn, err := qc.dialer.DialContext(ctx, "tcp", qc.addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, errors.Wrap(err, "failed to set deadline")
		}
	}

	request := fmt.Sprintf("%s %s HTTP/1.1\r\n\r\n%s", method, path, body)
	if _, err := io.WriteString(conn, request); err != nil {
		return nil, errors.Wrapf(err, "failed to send %s %s", method, path)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return nil, errors.Wrap(err, "failed to close write side")
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response to %s %s", method, path)
	}
	return protocol.ParseResponse(data)
}

// Bind returns a QueueService for a single named queue.
func (qc *QueueClient) Bind(name string) *NamedQueue {
	return &NamedQueue{client: qc, name: name}
}

func statusErr(resp *protocol.Response, name string) error {
	switch resp.Status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.Wrapf(queue.ErrQueueNotFound, "queue %q", name)
	}
	return &StatusError{Status: resp.Status, Body: resp.Body}
}
