package server

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/metrics"
	"github.com/m7moud/queue-broker/internal/protocol"
)

// connState is the stage a connection has reached. Every connection ends in
// stateClosed after a single request/response cycle.
type connState int

const (
	stateReading connState = iota
	stateParsing
	stateDispatching
	stateWriting
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateReading:
		return "reading"
	case stateParsing:
		return "parsing"
	case stateDispatching:
		return "dispatching"
	case stateWriting:
		return "writing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

func (qs *QueueServer) handleConnection(conn net.Conn) {
	done := metrics.TrackConnection()
	defer done()

	logger := qs.logger.WithFields(logrus.Fields{
		"conn":   uuid.NewString(),
		"remote": conn.RemoteAddr().String(),
	})
	state := stateReading

	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.WithError(err).Debug("close error")
		}
		logger.WithField("state", stateClosed.String()).Debug("connection closed")
	}()

	if qs.config.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(qs.config.ReadTimeout)); err != nil {
			logger.WithError(err).Warn("failed to set read deadline")
		}
	}

	resp := qs.serveRequest(conn, logger, &state)
	if resp == nil {
		return
	}

	state = stateWriting
	if qs.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(qs.config.WriteTimeout)); err != nil {
			logger.WithError(err).Warn("failed to set write deadline")
		}
	}
	if _, err := resp.WriteTo(conn); err != nil {
		logger.WithError(err).WithField("state", state.String()).Warn("failed to write response")
		metrics.RecordConnectionError(state.String())
	}
}

// serveRequest reads, parses and dispatches one request. A nil response means
// the connection is dropped without a reply.
func (qs *QueueServer) serveRequest(conn net.Conn, logger logrus.FieldLogger, state *connState) *protocol.Response {
	data, err := protocol.ReadRequest(conn, qs.config.MaxRequestSize)
	if err != nil {
		logger.WithError(err).WithField("state", state.String()).Warn("failed to read request")
		metrics.RecordConnectionError(state.String())
		if errors.Is(err, protocol.ErrRequestTooLarge) {
			return protocol.BadRequest("")
		}
		return nil
	}

	*state = stateParsing
	req, err := protocol.ParseRequest(data)
	if err != nil {
		logger.WithError(err).WithField("state", state.String()).Info("malformed request")
		metrics.RecordConnectionError(state.String())
		return protocol.BadRequest("")
	}

	*state = stateDispatching
	logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.Path,
	}).Debug("dispatching request")
	return qs.dispatcher.Dispatch(req)
}
