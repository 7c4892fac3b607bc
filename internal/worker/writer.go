package worker

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/queue"
)

// FileWriterConfig holds configuration for the file writer
type FileWriterConfig struct {
	OutputFile    string        `yaml:"outputFile"`
	Queue         string        `yaml:"queue"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	AppendMode    bool          `yaml:"appendMode"`
}

// FileWriterWorker pops messages from a queue and writes them to a file, one
// per line. The queue's empty message means nothing is pending, so empty
// lines do not survive the trip.
type FileWriterWorker struct {
	config  FileWriterConfig
	queue   queue.QueueService
	logger  logrus.FieldLogger
	written int64
	running atomic.Bool
	file    *os.File
}

// NewFileWriterWorker creates a new file writer worker
func NewFileWriterWorker(q queue.QueueService, config FileWriterConfig, logger logrus.FieldLogger) (*FileWriterWorker, error) {
	if q == nil {
		return nil, errors.New("queue service is required")
	}
	if config.BatchSize <= 0 || config.FlushInterval <= 0 || config.PollInterval <= 0 {
		return nil, errors.New("batch size, flush interval and poll interval must be positive")
	}

	// Open output file
	flags := os.O_CREATE | os.O_WRONLY
	if config.AppendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(config.OutputFile, flags, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open output file")
	}

	return &FileWriterWorker{
		config: config,
		queue:  q,
		logger: logger.WithField("worker", "writer"),
		file:   file,
	}, nil
}

// Start pops from the queue and writes to file until ctx is done
func (w *FileWriterWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	defer w.running.Store(false)

	batch := make([]string, 0, w.config.BatchSize)
	flushTicker := time.NewTicker(w.config.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping writer")
			return w.flushBatch(batch)

		case <-flushTicker.C:
			if err := w.flushBatch(batch); err != nil {
				return errors.Wrap(err, "failed to flush batch")
			}
			batch = batch[:0]

		default:
			msg, err := w.queue.Pop(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.logger.WithError(err).Error("failed to pop from queue")
				w.wait(ctx)
				continue
			}
			if msg == "" {
				w.wait(ctx)
				continue
			}

			batch = append(batch, msg)

			// Flush if batch is full
			if len(batch) >= w.config.BatchSize {
				if err := w.flushBatch(batch); err != nil {
					return errors.Wrap(err, "failed to flush batch")
				}
				batch = batch[:0]
			}
		}
	}
}

func (w *FileWriterWorker) wait(ctx context.Context) {
	timer := time.NewTimer(w.config.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *FileWriterWorker) flushBatch(batch []string) error {
	if len(batch) == 0 {
		return nil
	}

	for _, msg := range batch {
		if _, err := w.file.WriteString(msg + "\n"); err != nil {
			return errors.Wrap(err, "failed to write to file")
		}
		atomic.AddInt64(&w.written, 1)
	}

	// Flush to disk
	if err := w.file.Sync(); err != nil {
		w.logger.WithError(err).Warn("failed to sync file to disk")
	}

	w.logger.WithFields(logrus.Fields{
		"batch_size": len(batch),
		"total":      atomic.LoadInt64(&w.written),
	}).Info("flushed batch to file")

	return nil
}

// GetStats returns worker statistics
func (w *FileWriterWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"written":        atomic.LoadInt64(&w.written),
		"output_file":    w.config.OutputFile,
		"queue":          w.config.Queue,
		"batch_size":     w.config.BatchSize,
		"flush_interval": w.config.FlushInterval.String(),
		"append_mode":    w.config.AppendMode,
		"is_running":     w.running.Load(),
	}
}

// Written returns how many messages reached the file
func (w *FileWriterWorker) Written() int64 {
	return atomic.LoadInt64(&w.written)
}

// Close closes the worker and its resources
func (w *FileWriterWorker) Close() error {
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return w.queue.Close()
}

// IsRunning returns true if the worker is running
func (w *FileWriterWorker) IsRunning() bool {
	return w.running.Load()
}
