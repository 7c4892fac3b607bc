package worker

import (
	"bufio"
	"context"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/queue"
)

// FileReaderConfig holds configuration for the file reader
type FileReaderConfig struct {
	InputFile  string `yaml:"inputFile"`
	Queue      string `yaml:"queue"`
	BatchSize  int    `yaml:"batchSize"`
	BufferSize int    `yaml:"bufferSize"`
}

// FileReaderWorker reads lines from a file and pushes each one to a queue
type FileReaderWorker struct {
	config    FileReaderConfig
	queue     queue.QueueService
	logger    logrus.FieldLogger
	processed int64
	running   atomic.Bool
}

// NewFileReaderWorker creates a new file reader worker
func NewFileReaderWorker(q queue.QueueService, config FileReaderConfig, logger logrus.FieldLogger) (*FileReaderWorker, error) {
	if q == nil {
		return nil, errors.New("queue service is required")
	}
	if config.BatchSize <= 0 {
		return nil, errors.Errorf("invalid batch size %d", config.BatchSize)
	}

	return &FileReaderWorker{
		config: config,
		queue:  q,
		logger: logger.WithField("worker", "reader"),
	}, nil
}

// Start reads the whole file and pushes its lines to the queue
func (w *FileReaderWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	defer w.running.Store(false)

	file, err := os.Open(w.config.InputFile)
	if err != nil {
		return errors.Wrap(err, "failed to open input file")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, w.config.BufferSize)
	scanner.Buffer(buf, w.config.BufferSize)

	batch := make([]string, 0, w.config.BatchSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping reader")
			return ctx.Err()
		default:
		}

		batch = append(batch, scanner.Text())

		// Process batch if full
		if len(batch) >= w.config.BatchSize {
			if err := w.processBatch(ctx, batch); err != nil {
				return errors.Wrap(err, "failed to process batch")
			}
			batch = batch[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanner error")
	}

	// Process remaining lines
	if err := w.processBatch(ctx, batch); err != nil {
		return errors.Wrap(err, "failed to flush final batch")
	}

	w.logger.WithFields(logrus.Fields{
		"processed": atomic.LoadInt64(&w.processed),
		"file":      w.config.InputFile,
		"queue":     w.config.Queue,
	}).Info("file reading completed")

	return nil
}

func (w *FileReaderWorker) processBatch(ctx context.Context, batch []string) error {
	for _, line := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.queue.Push(ctx, line); err != nil {
			return errors.Wrapf(err, "failed to push line %d", atomic.LoadInt64(&w.processed)+1)
		}

		n := atomic.AddInt64(&w.processed, 1)
		w.logger.WithFields(logrus.Fields{
			"line":   n,
			"length": len(line),
		}).Debug("pushed message to queue")
	}
	return nil
}

// GetStats returns worker statistics
func (w *FileReaderWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"processed":   atomic.LoadInt64(&w.processed),
		"input_file":  w.config.InputFile,
		"queue":       w.config.Queue,
		"batch_size":  w.config.BatchSize,
		"buffer_size": w.config.BufferSize,
		"is_running":  w.running.Load(),
	}
}

// Close closes the worker and its resources
func (w *FileReaderWorker) Close() error {
	return w.queue.Close()
}

// IsRunning returns true if the worker is running
func (w *FileReaderWorker) IsRunning() bool {
	return w.running.Load()
}
