package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/client"
	"github.com/m7moud/queue-broker/internal/config"
	"github.com/m7moud/queue-broker/internal/logging"
	"github.com/m7moud/queue-broker/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}
	logger.Info("Starting reader/writer system...")

	queueAddr := cfg.Server.ListenAddr
	qc := client.NewQueueClient(queueAddr)

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readerQueue := qc.Bind(cfg.ReaderConfig.Queue)
	if err := readerQueue.Ensure(ctx); err != nil {
		logger.WithError(err).WithField("queue", readerQueue.Name()).Fatal("Failed to create queue")
	}
	writerQueue := qc.Bind(cfg.WriterConfig.Queue)
	if err := writerQueue.Ensure(ctx); err != nil {
		logger.WithError(err).WithField("queue", writerQueue.Name()).Fatal("Failed to create queue")
	}

	// Create workers
	reader, err := worker.NewFileReaderWorker(readerQueue, cfg.ReaderConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create reader worker")
	}
	defer reader.Close()

	writer, err := worker.NewFileWriterWorker(writerQueue, cfg.WriterConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create writer worker")
	}
	defer writer.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := reader.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "reader worker error")
		}

		return nil
	})

	g.Go(func() error {
		err := writer.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "writer worker error")
		}

		return nil
	})

	// Wait for signal or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received signal, shutting down...")
		cancel()
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down workers...")
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Worker failed, shutting down...")
		cancel()
	} else {
		logger.Info("All workers completed successfully.")
	}

	logger.Info("System shutting down")
}
