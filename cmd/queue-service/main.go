package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/m7moud/queue-broker/internal/config"
	"github.com/m7moud/queue-broker/internal/logging"
	"github.com/m7moud/queue-broker/internal/metrics"
	"github.com/m7moud/queue-broker/internal/server"
)

func main() {
	fs := pflag.NewFlagSet("queue-service", pflag.ExitOnError)
	configFile := fs.String("config", os.Getenv("QUEUE_CONFIG"), "path to a YAML config file")
	addr := fs.String("addr", "", "address the broker listens on (overrides QUEUE_ADDR)")
	metricsAddr := fs.String("metrics-addr", "", "address of the metrics endpoint (overrides METRICS_ADDR)")
	logLevel := fs.String("log-level", "", "log level (overrides LOG_LEVEL)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if fs.Changed("addr") {
		cfg.Server.ListenAddr = *addr
	} else if fs.NArg() > 0 {
		cfg.Server.ListenAddr = fs.Arg(0)
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = *metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Queue service failed")
	}
	logger.Info("Queue service shut down")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	qs := server.NewQueueServer(cfg.Server, logger)
	g.Go(func() error {
		return errors.Wrap(qs.Start(ctx), "queue server")
	})

	if cfg.MetricsAddr != "" {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.WithField("address", cfg.MetricsAddr).Info("Metrics endpoint listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
