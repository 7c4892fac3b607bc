package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/m7moud/queue-broker/internal/logging"
	"github.com/m7moud/queue-broker/internal/server"
	"github.com/m7moud/queue-broker/internal/worker"
)

// Config holds the application configuration
type Config struct {
	Server       server.Config           `yaml:"server"`
	MetricsAddr  string                  `yaml:"metricsAddr"`
	Log          logging.Config          `yaml:"log"`
	ReaderConfig worker.FileReaderConfig `yaml:"reader"`
	WriterConfig worker.FileWriterConfig `yaml:"writer"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server:      server.DefaultConfig(),
		MetricsAddr: ":9090",
		Log:         logging.DefaultConfig(),
		ReaderConfig: worker.FileReaderConfig{
			InputFile:  "input.txt",
			Queue:      "lines",
			BatchSize:  100,
			BufferSize: 65536,
		},
		WriterConfig: worker.FileWriterConfig{
			OutputFile:    "output.txt",
			Queue:         "lines",
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
			PollInterval:  100 * time.Millisecond,
		},
	}
}

// Load reads the optional YAML file at path over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("QUEUE_CONFIG"))
}

// LoadReaderConfig loads configuration for reader only
func LoadReaderConfig() (*worker.FileReaderConfig, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return &cfg.ReaderConfig, nil
}

// LoadWriterConfig loads configuration for writer only
func LoadWriterConfig() (*worker.FileWriterConfig, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return &cfg.WriterConfig, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return errors.Wrap(err, "server")
	}
	if c.ReaderConfig.BatchSize <= 0 || c.WriterConfig.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if c.ReaderConfig.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	if c.WriterConfig.FlushInterval <= 0 || c.WriterConfig.PollInterval <= 0 {
		return errors.New("flush and poll intervals must be positive")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.ListenAddr = getEnv("QUEUE_ADDR", c.Server.ListenAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.ReaderConfig.InputFile = getEnv("INPUT_FILE", c.ReaderConfig.InputFile)
	c.WriterConfig.OutputFile = getEnv("OUTPUT_FILE", c.WriterConfig.OutputFile)
	c.WriterConfig.AppendMode = getEnvBool("APPEND_MODE", c.WriterConfig.AppendMode)

	if name := os.Getenv("QUEUE_NAME"); name != "" {
		c.ReaderConfig.Queue = name
		c.WriterConfig.Queue = name
	}

	var err error
	if c.Server.ReadTimeout, err = getEnvDuration("READ_TIMEOUT", c.Server.ReadTimeout); err != nil {
		return err
	}
	if c.Server.WriteTimeout, err = getEnvDuration("WRITE_TIMEOUT", c.Server.WriteTimeout); err != nil {
		return err
	}
	if c.Server.MaxRequestSize, err = getEnvInt("MAX_REQUEST_SIZE", c.Server.MaxRequestSize); err != nil {
		return err
	}
	maxConns, err := getEnvInt("MAX_CONNECTIONS", int(c.Server.MaxConnections))
	if err != nil {
		return err
	}
	c.Server.MaxConnections = int64(maxConns)

	batchSize, err := getEnvInt("BATCH_SIZE", c.ReaderConfig.BatchSize)
	if err != nil {
		return err
	}
	c.ReaderConfig.BatchSize = batchSize
	if os.Getenv("BATCH_SIZE") != "" {
		c.WriterConfig.BatchSize = batchSize
	}
	if c.ReaderConfig.BufferSize, err = getEnvInt("BUFFER_SIZE", c.ReaderConfig.BufferSize); err != nil {
		return err
	}
	if c.WriterConfig.FlushInterval, err = getEnvDuration("FLUSH_INTERVAL", c.WriterConfig.FlushInterval); err != nil {
		return err
	}
	if c.WriterConfig.PollInterval, err = getEnvDuration("POLL_INTERVAL", c.WriterConfig.PollInterval); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}
