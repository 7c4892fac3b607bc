package server

import (
	"time"

	"github.com/pkg/errors"
)

// Config holds the listener and per-connection settings.
type Config struct {
	ListenAddr     string        `yaml:"listenAddr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	MaxRequestSize int           `yaml:"maxRequestSize"`
	MaxConnections int64         `yaml:"maxConnections"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:     "0.0.0.0:8080",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxRequestSize: 1 << 20,
		MaxConnections: 1024,
	}
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address must be set")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.MaxConnections <= 0 {
		return errors.Errorf("max connections must be positive, got %d", c.MaxConnections)
	}
	return nil
}
