package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TaskfilePaths []string // .hcl files or directories
	// Targets are the base keys to run. Empty means every declared task.
	Targets []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Concurrency     int

	Force      bool
	AllowDirty bool

	DashboardURL string
	TraceFile    string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.TaskfilePaths) == 0 {
		return nil, errors.New("at least one taskfile path is required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid health check port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
