package app

import (
	"runtime"

	"github.com/specialistvlad/dwiflow/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Run is validated by App.Run together with the loaded parameters.
	Run config.Run `validate:"-"`
	// ParamsPath is an optional HCL parameter file.
	ParamsPath string
	// Nproc is the thread count handed to tools that accept one.
	Nproc int `validate:"gte=1"`

	LogFormat string `validate:"oneof=auto text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`
}

// NewConfig fills the unset process-level fields and validates them.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Nproc == 0 {
		cfg.Nproc = runtime.NumCPU()
	}
	if cfg.Run.Workers == 0 {
		cfg.Run.Workers = 1
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "auto"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
