package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/earthlord.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Territory capture tuning.
	ClosureToleranceM float64 `env:"CLOSURE_TOLERANCE_M" envDefault:"30"`
	MinTrackPoints    int     `env:"MIN_TRACK_POINTS" envDefault:"4"`

	// Upgrade schedule. The catalog carries base construction costs only;
	// per-level upgrade cost and duration scale by these factors.
	UpgradeCostFactor float64 `env:"UPGRADE_COST_FACTOR" envDefault:"1.5"`
	UpgradeTimeFactor float64 `env:"UPGRADE_TIME_FACTOR" envDefault:"1.5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.ClosureToleranceM <= 0 {
		return nil, fmt.Errorf("CLOSURE_TOLERANCE_M must be positive")
	}
	if cfg.MinTrackPoints < 4 {
		cfg.MinTrackPoints = 4
	}
	if cfg.UpgradeCostFactor < 1 || cfg.UpgradeTimeFactor < 1 {
		return nil, fmt.Errorf("upgrade factors must be at least 1")
	}
	return &cfg, nil
}
