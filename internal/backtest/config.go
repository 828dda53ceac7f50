// Package backtest implements the walk-forward engine: repeated train/test
// evaluations of a trading rule stitched into one continuous out-of-sample
// performance record.
package backtest

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/yourusername/trendlab/internal/config"
)

// Custom errors
var (
	// ErrInvalidWindow indicates a non-positive window or one larger than the
	// available price history. Surfaced before any window executes.
	ErrInvalidWindow = errors.New("invalid walk-forward window configuration")

	// ErrInvalidPrices indicates a price series with non-positive or
	// non-finite entries.
	ErrInvalidPrices = errors.New("price series contains non-positive or non-finite values")
)

// Config holds the walk-forward run parameters.
type Config struct {
	TrainWindow     int
	TestWindow      int
	Capital         float64
	TransactionCost float64
	MaxParallel     int
}

// FromConfig converts app config to a walk-forward config.
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backtest config is required")
	}
	bt := Config{
		TrainWindow:     cfg.TrainWindow,
		TestWindow:      cfg.TestWindow,
		Capital:         cfg.Capital,
		TransactionCost: cfg.TransactionCost,
		MaxParallel:     cfg.MaxParallel,
	}
	return bt, bt.Validate()
}

// Validate checks parameters that do not depend on the price history length.
func (c Config) Validate() error {
	if c.TrainWindow <= 0 || c.TestWindow <= 0 {
		return fmt.Errorf("%w: train=%d test=%d", ErrInvalidWindow, c.TrainWindow, c.TestWindow)
	}
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive, got %v", c.Capital)
	}
	if c.TransactionCost < 0 {
		return fmt.Errorf("transaction cost cannot be negative, got %v", c.TransactionCost)
	}
	return nil
}

// ValidateFor additionally rejects windows larger than the full history.
func (c Config) ValidateFor(historyLen int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TrainWindow > historyLen || c.TestWindow > historyLen {
		return fmt.Errorf("%w: train=%d test=%d exceed history of %d", ErrInvalidWindow, c.TrainWindow, c.TestWindow, historyLen)
	}
	return nil
}

func (c Config) parallelism() int {
	if c.MaxParallel > 0 {
		return c.MaxParallel
	}
	return runtime.GOMAXPROCS(0)
}
