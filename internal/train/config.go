package train

import (
	"fmt"
	"log/slog"
)

// Config controls a Trainer.
//
// Zero values are replaced by the defaults of DefaultConfig, except Shuffle
// which is taken as given.
type Config struct {
	Epochs    int          // Passes over the dataset in Fit (default: 1)
	BatchSize int          // Samples per optimizer update (default: 1)
	Workers   int          // Goroutines running per-sample forward passes (default: 1, sequential)
	Shuffle   bool         // Shuffle samples every epoch
	Seed      int64        // Seed of the shuffling source (default: 1)
	LogEvery  int          // Log every n-th epoch; negative disables epoch logs (default: 1)
	Logger    *slog.Logger // Destination of progress logs (default: slog.Default())
}

// DefaultConfig returns a sequential single-epoch configuration.
func DefaultConfig() Config {
	return Config{
		Epochs:    1,
		BatchSize: 1,
		Workers:   1,
		Shuffle:   true,
		Seed:      1,
		LogEvery:  1,
		Logger:    slog.Default(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Epochs == 0 {
		c.Epochs = def.Epochs
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.LogEvery == 0 {
		c.LogEvery = def.LogEvery
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return c
}

// Validate reports configuration values that can never work.
func (c Config) Validate() error {
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be positive, got %d: %w", c.Epochs, ErrInvalidConfig)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d: %w", c.Workers, ErrInvalidConfig)
	}
	return nil
}
