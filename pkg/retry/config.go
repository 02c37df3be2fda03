package retry

import (
	"fmt"
	"time"
)

// Backoff - стратегия задержки между попытками
type Backoff string

const (
	BackoffConstant    Backoff = "constant"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// Config - параметры повторов. Нулевое значение означает одну попытку без повторов.
type Config struct {
	// MaxAttempts - число попыток, включая первую (0 и 1 = без повторов)
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	Backoff    Backoff `yaml:"backoff"`    // по умолчанию exponential
	Multiplier float64 `yaml:"multiplier"` // для exponential, по умолчанию 2.0

	// Jitter - доля случайного разброса задержки (0.0 - 1.0)
	Jitter float64 `yaml:"jitter"`

	// OnRetry вызывается перед каждой повторной попыткой
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DefaultConfig возвращает 3 попытки с экспоненциальной задержкой от 100ms
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Backoff:      BackoffExponential,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Validate проверяет конфигурацию и заполняет значения по умолчанию
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}

	if c.Backoff == "" {
		c.Backoff = BackoffExponential
	}
	switch c.Backoff {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.Backoff)
	}

	if c.MaxDelay == 0 {
		c.MaxDelay = c.InitialDelay
		if c.Backoff != BackoffConstant {
			c.MaxDelay = 30 * time.Second
		}
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}
