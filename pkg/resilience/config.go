package resilience

import (
	"fmt"
	"time"
)

// Config - конфигурация Circuit Breaker
type Config struct {
	// Name - имя для логов
	Name string `yaml:"name,omitempty"`

	// MaxFailures - количество последовательных ошибок для открытия
	MaxFailures uint32 `yaml:"max_failures"`

	// Timeout - время в Open перед переходом в Half-Open
	Timeout time.Duration `yaml:"timeout"`

	// SuccessThreshold - успешных вызовов в Half-Open для закрытия (по умолчанию 1)
	SuccessThreshold uint32 `yaml:"success_threshold,omitempty"`

	// OnStateChange вызывается синхронно после смены состояния
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Validate - валидация конфигурации
func (c *Config) Validate() error {
	if c.MaxFailures == 0 {
		return fmt.Errorf("max_failures must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	if c.Name == "" {
		c.Name = "circuit-breaker"
	}
	return nil
}

// DefaultConfig - 5 ошибок подряд открывают circuit на 30 секунд
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 1,
	}
}
