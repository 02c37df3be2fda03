// Package resilience защищает вызовы внешних систем от каскадных сбоев.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen - circuit breaker открыт, вызов не выполнялся
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyProbes - в Half-Open уже выполняются SuccessThreshold пробных
// вызовов. errors.Is(err, ErrCircuitOpen) для нее тоже true.
var ErrTooManyProbes = fmt.Errorf("%w: half-open probe limit reached", ErrCircuitOpen)

// State - состояние Circuit Breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// CircuitBreaker размыкается после MaxFailures ошибок подряд. Через Timeout
// переходит в Half-Open и пропускает не больше SuccessThreshold пробных
// вызовов одновременно: SuccessThreshold успехов закрывают его, первая ошибка
// снова открывает. Результаты вызовов, начатых до смены состояния, не учитываются.
type CircuitBreaker struct {
	mu         sync.Mutex
	config     Config
	state      State
	generation uint64
	failures   uint32
	successes  uint32
	probes     uint32 // незавершенные вызовы, пропущенные в Half-Open
	openedAt   time.Time
	now        func() time.Time
}

// New - создать новый Circuit Breaker
func New(config Config) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return &CircuitBreaker{config: config, now: time.Now}, nil
}

// Execute выполняет fn, если circuit не открыт
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	gen, err := cb.before()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.after(gen, err == nil)
	return err
}

// State - текущее состояние (Open с истекшим таймаутом отображается как Half-Open)
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.expired() {
		return StateHalfOpen
	}
	return cb.state
}

// Name возвращает имя из конфигурации
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Reset закрывает circuit и сбрасывает счетчики
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	changed := cb.setState(StateClosed)
	if !changed {
		cb.generation++
		cb.failures, cb.successes, cb.probes = 0, 0, 0
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(from, StateClosed)
	}
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()

	from := cb.state
	changed := false
	if cb.state == StateOpen {
		if !cb.expired() {
			cb.mu.Unlock()
			return 0, ErrCircuitOpen
		}
		changed = cb.setState(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= cb.config.SuccessThreshold {
			cb.mu.Unlock()
			return 0, ErrTooManyProbes
		}
		cb.probes++
	}
	gen := cb.generation
	cb.mu.Unlock()

	if changed {
		cb.notify(from, StateHalfOpen)
	}
	return gen, nil
}

func (cb *CircuitBreaker) after(gen uint64, success bool) {
	cb.mu.Lock()
	if gen != cb.generation {
		cb.mu.Unlock()
		return
	}

	from := cb.state
	to := from
	if from == StateHalfOpen {
		cb.probes--
	}

	if success {
		cb.failures = 0
		cb.successes++
		if from == StateHalfOpen && cb.successes >= cb.config.SuccessThreshold {
			to = StateClosed
		}
	} else {
		cb.successes = 0
		cb.failures++
		if from == StateHalfOpen || (from == StateClosed && cb.failures >= cb.config.MaxFailures) {
			to = StateOpen
		}
	}

	changed := cb.setState(to)
	cb.mu.Unlock()

	if changed {
		cb.notify(from, to)
	}
}

// setState вызывается под cb.mu; новое состояние начинает новое поколение
func (cb *CircuitBreaker) setState(to State) bool {
	if cb.state == to {
		return false
	}

	cb.state = to
	cb.generation++
	cb.failures, cb.successes, cb.probes = 0, 0, 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	return true
}

// notify вызывает OnStateChange без удержания блокировки
func (cb *CircuitBreaker) notify(from, to State) {
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// expired вызывается под cb.mu
func (cb *CircuitBreaker) expired() bool {
	return cb.now().Sub(cb.openedAt) >= cb.config.Timeout
}
