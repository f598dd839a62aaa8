package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CBState is the position of a CircuitBreaker. Once OpenTimeout has passed,
// an open breaker lets a single trial call through (half-open). That call
// decides whether the breaker closes again or stays open for another period.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

var cbStateNames = map[CBState]string{
	CBClosed:   "closed",
	CBOpen:     "open",
	CBHalfOpen: "half-open",
}

func (s CBState) String() string {
	if name, ok := cbStateNames[s]; ok {
		return name
	}
	return "unknown"
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int // failures in a row that open the breaker
	SuccessThreshold int // half-open successes in a row that close it
	OpenTimeout      time.Duration
}

// DefaultCBConfig is tuned for the object store: a bucket that fails five
// uploads in a row is left alone for 30s.
func DefaultCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: 30 * time.Second}
}

type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    CBState
	streak   int // failures while closed, successes while half-open
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig(cfg.Name)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	return cb.state
}

// expireOpen moves open → half-open when the cool-down is over. Caller holds mu.
func (cb *CircuitBreaker) expireOpen() {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.moveTo(CBHalfOpen)
	}
}

// Execute calls fn unless the breaker is open or a half-open trial is already
// in flight; in both cases it returns ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	switch cb.state {
	case CBOpen:
		return false
	case CBHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == CBHalfOpen
	if wasProbe {
		cb.probing = false
	}

	if err != nil {
		if wasProbe {
			cb.moveTo(CBOpen)
			return
		}
		cb.streak++
		if cb.state == CBClosed && cb.streak >= cb.cfg.FailureThreshold {
			cb.moveTo(CBOpen)
		}
		return
	}

	switch cb.state {
	case CBClosed:
		cb.streak = 0
	case CBHalfOpen:
		cb.streak++
		if cb.streak >= cb.cfg.SuccessThreshold {
			cb.moveTo(CBClosed)
		}
	}
}

// moveTo resets the streak on every transition. Caller holds mu.
func (cb *CircuitBreaker) moveTo(s CBState) {
	if s == CBOpen {
		cb.openedAt = cb.now()
	}
	cb.streak = 0
	if cb.state == s {
		return
	}
	log.Warn().
		Str("breaker", cb.cfg.Name).
		Stringer("from", cb.state).
		Stringer("to", s).
		Msg("circuit breaker state change")
	cb.state = s
}
