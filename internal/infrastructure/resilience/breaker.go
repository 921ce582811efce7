package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures uint32
	// Timeout is how long the breaker stays open before letting a probe through
	Timeout time.Duration
	// Probes is the number of successful half-open probes that close the breaker
	Probes uint32
	// IsSuccessful classifies a request error; nil errors are always successes
	IsSuccessful func(err error) bool
	// OnStateChange is called with the lock released whenever the state changes
	OnStateChange func(name string, from State, to State)
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// Counts are the statistics of the current state
type Counts struct {
	Requests             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
	Rejected             uint32
}

// Breaker opens after MaxFailures consecutive failures, rejects requests
// for Timeout and then lets probes through one at a time.
//
// Every state change starts a new generation. A request is only counted
// against the generation that accepted it.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	openedAt   time.Time
	probing    bool
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		}
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	state, change := b.refresh()
	b.mu.Unlock()

	b.notify(change)
	return state
}

// Counts returns a copy of the counts of the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs req if the breaker accepts it.
// A panic in req counts as a failure and is re-raised.
func (b *Breaker) Execute(req func() error) error {
	gen, err := b.acquire()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.release(gen, false)
			panic(e)
		}
	}()

	err = req()
	b.release(gen, err == nil || b.settings.IsSuccessful(err))
	return err
}

// ExecuteContext runs req unless ctx is already done or the breaker rejects it
func (b *Breaker) ExecuteContext(ctx context.Context, req func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Execute(func() error {
		return req(ctx)
	})
}

type transition struct {
	from, to State
}

func (b *Breaker) acquire() (uint64, error) {
	b.mu.Lock()
	state, change := b.refresh()
	gen := b.generation

	var err error
	switch {
	case state == StateOpen:
		b.counts.Rejected++
		err = ErrCircuitOpen
	case state == StateHalfOpen && b.probing:
		b.counts.Rejected++
		err = ErrTooManyRequests
	default:
		b.counts.Requests++
		b.probing = state == StateHalfOpen
	}
	b.mu.Unlock()

	b.notify(change)
	return gen, err
}

func (b *Breaker) release(gen uint64, success bool) {
	b.mu.Lock()
	_, expired := b.refresh()
	if gen != b.generation {
		b.mu.Unlock()
		b.notify(expired)
		return
	}

	var change *transition
	switch b.state {
	case StateClosed:
		if success {
			b.counts.ConsecutiveSuccesses++
			b.counts.ConsecutiveFailures = 0
		} else {
			b.counts.ConsecutiveFailures++
			b.counts.ConsecutiveSuccesses = 0
			if b.counts.ConsecutiveFailures >= b.settings.MaxFailures {
				change = b.setState(StateOpen)
			}
		}
	case StateHalfOpen:
		b.probing = false
		if !success {
			change = b.setState(StateOpen)
			break
		}
		b.counts.ConsecutiveSuccesses++
		if b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			change = b.setState(StateClosed)
		}
	}
	b.mu.Unlock()

	b.notify(change)
}

// refresh moves an expired open breaker to half-open
func (b *Breaker) refresh() (State, *transition) {
	if b.state == StateOpen && !b.settings.Now().Before(b.openedAt.Add(b.settings.Timeout)) {
		return StateHalfOpen, b.setState(StateHalfOpen)
	}
	return b.state, nil
}

func (b *Breaker) setState(to State) *transition {
	from := b.state
	b.state = to
	b.generation++
	b.counts = Counts{}
	b.probing = false
	if to == StateOpen {
		b.openedAt = b.settings.Now()
	}
	return &transition{from: from, to: to}
}

func (b *Breaker) notify(change *transition) {
	if change != nil && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, change.from, change.to)
	}
}
