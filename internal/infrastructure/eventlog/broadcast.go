package eventlog

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"go.uber.org/zap"
)

const defaultRecent = 100

// ProjectQuerier is a store that can read back the records of one project
type ProjectQuerier interface {
	Recent(ctx context.Context, projectID string, limit int) ([]types.Event, error)
}

// Broadcaster forwards records to a store and publishes them to subscribers.
// Writes go through an optional breaker so a failing store is not retried
// for every record.
type Broadcaster struct {
	store   Store
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	subs   map[int]chan types.Event
	nextID int
	recent []types.Event
	head   int
	filled bool
}

// NewBroadcaster wraps store
func NewBroadcaster(store Store, logger *zap.Logger, metrics *monitoring.Metrics) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		store:   store,
		logger:  logger,
		metrics: metrics,
		subs:    make(map[int]chan types.Event),
		recent:  make([]types.Event, defaultRecent),
	}
}

// WithBreaker guards store writes with breaker
func (b *Broadcaster) WithBreaker(breaker *resilience.Breaker) *Broadcaster {
	b.breaker = breaker
	return b
}

// LogEvent writes ev to the store, then publishes it
func (b *Broadcaster) LogEvent(ctx context.Context, ev types.Event) error {
	ev = prepare(ev)
	if err := b.write(ctx, ev); err != nil {
		return err
	}
	b.metrics.RecordEventWritten(b.store.Name(), string(ev.Kind))

	b.mu.Lock()
	b.recent[b.head] = ev
	b.head = (b.head + 1) % len(b.recent)
	if b.head == 0 {
		b.filled = true
	}
	for sid, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("subscriber slow, dropping event", zap.Int("subscriber", sid))
		}
	}
	b.mu.Unlock()
	return nil
}

func (b *Broadcaster) write(ctx context.Context, ev types.Event) error {
	if b.breaker == nil {
		return b.store.LogEvent(ctx, ev)
	}
	err := b.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return b.store.LogEvent(ctx, ev)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		b.metrics.RecordEventRejected(b.store.Name())
	}
	return err
}

// Subscribe returns a channel of new records and a cancel function
func (b *Broadcaster) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan types.Event, buffer)

	b.mu.Lock()
	sid := b.nextID
	b.nextID++
	b.subs[sid] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[sid]; ok {
				delete(b.subs, sid)
				close(ch)
			}
		})
	}
}

// Recent returns up to n most recent records, oldest first
func (b *Broadcaster) Recent(n int) []types.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ordered []types.Event
	if b.filled {
		ordered = append(ordered, b.recent[b.head:]...)
	}
	ordered = append(ordered, b.recent[:b.head]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// RecentForProject returns up to n records of one project, oldest first.
// Stores that can query by project are asked directly; otherwise the
// in-memory ring is filtered.
func (b *Broadcaster) RecentForProject(ctx context.Context, projectID string, n int) ([]types.Event, error) {
	if q, ok := b.store.(ProjectQuerier); ok {
		events, err := q.Recent(ctx, projectID, n)
		if err != nil {
			return nil, err
		}
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
		return events, nil
	}

	var out []types.Event
	for _, ev := range b.Recent(0) {
		if ev.ProjectID == projectID {
			out = append(out, ev)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// Name implements Store
func (b *Broadcaster) Name() string { return b.store.Name() }

// Close closes subscriber channels and the store
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	for sid, ch := range b.subs {
		delete(b.subs, sid)
		close(ch)
	}
	b.mu.Unlock()
	return b.store.Close()
}
