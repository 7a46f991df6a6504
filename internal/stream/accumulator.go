// Package stream maintains a bounded, filtered, exportable client-side view
// of a session's event log by polling the backend's paginated endpoint.
// One accumulator owns its buffer and cursor exclusively; all mutation goes
// through the poll loop or the exposed actions.
package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/red-council/chainscope/internal/client"
	"github.com/red-council/chainscope/internal/model"
)

const (
	// DefaultPollInterval is the delay between polls.
	DefaultPollInterval = time.Second

	// PageSize is the maximum number of events requested per poll.
	PageSize = 200

	// MaxEvents caps the rolling buffer; oldest entries are dropped first.
	MaxEvents = 5000

	// StaleAfter downgrades error to disconnected when no successful update
	// has happened for this long. The consumer should show "gave up" rather
	// than "retrying".
	StaleAfter = 30 * time.Second
)

// Status is the accumulator's connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Fetcher is the external fetch capability the accumulator polls.
// client.Client satisfies it.
type Fetcher interface {
	FetchEvents(ctx context.Context, sessionID string, offset, limit int) ([]model.AgentEvent, int, error)
}

// State is a point-in-time view of the accumulator for consumers.
type State struct {
	Status           Status
	Err              string
	TotalCount       int
	NewCount         int
	Cursor           int
	Rate             float64
	Filters          []string
	MaxEventsReached bool
	Paused           bool
}

// Accumulator polls a session's event log into a bounded rolling buffer.
type Accumulator struct {
	fetcher   Fetcher
	sessionID string
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	onEvents  func([]model.AgentEvent)
	static    bool

	mu             sync.Mutex
	events         []model.AgentEvent
	cursor         int
	status         Status
	errMsg         string
	newCount       int
	maxReached     bool
	paused         bool
	filters        filterSet
	rate           rateTracker
	lastProgress   time.Time
	cancelInflight context.CancelFunc
}

// Option configures an Accumulator at creation time.
type Option func(*Accumulator)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(a *Accumulator) { a.interval = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Accumulator) { a.logger = logger }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) { a.now = now }
}

// WithOnEvents registers a callback invoked with each batch of newly
// appended events. Called outside the accumulator's lock.
func WithOnEvents(fn func([]model.AgentEvent)) Option {
	return func(a *Accumulator) { a.onEvents = fn }
}

// New creates an accumulator polling the given session.
func New(fetcher Fetcher, sessionID string, opts ...Option) (*Accumulator, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	a := &Accumulator{
		fetcher:   fetcher,
		sessionID: sessionID,
		interval:  DefaultPollInterval,
		logger:    zap.NewNop(),
		now:       time.Now,
		status:    StatusDisconnected,
		filters:   newFilterSet(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewStatic creates an accumulator seeded with a fixed event list instead of
// a poller: permanently connected, zero rate, same actions. Pause and resume
// are accepted but have no effect on data arrival.
func NewStatic(sessionID string, events []model.AgentEvent, opts ...Option) *Accumulator {
	a := &Accumulator{
		sessionID: sessionID,
		interval:  DefaultPollInterval,
		logger:    zap.NewNop(),
		now:       time.Now,
		status:    StatusConnected,
		filters:   newFilterSet(),
		static:    true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.events = append(a.events, events...)
	if len(a.events) > MaxEvents {
		a.events = a.events[len(a.events)-MaxEvents:]
		a.maxReached = true
	}
	return a
}

// Run drives the poll loop until ctx is cancelled. The first poll fires
// immediately, then once per interval. Static accumulators block idle.
func (a *Accumulator) Run(ctx context.Context) error {
	if a.static {
		<-ctx.Done()
		return nil
	}

	a.mu.Lock()
	a.lastProgress = a.now()
	a.mu.Unlock()

	a.poll(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.abortInflight()
			return nil
		case <-ticker.C:
			a.poll(ctx)
		}
	}
}

// poll performs one fetch tick. Any still-in-flight previous request is
// aborted first, so at most one request is ever outstanding and stale
// responses can never apply out of order.
func (a *Accumulator) poll(ctx context.Context) {
	a.mu.Lock()
	if a.paused {
		a.mu.Unlock()
		return
	}
	if a.cancelInflight != nil {
		a.cancelInflight()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	a.cancelInflight = cancel
	a.status = StatusConnecting
	sessionID, offset := a.sessionID, a.cursor
	a.mu.Unlock()

	events, _, err := a.fetcher.FetchEvents(reqCtx, sessionID, offset, PageSize)
	cancel()

	a.mu.Lock()
	a.cancelInflight = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Superseded or torn down: a no-op, not an error.
			a.mu.Unlock()
			return
		}
		a.errMsg = pollErrorMessage(err)
		if !a.lastProgress.IsZero() && a.now().Sub(a.lastProgress) > StaleAfter {
			a.status = StatusDisconnected
		} else {
			a.status = StatusError
		}
		a.mu.Unlock()
		a.logger.Warn("poll failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	now := a.now()
	a.status = StatusConnected
	a.errMsg = ""
	a.lastProgress = now
	a.cursor += len(events)

	if len(events) > 0 {
		a.events = append(a.events, events...)
		if len(a.events) > MaxEvents {
			a.events = a.events[len(a.events)-MaxEvents:]
			a.maxReached = true
		}
		a.newCount += len(events)
		a.rate.record(now, len(events))
	}
	onEvents := a.onEvents
	a.mu.Unlock()

	if onEvents != nil && len(events) > 0 {
		onEvents(events)
	}
}

// pollErrorMessage maps the poll error taxonomy to user-facing messages:
// HTTP status errors and payload validation failures speak for themselves,
// everything else is a network failure.
func pollErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var valErr *client.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	return "network error: " + err.Error()
}

// abortInflight cancels any pending request without touching state.
func (a *Accumulator) abortInflight() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelInflight != nil {
		a.cancelInflight()
		a.cancelInflight = nil
	}
}

// --- Actions ---

// Pause suspends polling. Accumulated events remain readable.
func (a *Accumulator) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = true
}

// Resume re-enables polling.
func (a *Accumulator) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = false
}

// Clear resets the buffer, cursor, unseen counter, rate tracker, and the
// max-events latch to initial values.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
	a.cursor = 0
	a.newCount = 0
	a.maxReached = false
	a.rate.reset()
}

// MarkAllRead zeroes the unseen-event counter without touching the buffer.
func (a *Accumulator) MarkAllRead() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.newCount = 0
}

// SetFilters replaces the active event-type filters.
func (a *Accumulator) SetFilters(types []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters.set(types)
}

// AddFilter adds one event-type filter.
func (a *Accumulator) AddFilter(t string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters.add(t)
}

// RemoveFilter removes one event-type filter.
func (a *Accumulator) RemoveFilter(t string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters.remove(t)
}

// --- Views ---

// Snapshot returns the current stream state.
func (a *Accumulator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Status:           a.status,
		Err:              a.errMsg,
		TotalCount:       len(a.events),
		NewCount:         a.newCount,
		Cursor:           a.cursor,
		Rate:             a.rate.rate(a.now()),
		Filters:          a.filters.snapshot(),
		MaxEventsReached: a.maxReached,
		Paused:           a.paused,
	}
}

// Events returns a copy of the full buffer.
func (a *Accumulator) Events() []model.AgentEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AgentEvent, len(a.events))
	copy(out, a.events)
	return out
}

// Allowed reports whether an event type passes the active filters.
func (a *Accumulator) Allowed(eventType string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filters.allows(eventType)
}

// FilteredEvents returns the events passing the active filters, recomputed
// on every call.
func (a *Accumulator) FilteredEvents() []model.AgentEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AgentEvent, 0, len(a.events))
	for _, ev := range a.events {
		if a.filters.allows(string(ev.EventType)) {
			out = append(out, ev)
		}
	}
	return out
}
