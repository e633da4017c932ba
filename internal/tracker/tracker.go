// Package tracker polls the ISS position on a fixed interval.
//
// The tracker is the only poller: one loop, one fetch in flight at a time.
// A tick that arrives while the previous fetch is still running is skipped.
// Every accepted position is handed to the configured sinks (database log,
// message bus) and broadcast to subscribers.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/metrics"

	"github.com/rs/zerolog"
)

// Status of the tracker
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// DefaultInterval is the poll interval when none is configured
const DefaultInterval = 5 * time.Second

// AllowedIntervals are the selectable poll intervals
var AllowedIntervals = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}

// ErrInvalidInterval is returned for intervals outside AllowedIntervals
var ErrInvalidInterval = errors.New("interval not allowed")

// ValidInterval reports whether d is one of AllowedIntervals
func ValidInterval(d time.Duration) bool {
	return slices.Contains(AllowedIntervals, d)
}

// Snapshot is the externally visible tracker state
type Snapshot struct {
	Status     Status              `json:"status"`
	Position   *domain.ISSPosition `json:"position,omitempty"`
	Error      string              `json:"error,omitempty"`
	IntervalMs int64               `json:"interval_ms"`
	Follow     bool                `json:"follow"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Interval returns the poll interval
func (s Snapshot) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// Fetcher fetches the current position and its raw payload
type Fetcher interface {
	FetchPosition(ctx context.Context) (*domain.ISSPosition, []byte, error)
}

// Sink receives every accepted position
type Sink interface {
	Accept(ctx context.Context, pos domain.ISSPosition, raw []byte) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, pos domain.ISSPosition, raw []byte) error

// Accept calls f
func (f SinkFunc) Accept(ctx context.Context, pos domain.ISSPosition, raw []byte) error {
	return f(ctx, pos, raw)
}

// Option configures a Tracker
type Option func(*Tracker)

// WithSink adds a sink
func WithSink(name string, s Sink) Option {
	return func(t *Tracker) {
		t.sinks = append(t.sinks, namedSink{name: name, Sink: s})
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

type namedSink struct {
	name string
	Sink
}

// Tracker owns the ISS poll loop and its state
type Tracker struct {
	fetcher Fetcher
	sinks   []namedSink
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int

	reset    chan time.Duration
	inflight atomic.Bool
	polls    sync.WaitGroup
}

// New creates a tracker polling every interval
func New(f Fetcher, interval time.Duration, opts ...Option) (*Tracker, error) {
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	t := &Tracker{
		fetcher: f,
		now:     time.Now,
		log:     logging.With("iss-tracker"),
		subs:    make(map[int]chan Snapshot),
		reset:   make(chan time.Duration, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.snap = Snapshot{Status: StatusLoading, IntervalMs: interval.Milliseconds()}
	return t, nil
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// SetInterval changes the poll interval; the next tick comes d after the call
func (t *Tracker) SetInterval(d time.Duration) (Snapshot, error) {
	if !ValidInterval(d) {
		return t.Snapshot(), fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}

	snap := t.update(func(s *Snapshot) {
		s.IntervalMs = d.Milliseconds()
	})

	// keep only the newest pending reset
	select {
	case <-t.reset:
	default:
	}
	t.reset <- d
	return snap, nil
}

// SetFollow toggles whether views recenter on every update
func (t *Tracker) SetFollow(follow bool) Snapshot {
	return t.update(func(s *Snapshot) {
		s.Follow = follow
	})
}

// Subscribe returns a channel receiving every state change. Slow receivers
// only see the latest state. Call cancel to unsubscribe.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- t.snap
	t.subs[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
	}
}

// Serve runs the poll loop until ctx is done. The first poll starts immediately.
func (t *Tracker) Serve(ctx context.Context) error {
	t.log.Info().Dur("interval", t.Snapshot().Interval()).Msg("Starting ISS tracker")

	timer := time.NewTimer(0)
	defer func() {
		timer.Stop()
		t.polls.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("Stopping ISS tracker")
			return ctx.Err()
		case d := <-t.reset:
			timer.Reset(d)
		case <-timer.C:
			timer.Reset(t.Snapshot().Interval())
			t.tick(ctx)
		}
	}
}

func (t *Tracker) tick(ctx context.Context) {
	if !t.inflight.CompareAndSwap(false, true) {
		metrics.IssPollSkippedTotal.Inc()
		t.log.Debug().Msg("Previous poll still running, skipping tick")
		return
	}

	t.polls.Add(1)
	go func() {
		defer t.polls.Done()
		defer t.inflight.Store(false)
		t.Poll(ctx)
	}()
}

// Poll fetches once and applies the result. Results arriving after ctx is
// done are dropped.
func (t *Tracker) Poll(ctx context.Context) {
	pos, raw, err := t.fetcher.FetchPosition(ctx)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		metrics.IssPollsTotal.WithLabelValues("error").Inc()
		t.log.Warn().Err(err).Msg("ISS position fetch failed")
		t.update(func(s *Snapshot) {
			s.Status = StatusError
			s.Error = err.Error()
		})
		return
	}

	metrics.IssPollsTotal.WithLabelValues("ok").Inc()
	accepted := *pos
	t.update(func(s *Snapshot) {
		s.Status = StatusReady
		s.Position = &accepted
		s.Error = ""
	})

	for _, sink := range t.sinks {
		if err := sink.Accept(ctx, accepted, raw); err != nil {
			t.log.Warn().Err(err).Str("sink", sink.name).Msg("ISS sink failed")
		}
	}
}

func (t *Tracker) update(fn func(*Snapshot)) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(&t.snap)
	t.snap.UpdatedAt = t.now().UTC()
	snap := t.snap

	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

// String names the service for the supervisor
func (t *Tracker) String() string {
	return "iss-tracker"
}
