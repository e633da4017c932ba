package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasa-explorer/internal/domain"
)

type result struct {
	pos *domain.ISSPosition
	err error
}

type fakeFetcher struct {
	mu      sync.Mutex
	results []result
	calls   atomic.Int32
	block   chan struct{}
}

func (f *fakeFetcher) FetchPosition(ctx context.Context) (*domain.ISSPosition, []byte, error) {
	n := int(f.calls.Add(1))
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[min(n, len(f.results))-1]
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.pos, []byte(`{"raw":true}`), nil
}

func at(lat, lon float64) result {
	return result{pos: &domain.ISSPosition{Latitude: lat, Longitude: lon, Timestamp: 1700000000}}
}

func newTracker(t *testing.T, f Fetcher, opts ...Option) *Tracker {
	t.Helper()
	tr, err := New(f, DefaultInterval, opts...)
	require.NoError(t, err)
	return tr
}

func TestNewRejectsInterval(t *testing.T) {
	_, err := New(&fakeFetcher{}, 3*time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestInitialSnapshotIsLoading(t *testing.T) {
	s := newTracker(t, &fakeFetcher{}).Snapshot()
	assert.Equal(t, StatusLoading, s.Status)
	assert.Nil(t, s.Position)
	assert.Equal(t, int64(5000), s.IntervalMs)
}

func TestPollKeepsOnlyLatestPosition(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 1), at(2, 2), at(51.50735, -0.12776)}}
	tr := newTracker(t, f)

	for i := 0; i < 3; i++ {
		tr.Poll(context.Background())
	}

	s := tr.Snapshot()
	assert.Equal(t, StatusReady, s.Status)
	require.NotNil(t, s.Position)
	assert.Equal(t, 51.50735, s.Position.Latitude)
	assert.Equal(t, -0.12776, s.Position.Longitude)
	assert.Empty(t, s.Error)
}

func TestFailureKeepsLastPosition(t *testing.T) {
	f := &fakeFetcher{results: []result{at(10, 20), {err: errors.New("iss: HTTP 503")}, at(11, 21)}}
	tr := newTracker(t, f)

	tr.Poll(context.Background())
	tr.Poll(context.Background())

	s := tr.Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.Error, "503")
	require.NotNil(t, s.Position)
	assert.Equal(t, 10.0, s.Position.Latitude)

	tr.Poll(context.Background())
	s = tr.Snapshot()
	assert.Equal(t, StatusReady, s.Status)
	assert.Empty(t, s.Error)
	assert.Equal(t, 11.0, s.Position.Latitude)
}

func TestCancelledPollDoesNotUpdate(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 2)}, block: make(chan struct{})}
	tr := newTracker(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Poll(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, StatusLoading, tr.Snapshot().Status)
}

func TestTickSkipsWhileInFlight(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 2)}, block: make(chan struct{})}
	tr := newTracker(t, f)

	tr.tick(context.Background())
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	tr.tick(context.Background())
	tr.tick(context.Background())

	close(f.block)
	tr.polls.Wait()
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, StatusReady, tr.Snapshot().Status)

	tr.tick(context.Background())
	tr.polls.Wait()
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestServePollsImmediatelyAndStops(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 2)}}
	tr, err := New(f, 10*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx) }()

	require.Eventually(t, func() bool { return tr.Snapshot().Status == StatusReady }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestSetIntervalRestartsTimer(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 2)}}
	tr, err := New(f, 10*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Serve(ctx) }()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s, err := tr.SetInterval(time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), s.IntervalMs)

	require.Eventually(t, func() bool { return f.calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestSetIntervalRejectsUnknown(t *testing.T) {
	tr := newTracker(t, &fakeFetcher{})
	_, err := tr.SetInterval(1500 * time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, DefaultInterval, tr.Snapshot().Interval())
}

func TestSetFollow(t *testing.T) {
	tr := newTracker(t, &fakeFetcher{})
	assert.True(t, tr.SetFollow(true).Follow)
	assert.True(t, tr.Snapshot().Follow)
	assert.False(t, tr.SetFollow(false).Follow)
}

func TestSubscribersSeeLatestState(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 1), at(2, 2), at(3, 3)}}
	tr := newTracker(t, f)

	ch, cancel := tr.Subscribe()
	initial := <-ch
	assert.Equal(t, StatusLoading, initial.Status)

	for i := 0; i < 3; i++ {
		tr.Poll(context.Background())
	}

	latest := <-ch
	require.NotNil(t, latest.Position)
	assert.Equal(t, 3.0, latest.Position.Latitude, "slow subscriber only keeps the newest state")

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestSinksReceiveAcceptedPositions(t *testing.T) {
	f := &fakeFetcher{results: []result{at(1, 2), {err: errors.New("down")}}}

	var mu sync.Mutex
	var got []domain.ISSPosition
	var raws []string
	record := SinkFunc(func(_ context.Context, pos domain.ISSPosition, raw []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, pos)
		raws = append(raws, string(raw))
		return nil
	})
	failing := SinkFunc(func(context.Context, domain.ISSPosition, []byte) error {
		return errors.New("db unavailable")
	})

	tr := newTracker(t, f, WithSink("failing", failing), WithSink("record", record))
	tr.Poll(context.Background())
	tr.Poll(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Latitude)
	assert.Equal(t, `{"raw":true}`, raws[0])
	assert.Equal(t, StatusError, tr.Snapshot().Status)
}

func TestUpdatedAtUsesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := newTracker(t, &fakeFetcher{results: []result{at(1, 2)}}, WithClock(func() time.Time { return fixed }))
	tr.Poll(context.Background())
	assert.Equal(t, fixed, tr.Snapshot().UpdatedAt)
}
