package services

import (
	"context"
	"errors"
	"math"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/tracker"

	"github.com/goccy/go-json"
)

// ErrHistoryDisabled is returned by trend queries when no database is configured
var ErrHistoryDisabled = errors.New("ISS history disabled: no database configured")

// IssHistory reads persisted ISS positions, newest first
type IssHistory interface {
	GetLatest(ctx context.Context) (*domain.IssLog, error)
	GetLastN(ctx context.Context, n int) ([]domain.IssLog, error)
}

// IssService handles ISS tracking logic
type IssService struct {
	tracker *tracker.Tracker
	history IssHistory
}

// NewIssService creates a new ISS service; history may be nil
func NewIssService(t *tracker.Tracker, history IssHistory) *IssService {
	return &IssService{tracker: t, history: history}
}

// Current returns the live tracker state
func (s *IssService) Current() tracker.Snapshot {
	return s.tracker.Snapshot()
}

// SetInterval changes the poll interval
func (s *IssService) SetInterval(d time.Duration) (tracker.Snapshot, error) {
	snap, err := s.tracker.SetInterval(d)
	if err != nil {
		return snap, invalid("%v; allowed: 1000, 2000, 5000, 10000 ms", err)
	}
	return snap, nil
}

// SetFollow toggles map following
func (s *IssService) SetFollow(follow bool) tracker.Snapshot {
	return s.tracker.SetFollow(follow)
}

// Subscribe streams tracker state changes
func (s *IssService) Subscribe() (<-chan tracker.Snapshot, func()) {
	return s.tracker.Subscribe()
}

// Last returns the most recently persisted position; nil when none was stored yet
func (s *IssService) Last(ctx context.Context) (*domain.IssLog, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.GetLatest(ctx)
}

// CalculateTrend calculates ISS movement between the two latest persisted positions
func (s *IssService) CalculateTrend(ctx context.Context) (*domain.IssTrend, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	rows, err := s.history.GetLastN(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return &domain.IssTrend{}, nil
	}

	t2, p2 := rows[0].FetchedAt, rows[0].Payload
	t1, p1 := rows[1].FetchedAt, rows[1].Payload

	lat1 := getFloat(p1, "latitude")
	lon1 := getFloat(p1, "longitude")
	lat2 := getFloat(p2, "latitude")
	lon2 := getFloat(p2, "longitude")
	v2 := getFloat(p2, "velocity")

	var deltaKm float64
	var movement bool
	if lat1 != nil && lon1 != nil && lat2 != nil && lon2 != nil {
		deltaKm = haversineKm(*lat1, *lon1, *lat2, *lon2)
		movement = deltaKm > 0.1
	}

	return &domain.IssTrend{
		Movement:    movement,
		DeltaKm:     deltaKm,
		DtSec:       t2.Sub(t1).Seconds(),
		VelocityKmh: v2,
		FromTime:    &t1,
		ToTime:      &t2,
		FromLat:     lat1,
		FromLon:     lon1,
		ToLat:       lat2,
		ToLon:       lon2,
	}, nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func getFloat(data []byte, key string) *float64 {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	if v, ok := m[key].(float64); ok {
		return &v
	}
	return nil
}
