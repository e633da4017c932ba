// Package asteroids flattens the near-earth object feed and aggregates it
package asteroids

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
)

// DateLayout is the feed's date format
const DateLayout = "2006-01-02"

// WindowDays is the span of one feed request
const WindowDays = 7

// Window is the requested date range; End is always Start plus WindowDays
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window starting on start's calendar day (UTC)
func NewWindow(start time.Time) Window {
	y, m, d := start.UTC().Date()
	s := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Window{Start: s, End: s.AddDate(0, 0, WindowDays)}
}

// ParseWindow parses a YYYY-MM-DD start date; empty means the day of now
func ParseWindow(start string, now time.Time) (Window, error) {
	if start == "" {
		return NewWindow(now), nil
	}
	t, err := time.Parse(DateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", start)
	}
	return NewWindow(t), nil
}

// Shift moves the window by days and recomputes the end
func (w Window) Shift(days int) Window {
	return NewWindow(w.Start.AddDate(0, 0, days))
}

// StartDate returns the start as YYYY-MM-DD
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate returns the end as YYYY-MM-DD
func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}

// Flatten turns the date-keyed feed into one list sorted by miss distance, closest first.
// Dates are visited in order so equal distances keep feed order.
func Flatten(feed *clients.NeoFeedPayload) ([]domain.NearEarthObject, error) {
	dates := make([]string, 0, len(feed.NearEarthObjects))
	for d := range feed.NearEarthObjects {
		dates = append(dates, d)
	}
	slices.Sort(dates)

	list := make([]domain.NearEarthObject, 0, feed.ElementCount)
	for _, d := range dates {
		for _, o := range feed.NearEarthObjects[d] {
			if len(o.CloseApproachData) == 0 {
				continue
			}
			neo, err := flattenOne(d, o)
			if err != nil {
				return nil, err
			}
			list = append(list, neo)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].DistanceKm < list[j].DistanceKm
	})
	return list, nil
}

func flattenOne(date string, o clients.NeoObject) (domain.NearEarthObject, error) {
	approach := o.CloseApproachData[0]
	distance, err := strconv.ParseFloat(approach.MissDistance.Kilometers, 64)
	if err != nil {
		return domain.NearEarthObject{}, fmt.Errorf("asteroid %s miss distance: %w", o.ID, clients.ErrPayload)
	}
	velocity, err := strconv.ParseFloat(approach.RelativeVelocity.KilometersPerHour, 64)
	if err != nil {
		return domain.NearEarthObject{}, fmt.Errorf("asteroid %s velocity: %w", o.ID, clients.ErrPayload)
	}

	if approach.CloseApproachDate != "" {
		date = approach.CloseApproachDate
	}
	return domain.NearEarthObject{
		ID:   o.ID,
		Name: o.Name,
		Date: date,
		Diameter: domain.Diameter{
			Min: math.Round(o.EstimatedDiameter.Meters.Min),
			Max: math.Round(o.EstimatedDiameter.Meters.Max),
		},
		DistanceKm:             math.Round(distance),
		RelativeVelocity:       math.Round(velocity),
		IsPotentiallyHazardous: o.IsPotentiallyHazardous,
	}, nil
}

// ComputeStats aggregates list. Closest keeps the earliest of equal distances;
// fastest and largest keep the latest of equal values.
func ComputeStats(list []domain.NearEarthObject) domain.AsteroidStats {
	stats := domain.AsteroidStats{Total: len(list)}
	if len(list) == 0 {
		return stats
	}

	closest, fastest, largest := 0, 0, 0
	for i, neo := range list {
		if neo.IsPotentiallyHazardous {
			stats.HazardousCount++
		}
		if neo.DistanceKm < list[closest].DistanceKm {
			closest = i
		}
		if neo.RelativeVelocity >= list[fastest].RelativeVelocity {
			fastest = i
		}
		if neo.Diameter.Max >= list[largest].Diameter.Max {
			largest = i
		}
	}

	stats.HazardPercent = int(math.Round(100 * float64(stats.HazardousCount) / float64(stats.Total)))
	stats.Closest = &list[closest]
	stats.Fastest = &list[fastest]
	stats.Largest = &list[largest]
	return stats
}
