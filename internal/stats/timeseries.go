// Package stats builds dashboard aggregates: daily time series and
// per-product / per-department totals.
package stats

import (
	"context"
	"fmt"
	"time"
)

// DayCount is one bucket of a daily time series.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Value int    `json:"value"`
}

// RangeReader is the single datastore read the aggregator needs.
type RangeReader interface {
	DatesInRange(ctx context.Context, table, dateField string, start, end time.Time) ([]time.Time, error)
}

// Aggregator turns raw timestamps into zero-filled daily buckets.
type Aggregator struct {
	reader RangeReader
}

func NewAggregator(reader RangeReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Aggregate counts rows of table per calendar day across [start, end],
// both endpoints inclusive. Days with no rows appear with Value 0 so charts
// render gaps instead of skipping days.
func (a *Aggregator) Aggregate(ctx context.Context, table, dateField string, start, end time.Time) ([]DayCount, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("aggregate: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	dates, err := a.reader.DatesInRange(ctx, table, dateField, start, end)
	if err != nil {
		return nil, err
	}

	return BucketByDay(dates, start, end), nil
}

// BucketByDay distributes timestamps into one bucket per UTC calendar day
// from start through end inclusive. Timestamps outside the range are
// dropped rather than clamped.
func BucketByDay(dates []time.Time, start, end time.Time) []DayCount {
	first := dayOf(start)
	last := dayOf(end)

	counts := make(map[string]int)
	for _, d := range dates {
		day := dayOf(d.UTC())
		if day.Before(first) || day.After(last) {
			continue
		}
		counts[day.Format("2006-01-02")]++
	}

	var out []DayCount
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		out = append(out, DayCount{Date: key, Value: counts[key]})
	}
	return out
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
