package track

import (
	"time"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
)

// DayKeyLayout formats a local calendar date as a DayKey.
const DayKeyLayout = "2006_01_02"

// DayKey identifies a local calendar day, e.g. "2016_07_07".
type DayKey string

// KeyFor returns the DayKey of a moment in loc.
func KeyFor(moment int64, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.Local
	}
	return DayKey(time.Unix(moment, 0).In(loc).Format(DayKeyLayout))
}

// DayBins holds points grouped by local calendar day. Keys lists days in
// the order they were first seen.
type DayBins struct {
	Keys   []DayKey
	Points map[DayKey][]geo.TimedPoint
}

// BinByDay partitions points by the local calendar date of their moment,
// keeping the input order within each day.
func BinByDay(points []geo.TimedPoint, loc *time.Location) *DayBins {
	bins := &DayBins{Points: make(map[DayKey][]geo.TimedPoint)}
	for _, p := range points {
		key := KeyFor(p.Moment, loc)
		if _, ok := bins.Points[key]; !ok {
			bins.Keys = append(bins.Keys, key)
		}
		bins.Points[key] = append(bins.Points[key], p)
	}
	return bins
}

// Get returns the points for a day, or nil if there are none.
func (b *DayBins) Get(key DayKey) []geo.TimedPoint {
	if b == nil {
		return nil
	}
	return b.Points[key]
}

// Len returns the number of days.
func (b *DayBins) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Keys)
}
