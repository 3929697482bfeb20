// Package export writes an interpolated trip to interchange formats.
package export

import (
	"time"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/track"
)

// Trip is an interpolated route together with the original fixes, both
// binned by local day.
type Trip struct {
	Days    *track.DayBins
	Fixes   *track.DayBins
	Palette palette.Palette
	Name    string
}

// Color returns the day's color.
func (t Trip) Color(day track.DayKey) string {
	p := t.Palette
	if len(p) == 0 {
		p = palette.Default
	}
	return p.ColorFor(day)
}

func (t Trip) dayKeys() []track.DayKey {
	if t.Days == nil {
		return nil
	}
	return t.Days.Keys
}

func (t Trip) name() string {
	if t.Name == "" {
		return "Trip"
	}
	return t.Name
}

// Polylines encodes each day's route as a polyline string.
func Polylines(days *track.DayBins) map[track.DayKey]string {
	out := make(map[track.DayKey]string, days.Len())
	if days == nil {
		return out
	}
	for _, day := range days.Keys {
		points := days.Get(day)
		coords := make([]geo.Coordinate, len(points))
		for i, p := range points {
			coords[i] = p.Coordinate()
		}
		out[day] = geo.EncodePolyline(coords)
	}
	return out
}

func utc(moment int64) time.Time {
	return time.Unix(moment, 0).UTC()
}
