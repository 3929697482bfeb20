package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON builds a FeatureCollection with one LineString per day followed
// by one Point per original fix.
func GeoJSON(trip Trip) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, day := range trip.dayKeys() {
		points := trip.Days.Get(day)
		if len(points) == 0 {
			continue
		}
		line := make(orb.LineString, len(points))
		for i, p := range points {
			line[i] = orb.Point{p.Longitude, p.Latitude}
		}

		f := geojson.NewFeature(line)
		f.Properties["day"] = string(day)
		f.Properties["color"] = trip.Color(day)
		f.Properties["start"] = points[0].Moment
		f.Properties["end"] = points[len(points)-1].Moment
		f.Properties["points"] = len(points)
		fc.Append(f)
	}

	for _, day := range trip.dayKeys() {
		for _, fix := range trip.Fixes.Get(day) {
			f := geojson.NewFeature(orb.Point{fix.Longitude, fix.Latitude})
			f.Properties["day"] = string(day)
			f.Properties["color"] = trip.Color(day)
			f.Properties["timestamp_utc"] = fix.Moment
			fc.Append(f)
		}
	}
	return fc
}

// WriteGeoJSON writes GeoJSON(trip) to w.
func WriteGeoJSON(w io.Writer, trip Trip) error {
	data, err := GeoJSON(trip).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
