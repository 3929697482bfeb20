package export

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"
)

// GPX builds a GPX document with one track per day. Original fixes become
// waypoints.
func GPX(trip Trip) *gpx.GPX {
	doc := &gpx.GPX{
		Creator: "batey-bike-trip-records",
		Name:    trip.name(),
	}
	for _, day := range trip.dayKeys() {
		var segment gpx.GPXTrackSegment
		for _, p := range trip.Days.Get(day) {
			var pt gpx.GPXPoint
			pt.Latitude = p.Latitude
			pt.Longitude = p.Longitude
			pt.Timestamp = utc(p.Moment)
			segment.Points = append(segment.Points, pt)
		}
		doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
			Name:     string(day),
			Segments: []gpx.GPXTrackSegment{segment},
		})

		for _, fix := range trip.Fixes.Get(day) {
			var wpt gpx.GPXPoint
			wpt.Latitude = fix.Latitude
			wpt.Longitude = fix.Longitude
			wpt.Timestamp = utc(fix.Moment)
			doc.Waypoints = append(doc.Waypoints, wpt)
		}
	}
	return doc
}

// WriteGPX writes GPX(trip) as GPX 1.1.
func WriteGPX(w io.Writer, trip Trip) error {
	xmlBytes, err := GPX(trip).ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}
	if _, err := w.Write(xmlBytes); err != nil {
		return fmt.Errorf("failed to write GPX: %w", err)
	}
	return nil
}
