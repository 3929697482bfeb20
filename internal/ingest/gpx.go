package ingest

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"
)

// ReadGPX reads every timestamped track point, route point and waypoint of
// a GPX document. Points without a time are skipped.
func ReadGPX(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GPX: %w", err)
	}
	gpxFile, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	var records []Record
	add := func(p gpx.GPXPoint) {
		if p.Timestamp.IsZero() {
			return
		}
		records = append(records, Record{
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			TimestampUTC: p.Timestamp.Unix(),
			Description:  p.Name,
		})
	}

	for _, track := range gpxFile.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				add(p)
			}
		}
	}
	for _, route := range gpxFile.Routes {
		for _, p := range route.Points {
			add(p)
		}
	}
	for _, p := range gpxFile.Waypoints {
		add(p)
	}
	return records, nil
}
