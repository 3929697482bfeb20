package export

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
)

// WriteKML writes the trip as a KML document: one folder per day holding a
// route LineString and a Point placemark per original fix, all in the day's
// color.
func WriteKML(w io.Writer, trip Trip) error {
	var (
		styles  []kml.Element
		folders []kml.Element
	)

	for _, day := range trip.dayKeys() {
		c, err := palette.ParseHex(trip.Color(day))
		if err != nil {
			return err
		}
		style := kml.SharedStyle("day-"+string(day),
			kml.LineStyle(kml.Color(c), kml.Width(6)),
			kml.IconStyle(kml.Color(c)),
		)
		styles = append(styles, style)

		points := trip.Days.Get(day)
		coords := make([]kml.Coordinate, len(points))
		for i, p := range points {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
		}

		children := []kml.Element{kml.Name(string(day))}
		if len(points) > 0 {
			children = append(children, kml.Placemark(
				kml.Name(fmt.Sprintf("%s route", day)),
				kml.StyleURL(style.URL()),
				kml.TimeSpan(
					kml.Begin(utc(points[0].Moment)),
					kml.End(utc(points[len(points)-1].Moment)),
				),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			))
		}
		for _, fix := range trip.Fixes.Get(day) {
			children = append(children, kml.Placemark(
				kml.StyleURL(style.URL()),
				kml.TimeStamp(kml.When(utc(fix.Moment))),
				kml.Point(kml.Coordinates(kml.Coordinate{Lon: fix.Longitude, Lat: fix.Latitude})),
			))
		}
		folders = append(folders, kml.Folder(children...))
	}

	docChildren := append([]kml.Element{kml.Name(trip.name())}, styles...)
	docChildren = append(docChildren, folders...)
	if err := kml.KML(kml.Document(docChildren...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}
