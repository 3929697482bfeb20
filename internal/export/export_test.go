package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/track"
)

func testTrip() Trip {
	day1 := time.Date(2016, 7, 7, 15, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2016, 7, 8, 15, 0, 0, 0, time.UTC).Unix()

	fixes := []geo.TimedPoint{
		{Latitude: 47.6062, Longitude: -122.3321, Moment: day1},
		{Latitude: 47.2529, Longitude: -122.4443, Moment: day1 + 3600},
		{Latitude: 46.9965, Longitude: -122.907, Moment: day2},
	}
	routed := []geo.TimedPoint{
		fixes[0],
		{Latitude: 47.43, Longitude: -122.39, Moment: day1 + 1800, Synthetic: true},
		fixes[1],
		fixes[2],
	}
	return Trip{
		Days:    track.BinByDay(routed, time.UTC),
		Fixes:   track.BinByDay(fixes, time.UTC),
		Palette: palette.Default,
		Name:    "Test ride",
	}
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, testTrip()))
	out := buf.String()

	assert.Contains(t, out, "<name>Test ride</name>")
	assert.Contains(t, out, "<name>2016_07_07</name>")
	assert.Contains(t, out, "<name>2016_07_08</name>")
	assert.Contains(t, out, `<Style id="day-2016_07_07">`)
	assert.Contains(t, out, "<styleUrl>#day-2016_07_07</styleUrl>")
	assert.Contains(t, out, "-122.3321,47.6062")
	assert.Equal(t, 2, strings.Count(out, "<LineString>"))
	assert.Equal(t, 3, strings.Count(out, "<Point>"))

	// #004500 in aabbggrr
	assert.Equal(t, "#004500", testTrip().Color("2016_07_07"))
	assert.Contains(t, out, "<color>ff004500</color>")
}

func TestWriteKML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, Trip{}))
	assert.Contains(t, buf.String(), "<Document>")
}

func TestGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testTrip()))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 5)

	first := fc.Features[0]
	line, ok := first.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, line, 3)
	assert.Equal(t, orb.Point{-122.3321, 47.6062}, line[0])
	assert.Equal(t, "2016_07_07", first.Properties.MustString("day"))
	assert.Equal(t, "#004500", first.Properties.MustString("color"))

	second := fc.Features[1]
	assert.Equal(t, "2016_07_08", second.Properties.MustString("day"))

	for _, f := range fc.Features[2:] {
		_, ok := f.Geometry.(orb.Point)
		assert.True(t, ok)
	}
}

func TestWriteGPX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGPX(&buf, testTrip()))

	doc, err := gpx.ParseBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Tracks, 2)
	assert.Equal(t, "2016_07_07", doc.Tracks[0].Name)
	require.Len(t, doc.Tracks[0].Segments, 1)
	require.Len(t, doc.Tracks[0].Segments[0].Points, 3)

	pt := doc.Tracks[0].Segments[0].Points[1]
	assert.InDelta(t, 47.43, pt.Latitude, 1e-9)
	assert.Equal(t, time.Date(2016, 7, 7, 15, 30, 0, 0, time.UTC), pt.Timestamp.UTC())

	assert.Len(t, doc.Waypoints, 3)
}

func TestPolylines(t *testing.T) {
	trip := testTrip()
	lines := Polylines(trip.Days)
	require.Len(t, lines, 2)

	decoded, err := geo.DecodePolyline(lines["2016_07_07"])
	require.NoError(t, err)
	assert.Equal(t, geo.RouteSegment{
		{Latitude: 47.6062, Longitude: -122.3321},
		{Latitude: 47.43, Longitude: -122.39},
		{Latitude: 47.2529, Longitude: -122.4443},
	}, decoded)

	assert.Empty(t, Polylines(nil))
}
