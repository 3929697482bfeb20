package ingest

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
)

func TestReadJSONLines(t *testing.T) {
	input := `{"latitude": 47.6062, "longitude": -122.3321, "timestamp_utc": 1467904500}

{"latitude": "", "longitude": "", "timestamp_utc": "", "filename": "IMG_1.jpg", "error": "GPS data is not present"}
{"latitude": 47.2529, "longitude": -122.4443, "timestamp_utc": 1467924000.0, "error": "", "description": "Tacoma"}
{"latitude": 46.9965, "longitude": -122.907, "timestamp_utc": 1467993900, "error": false}
{"latitude": 1, "longitude": 1, "timestamp_utc": 1, "error": 1}
`
	records, err := ReadJSONLines(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{Latitude: 47.6062, Longitude: -122.3321, TimestampUTC: 1467904500}, records[0])
	assert.Equal(t, int64(1467924000), records[1].TimestampUTC)
	assert.Equal(t, "Tacoma", records[1].Description)
	assert.Equal(t, 46.9965, records[2].Latitude)
}

func TestReadJSONLines_MissingField(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader(`{"latitude": 47.6, "timestamp_utc": 1}`))
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "longitude")
}

func TestReadJSONLines_InvalidField(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader(`{"latitude": "47.6", "longitude": 1, "timestamp_utc": 1}`))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestReadJSONLines_BadJSON(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader("{\"latitude\": 1}\n{not json\n"))
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(""))
	assert.False(t, truthy(false))
	assert.False(t, truthy([]interface{}{}))
	assert.True(t, truthy("no gps"))
	assert.True(t, truthy(true))
	assert.True(t, truthy(map[string]interface{}{"a": 1}))
}

func TestSortByMomentIsStable(t *testing.T) {
	records := []Record{
		{TimestampUTC: 30, Description: "c"},
		{TimestampUTC: 10, Description: "a1"},
		{TimestampUTC: 20, Description: "b"},
		{TimestampUTC: 10, Description: "a2"},
	}
	SortByMoment(records)

	var order []string
	for _, r := range records {
		order = append(order, r.Description)
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, order)
}

func TestToTimedPoints(t *testing.T) {
	points, err := ToTimedPoints([]Record{{Latitude: 47.6, Longitude: -122.3, TimestampUTC: 100}})
	require.NoError(t, err)
	assert.Equal(t, []geo.TimedPoint{{Latitude: 47.6, Longitude: -122.3, Moment: 100}}, points)

	_, err = ToTimedPoints([]Record{{Latitude: 47.6, Longitude: -122.3}, {Latitude: 91, Longitude: 0}})
	require.ErrorIs(t, err, geo.ErrInvalidCoordinate)
	assert.Contains(t, err.Error(), "record 1")
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, []Record{
		{Latitude: 47.6062, Longitude: -122.3321, TimestampUTC: 1467904500},
		{Latitude: 47.2529, Longitude: -122.4443, TimestampUTC: 1467924000, Description: "Tacoma"},
	}))

	assert.Equal(t,
		`{"latitude":47.6062,"longitude":-122.3321,"timestamp_utc":1467904500}`+"\n"+
			`{"description":"Tacoma","latitude":47.2529,"longitude":-122.4443,"timestamp_utc":1467924000}`+"\n",
		buf.String())

	// Output is readable input
	back, err := ReadJSONLines(&buf)
	require.NoError(t, err)
	assert.Len(t, back, 2)
}

func TestCodeBlocks(t *testing.T) {
	text := "intro\n```\na,b\n1,2\n```\nmid ```not a fence```\n``inline``\n```x```\n```\nunterminated"
	assert.Equal(t, []string{"\na,b\n1,2\n", "x"}, CodeBlocks(text))

	assert.Empty(t, CodeBlocks(""))
	assert.Empty(t, CodeBlocks("no fences here\n"))
	assert.Equal(t, []string{"first"}, CodeBlocks("```first```"))
}

func TestReadMarkdown(t *testing.T) {
	f, err := os.Open("testdata/notes.md")
	require.NoError(t, err)
	defer f.Close()

	records, err := ReadMarkdown(f, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Latitude: 47.6062, Longitude: -122.3321, TimestampUTC: 1467904500, Description: "Pike Place"},
		{Latitude: 47.2529, Longitude: -122.4443, TimestampUTC: 1467924000, Description: "Tacoma"},
		{Latitude: 46.9965, Longitude: -122.9070, TimestampUTC: 1467993900},
	}, records)
}

func TestReadMarkdown_HeaderOnFenceLine(t *testing.T) {
	records, err := ReadMarkdown(strings.NewReader("```lat,lng,timestamp_utc\n1.5,2.5,2016-07-07 00:00 +0000\n```\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Record{{Latitude: 1.5, Longitude: 2.5, TimestampUTC: 1467849600}}, records)
}

func TestReadMarkdown_BadTimestampSkipsBlock(t *testing.T) {
	records, err := ReadMarkdown(strings.NewReader("```\nlat,lon,time\n1,2,yesterday\n```\n"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadGPX(t *testing.T) {
	f, err := os.Open("testdata/ride.gpx")
	require.NoError(t, err)
	defer f.Close()

	records, err := ReadGPX(f)
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Latitude: 47.61, Longitude: -122.33, TimestampUTC: 1467904800},
		{Latitude: 47.62, Longitude: -122.32, TimestampUTC: 1467905100},
		{Latitude: 47.6062, Longitude: -122.3321, TimestampUTC: 1467904500, Description: "Start"},
	}, records)
}

func TestReadGPX_Invalid(t *testing.T) {
	_, err := ReadGPX(strings.NewReader("<gpx"))
	assert.Error(t, err)
}

func TestReadEXIF_NoGPS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))

	fix := ReadEXIF(&buf, "IMG_0001.jpg")
	assert.Equal(t, PhotoFix{Filename: "IMG_0001.jpg", Error: PhotoErrNoGPS}, fix)

	fix = ReadEXIF(strings.NewReader("not an image"), "notes.txt")
	assert.Equal(t, PhotoErrNoGPS, fix.Error)
}

func TestWritePhotoFixes_ReadBack(t *testing.T) {
	fixes := []PhotoFix{
		{
			Record:              Record{Latitude: 47.6062, Longitude: -122.3321, TimestampUTC: 1467904500},
			DilutionOfPrecision: DefaultDilutionOfPrecision,
			Filename:            "IMG_0002.jpg",
		},
		{Filename: "IMG_0003.jpg", Error: PhotoErrNoGPS},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePhotoFixes(&buf, fixes))
	assert.Contains(t, buf.String(), `"filename":"IMG_0002.jpg"`)

	records, err := ReadJSONLines(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1, "photos without a fix are dropped")
	assert.Equal(t, fixes[0].Record, records[0])
}
