package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
)

var (
	// ErrMissingField is returned for records lacking a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned for fields of the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

// Record is one GPS fix as exchanged between the ingestion tools and the
// renderer, one JSON object per line. Fields are declared in key order.
type Record struct {
	Description  string  `json:"description,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TimestampUTC int64   `json:"timestamp_utc"`
}

// SortByMoment orders records by timestamp, keeping the input order of
// records with equal timestamps.
func SortByMoment(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TimestampUTC < records[j].TimestampUTC
	})
}

// ToTimedPoints converts records into validated points.
func ToTimedPoints(records []Record) ([]geo.TimedPoint, error) {
	points := make([]geo.TimedPoint, 0, len(records))
	for i, r := range records {
		p, err := geo.NewTimedPoint(r.Latitude, r.Longitude, r.TimestampUTC)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// WriteJSONLines writes one JSON object per record.
func WriteJSONLines(w io.Writer, records []Record) error {
	for _, r := range records {
		if err := writeJSONLine(w, r); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONLine(w io.Writer, v interface{}) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}
