package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// maxLineBytes bounds a single JSON line.
const maxLineBytes = 1 << 20

// ReadJSONLines reads one record per non-blank line. Records carrying a
// truthy "error" field are dropped. A record missing latitude, longitude or
// timestamp_utc is an error.
func ReadJSONLines(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode record: %w", lineNo, err)
		}

		if truthy(raw["error"]) {
			continue
		}

		rec, err := recordFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

func recordFromMap(raw map[string]interface{}) (Record, error) {
	lat, err := numberField(raw, "latitude")
	if err != nil {
		return Record{}, err
	}
	lon, err := numberField(raw, "longitude")
	if err != nil {
		return Record{}, err
	}
	ts, err := numberField(raw, "timestamp_utc")
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Latitude:     lat,
		Longitude:    lon,
		TimestampUTC: int64(math.Trunc(ts)),
	}
	if desc, ok := raw["description"].(string); ok {
		rec.Description = desc
	}
	return rec, nil
}

func numberField(raw map[string]interface{}, name string) (float64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, want number", ErrInvalidField, name, v)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}
	return f, nil
}

// truthy follows the usual dynamic-language notion: empty strings, zero,
// false, null and empty collections are false.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
