package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"
)

// MarkdownTimeLayout is the timestamp format used in notes tables.
const MarkdownTimeLayout = "2006-01-02 15:04 -0700"

// headerAliases maps accepted column names to record fields.
var headerAliases = map[string]string{
	"lat":           "latitude",
	"latitude":      "latitude",
	"lon":           "longitude",
	"lng":           "longitude",
	"longitude":     "longitude",
	"time":          "timestamp_utc",
	"timestamp_utc": "timestamp_utc",
	"moment":        "timestamp_utc",
	"description":   "description",
}

type fenceState int

const (
	atLineStart fenceState = iota
	oneBacktick
	twoBackticks
	insideBlock
	restOfLine
)

// CodeBlocks returns the contents of every closed ``` fenced block in text.
// A fence only opens at the start of a line. An unterminated block at the
// end of text is dropped.
func CodeBlocks(text string) []string {
	var blocks []string
	state := atLineStart
	for i := 0; i < len(text); {
		if state == insideBlock {
			end := strings.Index(text[i:], "```")
			if end < 0 {
				return blocks
			}
			blocks = append(blocks, text[i:i+end])
			i += end + 3
			state = restOfLine
			continue
		}

		c := text[i]
		i++
		switch state {
		case atLineStart:
			switch c {
			case '`':
				state = oneBacktick
			case '\n':
			default:
				state = restOfLine
			}
		case oneBacktick:
			state = afterBacktick(c, twoBackticks)
		case twoBackticks:
			state = afterBacktick(c, insideBlock)
		case restOfLine:
			if c == '\n' {
				state = atLineStart
			}
		}
	}
	return blocks
}

func afterBacktick(c byte, next fenceState) fenceState {
	switch c {
	case '`':
		return next
	case '\n':
		return atLineStart
	default:
		return restOfLine
	}
}

type markdownRow struct {
	Latitude    string `csv:"latitude"`
	Longitude   string `csv:"longitude"`
	Time        string `csv:"timestamp_utc"`
	Description string `csv:"description,omitempty"`
}

// ReadMarkdown extracts records from CSV tables inside fenced code blocks.
// A block that fails to parse is logged and the rest of it skipped; rows
// read before the failure are kept.
func ReadMarkdown(r io.Reader, logger *zap.SugaredLogger) ([]Record, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	var records []Record
	for i, block := range CodeBlocks(string(data)) {
		rows, err := parseBlock(block)
		records = append(records, rows...)
		if err != nil {
			logger.Warnw("Skipping unparseable code block", "block", i, "error", err)
		}
	}
	return records, nil
}

func parseBlock(block string) ([]Record, error) {
	block = stripInfoString(block)

	cr := csv.NewReader(strings.NewReader(block))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dec, err := csvutil.NewDecoder(cr, normalizeHeader(header)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	var records []Record
	for {
		var row markdownRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
		rec, err := row.record()
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// stripInfoString drops a language tag written right after the opening
// fence. A first line containing a comma is treated as the CSV header.
func stripInfoString(block string) string {
	nl := strings.IndexByte(block, '\n')
	if nl < 0 {
		return block
	}
	if first := block[:nl]; !strings.Contains(first, ",") {
		return block[nl+1:]
	}
	return block
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		out[i] = key
	}
	return out
}

func (r markdownRow) record() (Record, error) {
	if strings.TrimSpace(r.Time) == "" {
		return Record{}, fmt.Errorf("%w: timestamp_utc", ErrMissingField)
	}
	moment, err := time.Parse(MarkdownTimeLayout, strings.TrimSpace(r.Time))
	if err != nil {
		return Record{}, fmt.Errorf("couldn't parse timestamp %q: %w", r.Time, err)
	}
	lat, err := parseCoordinate("latitude", r.Latitude)
	if err != nil {
		return Record{}, err
	}
	lon, err := parseCoordinate("longitude", r.Longitude)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Latitude:     lat,
		Longitude:    lon,
		TimestampUTC: moment.Unix(),
		Description:  r.Description,
	}, nil
}

func parseCoordinate(name, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}
	return f, nil
}
