package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/lelandbatey/batey-bike-trip-records/internal/config"
	"github.com/lelandbatey/batey-bike-trip-records/internal/export"
	"github.com/lelandbatey/batey-bike-trip-records/internal/ingest"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/track"
	"github.com/lelandbatey/batey-bike-trip-records/internal/render"
)

// Track outline and fill widths in pixels.
const (
	outlineWidth       = 8
	lineWidth          = 6
	markerOutlineWidth = 9
	markerWidth        = 7
	outlineColor       = "white"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no location records to draw")

// Imager turns a map canvas into pixels.
type Imager interface {
	Render(ctx context.Context, m *projection.Map, caption string) (image.Image, error)
}

// SaveFunc writes a rendered image to path.
type SaveFunc func(path string, img image.Image) error

// MapOptions control sizing, naming and coloring of rendered maps.
type MapOptions struct {
	OutputPath string
	ShortSide  int
	ProbeSize  int
	Projection projection.Options
	Location   *time.Location
	Palette    palette.Palette
	// Caption labels each day's map with its day key.
	Caption bool
}

// MapOptionsFromConfig builds MapOptions from the loaded configuration.
func MapOptionsFromConfig(cfg *config.Config) (MapOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return MapOptions{}, err
	}
	return MapOptions{
		OutputPath: cfg.Output.Path,
		ShortSide:  cfg.Render.ShortSide,
		ProbeSize:  cfg.Render.ProbeSize,
		Projection: projection.Options{
			TileSize: cfg.Render.TileSize,
			MaxZoom:  cfg.Render.MaxZoom,
			PaddingX: cfg.Render.Padding,
			PaddingY: cfg.Render.Padding,
		},
		Location: loc,
		Palette:  palette.Default,
		Caption:  cfg.Render.Caption,
	}, nil
}

// MapService turns a set of location records into one map per day plus an
// aggregate map of the whole trip.
type MapService struct {
	interpolator *track.Interpolator
	imager       Imager
	save         SaveFunc
	opts         MapOptions
	logger       *zap.SugaredLogger
}

// NewMapService creates a new MapService. A nil save writes PNG files.
func NewMapService(interpolator *track.Interpolator, imager Imager, save SaveFunc, opts MapOptions, logger *zap.SugaredLogger) *MapService {
	if save == nil {
		save = render.SavePNG
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if len(opts.Palette) == 0 {
		opts.Palette = palette.Default
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.OutputPath != "" {
		opts.OutputPath = OutputFileName(opts.OutputPath)
	}
	return &MapService{
		interpolator: interpolator,
		imager:       imager,
		save:         save,
		opts:         opts,
		logger:       logger,
	}
}

// Result is everything a Run produced.
type Result struct {
	Fixes        []geo.TimedPoint
	Interpolated []geo.TimedPoint
	Days         *track.DayBins
	FixDays      *track.DayBins
	// Files lists written images, day maps first and the aggregate last.
	Files []string
}

// Trip views the result as an exportable trip.
func (r *Result) Trip(p palette.Palette, name string) export.Trip {
	return export.Trip{Days: r.Days, Fixes: r.FixDays, Palette: p, Name: name}
}

// Run sorts and interpolates records, then renders every day and the
// aggregate map.
func (s *MapService) Run(ctx context.Context, records []ingest.Record) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrNoPoints
	}

	sorted := make([]ingest.Record, len(records))
	copy(sorted, records)
	ingest.SortByMoment(sorted)

	fixes, err := ingest.ToTimedPoints(sorted)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Loaded location records", "count", len(fixes))

	width, height, info, err := projection.SizeFor(s.opts.ProbeSize, s.opts.ShortSide, s.opts.Projection, func(m *projection.Map) {
		DrawTrack(m, fixes, fixes, "red", "green")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to size trip map: %w", err)
	}
	s.logger.Debugw("Sized trip map", "width", width, "height", height, "aspect", info.AspectRatio())
	aggregate := projection.New(width, height, s.opts.Projection)

	interpolated, err := s.interpolator.Interpolate(ctx, fixes)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate: %w", err)
	}
	s.logger.Infow("Interpolated route", "fixes", len(fixes), "points", len(interpolated))

	result := &Result{
		Fixes:        fixes,
		Interpolated: interpolated,
		Days:         track.BinByDay(interpolated, s.opts.Location),
		FixDays:      track.BinByDay(fixes, s.opts.Location),
	}

	for _, day := range result.Days.Keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		points := result.Days.Get(day)
		dayFixes := result.FixDays.Get(day)
		c := s.opts.Palette.ColorFor(day)

		w, h, _, err := projection.SizeFor(s.opts.ProbeSize, s.opts.ShortSide, s.opts.Projection, func(m *projection.Map) {
			DrawTrack(m, points, dayFixes, c, c)
		})
		if err != nil {
			return result, fmt.Errorf("failed to size map for %s: %w", day, err)
		}
		dayMap := projection.New(w, h, s.opts.Projection)
		DrawTrack(dayMap, points, dayFixes, c, c)
		DrawTrack(aggregate, points, dayFixes, c, c)

		path := DayFileName(s.opts.OutputPath, day)
		caption := ""
		if s.opts.Caption {
			caption = string(day)
		}
		if err := s.renderTo(ctx, dayMap, caption, path); err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}

	if err := s.renderTo(ctx, aggregate, "", s.opts.OutputPath); err != nil {
		return result, err
	}
	result.Files = append(result.Files, s.opts.OutputPath)
	return result, nil
}

func (s *MapService) renderTo(ctx context.Context, m *projection.Map, caption, path string) error {
	s.logger.Infow("Rendering map", "path", path, "width", m.Width, "height", m.Height)
	img, err := s.imager.Render(ctx, m, caption)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return s.save(path, img)
}

// Export writes the trip to every non-empty path in out.
func (s *MapService) Export(result *Result, out config.OutputConfig) error {
	trip := result.Trip(s.opts.Palette, strings.TrimSuffix(filepath.Base(s.opts.OutputPath), filepath.Ext(s.opts.OutputPath)))

	writers := []struct {
		path  string
		write func(f *os.File) error
	}{
		{out.KML, func(f *os.File) error { return export.WriteKML(f, trip) }},
		{out.GeoJSON, func(f *os.File) error { return export.WriteGeoJSON(f, trip) }},
		{out.GPX, func(f *os.File) error { return export.WriteGPX(f, trip) }},
	}
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := writeFile(w.path, w.write); err != nil {
			return err
		}
		s.logger.Infow("Exported trip", "path", w.path)
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// DrawTrack adds a day's track to m: a line between each pair of
// consecutive points and a marker at every fix, each outlined in white.
func DrawTrack(m *projection.Map, points, fixes []geo.TimedPoint, lineColor, markerColor string) {
	drawLines := func(c string, width float64) {
		for i := 0; i+1 < len(points); i++ {
			m.AddLine(projection.Line{
				Coords: []orb.Point{lonLat(points[i]), lonLat(points[i+1])},
				Color:  c,
				Width:  width,
			})
		}
	}
	drawMarkers := func(c string, width float64) {
		for _, p := range fixes {
			m.AddMarker(projection.CircleMarker{Coord: lonLat(p), Color: c, Width: width})
		}
	}

	drawLines(outlineColor, outlineWidth)
	drawLines(lineColor, lineWidth)
	drawMarkers(outlineColor, markerOutlineWidth)
	drawMarkers(markerColor, markerWidth)
}

func lonLat(p geo.TimedPoint) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// OutputFileName returns the aggregate image path, adding ".png" when the
// path has no extension.
func OutputFileName(output string) string {
	if filepath.Ext(output) == "" {
		return output + ".png"
	}
	return output
}

// DayFileName derives a day's image path from the aggregate path, e.g.
// "out/map.png" becomes "out/map_2016_07_07.png". A path without an
// extension gets ".png".
func DayFileName(output string, day track.DayKey) string {
	ext := filepath.Ext(output)
	stem := strings.TrimSuffix(output, ext)
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("%s_%s%s", stem, day, ext)
}
