package projection

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultTileSize  = 256
	DefaultMaxZoom   = 17
	DefaultShortSide = 1000
)

// ErrEmptyMap is returned when zoom or extent is requested for a map with
// nothing drawn on it.
var ErrEmptyMap = errors.New("map has no lines or markers")

// Line is a polyline to draw. Coordinates are longitude-first.
type Line struct {
	Coords []orb.Point
	Color  string
	Width  float64
}

// CircleMarker is a filled circle to draw. Coord is longitude-first and
// Width is the radius in pixels.
type CircleMarker struct {
	Coord orb.Point
	Color string
	Width float64
}

// Extent is a geographic bounding box.
type Extent struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Center returns the midpoint of the extent as (lon, lat).
func (e Extent) Center() orb.Point {
	return orb.Point{(e.MinLon + e.MaxLon) / 2, (e.MinLat + e.MaxLat) / 2}
}

func extentOf(b orb.Bound) Extent {
	return Extent{MinLon: b.Left(), MinLat: b.Bottom(), MaxLon: b.Right(), MaxLat: b.Top()}
}

// Options control tile size, zoom range and padding of a Map.
type Options struct {
	TileSize int
	MaxZoom  int
	PaddingX int
	PaddingY int
}

// DefaultOptions mirrors the usual static map defaults.
func DefaultOptions() Options {
	return Options{TileSize: DefaultTileSize, MaxZoom: DefaultMaxZoom}
}

// Map is a canvas of a fixed pixel size holding the features to draw. It
// knows how to pick a zoom level and project features to pixels; drawing
// pixels is left to a renderer.
type Map struct {
	Width   int
	Height  int
	Options Options
	Lines   []Line
	Markers []CircleMarker
}

// New creates an empty map canvas.
func New(width, height int, opts Options) *Map {
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	return &Map{Width: width, Height: height, Options: opts}
}

// AddLine adds a line feature.
func (m *Map) AddLine(l Line) {
	m.Lines = append(m.Lines, l)
}

// AddMarker adds a marker feature.
func (m *Map) AddMarker(mk CircleMarker) {
	m.Markers = append(m.Markers, mk)
}

// Empty reports whether nothing has been drawn.
func (m *Map) Empty() bool {
	return len(m.Lines) == 0 && len(m.Markers) == 0
}

// Extent returns the geographic box covering every feature at zoom. Marker
// radii are converted to degrees at that zoom so markers are never clipped.
func (m *Map) Extent(zoom int) (Extent, error) {
	if m.Empty() {
		return Extent{}, ErrEmptyMap
	}

	var (
		bound orb.Bound
		seen  bool
	)
	add := func(b orb.Bound) {
		if !seen {
			bound, seen = b, true
			return
		}
		bound = bound.Union(b)
	}

	for _, l := range m.Lines {
		if len(l.Coords) == 0 {
			continue
		}
		add(orb.LineString(l.Coords).Bound())
	}

	tileSize := float64(m.Options.TileSize)
	for _, mk := range m.Markers {
		x := LonToX(mk.Coord.Lon(), zoom)
		y := LatToY(mk.Coord.Lat(), zoom)
		r := mk.Width / tileSize
		add(orb.Bound{
			Min: orb.Point{XToLon(x-r, zoom), YToLat(y+r, zoom)},
			Max: orb.Point{XToLon(x+r, zoom), YToLat(y-r, zoom)},
		})
	}

	if !seen {
		return Extent{}, ErrEmptyMap
	}
	return extentOf(bound), nil
}

// Zoom returns the highest zoom level, up to MaxZoom, at which every
// feature fits inside the canvas less its padding.
func (m *Map) Zoom() (int, error) {
	if m.Empty() {
		return 0, ErrEmptyMap
	}
	tileSize := float64(m.Options.TileSize)
	for z := m.Options.MaxZoom; z >= 0; z-- {
		e, err := m.Extent(z)
		if err != nil {
			return 0, err
		}
		width := (LonToX(e.MaxLon, z) - LonToX(e.MinLon, z)) * tileSize
		if width > float64(m.Width-m.Options.PaddingX*2) {
			continue
		}
		height := (LatToY(e.MinLat, z) - LatToY(e.MaxLat, z)) * tileSize
		if height > float64(m.Height-m.Options.PaddingY*2) {
			continue
		}
		return z, nil
	}
	return 0, nil
}

// Layout is the result of fitting a map: the chosen zoom, the extent at
// that zoom, and the tile coordinate at the canvas center.
type Layout struct {
	Zoom     int
	Extent   Extent
	XCenter  float64
	YCenter  float64
	Width    int
	Height   int
	TileSize int
}

// Layout fits the map's features to its canvas.
func (m *Map) Layout() (Layout, error) {
	zoom, err := m.Zoom()
	if err != nil {
		return Layout{}, err
	}
	extent, err := m.Extent(zoom)
	if err != nil {
		return Layout{}, err
	}
	center := extent.Center()
	return Layout{
		Zoom:     zoom,
		Extent:   extent,
		XCenter:  LonToX(center.Lon(), zoom),
		YCenter:  LatToY(center.Lat(), zoom),
		Width:    m.Width,
		Height:   m.Height,
		TileSize: m.Options.TileSize,
	}, nil
}

// XToPx converts a tile x coordinate to a canvas pixel column.
func (l Layout) XToPx(x float64) int {
	return int(math.RoundToEven(l.xToPx(x)))
}

// YToPx converts a tile y coordinate to a canvas pixel row.
func (l Layout) YToPx(y float64) int {
	return int(math.RoundToEven(l.yToPx(y)))
}

// Pixel projects a longitude-first coordinate to unrounded canvas pixels.
func (l Layout) Pixel(pt orb.Point) (float64, float64) {
	return l.xToPx(LonToX(pt.Lon(), l.Zoom)), l.yToPx(LatToY(pt.Lat(), l.Zoom))
}

func (l Layout) xToPx(x float64) float64 {
	return (x-l.XCenter)*float64(l.TileSize) + float64(l.Width)/2
}

func (l Layout) yToPx(y float64) float64 {
	return (y-l.YCenter)*float64(l.TileSize) + float64(l.Height)/2
}

// MapInfo describes how much of the canvas the features occupy.
type MapInfo struct {
	FeatureWidth  int
	FeatureHeight int
	Zoom          int
}

// AspectRatio returns feature width over feature height. Degenerate
// extents report a square ratio.
func (i MapInfo) AspectRatio() float64 {
	if i.FeatureWidth <= 0 || i.FeatureHeight <= 0 {
		return 1
	}
	return float64(i.FeatureWidth) / float64(i.FeatureHeight)
}

// Info projects the corners of the feature extent to pixels and returns
// the size of the box between them.
func (m *Map) Info() (MapInfo, error) {
	l, err := m.Layout()
	if err != nil {
		return MapInfo{}, err
	}
	e := l.Extent
	topRightX, topRightY := l.XToPx(LonToX(e.MaxLon, l.Zoom)), l.YToPx(LatToY(e.MaxLat, l.Zoom))
	botLeftX, botLeftY := l.XToPx(LonToX(e.MinLon, l.Zoom)), l.YToPx(LatToY(e.MinLat, l.Zoom))

	return MapInfo{
		FeatureWidth:  absInt(topRightX - botLeftX),
		FeatureHeight: absInt(topRightY - botLeftY),
		Zoom:          l.Zoom,
	}, nil
}

// OutputDimensions returns a canvas width and height with the given
// width/height aspect ratio whose shorter side is shortSide pixels.
func OutputDimensions(aspect float64, shortSide int) (int, int) {
	if shortSide <= 0 {
		shortSide = DefaultShortSide
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return shortSide, shortSide
	}
	if aspect < 1 {
		// taller than it is wide
		return shortSide, int((1 / aspect) * float64(shortSide))
	}
	return int(aspect * float64(shortSide)), shortSide
}

// SizeFor resolves the circular dependency between zoom and canvas shape.
// draw is applied to a throwaway probeSize square canvas to learn the
// features' aspect ratio; the returned dimensions preserve it.
func SizeFor(probeSize, shortSide int, opts Options, draw func(*Map)) (int, int, MapInfo, error) {
	if probeSize <= 0 {
		probeSize = DefaultShortSide
	}
	probe := New(probeSize, probeSize, opts)
	draw(probe)
	info, err := probe.Info()
	if err != nil {
		return 0, 0, MapInfo{}, err
	}
	width, height := OutputDimensions(info.AspectRatio(), shortSide)
	return width, height, info, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
