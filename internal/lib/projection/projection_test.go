package projection

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLonToX(t *testing.T) {
	assert.Equal(t, 0.0, LonToX(-180, 0))
	assert.Equal(t, 0.5, LonToX(0, 0))
	assert.Equal(t, 1.0, LonToX(180, 0))
	assert.Equal(t, 512.0, LonToX(0, 10))
}

func TestLonToX_Wraparound(t *testing.T) {
	for z := 0; z <= 17; z++ {
		assert.Equal(t, LonToX(-179, z), LonToX(181, z), "zoom %d", z)
		assert.InDelta(t, LonToX(179, z), LonToX(-181, z), 1e-9, "zoom %d", z)
		assert.InDelta(t, LonToX(10, z), LonToX(730, z), 1e-9, "zoom %d", z)
	}
}

func TestLatToY(t *testing.T) {
	assert.InDelta(t, 0.5, LatToY(0, 0), 1e-12)
	assert.InDelta(t, 512.0, LatToY(0, 10), 1e-9)
	assert.Less(t, LatToY(45, 5), LatToY(0, 5), "north is up")
	assert.Greater(t, LatToY(-45, 5), LatToY(0, 5))

	// Out of range latitudes wrap
	assert.InDelta(t, LatToY(-80, 5), LatToY(100, 5), 1e-9)
}

func TestInverseProjection(t *testing.T) {
	for _, z := range []int{0, 5, 12, 17} {
		assert.InDelta(t, -122.3321, XToLon(LonToX(-122.3321, z), z), 1e-9)
		assert.InDelta(t, 47.6062, YToLat(LatToY(47.6062, z), z), 1e-9)
	}
}

func seattleToPortland() *Map {
	m := New(1000, 1000, DefaultOptions())
	m.AddLine(Line{
		Coords: []orb.Point{{-122.3321, 47.6062}, {-122.6784, 45.5152}},
		Color:  "red",
		Width:  6,
	})
	return m
}

func TestMap_EmptyIsAnError(t *testing.T) {
	m := New(1000, 1000, DefaultOptions())
	assert.True(t, m.Empty())

	_, err := m.Zoom()
	assert.ErrorIs(t, err, ErrEmptyMap)
	_, err = m.Info()
	assert.ErrorIs(t, err, ErrEmptyMap)
}

func TestMap_ZoomFitsFeatures(t *testing.T) {
	m := seattleToPortland()

	zoom, err := m.Zoom()
	require.NoError(t, err)

	e, err := m.Extent(zoom)
	require.NoError(t, err)
	height := (LatToY(e.MinLat, zoom) - LatToY(e.MaxLat, zoom)) * DefaultTileSize
	assert.LessOrEqual(t, height, 1000.0, "features fit at chosen zoom")

	heightAbove := (LatToY(e.MinLat, zoom+1) - LatToY(e.MaxLat, zoom+1)) * DefaultTileSize
	assert.Greater(t, heightAbove, 1000.0, "features would not fit one zoom level closer")
}

func TestMap_SinglePointUsesMaxZoom(t *testing.T) {
	m := New(1000, 1000, DefaultOptions())
	m.AddMarker(CircleMarker{Coord: orb.Point{-122.3321, 47.6062}, Color: "green", Width: 7})

	zoom, err := m.Zoom()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxZoom, zoom)

	info, err := m.Info()
	require.NoError(t, err)
	assert.InDelta(t, 14, info.FeatureWidth, 1, "marker diameter in pixels")
	assert.InDelta(t, 14, info.FeatureHeight, 1)
	assert.InDelta(t, 1.0, info.AspectRatio(), 0.1)
}

func TestMap_MarkerExtentIncludesRadius(t *testing.T) {
	m := New(1000, 1000, DefaultOptions())
	m.AddMarker(CircleMarker{Coord: orb.Point{0, 0}, Width: 10})

	e, err := m.Extent(10)
	require.NoError(t, err)
	assert.Less(t, e.MinLon, 0.0)
	assert.Greater(t, e.MaxLon, 0.0)
	assert.Less(t, e.MinLat, 0.0)
	assert.Greater(t, e.MaxLat, 0.0)

	widthPx := (LonToX(e.MaxLon, 10) - LonToX(e.MinLon, 10)) * DefaultTileSize
	assert.InDelta(t, 20.0, widthPx, 1e-6)
}

func TestLayout_CenterMapsToCanvasCenter(t *testing.T) {
	m := seattleToPortland()
	l, err := m.Layout()
	require.NoError(t, err)

	assert.Equal(t, 500, l.XToPx(l.XCenter))
	assert.Equal(t, 500, l.YToPx(l.YCenter))

	x, y := l.Pixel(l.Extent.Center())
	assert.InDelta(t, 500.0, x, 1e-6)
	assert.InDelta(t, 500.0, y, 1e-6)

	// North-west corner is up and to the left of the center
	nwX, nwY := l.Pixel(orb.Point{l.Extent.MinLon, l.Extent.MaxLat})
	assert.Less(t, nwX, 500.0)
	assert.Less(t, nwY, 500.0)
}

func TestMap_InfoTallRoute(t *testing.T) {
	info, err := seattleToPortland().Info()
	require.NoError(t, err)

	// Mostly north-south route: taller than wide
	assert.Greater(t, info.FeatureHeight, info.FeatureWidth)
	assert.Less(t, info.AspectRatio(), 1.0)
	assert.LessOrEqual(t, info.FeatureHeight, 1000)
}

func TestMapInfo_AspectRatioDegenerate(t *testing.T) {
	assert.Equal(t, 1.0, MapInfo{FeatureWidth: 10}.AspectRatio())
	assert.Equal(t, 1.0, MapInfo{FeatureHeight: 10}.AspectRatio())
	assert.Equal(t, 2.0, MapInfo{FeatureWidth: 20, FeatureHeight: 10}.AspectRatio())
}

func TestOutputDimensions(t *testing.T) {
	w, h := OutputDimensions(2, 1000)
	assert.Equal(t, 2000, w)
	assert.Equal(t, 1000, h)

	w, h = OutputDimensions(0.5, 1000)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 2000, h)

	w, h = OutputDimensions(1, 1000)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)

	w, h = OutputDimensions(0, 0)
	assert.Equal(t, DefaultShortSide, w)
	assert.Equal(t, DefaultShortSide, h)
}

func TestSizeFor(t *testing.T) {
	draw := func(m *Map) {
		m.AddLine(Line{Coords: []orb.Point{{-122.3321, 47.6062}, {-122.6784, 45.5152}}, Width: 6})
	}

	width, height, info, err := SizeFor(1000, 1000, DefaultOptions(), draw)
	require.NoError(t, err)
	assert.Equal(t, 1000, width, "short side is the width for a tall route")
	assert.Greater(t, height, 1000)

	wantW, wantH := OutputDimensions(info.AspectRatio(), 1000)
	assert.Equal(t, wantW, width)
	assert.Equal(t, wantH, height)

	_, _, _, err = SizeFor(1000, 1000, DefaultOptions(), func(*Map) {})
	assert.ErrorIs(t, err, ErrEmptyMap)
}
