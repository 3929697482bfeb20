package tiles

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
)

func pngTile(t *testing.T, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type tileServer struct {
	*httptest.Server
	hits      atomic.Int32
	userAgent atomic.Value
}

func newTileServer(t *testing.T, body []byte) *tileServer {
	ts := &tileServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		ts.userAgent.Store(r.UserAgent())
		if r.URL.Path == "/missing/0/0/0.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestTile_Normalize(t *testing.T) {
	n, ok := Tile{X: -1, Y: 0, Z: 2}.Normalize()
	assert.True(t, ok)
	assert.Equal(t, Tile{X: 3, Y: 0, Z: 2}, n)

	n, ok = Tile{X: 5, Y: 3, Z: 2}.Normalize()
	assert.True(t, ok)
	assert.Equal(t, Tile{X: 1, Y: 3, Z: 2}, n)

	_, ok = Tile{X: 0, Y: 4, Z: 2}.Normalize()
	assert.False(t, ok)
	_, ok = Tile{X: 0, Y: -1, Z: 2}.Normalize()
	assert.False(t, ok)
}

func TestClient_URLAndPath(t *testing.T) {
	c := NewClient(Options{
		URLTemplate: "https://tile.example.com/{z}/{x}/{y}.png",
		CacheDir:    "/var/cache/tiles",
	}, nil, nil, nil)

	tile := Tile{X: 163, Y: 357, Z: 10}
	assert.Equal(t, "https://tile.example.com/10/163/357.png", c.URL(tile))
	assert.Equal(t, filepath.Join("/var/cache/tiles", "tile.example.com", "10", "163", "357.png"), c.Path(tile))

	noDisk := NewClient(Options{}, nil, nil, nil)
	assert.Empty(t, noDisk.Path(tile))
}

func TestClient_FetchCachesOnDiskAndInMemory(t *testing.T) {
	body := pngTile(t, color.White)
	server := newTileServer(t, body)
	dir := t.TempDir()

	c := NewClient(Options{
		URLTemplate: server.URL + "/{z}/{x}/{y}.png",
		CacheDir:    dir,
		UserAgent:   "test-agent",
	}, nil, nil, zaptest.NewLogger(t).Sugar())

	tile := Tile{X: 1, Y: 1, Z: 1}
	data, err := c.Fetch(context.Background(), tile)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, int32(1), server.hits.Load())
	assert.Equal(t, "test-agent", server.userAgent.Load())

	onDisk, err := os.ReadFile(c.Path(tile))
	require.NoError(t, err)
	assert.Equal(t, body, onDisk)

	// Served from memory
	_, err = c.Fetch(context.Background(), tile)
	require.NoError(t, err)
	assert.Equal(t, int32(1), server.hits.Load())

	// A fresh client with the same directory reads from disk
	c2 := NewClient(Options{URLTemplate: server.URL + "/{z}/{x}/{y}.png", CacheDir: dir}, nil, nil, nil)
	_, err = c2.Fetch(context.Background(), tile)
	require.NoError(t, err)
	assert.Equal(t, int32(1), server.hits.Load())
}

func TestClient_FetchWrapsColumnAndRejectsRow(t *testing.T) {
	server := newTileServer(t, pngTile(t, color.White))
	c := NewClient(Options{URLTemplate: server.URL + "/{z}/{x}/{y}.png"}, nil, nil, nil)

	_, err := c.Fetch(context.Background(), Tile{X: -1, Y: 0, Z: 1})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), Tile{X: 0, Y: 2, Z: 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestClient_FetchHTTPError(t *testing.T) {
	server := newTileServer(t, nil)
	c := NewClient(Options{URLTemplate: server.URL + "/missing/{z}/{x}/{y}.png"}, nil, nil, nil)

	_, err := c.Fetch(context.Background(), Tile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_TileDecodes(t *testing.T) {
	server := newTileServer(t, pngTile(t, color.NRGBA{R: 255, A: 255}))
	c := NewClient(Options{URLTemplate: server.URL + "/{z}/{x}/{y}.png"}, nil, nil, nil)

	img, err := c.Tile(context.Background(), Tile{Z: 0})
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestClient_Prefetch(t *testing.T) {
	server := newTileServer(t, pngTile(t, color.White))
	var progress bytes.Buffer
	c := NewClient(Options{
		URLTemplate: server.URL + "/{z}/{x}/{y}.png",
		Concurrency: 2,
		Progress:    &progress,
	}, nil, nil, zaptest.NewLogger(t).Sugar())

	tiles := []Tile{{0, 0, 2}, {1, 0, 2}, {2, 0, 2}, {3, 0, 2}}
	require.NoError(t, c.Prefetch(context.Background(), tiles))
	assert.Equal(t, int32(4), server.hits.Load())
	assert.Contains(t, progress.String(), "Downloading tiles")

	// Everything is now cached
	require.NoError(t, c.Prefetch(context.Background(), tiles))
	assert.Equal(t, int32(4), server.hits.Load())
}

func TestClient_PrefetchCancelled(t *testing.T) {
	server := newTileServer(t, pngTile(t, color.White))
	c := NewClient(Options{URLTemplate: server.URL + "/{z}/{x}/{y}.png"}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Prefetch(ctx, []Tile{{0, 0, 1}}), context.Canceled)
}

func TestVisible(t *testing.T) {
	l := projection.Layout{
		Zoom:     2,
		XCenter:  2,
		YCenter:  2,
		Width:    512,
		Height:   512,
		TileSize: 256,
	}
	tiles := Visible(l)
	assert.ElementsMatch(t, []Tile{{1, 1, 2}, {1, 2, 2}, {2, 1, 2}, {2, 2, 2}}, tiles)

	// Near the pole rows above the world are skipped
	l.YCenter = 0.5
	for _, tile := range Visible(l) {
		assert.GreaterOrEqual(t, tile.Y, 0)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]Tile{{-1, 0, 1}, {1, 0, 1}, {0, 5, 1}, {0, 0, 1}})
	assert.Equal(t, []Tile{{1, 0, 1}, {0, 0, 1}}, got)
}
