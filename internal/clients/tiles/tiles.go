package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // tile servers serve jpeg as well as png
	_ "image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lelandbatey/batey-bike-trip-records/internal/cache"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
)

const (
	DefaultURLTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "© OpenStreetMap contributors"
	DefaultUserAgent   = "batey-bike-trip-records/1.0"
	DefaultConcurrency = 4
	DefaultTimeout     = 10 * time.Second
	DefaultMemoryTTL   = time.Hour
)

// ErrOutOfRange is returned for tiles whose row lies outside the world.
var ErrOutOfRange = errors.New("tile out of range")

// Tile addresses a single map tile.
type Tile struct {
	X, Y, Z int
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Normalize wraps the column around the antimeridian. Rows outside the world
// are reported as not ok.
func (t Tile) Normalize() (Tile, bool) {
	n := 1 << t.Z
	if t.Y < 0 || t.Y >= n {
		return t, false
	}
	t.X = ((t.X % n) + n) % n
	return t, true
}

// Source provides decoded tile images.
type Source interface {
	Tile(ctx context.Context, t Tile) (image.Image, error)
}

// HTTPDoer is the subset of *http.Client used to download tiles.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configure a Client.
type Options struct {
	URLTemplate string
	// CacheDir holds downloaded tiles as <host>/<z>/<x>/<y>.png. Disk
	// caching is off when empty.
	CacheDir    string
	UserAgent   string
	Timeout     time.Duration
	Concurrency int
	MemoryTTL   time.Duration
	// Progress receives the prefetch progress bar. Nil disables it.
	Progress io.Writer
}

// Client downloads map tiles and caches them in memory and on disk.
type Client struct {
	opts       Options
	httpClient HTTPDoer
	memory     *cache.Cache
	logger     *zap.SugaredLogger
}

// NewClient creates a tile client. A nil doer uses an http.Client with
// opts.Timeout.
func NewClient(opts Options, doer HTTPDoer, memory *cache.Cache, logger *zap.SugaredLogger) *Client {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = DefaultMemoryTTL
	}
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}
	if memory == nil {
		memory = cache.NewCache()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{opts: opts, httpClient: doer, memory: memory, logger: logger}
}

// URL fills the URL template for t.
func (c *Client) URL(t Tile) string {
	u := strings.Replace(c.opts.URLTemplate, "{z}", strconv.Itoa(t.Z), 1)
	u = strings.Replace(u, "{x}", strconv.Itoa(t.X), 1)
	u = strings.Replace(u, "{y}", strconv.Itoa(t.Y), 1)
	return u
}

// Path returns where t is cached on disk, or "" when disk caching is off.
func (c *Client) Path(t Tile) string {
	if c.opts.CacheDir == "" {
		return ""
	}
	host := "tiles"
	if u, err := url.Parse(c.URL(t)); err == nil && u.Host != "" {
		host = u.Host
	}
	return filepath.Join(c.opts.CacheDir, host, strconv.Itoa(t.Z), strconv.Itoa(t.X), strconv.Itoa(t.Y)+".png")
}

// Fetch returns the raw bytes of t, from memory, disk or the tile server in
// that order.
func (c *Client) Fetch(ctx context.Context, t Tile) ([]byte, error) {
	t, ok := t.Normalize()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, t)
	}

	key := "tile:" + c.URL(t)
	if data, ok := c.memory.Get(key); ok {
		return data, nil
	}

	path := c.Path(t)
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			c.memory.Set(key, data, c.opts.MemoryTTL, "disk")
			return data, nil
		}
	}

	data, err := c.download(ctx, t)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create tile cache directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write tile cache: %w", err)
		}
	}
	c.memory.Set(key, data, c.opts.MemoryTTL, "http")
	return data, nil
}

func (c *Client) download(ctx context.Context, t Tile) ([]byte, error) {
	tileURL := c.URL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download tile %s: %w", tileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download tile %s: status %d", tileURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %s: %w", tileURL, err)
	}
	c.logger.Debugw("Downloaded tile", "tile", t.String(), "bytes", len(data))
	return data, nil
}

// Tile returns the decoded image of t. Implements Source.
func (c *Client) Tile(ctx context.Context, t Tile) (image.Image, error) {
	data, err := c.Fetch(ctx, t)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", t, err)
	}
	return img, nil
}

// Prefetch downloads tiles concurrently. Individual failures are logged and
// skipped; only cancellation is returned.
func (c *Client) Prefetch(ctx context.Context, tiles []Tile) error {
	if len(tiles) == 0 {
		return nil
	}

	var bar *progressbar.ProgressBar
	if c.opts.Progress != nil {
		bar = progressbar.NewOptions(len(tiles),
			progressbar.OptionSetWriter(c.opts.Progress),
			progressbar.OptionSetDescription("Downloading tiles"),
			progressbar.OptionShowCount(),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, t := range tiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := c.Fetch(gctx, t); err != nil {
				c.logger.Warnw("Tile prefetch failed", "tile", t.String(), "error", err)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return ctx.Err()
}

// Visible lists the tiles covering a layout's canvas. Columns are not
// normalized so callers can place each tile at its pixel offset; rows
// outside the world are omitted.
func Visible(l projection.Layout) []Tile {
	tileSize := float64(l.TileSize)
	xMin := int(math.Floor(l.XCenter - 0.5*float64(l.Width)/tileSize))
	xMax := int(math.Ceil(l.XCenter + 0.5*float64(l.Width)/tileSize))
	yMin := int(math.Floor(l.YCenter - 0.5*float64(l.Height)/tileSize))
	yMax := int(math.Ceil(l.YCenter + 0.5*float64(l.Height)/tileSize))

	rows := 1 << l.Zoom
	var out []Tile
	for x := xMin; x < xMax; x++ {
		for y := yMin; y < yMax; y++ {
			if y < 0 || y >= rows {
				continue
			}
			out = append(out, Tile{X: x, Y: y, Z: l.Zoom})
		}
	}
	return out
}

// Unique normalizes tiles and drops duplicates and out of range rows.
func Unique(tiles []Tile) []Tile {
	seen := make(map[Tile]struct{}, len(tiles))
	out := make([]Tile, 0, len(tiles))
	for _, t := range tiles {
		n, ok := t.Normalize()
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
