package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lelandbatey/batey-bike-trip-records/internal/cache"
	"github.com/lelandbatey/batey-bike-trip-records/internal/clients/google"
	"github.com/lelandbatey/batey-bike-trip-records/internal/clients/tiles"
	"github.com/lelandbatey/batey-bike-trip-records/internal/config"
	"github.com/lelandbatey/batey-bike-trip-records/internal/ingest"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/track"
	"github.com/lelandbatey/batey-bike-trip-records/internal/render"
	"github.com/lelandbatey/batey-bike-trip-records/internal/services"
)

const tileCacheCleanupInterval = 5 * time.Minute

func main() {
	log.SetFlags(0)
	app := &cli.App{
		Name:  "tripmap",
		Usage: "Draw per-day maps of a trip from timestamped location records",
		Commands: []*cli.Command{
			renderCommand(),
			{
				Name:      "extract-markdown",
				Usage:     "Print location records found in CSV code blocks of markdown notes as JSON lines",
				ArgsUsage: "FILE...",
				Action: func(c *cli.Context) error {
					return extract(c, readMarkdown(zap.NewNop().Sugar()))
				},
			},
			{
				Name:      "extract-exif",
				Usage:     "Print the GPS position and time of photos as JSON lines",
				ArgsUsage: "PHOTO...",
				Action:    extractEXIF,
			},
			{
				Name:      "extract-gpx",
				Usage:     "Print the points of GPX files as JSON lines",
				ArgsUsage: "FILE...",
				Action: func(c *cli.Context) error {
					return extract(c, ingest.ReadGPX)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render one map per day plus a map of the whole trip",
		ArgsUsage: "[INPUT...]",
		Description: "Reads JSON lines from stdin when no INPUT is given. Inputs ending in .gpx\n" +
			"or .md are read as GPX tracks or markdown notes, anything else as JSON lines.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration `FILE`",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "aggregate map `PATH`; day maps are written next to it",
			},
			&cli.StringFlag{Name: "kml", Usage: "also write the trip as KML to `PATH`"},
			&cli.StringFlag{Name: "geojson", Usage: "also write the trip as GeoJSON to `PATH`"},
			&cli.StringFlag{Name: "gpx", Usage: "also write the trip as GPX to `PATH`"},
			&cli.StringFlag{Name: "timezone", Usage: "IANA `ZONE` deciding calendar days"},
		},
		Action: runRender,
	}
}

func runRender(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := readInputs(c.Args().Slice(), sugar)
	if err != nil {
		return err
	}

	directions, err := newDirections(cfg.Directions, sugar)
	if err != nil {
		return err
	}
	opts, err := services.MapOptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	interpolator := track.NewInterpolator(directions, opts.Location, sugar)
	interpolator.Mode = cfg.Directions.TravelMode()
	interpolator.ThresholdMeters = cfg.Directions.ThresholdMeters

	tileCache := cache.NewCache()
	var src tiles.Source
	if cfg.Render.TilesEnabled() {
		go tileCache.StartPeriodicCleanup(ctx, tileCacheCleanupInterval, sugar)
		src = tiles.NewClient(tiles.Options{
			URLTemplate: cfg.Render.TileURL,
			CacheDir:    cfg.Render.TileCacheDir,
			UserAgent:   cfg.Render.TileUserAgent,
			Timeout:     cfg.Render.TileTimeout,
			Concurrency: cfg.Render.TileConcurrency,
			Progress:    os.Stderr,
		}, nil, tileCache, sugar)
	}
	renderer, err := render.New(src, sugar)
	if err != nil {
		return err
	}
	if cfg.Render.TileURL == tiles.DefaultURLTemplate {
		renderer.Attribution = tiles.DefaultAttribution
	}

	svc := services.NewMapService(interpolator, renderer, render.SavePNG, opts, sugar)
	result, err := svc.Run(ctx, records)
	if err != nil {
		return err
	}
	if err := svc.Export(result, cfg.Output); err != nil {
		return err
	}

	stats := tileCache.Stats()
	sugar.Infow("Done",
		"days", result.Days.Len(),
		"files", len(result.Files),
		"tiles_cached", stats.TotalEntries,
		"tile_bytes", stats.TotalBytes)
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("kml") {
		cfg.Output.KML = c.String("kml")
	}
	if c.IsSet("geojson") {
		cfg.Output.GeoJSON = c.String("geojson")
	}
	if c.IsSet("gpx") {
		cfg.Output.GPX = c.String("gpx")
	}
	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// newDirections returns nil when no API key is configured, which connects
// every pair of fixes directly.
func newDirections(cfg config.DirectionsConfig, logger *zap.SugaredLogger) (routing.Directions, error) {
	if cfg.APIKey == "" {
		logger.Warnw("No directions API key configured")
		return nil, nil
	}
	switch cfg.Provider {
	case config.ProviderRoutes:
		if cfg.BaseURL != "" {
			return google.NewClientWithHTTPDoer(cfg.APIKey, cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}), nil
		}
		return google.NewClient(cfg.APIKey, cfg.Timeout), nil
	default:
		client, err := google.NewDirectionsClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

type reader func(io.Reader) ([]ingest.Record, error)

func readMarkdown(logger *zap.SugaredLogger) reader {
	return func(r io.Reader) ([]ingest.Record, error) {
		return ingest.ReadMarkdown(r, logger)
	}
}

func readerFor(path string, logger *zap.SugaredLogger) reader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return ingest.ReadGPX
	case ".md", ".markdown":
		return readMarkdown(logger)
	default:
		return ingest.ReadJSONLines
	}
}

func readInputs(paths []string, logger *zap.SugaredLogger) ([]ingest.Record, error) {
	if len(paths) == 0 {
		return ingest.ReadJSONLines(os.Stdin)
	}
	var records []ingest.Record
	for _, path := range paths {
		recs, err := readFile(path, readerFor(path, logger))
		if err != nil {
			return nil, err
		}
		logger.Infow("Read input", "path", path, "records", len(recs))
		records = append(records, recs...)
	}
	return records, nil
}

func readFile(path string, read reader) ([]ingest.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func extract(c *cli.Context, read reader) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one FILE is required", 2)
	}
	var records []ingest.Record
	for _, path := range c.Args().Slice() {
		recs, err := readFile(path, read)
		if err != nil {
			return err
		}
		records = append(records, recs...)
	}
	ingest.SortByMoment(records)
	return ingest.WriteJSONLines(c.App.Writer, records)
}

func extractEXIF(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one PHOTO is required", 2)
	}
	fixes := make([]ingest.PhotoFix, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		fixes = append(fixes, ingest.ReadEXIF(f, path))
		f.Close()
	}
	return ingest.WritePhotoFixes(c.App.Writer, fixes)
}
