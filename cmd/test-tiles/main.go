package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lelandbatey/batey-bike-trip-records/internal/cache"
	"github.com/lelandbatey/batey-bike-trip-records/internal/clients/tiles"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
)

func main() {
	var (
		lat      = flag.Float64("lat", 47.6062, "Latitude of the map center")
		lng      = flag.Float64("lng", -122.3321, "Longitude of the map center")
		zoom     = flag.Int("zoom", 12, "Zoom level")
		size     = flag.Int("size", 512, "Canvas size in pixels")
		urlTmpl  = flag.String("url", tiles.DefaultURLTemplate, "Tile URL template")
		cacheDir = flag.String("cache-dir", "", "Directory for cached tiles")
	)
	flag.Parse()

	fmt.Println("Testing Tile Fetching and Caching")

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	memory := cache.NewCache()
	client := tiles.NewClient(tiles.Options{
		URLTemplate: *urlTmpl,
		CacheDir:    *cacheDir,
		Progress:    os.Stderr,
	}, nil, memory, logger.Sugar())

	layout := projection.Layout{
		Zoom:     *zoom,
		XCenter:  projection.LonToX(*lng, *zoom),
		YCenter:  projection.LatToY(*lat, *zoom),
		Width:    *size,
		Height:   *size,
		TileSize: projection.DefaultTileSize,
	}
	visible := tiles.Unique(tiles.Visible(layout))
	fmt.Printf("Canvas %dx%d at zoom %d needs %d tiles\n", *size, *size, *zoom, len(visible))

	ctx := context.Background()
	start := time.Now()
	if err := client.Prefetch(ctx, visible); err != nil {
		log.Fatalf("Prefetch failed: %v", err)
	}
	fmt.Printf("\nFirst pass: %v\n", time.Since(start))

	start = time.Now()
	for _, t := range visible {
		if _, err := client.Tile(ctx, t); err != nil {
			fmt.Printf("  %s: %v\n", t, err)
		}
	}
	fmt.Printf("Second pass (cached): %v\n", time.Since(start))

	stats := memory.Stats()
	fmt.Printf("\nCache stats:\n")
	fmt.Printf("  Entries: %d (fresh %d, stale %d)\n", stats.TotalEntries, stats.FreshEntries, stats.StaleEntries)
	fmt.Printf("  Bytes: %d\n", stats.TotalBytes)
	if *cacheDir != "" && len(visible) > 0 {
		fmt.Printf("  First tile on disk: %s\n", client.Path(visible[0]))
	}
}
