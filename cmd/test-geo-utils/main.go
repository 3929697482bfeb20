package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/track"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "point-distance":
		handlePointDistance()
	case "path-length":
		handlePathLength()
	case "decode-polyline":
		handleDecodePolyline()
	case "tile-coords":
		handleTileCoords()
	case "day":
		handleDay()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handlePointDistance() {
	fs := flag.NewFlagSet("point-distance", flag.ExitOnError)
	lat1 := fs.Float64("lat1", 0, "Latitude of first point")
	lng1 := fs.Float64("lng1", 0, "Longitude of first point")
	lat2 := fs.Float64("lat2", 0, "Latitude of second point")
	lng2 := fs.Float64("lng2", 0, "Longitude of second point")

	fs.Parse(os.Args[2:])

	if *lat1 == 0 && *lng1 == 0 && *lat2 == 0 && *lng2 == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils point-distance --lat1 47.6062 --lng1 -122.3321 --lat2 47.2529 --lng2 -122.4443")
		fmt.Println("  (Distance between Seattle and Tacoma)")
		os.Exit(1)
	}

	p1 := geo.Coordinate{Latitude: *lat1, Longitude: *lng1}
	p2 := geo.Coordinate{Latitude: *lat2, Longitude: *lng2}

	distance, err := geo.PointToPoint(p1, p2)
	if err != nil {
		log.Fatalf("Error calculating distance: %v", err)
	}

	fmt.Printf("Distance between points:\n")
	fmt.Printf("  Point 1: (%.6f, %.6f)\n", p1.Latitude, p1.Longitude)
	fmt.Printf("  Point 2: (%.6f, %.6f)\n", p2.Latitude, p2.Longitude)
	fmt.Printf("  Distance: %.2f meters (%.2f km, %.2f miles)\n",
		distance, distance/1000, distance*0.000621371)
	if distance > track.DefaultThresholdMeters {
		fmt.Printf("  Interpolation: routed (over %.0f meters)\n", track.DefaultThresholdMeters)
	} else {
		fmt.Printf("  Interpolation: direct hop\n")
	}
}

func handlePathLength() {
	fs := flag.NewFlagSet("path-length", flag.ExitOnError)
	coords := fs.String("coords", "", "Semicolon separated lat,lng pairs")
	polylineStr := fs.String("polyline", "", "Encoded polyline string")

	fs.Parse(os.Args[2:])

	var (
		points []geo.Coordinate
		err    error
	)
	switch {
	case *polylineStr != "":
		points, err = geo.DecodePolyline(*polylineStr)
	case *coords != "":
		points, err = parseCoordinatePairs(*coords)
	default:
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils path-length --coords \"47.6062,-122.3321; 47.2529,-122.4443; 46.9965,-122.9070\"")
		fmt.Println("  test-geo-utils path-length --polyline \"_p~iF~ps|U_ulLnnqC_mqNvxq`@\"")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error reading path: %v", err)
	}

	length := geo.PathLength(points)
	fmt.Printf("Path length:\n")
	fmt.Printf("  Points: %d\n", len(points))
	fmt.Printf("  Length: %.2f meters (%.2f km, %.2f miles)\n",
		length, length/1000, length*0.000621371)
}

func handleDecodePolyline() {
	fs := flag.NewFlagSet("decode-polyline", flag.ExitOnError)
	polylineStr := fs.String("polyline", "", "Encoded polyline string to decode")
	verbose := fs.Bool("verbose", false, "Show all decoded points")

	fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils decode-polyline --polyline \"_p~iF~ps|U_ulLnnqC_mqNvxq`@\"")
		fmt.Println("  test-geo-utils decode-polyline --polyline \"encoded_string\" --verbose")
		os.Exit(1)
	}

	points, err := geo.DecodePolyline(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}

	fmt.Printf("Polyline decoded successfully:\n")
	fmt.Printf("  Input: %s\n", *polylineStr)
	fmt.Printf("  Points: %d\n", len(points))

	if len(points) > 0 {
		fmt.Printf("  Start: (%.6f, %.6f)\n", points[0].Latitude, points[0].Longitude)
		if len(points) > 1 {
			fmt.Printf("  End: (%.6f, %.6f)\n", points[len(points)-1].Latitude, points[len(points)-1].Longitude)
		}
	}

	if *verbose && len(points) > 0 {
		fmt.Printf("  All points:\n")
		for i, point := range points {
			fmt.Printf("    %d: (%.6f, %.6f)\n", i+1, point.Latitude, point.Longitude)
		}
	}
}

func handleTileCoords() {
	fs := flag.NewFlagSet("tile-coords", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "Latitude")
	lng := fs.Float64("lng", 0, "Longitude")
	zoom := fs.Int("zoom", 12, "Zoom level")

	fs.Parse(os.Args[2:])

	if *lat == 0 && *lng == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils tile-coords --lat 47.6062 --lng -122.3321 --zoom 12")
		os.Exit(1)
	}

	x := projection.LonToX(*lng, *zoom)
	y := projection.LatToY(*lat, *zoom)

	fmt.Printf("Web Mercator tile coordinates:\n")
	fmt.Printf("  Point: (%.6f, %.6f)\n", *lat, *lng)
	fmt.Printf("  Zoom: %d\n", *zoom)
	fmt.Printf("  Tile: x=%.4f y=%.4f (%d/%d/%d)\n", x, y, *zoom, int(x), int(y))
	fmt.Printf("  Round trip: (%.6f, %.6f)\n", projection.YToLat(y, *zoom), projection.XToLon(x, *zoom))
}

func handleDay() {
	fs := flag.NewFlagSet("day", flag.ExitOnError)
	timestamp := fs.Int64("timestamp", 0, "Unix timestamp in seconds")
	timezone := fs.String("timezone", "Local", "IANA time zone")

	fs.Parse(os.Args[2:])

	if *timestamp == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils day --timestamp 1467904500 --timezone America/Los_Angeles")
		os.Exit(1)
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Error loading time zone: %v", err)
	}

	day := track.KeyFor(*timestamp, loc)
	fmt.Printf("Calendar day:\n")
	fmt.Printf("  Time: %s\n", time.Unix(*timestamp, 0).In(loc).Format(time.RFC3339))
	fmt.Printf("  Day: %s\n", day)
	fmt.Printf("  Color: %s\n", palette.ColorFor(day))
}

func printUsage() {
	fmt.Printf(`test-geo-utils - Geographic utility testing tool

USAGE:
    test-geo-utils <command> [options]

COMMANDS:
    point-distance      Calculate great-circle distance between two points
    path-length         Sum the great-circle length of a path
    decode-polyline     Decode Google polyline string to coordinates
    tile-coords         Project a point to Web Mercator tile coordinates
    day                 Show the calendar day and map color of a timestamp
    help                Show this help message

EXAMPLES:
    # Distance between Seattle and Tacoma
    test-geo-utils point-distance --lat1 47.6062 --lng1 -122.3321 --lat2 47.2529 --lng2 -122.4443

    # Length of a ride
    test-geo-utils path-length --coords "47.6062,-122.3321; 47.2529,-122.4443"

    # Decode polyline to see coordinates
    test-geo-utils decode-polyline --polyline "encoded_string" --verbose

    # Tile holding downtown Seattle at zoom 12
    test-geo-utils tile-coords --lat 47.6062 --lng -122.3321 --zoom 12

    # Day key and color of a fix
    test-geo-utils day --timestamp 1467904500 --timezone America/Los_Angeles
`)
}

// Helper function to parse coordinate pairs from string
func parseCoordinatePairs(coordStr string) ([]geo.Coordinate, error) {
	if coordStr == "" {
		return nil, fmt.Errorf("empty coordinate string")
	}

	pairs := strings.Split(coordStr, ";")
	points := make([]geo.Coordinate, 0, len(pairs))

	for _, pair := range pairs {
		coords := strings.Split(strings.TrimSpace(pair), ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid coordinate pair: %s", pair)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude: %s", coords[0])
		}

		lng, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude: %s", coords[1])
		}

		points = append(points, geo.Coordinate{Latitude: lat, Longitude: lng})
	}

	return points, nil
}
