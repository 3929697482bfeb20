package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lelandbatey/batey-bike-trip-records/internal/clients/google"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

func main() {
	var (
		apiKey    = flag.String("api-key", "", "Google API key (or set GOOGLE_API_KEY env var)")
		provider  = flag.String("provider", "maps", "Directions provider: maps or routes")
		modeStr   = flag.String("mode", "bicycling", "Travel mode")
		originStr = flag.String("origin", "47.606200,-122.332100", "Origin coordinates (lat,lon)")
		destStr   = flag.String("dest", "47.252900,-122.444300", "Destination coordinates (lat,lon)")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Google Directions Test Tool\n\n")
		fmt.Printf("Requests a route between two points and prints the decoded path.\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s -api-key=YOUR_KEY\n", os.Args[0])
		fmt.Printf("  %s -provider=routes -origin=\"47.2529,-122.4443\" -dest=\"46.9965,-122.9070\"\n", os.Args[0])
		fmt.Printf("  GOOGLE_API_KEY=your_key %s\n", os.Args[0])
		return
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		log.Fatal("Google API key required. Use -api-key flag or GOOGLE_API_KEY env var")
	}

	mode, ok := routing.ParseTravelMode(*modeStr)
	if !ok {
		log.Fatalf("Unknown travel mode: %s", *modeStr)
	}

	var origin, destination geo.Coordinate
	if _, err := fmt.Sscanf(*originStr, "%f,%f", &origin.Latitude, &origin.Longitude); err != nil {
		log.Fatalf("Invalid origin coordinates: %v", err)
	}
	if _, err := fmt.Sscanf(*destStr, "%f,%f", &destination.Latitude, &destination.Longitude); err != nil {
		log.Fatalf("Invalid destination coordinates: %v", err)
	}

	fmt.Printf("Google Directions Test\n")
	fmt.Printf("======================\n")
	fmt.Printf("Provider: %s\n", *provider)
	fmt.Printf("Mode: %s\n", mode)
	fmt.Printf("Origin: %s\n", origin)
	fmt.Printf("Destination: %s\n", destination)
	fmt.Printf("API Key: %s...\n", key[:min(len(key), 10)])
	fmt.Printf("\n")

	var client routing.Directions
	switch *provider {
	case "routes":
		client = google.NewClient(key, 30*time.Second)
	case "maps":
		c, err := google.NewDirectionsClient(key, "", 30*time.Second)
		if err != nil {
			log.Fatalf("Failed to create directions client: %v", err)
		}
		client = c
	default:
		log.Fatalf("Unknown provider: %s", *provider)
	}

	resp, err := client.Directions(context.Background(), origin, destination, mode)
	if err != nil {
		log.Fatalf("Directions failed: %v", err)
	}

	segment, err := resp.Flatten()
	if err != nil {
		log.Fatalf("Failed to decode route: %v", err)
	}

	fmt.Printf("Directions successful\n")
	fmt.Printf("Routes: %d\n", len(resp.Routes))
	fmt.Printf("Step polylines: %d\n", len(resp.Polylines()))
	fmt.Printf("Points: %d\n", len(segment))
	fmt.Printf("Straight line: %.2f km\n", origin.DistanceTo(destination)/1000.0)
	fmt.Printf("Routed length: %.2f km\n", geo.PathLength(segment)/1000.0)
	if len(segment) > 0 {
		fmt.Printf("First point: %s\n", segment[0])
		fmt.Printf("Last point: %s\n", segment[len(segment)-1])
	}
}
