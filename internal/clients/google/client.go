package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

const (
	// DefaultRoutesBaseURL is the Google Routes API v2 endpoint.
	DefaultRoutesBaseURL = "https://routes.googleapis.com"

	// Only step geometry is needed; the field mask is required by the API.
	routesFieldMask = "routes.legs.steps.polyline.encodedPolyline"
)

var (
	// ErrRateLimited is returned for HTTP 429 responses.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNoRoutes is returned when the service found no route.
	ErrNoRoutes = errors.New("no routes found in response")
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to Google Routes API v2 computeRoutes.
type Client struct {
	apiKey     string
	httpClient HTTPDoer
	baseURL    string
}

// NewClient creates a new Google Routes API client
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithHTTPDoer(apiKey, DefaultRoutesBaseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPDoer creates a client against baseURL using doer for
// transport.
func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultRoutesBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: doer,
	}
}

// Directions computes a route between two coordinates and returns its step
// polylines. Implements routing.Directions.
func (c *Client) Directions(ctx context.Context, from, to geo.Coordinate, mode routing.TravelMode) (*routing.Response, error) {
	requestBody := routesRequest{
		Origin:           waypointFor(from),
		Destination:      waypointFor(to),
		TravelMode:       routesTravelMode(mode),
		PolylineEncoding: "ENCODED_POLYLINE",
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/directions/v2:computeRoutes", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response RoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Routes) == 0 {
		return nil, ErrNoRoutes
	}

	return response.toRouting(), nil
}

func (r RoutesResponse) toRouting() *routing.Response {
	out := &routing.Response{Routes: make([]routing.Route, 0, len(r.Routes))}
	for _, route := range r.Routes {
		rr := routing.Route{Legs: make([]routing.Leg, 0, len(route.Legs))}
		for _, leg := range route.Legs {
			rl := routing.Leg{Steps: make([]routing.Step, 0, len(leg.Steps))}
			for _, step := range leg.Steps {
				rl.Steps = append(rl.Steps, routing.Step{Polyline: step.Polyline.EncodedPolyline})
			}
			rr.Legs = append(rr.Legs, rl)
		}
		out.Routes = append(out.Routes, rr)
	}
	return out
}

// routesTravelMode maps a travel mode to the Routes API enum.
func routesTravelMode(mode routing.TravelMode) string {
	switch mode {
	case routing.Driving:
		return "DRIVE"
	case routing.Walking:
		return "WALK"
	case routing.Transit:
		return "TRANSIT"
	default:
		return "BICYCLE"
	}
}

func waypointFor(c geo.Coordinate) routesWaypoint {
	var w routesWaypoint
	w.Location.LatLng.Latitude = c.Latitude
	w.Location.LatLng.Longitude = c.Longitude
	return w
}

type routesRequest struct {
	Origin           routesWaypoint `json:"origin"`
	Destination      routesWaypoint `json:"destination"`
	TravelMode       string         `json:"travelMode"`
	PolylineEncoding string         `json:"polylineEncoding"`
}

type routesWaypoint struct {
	Location struct {
		LatLng struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"latLng"`
	} `json:"location"`
}

// RoutesResponse represents the API response structure
type RoutesResponse struct {
	Routes []RoutesRoute `json:"routes"`
}

// RoutesRoute represents a single route in the response
type RoutesRoute struct {
	Legs []RoutesLeg `json:"legs"`
}

// RoutesLeg is the part of a route between two waypoints
type RoutesLeg struct {
	Steps []RoutesStep `json:"steps"`
}

// RoutesStep is a single navigation step
type RoutesStep struct {
	Polyline RoutesPolyline `json:"polyline"`
}

// RoutesPolyline represents the step polyline
type RoutesPolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}
