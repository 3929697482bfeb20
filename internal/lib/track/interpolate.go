package track

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

// DefaultThresholdMeters is the gap above which consecutive fixes are
// joined with a routed path instead of a straight hop.
const DefaultThresholdMeters = 500.0

// Interpolator densifies a sparse sequence of fixes with road-routed points.
type Interpolator struct {
	// Directions may be nil, in which case every pair is a direct hop.
	Directions      routing.Directions
	Mode            routing.TravelMode
	ThresholdMeters float64
	// Location decides calendar days for the midnight clamp. Defaults to
	// time.Local.
	Location *time.Location
	Logger   *zap.SugaredLogger
}

// NewInterpolator creates an Interpolator with the default threshold and
// travel mode.
func NewInterpolator(directions routing.Directions, loc *time.Location, logger *zap.SugaredLogger) *Interpolator {
	return &Interpolator{
		Directions:      directions,
		Mode:            routing.Bicycling,
		ThresholdMeters: DefaultThresholdMeters,
		Location:        loc,
		Logger:          logger,
	}
}

// Interpolate returns points with synthetic, timestamped route points
// inserted between every consecutive pair further apart than the threshold.
// Input must be sorted by Moment. Original points are never altered or
// dropped.
//
// A failed or empty directions call leaves the pair as a direct hop. An
// undecodable polyline in a response is returned as an error.
func (in *Interpolator) Interpolate(ctx context.Context, points []geo.TimedPoint) ([]geo.TimedPoint, error) {
	if len(points) == 0 {
		return []geo.TimedPoint{}, nil
	}

	logger := in.logger()
	if in.Directions == nil {
		logger.Warnw("No directions service configured, connecting all fixes directly")
	}

	out := make([]geo.TimedPoint, 0, len(points))
	for i := 0; i < len(points)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur, next := points[i], points[i+1]
		out = append(out, cur)

		distance := cur.Coordinate().DistanceTo(next.Coordinate())
		if distance <= in.threshold() || in.Directions == nil {
			continue
		}

		segment, err := in.route(ctx, cur, next, distance)
		if err != nil {
			return nil, err
		}
		out = append(out, Stamp(segment, cur, next, in.location())...)
	}
	out = append(out, points[len(points)-1])
	return out, nil
}

// route fetches and flattens the routed path between two fixes. Service
// failures are logged and yield an empty segment.
func (in *Interpolator) route(ctx context.Context, cur, next geo.TimedPoint, distance float64) (geo.RouteSegment, error) {
	logger := in.logger()
	logger.Debugw("Requesting directions",
		"from", cur.Coordinate().String(),
		"to", next.Coordinate().String(),
		"distance_meters", distance,
		"mode", in.mode())

	resp, err := in.Directions.Directions(ctx, cur.Coordinate(), next.Coordinate(), in.mode())
	if err != nil {
		logger.Warnw("Directions request failed, treating pair as a direct hop",
			"from", cur.Coordinate().String(),
			"to", next.Coordinate().String(),
			"error", err)
		return nil, nil
	}

	segment, err := resp.Flatten()
	if err != nil {
		return nil, err
	}
	if len(segment) == 0 {
		logger.Infow("Directions returned no route, treating pair as a direct hop",
			"from", cur.Coordinate().String(),
			"to", next.Coordinate().String())
	}
	return segment, nil
}

// Stamp assigns timestamps to the points of a routed segment between cur and
// next. The elapsed time is split into len(segment)+1 even slots, with cur
// and next occupying the first and last. When next falls on a later local
// calendar day than cur, the window ends at 23:59:59 on cur's day instead.
func Stamp(segment geo.RouteSegment, cur, next geo.TimedPoint, loc *time.Location) []geo.TimedPoint {
	if len(segment) == 0 {
		return nil
	}
	start, end := ClampEndBeforeMidnight(cur.Time(loc), next.Time(loc))
	perPoint := end.Sub(start) / time.Duration(len(segment)+1)

	stamped := make([]geo.TimedPoint, len(segment))
	for i, c := range segment {
		moment := start.Add(time.Duration(i+1) * perPoint)
		stamped[i] = geo.TimedPoint{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Moment:    moment.Unix(),
			Synthetic: true,
		}
	}
	return stamped
}

// ClampEndBeforeMidnight moves end to one second before midnight on start's
// calendar day if the two fall on different days. Interpolating smoothly
// across a night would imply continuous travel; the gap is treated as
// missing data instead.
func ClampEndBeforeMidnight(start, end time.Time) (time.Time, time.Time) {
	end = end.In(start.Location())
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		end = time.Date(sy, sm, sd, 23, 59, 59, 0, start.Location())
	}
	return start, end
}

func (in *Interpolator) threshold() float64 {
	if in.ThresholdMeters <= 0 {
		return DefaultThresholdMeters
	}
	return in.ThresholdMeters
}

func (in *Interpolator) mode() routing.TravelMode {
	if in.Mode == "" {
		return routing.Bicycling
	}
	return in.Mode
}

func (in *Interpolator) location() *time.Location {
	if in.Location == nil {
		return time.Local
	}
	return in.Location
}

func (in *Interpolator) logger() *zap.SugaredLogger {
	if in.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return in.Logger
}
