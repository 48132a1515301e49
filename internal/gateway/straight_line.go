package gateway

import (
	"context"
	"fmt"
	"math"
	"sync"

	"eld_trip_planner/internal/geometry"
)

// StraightLine is an offline Gateway that joins waypoints with straight segments.
// It backs tests and the -provider=straight mode of the batch planner.
type StraightLine struct {
	// MilesPerDegree scales planar degree length into miles. Zero means geometry.MilesPerDegree.
	MilesPerDegree float64
	// SpeedMPH is the constant travel speed. Zero means 55.
	SpeedMPH float64
	// StationOffset shifts every returned station east by this many degrees.
	StationOffset float64
	// NoStations makes every point-of-interest search come back empty.
	NoStations bool
	// Err, when set, is returned by every Directions call.
	Err error

	mu              sync.Mutex
	directionsCalls int
	poiCalls        int
}

func (s *StraightLine) scale() float64 {
	if s.MilesPerDegree > 0 {
		return s.MilesPerDegree
	}
	return geometry.MilesPerDegree
}

func (s *StraightLine) speed() float64 {
	if s.SpeedMPH > 0 {
		return s.SpeedMPH
	}
	return 55
}

func (s *StraightLine) Directions(_ context.Context, waypoints []geometry.Point) (*Route, error) {
	s.mu.Lock()
	s.directionsCalls++
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("straight line: need at least 2 waypoints: %w", ErrNoRouteFound)
	}

	route := &Route{Geometry: geometry.NewLine(waypoints...)}
	for i := 0; i < len(waypoints)-1; i++ {
		a, b := waypoints[i], waypoints[i+1]
		miles := math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat) * s.scale()
		leg := Leg{Distance: miles, Duration: miles / s.speed()}
		route.Legs = append(route.Legs, leg)
		route.Distance += leg.Distance
		route.Duration += leg.Duration
	}
	return route, nil
}

func (s *StraightLine) PointsOfInterest(_ context.Context, category string, near geometry.Point) ([]Place, error) {
	s.mu.Lock()
	s.poiCalls++
	s.mu.Unlock()

	if s.NoStations {
		return nil, nil
	}
	return []Place{{
		Name:     category + " near " + near.String(),
		Location: geometry.Point{Lon: near.Lon + s.StationOffset, Lat: near.Lat},
	}}, nil
}

// Calls reports how many Directions and PointsOfInterest calls were made.
func (s *StraightLine) Calls() (directions, poi int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directionsCalls, s.poiCalls
}
