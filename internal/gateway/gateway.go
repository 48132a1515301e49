// Package gateway is the boundary between the planners and an external routing provider.
//
// Providers speak meters and seconds; everything returned from this package is already in
// miles and hours.
package gateway

import (
	"context"
	"errors"

	"github.com/twpayne/go-geom"

	"eld_trip_planner/internal/geometry"
)

const (
	MetersPerMile  = 1609.34
	SecondsPerHour = 3600.0

	// CategoryFuel is the point-of-interest category searched for fuel stops.
	CategoryFuel = "gas_station"
)

var (
	// ErrNoRouteFound means the provider answered but had no usable route.
	ErrNoRouteFound = errors.New("no route found")
	// ErrGatewayUnavailable means the provider could not be reached or failed.
	ErrGatewayUnavailable = errors.New("routing gateway unavailable")
	// ErrNoStationFound means a fuel search came back empty. Planners absorb it.
	ErrNoStationFound = errors.New("no fuel station found")
)

// Leg is one waypoint-to-waypoint stretch of a route.
type Leg struct {
	Distance float64 `msgpack:"d" json:"distance"` // miles
	Duration float64 `msgpack:"t" json:"duration"` // hours
}

// Route is the best route a provider returned for a list of waypoints.
type Route struct {
	Geometry *geom.LineString
	Distance float64 // miles
	Duration float64 // hours
	Legs     []Leg
}

// Place is a point-of-interest candidate, in provider ranking order.
type Place struct {
	Name     string         `msgpack:"n" json:"name"`
	Location geometry.Point `msgpack:"l" json:"location"`
}

// Gateway is what the planners need from a routing provider.
type Gateway interface {
	// Directions routes through the waypoints in order.
	Directions(ctx context.Context, waypoints []geometry.Point) (*Route, error)
	// PointsOfInterest returns candidates of category near a point, best first.
	// An empty result is not an error.
	PointsOfInterest(ctx context.Context, category string, near geometry.Point) ([]Place, error)
}

func MetersToMiles(m float64) float64  { return m / MetersPerMile }
func SecondsToHours(s float64) float64 { return s / SecondsPerHour }
