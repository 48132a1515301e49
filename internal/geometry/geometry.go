// Package geometry holds the route-curve helpers shared by the fuel and rest planners.
//
// Two distance metrics live here on purpose. PointAtDistance converts a mile target into
// coordinate degrees with a fixed factor, while InterpolateAtFraction measures the arc length
// of the curve itself. The planners were tuned against these exact metrics, so they must not
// be unified.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// MilesPerDegree is the planar approximation used to turn a mile target into degrees.
// It is only accurate near the equator.
const MilesPerDegree = 69.047

var (
	// ErrOutOfRange is returned when a route fraction falls outside [0,1].
	ErrOutOfRange = errors.New("fraction out of range")
	// ErrEmptyRoute is returned when a route has no coordinates at all.
	ErrEmptyRoute = errors.New("route geometry is empty")
)

// Point is a (longitude, latitude) pair.
type Point struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// Coord returns the point as a go-geom XY coordinate.
func (p Point) Coord() geom.Coord { return geom.Coord{p.Lon, p.Lat} }

func (p Point) String() string { return fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat) }

// FromCoord builds a Point from an XY coordinate.
func FromCoord(c geom.Coord) Point { return Point{Lon: c.X(), Lat: c.Y()} }

// NewLine builds an XY line string through the given points.
func NewLine(points ...Point) *geom.LineString {
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, p.Coord())
	}
	return geom.NewLineString(geom.XY).MustSetCoords(coords)
}

// Points returns the vertices of ls in order.
func Points(ls *geom.LineString) []Point {
	if ls == nil {
		return nil
	}
	out := make([]Point, 0, ls.NumCoords())
	for _, c := range ls.Coords() {
		out = append(out, FromCoord(c))
	}
	return out
}

// PointAtDistance walks the route and returns the point targetMiles from its start.
// Segment lengths are planar, in degrees. Targets past the end return the final point.
func PointAtDistance(route *geom.LineString, targetMiles float64) Point {
	if route == nil || route.NumCoords() == 0 {
		return Point{}
	}
	n := route.NumCoords()
	if n == 1 || targetMiles <= 0 {
		return FromCoord(route.Coord(0))
	}

	target := targetMiles / MilesPerDegree
	accumulated := 0.0
	for i := 0; i < n-1; i++ {
		start, end := route.Coord(i), route.Coord(i+1)
		dx, dy := end.X()-start.X(), end.Y()-start.Y()
		segment := math.Hypot(dx, dy)

		if accumulated+segment >= target {
			if segment == 0 {
				return FromCoord(start)
			}
			f := (target - accumulated) / segment
			return Point{Lon: start.X() + f*dx, Lat: start.Y() + f*dy}
		}
		accumulated += segment
	}

	return FromCoord(route.Coord(n - 1))
}

// InterpolateAtFraction returns the point at fraction*length along the route's arc.
func InterpolateAtFraction(route *geom.LineString, fraction float64) (Point, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return Point{}, fmt.Errorf("interpolate at %v: %w", fraction, ErrOutOfRange)
	}
	if route == nil || route.NumCoords() == 0 {
		return Point{}, ErrEmptyRoute
	}

	n := route.NumCoords()
	total := route.Length()
	if n == 1 || total == 0 {
		return FromCoord(route.Coord(0)), nil
	}

	target := total * fraction
	walked := 0.0
	for i := 0; i < n-1; i++ {
		start, end := route.Coord(i), route.Coord(i+1)
		segment := xy.Distance(start, end)
		if segment > 0 && walked+segment >= target {
			f := (target - walked) / segment
			return Point{
				Lon: start.X() + f*(end.X()-start.X()),
				Lat: start.Y() + f*(end.Y()-start.Y()),
			}, nil
		}
		walked += segment
	}

	return FromCoord(route.Coord(n - 1)), nil
}
