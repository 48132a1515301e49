package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

const tolerance = 1e-9

func bentRoute() []Point {
	return []Point{{0, 0}, {0, 3}, {4, 3}, {4, 10}}
}

func TestPointAtDistanceEndpoints(t *testing.T) {
	line := NewLine(bentRoute()...)
	totalMiles := line.Length() * MilesPerDegree

	start := PointAtDistance(line, 0)
	assert.InDelta(t, 0, start.Lon, tolerance)
	assert.InDelta(t, 0, start.Lat, tolerance)

	end := PointAtDistance(line, totalMiles)
	assert.InDelta(t, 4, end.Lon, 1e-6)
	assert.InDelta(t, 10, end.Lat, 1e-6)
}

func TestPointAtDistanceInterpolatesWithinSegment(t *testing.T) {
	line := NewLine(bentRoute()...)

	// 3 degrees up the first segment, then 2 degrees along the second.
	p := PointAtDistance(line, 5*MilesPerDegree)
	assert.InDelta(t, 2, p.Lon, 1e-9)
	assert.InDelta(t, 3, p.Lat, 1e-9)
}

func TestPointAtDistancePastEndReturnsLastPoint(t *testing.T) {
	line := NewLine(Point{0, 0}, Point{0, 1})
	p := PointAtDistance(line, 10_000)
	assert.Equal(t, Point{0, 1}, p)
}

func TestPointAtDistanceDegenerateRoutes(t *testing.T) {
	assert.Equal(t, Point{}, PointAtDistance(nil, 10))

	single := NewLine(Point{5, 6})
	assert.Equal(t, Point{5, 6}, PointAtDistance(single, 100))

	// Zero-length segments must not divide by zero.
	flat := NewLine(Point{1, 1}, Point{1, 1}, Point{1, 1})
	assert.Equal(t, Point{1, 1}, PointAtDistance(flat, 50))
}

func TestInterpolateAtFractionLiesOnCurve(t *testing.T) {
	line := NewLine(bentRoute()...)
	total := line.Length()

	for _, f := range []float64{0, 0.1, 0.25, 0.3, 0.5, 0.77, 0.9, 1} {
		p, err := InterpolateAtFraction(line, f)
		require.NoError(t, err, "fraction %v", f)
		assert.InDelta(t, f*total, arcPosition(line, p), 1e-9, "fraction %v", f)
	}
}

func TestInterpolateAtFractionOutOfRange(t *testing.T) {
	line := NewLine(bentRoute()...)
	for _, f := range []float64{-0.01, 1.0001, 7} {
		_, err := InterpolateAtFraction(line, f)
		assert.True(t, errors.Is(err, ErrOutOfRange), "fraction %v", f)
	}
}

func TestInterpolateAtFractionEmptyRoute(t *testing.T) {
	_, err := InterpolateAtFraction(nil, 0.5)
	assert.ErrorIs(t, err, ErrEmptyRoute)

	p, err := InterpolateAtFraction(NewLine(Point{2, 2}), 0.5)
	require.NoError(t, err)
	assert.Equal(t, Point{2, 2}, p)
}

func TestMetricsDifferOnlyByConversion(t *testing.T) {
	// On a straight route the two helpers agree once miles are turned into a fraction.
	line := NewLine(Point{0, 0}, Point{0, 20})
	byMiles := PointAtDistance(line, 10*MilesPerDegree)
	byFraction, err := InterpolateAtFraction(line, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, byFraction.Lat, byMiles.Lat, 1e-9)
}

func TestPointsRoundTrip(t *testing.T) {
	pts := bentRoute()
	assert.Equal(t, pts, Points(NewLine(pts...)))
	assert.Nil(t, Points(nil))
}

// arcPosition returns how far along route p lies. The nearest segment wins.
func arcPosition(route *geom.LineString, p Point) float64 {
	if route == nil || route.NumCoords() < 2 {
		return 0
	}
	best, bestDist, walked := 0.0, math.Inf(1), 0.0
	for i := 0; i < route.NumCoords()-1; i++ {
		start, end := route.Coord(i), route.Coord(i+1)
		segment := xy.Distance(start, end)
		t := 0.0
		if segment > 0 {
			t = ((p.Lon-start.X())*(end.X()-start.X()) + (p.Lat-start.Y())*(end.Y()-start.Y())) / (segment * segment)
			t = math.Max(0, math.Min(1, t))
		}
		proj := geom.Coord{start.X() + t*(end.X()-start.X()), start.Y() + t*(end.Y()-start.Y())}
		if d := xy.Distance(proj, p.Coord()); d < bestDist {
			bestDist = d
			best = walked + t*segment
		}
		walked += segment
	}
	return best
}
