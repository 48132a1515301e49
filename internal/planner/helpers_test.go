package planner

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
)

var midnight = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTrip(current, pickup, dropoff geometry.Point, cycle float64) *models.Trip {
	return &models.Trip{
		Current:           models.Location{Name: "Yard", Lon: current.Lon, Lat: current.Lat},
		Pickup:            models.Location{Name: "Shipper", Lon: pickup.Lon, Lat: pickup.Lat},
		Dropoff:           models.Location{Name: "Receiver", Lon: dropoff.Lon, Lat: dropoff.Lat},
		CurrentCycleHours: cycle,
	}
}

// hourPerDegree makes one degree of straight line exactly one hour and 55 miles.
func hourPerDegree() *gateway.StraightLine {
	return &gateway.StraightLine{MilesPerDegree: 55, SpeedMPH: 55}
}

// poiFailing wraps a gateway whose fuel search always errors.
type poiFailing struct {
	gateway.Gateway
	err error
}

func (g poiFailing) PointsOfInterest(context.Context, string, geometry.Point) ([]gateway.Place, error) {
	return nil, g.err
}

// directionsFailingAt fails the nth directions query and every one after it.
type directionsFailingAt struct {
	gateway.Gateway
	n     int
	calls *int
}

func (g directionsFailingAt) Directions(ctx context.Context, wp []geometry.Point) (*gateway.Route, error) {
	*g.calls++
	if *g.calls >= g.n {
		return nil, gateway.ErrNoRouteFound
	}
	return g.Gateway.Directions(ctx, wp)
}

// contextBound fails every call made on a done context, like a real HTTP gateway.
type contextBound struct {
	gateway.Gateway
}

func (g contextBound) Directions(ctx context.Context, wp []geometry.Point) (*gateway.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Gateway.Directions(ctx, wp)
}

func (g contextBound) PointsOfInterest(ctx context.Context, category string, near geometry.Point) ([]gateway.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Gateway.PointsOfInterest(ctx, category, near)
}

// unroutableFrom has no route for any query starting at from.
type unroutableFrom struct {
	gateway.Gateway
	from geometry.Point
}

func (g unroutableFrom) Directions(ctx context.Context, wp []geometry.Point) (*gateway.Route, error) {
	if len(wp) > 0 && wp[0] == g.from {
		return nil, gateway.ErrNoRouteFound
	}
	return g.Gateway.Directions(ctx, wp)
}

// straightMiles sums the straight-line miles along waypoints between indexes i and j.
func straightMiles(waypoints []geometry.Point, i, j int, milesPerDegree float64) float64 {
	var miles float64
	for k := i; k < j; k++ {
		a, b := waypoints[k], waypoints[k+1]
		miles += math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat) * milesPerDegree
	}
	return miles
}

func indexOf(waypoints []geometry.Point, p geometry.Point, from int) int {
	for i := from; i < len(waypoints); i++ {
		if waypoints[i] == p {
			return i
		}
	}
	return -1
}

// assertChained checks that sorted stops never overlap.
func assertChained(t *testing.T, stops []models.Stop) {
	t.Helper()
	for i := 1; i < len(stops); i++ {
		prev, cur := stops[i-1], stops[i]
		assert.False(t, cur.Timestamp.Before(prev.Timestamp), "stop %d out of order", i)
		assert.False(t, prev.End().After(cur.Timestamp.Add(time.Millisecond)),
			"stop %d (%s) ends at %s after stop %d (%s) starts at %s",
			i-1, prev.StopType, prev.End(), i, cur.StopType, cur.Timestamp)
	}
}

// assertHOS walks the compiled timeline and checks the driving and cycle limits.
func assertHOS(t *testing.T, p *Plan, startCycle float64) {
	t.Helper()
	var sinceBreak, cycle = 0.0, startCycle
	for _, ev := range p.timeline() {
		hours := ev.end.Sub(ev.start).Hours()
		switch {
		case ev.driving():
			sinceBreak += hours
			cycle += hours
			assert.LessOrEqual(t, sinceBreak*60, BreakEveryMinutes+1e-6, "driving stretch ending %s", ev.end)
			assert.LessOrEqual(t, cycle, CycleLimitHours+1e-6, "cycle at %s", ev.end)
		case ev.kind == models.StopRestBreak:
			sinceBreak = 0
			cycle += hours
		case ev.kind == models.StopMandatoryRest:
			sinceBreak = 0
			cycle = 0
		}
	}
}

func requireDailyLogsConsistent(t *testing.T, p *Plan) {
	t.Helper()
	var miles float64
	for _, l := range p.DailyLogs {
		require.NotEmpty(t, l.DutyStatuses, "log %s", l.Date)
		miles += l.TotalMiles
		for i, ds := range l.DutyStatuses {
			assert.GreaterOrEqual(t, int(ds.StartTime), 0)
			assert.LessOrEqual(t, ds.EndTime, models.EndOfDay)
			assert.LessOrEqual(t, ds.StartTime, ds.EndTime)
			if i > 0 {
				assert.GreaterOrEqual(t, ds.StartTime, l.DutyStatuses[i-1].EndTime, "log %s entry %d overlaps", l.Date, i)
			}
		}
	}
	assert.InDelta(t, p.Trip.TotalDistance, miles, 1e-6)
}
