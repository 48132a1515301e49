// Package planner builds an hours-of-service compliant itinerary for a trip.
//
// A run goes fuel stops, rest stops, duration propagation, then daily logs. Every stop is
// first stamped as a pure driving-time offset from the plan clock. PropagateDurations then
// folds each stop's own duration into everything after it, exactly once.
package planner

import (
	"errors"
	"math"
	"time"

	"github.com/twpayne/go-geom"

	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
)

const (
	FuelRangeMiles  = 1000.0
	FuelTargetMiles = 900.0

	FuelStopHours      = 0.5
	PickupHours        = 1.0
	DropoffHours       = 1.0
	RestBreakHours     = 0.5
	MandatoryRestHours = 34.0

	BreakEveryMinutes = 480.0
	CycleLimitHours   = 70.0
)

var (
	// ErrAlreadyPropagated guards the non-idempotent timestamp shift.
	ErrAlreadyPropagated = errors.New("stop durations already propagated")
	// ErrFuelPlanDiverged means fuel stops kept being added without the remaining leg shrinking.
	ErrFuelPlanDiverged = errors.New("fuel planning did not converge")
)

// Plan is the in-memory result of one planning run. Nothing is persisted until the whole
// pipeline succeeds.
type Plan struct {
	Trip      *models.Trip
	Route     *models.Route
	Geometry  *geom.LineString
	Stops     []models.Stop
	DailyLogs []models.DailyLog

	// Waypoints in visitation order, as sent in the final directions query.
	Waypoints []geometry.Point

	Clock     time.Time
	Signature string

	propagated bool
}

func NewPlan(trip *models.Trip, clock time.Time, signature string) *Plan {
	return &Plan{Trip: trip, Clock: clock, Signature: signature}
}

// Propagated reports whether PropagateDurations has run.
func (p *Plan) Propagated() bool { return p.propagated }

func (p *Plan) addStop(kind models.StopType, name string, at geometry.Point, durationHours, offsetHours float64) {
	if name == "" {
		name = kind.Label()
	}
	p.Stops = append(p.Stops, models.Stop{
		StopType:  kind,
		Name:      name,
		Lon:       at.Lon,
		Lat:       at.Lat,
		Duration:  durationHours,
		Timestamp: p.Clock.Add(hoursToDuration(offsetHours)),
	})
}

// Count returns how many stops of kind the plan holds.
func (p *Plan) Count(kind models.StopType) int {
	n := 0
	for _, s := range p.Stops {
		if s.StopType == kind {
			n++
		}
	}
	return n
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h * float64(time.Hour)))
}
