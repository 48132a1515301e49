package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
)

const maxFuelStops = 50

// FuelPlanner inserts fuel stops so that no stretch between stations exceeds FuelRangeMiles.
type FuelPlanner struct {
	Gateway gateway.Gateway
}

// fuelRun is the state of one fuel planning pass. Distances are miles, durations hours.
type fuelRun struct {
	plan *Plan
	gw   gateway.Gateway

	current, pickup, dropoff geometry.Point

	prev          geometry.Point
	leg           *gateway.Route
	pickupPending bool
	// pickupAlong is the route distance from prev to the pickup while it is pending.
	pickupAlong float64

	drivenMiles float64
	drivenHours float64
}

// PlanFuelStops adds pickup, fuel and dropoff stops to p and returns the trip's driving
// distance, driving duration and final geometry. The initial route runs
// current -> pickup -> dropoff.
func (f *FuelPlanner) PlanFuelStops(ctx context.Context, p *Plan, initial *gateway.Route) (distance, duration float64, line *geom.LineString, err error) {
	defer obs.Time(ctx, "planner.PlanFuelStops")(&err)

	trip := p.Trip
	r := &fuelRun{
		plan:    p,
		gw:      f.Gateway,
		current: trip.Current.Point(),
		pickup:  trip.Pickup.Point(),
		dropoff: trip.Dropoff.Point(),
	}
	p.Waypoints = []geometry.Point{r.current}

	toPickup, err := f.Gateway.Directions(ctx, []geometry.Point{r.current, r.pickup})
	if err != nil {
		return 0, 0, nil, fmt.Errorf("plan fuel stops: route to pickup: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"req_id":        obs.RequestID(ctx),
		"initial_miles": initial.Distance,
		"initial_hours": initial.Duration,
		"pickup_miles":  toPickup.Distance,
	})

	if initial.Distance <= FuelRangeMiles {
		p.addStop(models.StopPickup, trip.Pickup.Name, r.pickup, PickupHours, toPickup.Duration)
		p.addStop(models.StopDropoff, trip.Dropoff.Name, r.dropoff, DropoffHours, initial.Duration)
		p.Waypoints = append(p.Waypoints, r.pickup, r.dropoff)
		log.Info("trip fits in one tank, no fuel stops")
		return initial.Distance, initial.Duration, initial.Geometry, nil
	}

	r.prev = r.current
	r.leg = initial
	r.pickupPending = true
	r.pickupAlong = toPickup.Distance

	for stops := 0; r.leg.Distance > FuelRangeMiles; stops++ {
		if stops >= maxFuelStops {
			return 0, 0, nil, fmt.Errorf("plan fuel stops: %d stops, %.1f miles left: %w", stops, r.leg.Distance, ErrFuelPlanDiverged)
		}
		err := r.refuel(ctx)
		if errors.Is(err, gateway.ErrNoStationFound) {
			log.WithField("fuel_stops", stops).Warn("no fuel station near target, keeping progress so far")
			break
		}
		if err != nil {
			return 0, 0, nil, fmt.Errorf("plan fuel stops: %w", err)
		}
	}

	r.finish()

	final, err := f.Gateway.Directions(ctx, p.Waypoints)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("plan fuel stops: final route: %w", err)
	}

	log.WithFields(logrus.Fields{
		"fuel_stops":  p.Count(models.StopFuel),
		"waypoints":   len(p.Waypoints),
		"total_miles": r.drivenMiles,
		"total_hours": r.drivenHours,
	}).Info("fuel stops planned")
	return r.drivenMiles, r.drivenHours, final.Geometry, nil
}

// refuel adds one fuel stop about FuelTargetMiles into the current leg and re-routes the rest.
func (r *fuelRun) refuel(ctx context.Context) error {
	target := geometry.PointAtDistance(r.leg.Geometry, FuelTargetMiles)

	places, err := r.gw.PointsOfInterest(ctx, gateway.CategoryFuel, target)
	if err != nil {
		return fmt.Errorf("fuel search near %s: %w", target, err)
	}
	if len(places) == 0 {
		return gateway.ErrNoStationFound
	}
	station := places[0]

	viaPickup := r.pickupPending && r.pickupAlong <= FuelTargetMiles
	detourPoints := []geometry.Point{r.prev, target}
	if viaPickup {
		detourPoints = []geometry.Point{r.prev, r.pickup, target}
	}
	detour, err := r.gw.Directions(ctx, detourPoints)
	if err != nil {
		return fmt.Errorf("detour to %s: %w", target, err)
	}
	if viaPickup {
		r.visitPickup(firstLeg(detour).Duration)
	}
	r.drive(detour)

	spur, err := r.gw.Directions(ctx, []geometry.Point{target, station.Location})
	if err != nil {
		return fmt.Errorf("spur to station %q: %w", station.Name, err)
	}
	r.drive(spur)

	r.plan.addStop(models.StopFuel, station.Name, station.Location, FuelStopHours, r.drivenHours)
	r.plan.Waypoints = append(r.plan.Waypoints, target, station.Location)

	next := []geometry.Point{station.Location, r.dropoff}
	if r.pickupPending {
		next = []geometry.Point{station.Location, r.pickup, r.dropoff}
	}
	leg, err := r.gw.Directions(ctx, next)
	if err != nil {
		return fmt.Errorf("route from station %q: %w", station.Name, err)
	}
	r.leg = leg
	r.prev = station.Location
	if r.pickupPending {
		r.pickupAlong = firstLeg(leg).Distance
	}
	return nil
}

// finish drives the remaining leg, visiting the pickup first if it is still pending.
func (r *fuelRun) finish() {
	if r.pickupPending {
		r.visitPickup(firstLeg(r.leg).Duration)
	}
	r.drive(r.leg)
	r.plan.addStop(models.StopDropoff, r.plan.Trip.Dropoff.Name, r.dropoff, DropoffHours, r.drivenHours)
	r.plan.Waypoints = append(r.plan.Waypoints, r.dropoff)
}

func (r *fuelRun) visitPickup(afterHours float64) {
	r.plan.addStop(models.StopPickup, r.plan.Trip.Pickup.Name, r.pickup, PickupHours, r.drivenHours+afterHours)
	r.plan.Waypoints = append(r.plan.Waypoints, r.pickup)
	r.pickupPending = false
}

func (r *fuelRun) drive(route *gateway.Route) {
	r.drivenMiles += route.Distance
	r.drivenHours += route.Duration
}

// firstLeg is the first waypoint-to-waypoint stretch, or the whole route when the
// provider did not split it.
func firstLeg(route *gateway.Route) gateway.Leg {
	if len(route.Legs) > 0 {
		return route.Legs[0]
	}
	return gateway.Leg{Distance: route.Distance, Duration: route.Duration}
}
