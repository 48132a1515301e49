package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
)

// Pipeline runs the planning phases for a trip against one routing gateway.
type Pipeline struct {
	Gateway gateway.Gateway
	// Now is read once per run to fix the plan clock. Defaults to time.Now.
	Now func() time.Time
}

func NewPipeline(gw gateway.Gateway) *Pipeline {
	return &Pipeline{Gateway: gw, Now: time.Now}
}

func (pl *Pipeline) clock() time.Time {
	now := time.Now
	if pl.Now != nil {
		now = pl.Now
	}
	return now().UTC().Truncate(time.Second)
}

// Plan fills in trip's totals, route, stops and daily logs. The trip is not persisted.
// Any routing failure aborts the whole run. Once started, a run is not cancelled by ctx;
// only its values (the request id) are kept.
func (pl *Pipeline) Plan(ctx context.Context, trip *models.Trip, signature string) (_ *Plan, err error) {
	ctx = context.WithoutCancel(ctx)
	defer obs.Time(ctx, "planner.Plan")(&err)

	clock := pl.clock()
	trip.CreatedAt = clock
	p := NewPlan(trip, clock, signature)

	initial, err := pl.Gateway.Directions(ctx, []geometry.Point{trip.Current.Point(), trip.Pickup.Point(), trip.Dropoff.Point()})
	if err != nil {
		return nil, fmt.Errorf("initial route: %w", err)
	}

	fuel := &FuelPlanner{Gateway: pl.Gateway}
	distance, duration, line, err := fuel.PlanFuelStops(ctx, p, initial)
	if err != nil {
		return nil, err
	}
	trip.TotalDistance = distance
	trip.TotalDuration = duration
	p.Geometry = line

	if err := PlanRestStops(ctx, p); err != nil {
		return nil, err
	}
	if err := p.PropagateDurations(ctx); err != nil {
		return nil, err
	}
	if err := p.CompileDailyLogs(ctx); err != nil {
		return nil, err
	}

	route := &models.Route{Stops: p.Stops}
	if err := route.SetLine(line); err != nil {
		return nil, err
	}
	p.Route = route
	trip.Route = route
	trip.DailyLogs = p.DailyLogs

	logrus.WithFields(logrus.Fields{
		"req_id":      obs.RequestID(ctx),
		"miles":       trip.TotalDistance,
		"hours":       trip.TotalDuration,
		"stops":       len(p.Stops),
		"daily_logs":  len(p.DailyLogs),
		"cycle_hours": trip.CurrentCycleHours,
	}).Info("trip planned")
	return p, nil
}

// Request is one trip to plan with the signature for its daily logs.
type Request struct {
	Trip      *models.Trip
	Signature string
}

// Result is the outcome of one trip of a PlanMany batch.
type Result struct {
	Plan *Plan
	Err  error
}

// PlanMany plans independent trips concurrently, at most limit at a time. Each trip is
// planned serially and a failure stays with its own trip. Cancelling ctx only stops trips
// that have not started yet. The returned error joins every per-trip failure.
func (pl *Pipeline) PlanMany(ctx context.Context, reqs []Request, limit int) ([]Result, error) {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = fmt.Errorf("trip %d: not started: %w", i, err)
				return nil
			}
			p, err := pl.Plan(ctx, req.Trip, req.Signature)
			if err != nil {
				results[i].Err = fmt.Errorf("trip %d: %w", i, err)
				return nil
			}
			results[i].Plan = p
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}
