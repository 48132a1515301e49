package planner

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
)

type restPhase int

const (
	accumulating restPhase = iota // driving toward the next 8-hour mark
	breakDue                      // reached the mark, cycle not yet checked
	restartDue                    // cycle ceiling crossed, a 34-hour restart is owed
	restarted                     // just restarted, driving since the crossing carried over
)

func (s restPhase) String() string {
	switch s {
	case accumulating:
		return "accumulating"
	case breakDue:
		return "break_due"
	case restartDue:
		return "restart_due"
	case restarted:
		return "restarted"
	}
	return fmt.Sprintf("restPhase(%d)", int(s))
}

// restRun holds the bookkeeping of one rest planning pass. All values are minutes unless
// named otherwise.
type restRun struct {
	plan  *Plan
	total float64 // total driving

	driven       float64 // driving so far, never reset
	sinceRestart float64 // driving plus breaks since the last restart
	lastStop     float64 // driven at the last break or restart
	cycleBase    float64 // hours on the cycle before this pass, zeroed by a restart

	used map[placedStop]bool
}

type placedStop struct {
	kind models.StopType
	at   geometry.Point
}

func (r *restRun) cycleHours() float64 { return r.cycleBase + r.sinceRestart/60 }

// PlanRestStops inserts a 30 minute break before every 8 hours of driving and a 34 hour
// restart at the instant the 70 hour cycle would be exceeded. It updates the trip's
// current cycle hours. The plan's trip duration must still be pure driving time.
func PlanRestStops(ctx context.Context, p *Plan) (err error) {
	defer obs.Time(ctx, "planner.PlanRestStops")(&err)

	r := &restRun{
		plan:      p,
		total:     p.Trip.TotalDuration * 60,
		cycleBase: p.Trip.CurrentCycleHours,
		used:      map[placedStop]bool{},
	}

	phase := accumulating
loop:
	for r.driven < r.total {
		switch phase {
		case accumulating, restarted:
			untilBreak := BreakEveryMinutes - math.Mod(r.sinceRestart, BreakEveryMinutes)
			if phase == restarted {
				// The carried driving can fill a whole window, which the modulo would wrap to zero.
				untilBreak = BreakEveryMinutes - r.sinceRestart
			}
			if untilBreak >= r.total-r.driven {
				break loop
			}
			r.driven += untilBreak
			r.sinceRestart += untilBreak
			phase = breakDue

		case breakDue:
			if r.cycleHours() >= CycleLimitHours {
				phase = restartDue
				continue
			}
			if err := r.insert(models.StopRestBreak, RestBreakHours, r.driven); err != nil {
				return err
			}
			r.sinceRestart += RestBreakHours * 60
			r.lastStop = r.driven
			phase = accumulating

		case restartDue:
			// Only the driving after the last stop can lie past the crossing.
			over := math.Min((r.cycleHours()-CycleLimitHours)*60, r.driven-r.lastStop)
			if err := r.restart(r.driven - over); err != nil {
				return err
			}
			r.sinceRestart = over
			phase = restarted
		}
	}

	// Tail: no 8-hour mark is left but the cycle may still run out before the dropoff.
	if left := r.total - r.driven; r.cycleHours()+left/60 > CycleLimitHours {
		headroom := math.Max((CycleLimitHours-r.cycleHours())*60, 0)
		if err := r.restart(r.driven + headroom); err != nil {
			return err
		}
		r.sinceRestart = left - headroom
	}

	logrus.WithFields(logrus.Fields{
		"req_id":          obs.RequestID(ctx),
		"driving_minutes": r.total,
		"rest_breaks":     p.Count(models.StopRestBreak),
		"restarts":        p.Count(models.StopMandatoryRest),
		"cycle_hours":     p.Trip.CurrentCycleHours,
	}).Info("rest stops planned")
	return nil
}

func (r *restRun) restart(at float64) error {
	if err := r.insert(models.StopMandatoryRest, MandatoryRestHours, at); err != nil {
		return err
	}
	r.cycleBase = 0
	r.plan.Trip.CurrentCycleHours = 0
	r.lastStop = at
	return nil
}

// insert places a stop at the given driving minute. Its location is that share of the route.
func (r *restRun) insert(kind models.StopType, hours, atMinute float64) error {
	fraction := 0.0
	if r.total > 0 {
		fraction = atMinute / r.total
	}
	at, err := geometry.InterpolateAtFraction(r.plan.Geometry, fraction)
	if err != nil {
		return fmt.Errorf("plan rest stops: place %s at %.1f min: %w", kind, atMinute, err)
	}
	key := placedStop{kind, at}
	if r.used[key] {
		return nil
	}
	r.used[key] = true
	r.plan.addStop(kind, "", at, hours, atMinute/60)
	return nil
}
