package planner

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/obs"
)

// PropagateDurations chains the stops: each stop's start moves later by the summed
// durations of all stops before it, and the trip duration grows by the total stop time.
// It may run once per plan; a second call returns ErrAlreadyPropagated.
func (p *Plan) PropagateDurations(ctx context.Context) error {
	if p.propagated {
		return ErrAlreadyPropagated
	}
	added := p.shiftTimestamps()
	p.propagated = true

	logrus.WithFields(logrus.Fields{
		"req_id":      obs.RequestID(ctx),
		"stops":       len(p.Stops),
		"stop_hours":  added,
		"total_hours": p.Trip.TotalDuration,
	}).Debug("stop durations propagated")
	return nil
}

func (p *Plan) shiftTimestamps() float64 {
	sort.SliceStable(p.Stops, func(i, j int) bool {
		return p.Stops[i].Timestamp.Before(p.Stops[j].Timestamp)
	})

	var toAdd float64
	for i := range p.Stops {
		toAdd += p.Stops[i].Duration
		if i+1 < len(p.Stops) {
			next := &p.Stops[i+1]
			next.Timestamp = next.Timestamp.Add(hoursToDuration(toAdd))
		}
	}
	p.Trip.TotalDuration += toAdd
	return toAdd
}

// End is when the trip is over: the clock plus the trip duration.
func (p *Plan) End() time.Time {
	return p.Clock.Add(hoursToDuration(p.Trip.TotalDuration))
}
