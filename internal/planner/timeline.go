package planner

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
)

const day = 24 * time.Hour

// timelineEvent is one interval of the trip: driving, or time spent at a stop.
type timelineEvent struct {
	kind        models.StopType // empty for driving
	start, end  time.Time
	description string
}

func (e timelineEvent) driving() bool { return e.kind == "" }

func (e timelineEvent) status() models.DutyStatusKind {
	switch e.kind {
	case "":
		return models.StatusDriving
	case models.StopMandatoryRest:
		return models.StatusOffDuty
	case models.StopRestBreak:
		return models.StatusSleeper
	default:
		return models.StatusOnDuty
	}
}

// timeline flattens the chained stops into contiguous events from the clock to the trip end.
func (p *Plan) timeline() []timelineEvent {
	var events []timelineEvent
	cursor := p.Clock
	for _, s := range p.Stops {
		if s.Timestamp.After(cursor) {
			events = append(events, timelineEvent{start: cursor, end: s.Timestamp, description: string(s.StopType)})
		}
		end := s.End()
		events = append(events, timelineEvent{kind: s.StopType, start: s.Timestamp, end: end, description: string(s.StopType)})
		if end.After(cursor) {
			cursor = end
		}
	}
	// Sub-second gaps are float rounding between the chained stops and the trip total.
	if tripEnd := p.End(); tripEnd.Sub(cursor) > time.Second {
		events = append(events, timelineEvent{start: cursor, end: tripEnd, description: "driving"})
	}
	return events
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CompileDailyLogs splits the trip timeline into calendar days (UTC) of duty statuses and
// apportions the trip distance over the days by driving time. Days without any status are
// dropped. Stops must already be propagated.
func (p *Plan) CompileDailyLogs(ctx context.Context) (err error) {
	defer obs.Time(ctx, "planner.CompileDailyLogs")(&err)

	events := p.timeline()

	var drivingSeconds float64
	for _, ev := range events {
		if ev.driving() {
			drivingSeconds += ev.end.Sub(ev.start).Seconds()
		}
	}

	logs := map[time.Time]*models.DailyLog{}
	logFor := func(d time.Time) *models.DailyLog {
		if l, ok := logs[d]; ok {
			return l
		}
		date := d.Format(models.DateLayout)
		l := &models.DailyLog{
			Date:            date,
			Remarks:         "Auto-generated log for " + date,
			DriverSignature: p.Signature,
		}
		logs[d] = l
		return l
	}
	for d, last := dayOf(p.Clock), dayOf(p.End()); !d.After(last); d = d.Add(day) {
		logFor(d)
	}

	for _, ev := range events {
		for d := dayOf(ev.start); !d.After(dayOf(ev.end)); {
			dayEnd := d.Add(day)
			from, to := ev.start, ev.end
			if from.Before(d) {
				from = d
			}
			if to.After(dayEnd) {
				to = dayEnd
			}
			if !from.Before(to) {
				d = dayEnd
				continue
			}

			l := logFor(d)
			if ev.driving() && drivingSeconds > 0 {
				l.TotalMiles += p.Trip.TotalDistance * to.Sub(from).Seconds() / drivingSeconds
			}
			l.DutyStatuses = append(l.DutyStatuses, models.DutyStatus{
				StartTime:   timeOfDay(from, d),
				EndTime:     timeOfDay(to, d),
				Status:      ev.status(),
				Description: ev.description,
			})

			if !to.Equal(dayEnd) {
				break
			}
			d = dayEnd
		}
	}

	p.DailyLogs = p.DailyLogs[:0]
	dropped := 0
	for _, l := range logs {
		if len(l.DutyStatuses) == 0 {
			dropped++
			continue
		}
		p.DailyLogs = append(p.DailyLogs, *l)
	}
	sort.Slice(p.DailyLogs, func(i, j int) bool { return p.DailyLogs[i].Date < p.DailyLogs[j].Date })

	logrus.WithFields(logrus.Fields{
		"req_id":  obs.RequestID(ctx),
		"days":    len(p.DailyLogs),
		"dropped": dropped,
		"events":  len(events),
	}).Info("daily logs compiled")
	return nil
}

func timeOfDay(t, midnight time.Time) models.TimeOfDay {
	return models.TimeOfDay(t.Sub(midnight).Round(time.Second) / time.Second)
}
