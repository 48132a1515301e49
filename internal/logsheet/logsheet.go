// Package logsheet turns a stored daily log into the fields of a driver's paper log:
// the 24-hour grid, hours per duty status, status changes, remarks and header.
package logsheet

import (
	"fmt"
	"sort"
	"strings"

	"eld_trip_planner/internal/models"
)

type GridEntry struct {
	Start  string                `json:"start"`
	End    string                `json:"end"`
	Status models.DutyStatusKind `json:"status"`
	Notes  string                `json:"notes"`

	start, end models.TimeOfDay
}

type Transition struct {
	Time string                `json:"time"`
	From models.DutyStatusKind `json:"from_status"`
	To   models.DutyStatusKind `json:"to_status"`
}

type DutyHours struct {
	OffDuty float64 `json:"off_duty"`
	Sleeper float64 `json:"sleeper"`
	Driving float64 `json:"driving"`
	OnDuty  float64 `json:"on_duty"`
	Total   float64 `json:"total_hours"`
}

func (h *DutyHours) add(kind models.DutyStatusKind, hours float64) {
	switch kind {
	case models.StatusOffDuty:
		h.OffDuty += hours
	case models.StatusSleeper:
		h.Sleeper += hours
	case models.StatusDriving:
		h.Driving += hours
	case models.StatusOnDuty:
		h.OnDuty += hours
	default:
		return
	}
	h.Total += hours
}

type Header struct {
	Date         string  `json:"date"`
	Month        string  `json:"month"`
	Day          string  `json:"day"`
	Year         string  `json:"year"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	CarrierName  string  `json:"carrier_name"`
	TruckNumber  string  `json:"truck_no"`
	HomeTerminal string  `json:"home_address"`
	MainOffice   string  `json:"office_address"`
	TotalMiles   float64 `json:"total_miles"`
	Signature    string  `json:"driver_signature"`
}

type Sheet struct {
	Header      Header       `json:"header"`
	Grid        []GridEntry  `json:"grid"`
	Hours       DutyHours    `json:"duty_hours"`
	Transitions []Transition `json:"transitions"`
	Remarks     []string     `json:"remarks"`
	Notes       string       `json:"notes"`
}

// Build assembles the sheet for one daily log of trip. Stops are read from trip.Route;
// driver may be nil.
func Build(trip *models.Trip, log *models.DailyLog, driver *models.Driver) Sheet {
	grid := Grid(log)
	sheet := Sheet{
		Header:      header(trip, log, driver),
		Grid:        grid,
		Transitions: Transitions(grid),
		Notes:       log.Remarks,
	}
	for _, g := range grid {
		sheet.Hours.add(g.Status, (g.end - g.start).Hours())
	}
	if trip.Route != nil {
		sheet.Remarks = Remarks(trip.Route.Stops, log.Date)
	}
	return sheet
}

// Grid lists the log's duty statuses by start time with HH:MM bounds.
func Grid(log *models.DailyLog) []GridEntry {
	statuses := append([]models.DutyStatus(nil), log.DutyStatuses...)
	sort.SliceStable(statuses, func(i, j int) bool { return statuses[i].StartTime < statuses[j].StartTime })

	grid := make([]GridEntry, 0, len(statuses))
	for _, ds := range statuses {
		grid = append(grid, GridEntry{
			Start:  ds.StartTime.HHMM(),
			End:    ds.EndTime.HHMM(),
			Status: ds.Status,
			Notes:  ds.Status.Label(),
			start:  ds.StartTime,
			end:    ds.EndTime,
		})
	}
	return grid
}

// Transitions records a pen change wherever one entry ends exactly as the next begins.
func Transitions(grid []GridEntry) []Transition {
	var out []Transition
	for i := 1; i < len(grid); i++ {
		prev, cur := grid[i-1], grid[i]
		if prev.end != cur.start {
			continue
		}
		out = append(out, Transition{Time: prev.End, From: prev.Status, To: cur.Status})
	}
	return out
}

// Remarks lists the on-duty stops that start on date, e.g. "Fuel Stop at 07:09".
func Remarks(stops []models.Stop, date string) []string {
	var out []string
	for _, s := range stops {
		ts := s.Timestamp.UTC()
		if !s.StopType.OnDuty() || ts.Format(models.DateLayout) != date {
			continue
		}
		label := s.StopType.Label()
		if s.Name != "" && s.Name != label {
			label = fmt.Sprintf("%s (%s)", label, s.Name)
		}
		out = append(out, fmt.Sprintf("%s at %s", label, ts.Format("15:04")))
	}
	return out
}

func header(trip *models.Trip, log *models.DailyLog, driver *models.Driver) Header {
	h := Header{
		Date:       log.Date,
		From:       trip.Current.Name,
		To:         trip.Dropoff.Name,
		TotalMiles: log.TotalMiles,
		Signature:  log.DriverSignature,
	}
	if parts := strings.Split(log.Date, "-"); len(parts) == 3 {
		h.Year, h.Month, h.Day = parts[0], parts[1], parts[2]
	}
	if driver != nil {
		h.CarrierName = driver.CarrierName
		h.TruckNumber = driver.TruckNumber
		h.HomeTerminal = driver.HomeTerminal
		h.MainOffice = driver.MainOffice
		if h.Signature == "" {
			h.Signature = driver.Name
		}
	}
	return h
}
