package logsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eld_trip_planner/internal/models"
)

func hm(h, m int) models.TimeOfDay { return models.TimeOfDay(h*3600 + m*60) }

func sampleTrip() (*models.Trip, *models.DailyLog) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	trip := &models.Trip{
		Current: models.Location{Name: "Los Angeles"},
		Dropoff: models.Location{Name: "Miami"},
		Route: &models.Route{Stops: []models.Stop{
			{StopType: models.StopPickup, Name: "Shipper", Timestamp: day.Add(1 * time.Hour), Duration: 1},
			{StopType: models.StopRestBreak, Timestamp: day.Add(10 * time.Hour), Duration: 0.5},
			{StopType: models.StopFuel, Name: "Fuel Stop", Timestamp: day.Add(7*time.Hour + 9*time.Minute), Duration: 0.5},
			{StopType: models.StopDropoff, Timestamp: day.Add(30 * time.Hour), Duration: 1},
		}},
	}
	log := &models.DailyLog{
		Date:            "2025-03-01",
		TotalMiles:      512.5,
		Remarks:         "Auto-generated log for 2025-03-01",
		DriverSignature: "Jane Doe",
		// deliberately out of order
		DutyStatuses: []models.DutyStatus{
			{StartTime: hm(2, 0), EndTime: hm(7, 9), Status: models.StatusDriving},
			{StartTime: hm(0, 0), EndTime: hm(1, 0), Status: models.StatusDriving},
			{StartTime: hm(1, 0), EndTime: hm(2, 0), Status: models.StatusOnDuty},
			{StartTime: hm(7, 9), EndTime: hm(7, 39), Status: models.StatusOnDuty},
			{StartTime: hm(7, 39), EndTime: hm(10, 0), Status: models.StatusDriving},
			{StartTime: hm(10, 0), EndTime: hm(10, 30), Status: models.StatusSleeper},
			{StartTime: hm(10, 30), EndTime: models.EndOfDay, Status: models.StatusOffDuty},
		},
	}
	return trip, log
}

func TestBuild(t *testing.T) {
	trip, log := sampleTrip()
	driver := &models.Driver{Name: "J. Doe", CarrierName: "ACME Freight", TruckNumber: "4568", HomeTerminal: "Sap", MainOffice: "HQ"}

	sheet := Build(trip, log, driver)

	assert.Equal(t, Header{
		Date: "2025-03-01", Month: "03", Day: "01", Year: "2025",
		From: "Los Angeles", To: "Miami",
		CarrierName: "ACME Freight", TruckNumber: "4568", HomeTerminal: "Sap", MainOffice: "HQ",
		TotalMiles: 512.5, Signature: "Jane Doe",
	}, sheet.Header)

	require.Len(t, sheet.Grid, 7)
	assert.Equal(t, "00:00", sheet.Grid[0].Start)
	assert.Equal(t, "24:00", sheet.Grid[6].End)
	assert.Equal(t, "On Duty (Not Driving)", sheet.Grid[1].Notes)

	assert.InDelta(t, 1+(5+9.0/60)+(2+21.0/60), sheet.Hours.Driving, 1e-9)
	assert.InDelta(t, 1.5, sheet.Hours.OnDuty, 1e-9)
	assert.InDelta(t, 0.5, sheet.Hours.Sleeper, 1e-9)
	assert.InDelta(t, 13.5, sheet.Hours.OffDuty, 1e-9)
	assert.InDelta(t, 24.0, sheet.Hours.Total, 1e-9)

	assert.Equal(t, []string{"Pickup (Shipper) at 01:00", "Fuel Stop at 07:09"}, sheet.Remarks)
	assert.Equal(t, "Auto-generated log for 2025-03-01", sheet.Notes)
}

func TestTransitions(t *testing.T) {
	_, log := sampleTrip()
	log.DutyStatuses = append(log.DutyStatuses[:0:0],
		models.DutyStatus{StartTime: hm(0, 0), EndTime: hm(1, 0), Status: models.StatusDriving},
		models.DutyStatus{StartTime: hm(1, 0), EndTime: hm(2, 0), Status: models.StatusOnDuty},
		// a gap: no transition recorded
		models.DutyStatus{StartTime: hm(3, 0), EndTime: hm(4, 0), Status: models.StatusDriving},
		models.DutyStatus{StartTime: hm(4, 0), EndTime: hm(5, 0), Status: models.StatusDriving},
		models.DutyStatus{StartTime: hm(5, 0), EndTime: hm(6, 0), Status: models.StatusSleeper},
	)

	got := Transitions(Grid(log))
	assert.Equal(t, []Transition{
		{Time: "01:00", From: models.StatusDriving, To: models.StatusOnDuty},
		{Time: "04:00", From: models.StatusDriving, To: models.StatusDriving},
		{Time: "05:00", From: models.StatusDriving, To: models.StatusSleeper},
	}, got)
}

func TestBuildWithoutDriver(t *testing.T) {
	trip, log := sampleTrip()
	log.DriverSignature = ""
	trip.Route = nil

	sheet := Build(trip, log, nil)
	assert.Empty(t, sheet.Header.CarrierName)
	assert.Empty(t, sheet.Header.Signature)
	assert.Empty(t, sheet.Remarks)
	assert.Len(t, sheet.Grid, 7)
}
