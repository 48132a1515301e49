package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/planner"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var clock = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

func planTrip(t *testing.T, driverID *uuid.UUID, dropLat float64, at time.Time) *planner.Plan {
	t.Helper()
	trip := &models.Trip{
		DriverID: driverID,
		Current:  models.Location{Name: "Yard", Lon: 0, Lat: 0},
		Pickup:   models.Location{Name: "Shipper", Lon: 0, Lat: 0.1},
		Dropoff:  models.Location{Name: "Receiver", Lon: 0, Lat: dropLat},
	}
	pl := &planner.Pipeline{
		Gateway: &gateway.StraightLine{MilesPerDegree: 70, StationOffset: 0.01},
		Now:     func() time.Time { return at },
	}
	p, err := pl.Plan(context.Background(), trip, "Jane Doe")
	require.NoError(t, err)
	return p
}

func TestSaveAndGetTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := planTrip(t, nil, 20, clock)
	require.NoError(t, s.SavePlan(ctx, p))
	require.NotEqual(t, uuid.Nil, p.Trip.ID)

	got, err := s.GetTrip(ctx, p.Trip.ID)
	require.NoError(t, err)

	assert.Equal(t, "Receiver", got.Dropoff.Name)
	assert.InDelta(t, p.Trip.TotalDistance, got.TotalDistance, 1e-9)
	assert.InDelta(t, p.Trip.TotalDuration, got.TotalDuration, 1e-9)
	assert.True(t, clock.Equal(got.CreatedAt))

	require.NotNil(t, got.Route)
	line, err := got.Route.Line()
	require.NoError(t, err)
	assert.Equal(t, p.Waypoints, geometry.Points(line))

	require.Len(t, got.Route.Stops, len(p.Stops))
	for i, s := range got.Route.Stops {
		assert.Equal(t, p.Stops[i].StopType, s.StopType, "stop %d", i)
		assert.True(t, p.Stops[i].Timestamp.Equal(s.Timestamp), "stop %d", i)
	}

	require.Len(t, got.DailyLogs, len(p.DailyLogs))
	for i, l := range got.DailyLogs {
		assert.Equal(t, p.DailyLogs[i].Date, l.Date)
		assert.Equal(t, "Jane Doe", l.DriverSignature)
		require.Len(t, l.DutyStatuses, len(p.DailyLogs[i].DutyStatuses))
		for j := 1; j < len(l.DutyStatuses); j++ {
			assert.LessOrEqual(t, l.DutyStatuses[j-1].EndTime, l.DutyStatuses[j].StartTime)
		}
	}
}

func TestGetTripNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTrip(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTripsPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	driver := &models.Driver{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, s.CreateDriver(ctx, driver))

	for i := 0; i < 7; i++ {
		owner := &driver.ID
		if i == 6 {
			owner = nil
		}
		require.NoError(t, s.SavePlan(ctx, planTrip(t, owner, 5, clock.Add(time.Duration(i)*time.Hour))))
	}

	first, count, err := s.ListTrips(ctx, &driver.ID, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)
	require.Len(t, first, 5)
	assert.True(t, first[0].CreatedAt.After(first[4].CreatedAt), "newest first")

	second, _, err := s.ListTrips(ctx, &driver.ID, 2, 5)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	_, all, err := s.ListTrips(ctx, nil, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 7, all)
}

func TestDeleteTripCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keep := planTrip(t, nil, 5, clock)
	gone := planTrip(t, nil, 20, clock)
	require.NoError(t, s.SavePlan(ctx, keep))
	require.NoError(t, s.SavePlan(ctx, gone))

	require.NoError(t, s.DeleteTrip(ctx, gone.Trip.ID))
	_, err := s.GetTrip(ctx, gone.Trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	kept, err := s.GetTrip(ctx, keep.Trip.ID)
	require.NoError(t, err)
	var statuses int
	for _, l := range kept.DailyLogs {
		statuses += len(l.DutyStatuses)
	}
	assert.EqualValues(t, 1, countOf(t, s, &models.Route{}))
	assert.EqualValues(t, len(kept.Route.Stops), countOf(t, s, &models.Stop{}))
	assert.EqualValues(t, len(kept.DailyLogs), countOf(t, s, &models.DailyLog{}))
	assert.EqualValues(t, statuses, countOf(t, s, &models.DutyStatus{}))

	assert.ErrorIs(t, s.DeleteTrip(ctx, gone.Trip.ID), ErrNotFound)
}

func countOf(t *testing.T, s *Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(model).Count(&n).Error)
	return n
}

func TestDrivers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &models.Driver{Name: "Jane", Email: "jane@example.com", Password: "hash", CarrierName: "ACME"}
	require.NoError(t, s.CreateDriver(ctx, d))
	require.NotEqual(t, uuid.Nil, d.ID)

	dup := &models.Driver{Name: "Other", Email: "jane@example.com"}
	assert.ErrorIs(t, s.CreateDriver(ctx, dup), ErrEmailTaken)

	byEmail, err := s.DriverByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, d.ID, byEmail.ID)
	assert.Equal(t, "ACME", byEmail.CarrierName)

	byID, err := s.DriverByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", byID.Email)

	_, err = s.DriverByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
