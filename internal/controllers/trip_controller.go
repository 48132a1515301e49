package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/logsheet"
	"eld_trip_planner/internal/middleware"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
	"eld_trip_planner/internal/planner"
	"eld_trip_planner/internal/store"
)

const tripsPageSize = 5

type TripController struct {
	Store    *store.Store
	Pipeline *planner.Pipeline
	Events   *TripEventHub // optional
}

type locationInput struct {
	Name        string    `json:"name" binding:"required"`
	Coordinates []float64 `json:"coordinates" binding:"required"` // [lat, lon]
}

func (in locationInput) location(field string) (models.Location, error) {
	if len(in.Coordinates) != 2 {
		return models.Location{}, fmt.Errorf("Invalid %s data: coordinates must be [lat, lon]", field)
	}
	lat, lon := in.Coordinates[0], in.Coordinates[1]
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Location{}, fmt.Errorf("Invalid %s data: coordinates out of range", field)
	}
	return models.Location{Name: in.Name, Lat: lat, Lon: lon}, nil
}

type createTripInput struct {
	CurrentLocation   locationInput `json:"current_location" binding:"required"`
	PickupLocation    locationInput `json:"pickup_location" binding:"required"`
	DropoffLocation   locationInput `json:"dropoff_location" binding:"required"`
	CurrentCycleHours *float64      `json:"current_cycle_hours" binding:"required"`
}

func (in createTripInput) trip() (*models.Trip, error) {
	cycle := *in.CurrentCycleHours
	if cycle < 0 || cycle > planner.CycleLimitHours {
		return nil, fmt.Errorf("current_cycle_hours must be between 0 and %g", planner.CycleLimitHours)
	}
	current, err := in.CurrentLocation.location("current_location")
	if err != nil {
		return nil, err
	}
	pickup, err := in.PickupLocation.location("pickup_location")
	if err != nil {
		return nil, err
	}
	dropoff, err := in.DropoffLocation.location("dropoff_location")
	if err != nil {
		return nil, err
	}
	return &models.Trip{Current: current, Pickup: pickup, Dropoff: dropoff, CurrentCycleHours: cycle}, nil
}

// planStatus maps a planning failure onto an HTTP status.
func planStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNoRouteFound),
		errors.Is(err, gateway.ErrGatewayUnavailable),
		errors.Is(err, gateway.ErrNoStationFound),
		errors.Is(err, planner.ErrFuelPlanDiverged):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (tc *TripController) CreateTrip(c *gin.Context) {
	var input createTripInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trip, err := input.trip()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A client that hangs up does not abort a plan that already started.
	ctx := context.WithoutCancel(c.Request.Context())
	signature := c.GetString(middleware.DriverNameKey)
	if id, ok := middleware.DriverID(c); ok {
		trip.DriverID = &id
	}

	plan, err := tc.Pipeline.Plan(ctx, trip, signature)
	if err != nil {
		logrus.WithError(err).WithField("req_id", obs.RequestID(ctx)).Error("trip planning failed")
		c.JSON(planStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := tc.Store.SavePlan(ctx, plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save trip: " + err.Error()})
		return
	}

	if trip.DriverID != nil {
		tc.Events.Publish(TripEvent{
			Type:          TripPlanned,
			TripID:        trip.ID,
			DriverID:      *trip.DriverID,
			TotalDistance: trip.TotalDistance,
			TotalDuration: trip.TotalDuration,
			Days:          len(plan.DailyLogs),
		})
	}

	resp, err := toTripResponse(plan.Trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": resp})
}

func (tc *TripController) ListTrips(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid page."})
			return
		}
		page = n
	}

	var owner *uuid.UUID
	if id, ok := middleware.DriverID(c); ok {
		owner = &id
	}
	trips, count, err := tc.Store.ListTrips(c.Request.Context(), owner, page, tripsPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing trips: " + err.Error()})
		return
	}
	if len(trips) == 0 && page > 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid page."})
		return
	}

	results := make([]TripResponse, 0, len(trips))
	for i := range trips {
		r, err := toTripResponse(&trips[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		results = append(results, r)
	}

	links := gin.H{"next": nil, "previous": nil}
	if int64(page*tripsPageSize) < count {
		links["next"] = pageLink(c, page+1)
	}
	if page > 1 {
		links["previous"] = pageLink(c, page-1)
	}
	c.JSON(http.StatusOK, gin.H{"links": links, "count": count, "results": results})
}

func pageLink(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// ownedTrip loads the :id trip, answering 404 for missing trips and trips of other drivers.
func (tc *TripController) ownedTrip(c *gin.Context) (*models.Trip, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return nil, false
	}
	trip, err := tc.Store.GetTrip(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	if driver, ok := middleware.DriverID(c); ok && trip.DriverID != nil && *trip.DriverID != driver {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return nil, false
	}
	return trip, true
}

func (tc *TripController) GetTrip(c *gin.Context) {
	trip, ok := tc.ownedTrip(c)
	if !ok {
		return
	}
	resp, err := toTripResponse(trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": resp})
}

func (tc *TripController) GetLogSheet(c *gin.Context) {
	trip, ok := tc.ownedTrip(c)
	if !ok {
		return
	}

	date := c.Param("date")
	var log *models.DailyLog
	for i := range trip.DailyLogs {
		if trip.DailyLogs[i].Date == date {
			log = &trip.DailyLogs[i]
			break
		}
	}
	if log == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No daily log for " + date})
		return
	}

	var driver *models.Driver
	if trip.DriverID != nil {
		d, err := tc.Store.DriverByID(c.Request.Context(), *trip.DriverID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		driver = d
	}
	c.JSON(http.StatusOK, logsheet.Build(trip, log, driver))
}

func (tc *TripController) DeleteTrip(c *gin.Context) {
	trip, ok := tc.ownedTrip(c)
	if !ok {
		return
	}
	if err := tc.Store.DeleteTrip(c.Request.Context(), trip.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trip.DriverID != nil {
		tc.Events.Publish(TripEvent{Type: TripDeleted, TripID: trip.ID, DriverID: *trip.DriverID})
	}
	c.Status(http.StatusNoContent)
}
