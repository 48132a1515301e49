package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"eld_trip_planner/internal/models"
)

// LocationResponse mirrors the request shape plus explicit lat/lon.
type LocationResponse struct {
	Name      string     `json:"name"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Coords    [2]float64 `json:"coordinates"` // [lat, lon]
}

type StopResponse struct {
	ID        uuid.UUID       `json:"id"`
	StopType  models.StopType `json:"stop_type"`
	Label     string          `json:"label"`
	Name      string          `json:"name"`
	Location  [2]float64      `json:"location"` // [lon, lat]
	Duration  float64         `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
	End       time.Time       `json:"end"`
}

type DutyStatusResponse struct {
	Start       string                `json:"start"`
	End         string                `json:"end"`
	Status      models.DutyStatusKind `json:"status"`
	Label       string                `json:"label"`
	Description string                `json:"status_description"`
}

type DailyLogResponse struct {
	Date            string               `json:"date"`
	TotalMiles      float64              `json:"total_miles"`
	Remarks         string               `json:"remarks"`
	DriverSignature string               `json:"driver_signature"`
	DutyStatuses    []DutyStatusResponse `json:"duty_statuses"`
}

// TripResponse is the frontend summary of a planned trip, built from stored state only.
type TripResponse struct {
	ID                uuid.UUID        `json:"id"`
	CurrentLocation   LocationResponse `json:"current_location"`
	PickupLocation    LocationResponse `json:"pickup_location"`
	DropoffLocation   LocationResponse `json:"dropoff_location"`
	CurrentCycleHours float64          `json:"current_cycle_hours"`
	TotalDistance     float64          `json:"total_distance"`
	TotalDuration     float64          `json:"total_duration"`
	CreatedAt         time.Time        `json:"created_at"`

	Geometry  json.RawMessage    `json:"geometry,omitempty"`
	Stops     []StopResponse     `json:"stops,omitempty"`
	DailyLogs []DailyLogResponse `json:"daily_logs,omitempty"`
}

func toLocationResponse(l models.Location) LocationResponse {
	return LocationResponse{Name: l.Name, Latitude: l.Lat, Longitude: l.Lon, Coords: [2]float64{l.Lat, l.Lon}}
}

// toTripResponse converts a trip. Route and logs are included when loaded.
func toTripResponse(trip *models.Trip) (TripResponse, error) {
	resp := TripResponse{
		ID:                trip.ID,
		CurrentLocation:   toLocationResponse(trip.Current),
		PickupLocation:    toLocationResponse(trip.Pickup),
		DropoffLocation:   toLocationResponse(trip.Dropoff),
		CurrentCycleHours: trip.CurrentCycleHours,
		TotalDistance:     trip.TotalDistance,
		TotalDuration:     trip.TotalDuration,
		CreatedAt:         trip.CreatedAt,
	}

	if trip.Route != nil {
		geo, err := trip.Route.GeoJSON()
		if err != nil {
			return TripResponse{}, err
		}
		resp.Geometry = geo
		for _, s := range trip.Route.Stops {
			resp.Stops = append(resp.Stops, StopResponse{
				ID:        s.ID,
				StopType:  s.StopType,
				Label:     s.StopType.Label(),
				Name:      s.Name,
				Location:  [2]float64{s.Lon, s.Lat},
				Duration:  s.Duration,
				Timestamp: s.Timestamp,
				End:       s.End(),
			})
		}
	}

	for _, l := range trip.DailyLogs {
		lr := DailyLogResponse{
			Date:            l.Date,
			TotalMiles:      l.TotalMiles,
			Remarks:         l.Remarks,
			DriverSignature: l.DriverSignature,
		}
		for _, ds := range l.DutyStatuses {
			lr.DutyStatuses = append(lr.DutyStatuses, DutyStatusResponse{
				Start:       ds.StartTime.HHMM(),
				End:         ds.EndTime.HHMM(),
				Status:      ds.Status,
				Label:       ds.Status.Label(),
				Description: ds.Description,
			})
		}
		resp.DailyLogs = append(resp.DailyLogs, lr)
	}
	return resp, nil
}
