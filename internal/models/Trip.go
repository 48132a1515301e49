package models

import (
	"github.com/google/uuid"

	"eld_trip_planner/internal/geometry"
)

// Location is a named coordinate, stored inline on the trip.
type Location struct {
	Name string  `json:"name"`
	Lon  float64 `json:"longitude"`
	Lat  float64 `json:"latitude"`
}

func (l Location) Point() geometry.Point { return geometry.Point{Lon: l.Lon, Lat: l.Lat} }

// Trip is one planning request and its computed totals.
// CreatedAt is the planning clock every stop offset is measured from.
type Trip struct {
	Base
	DriverID *uuid.UUID `gorm:"type:uuid;index" json:"driver_id,omitempty"`

	Current Location `gorm:"embedded;embeddedPrefix:current_" json:"current_location"`
	Pickup  Location `gorm:"embedded;embeddedPrefix:pickup_" json:"pickup_location"`
	Dropoff Location `gorm:"embedded;embeddedPrefix:dropoff_" json:"dropoff_location"`

	CurrentCycleHours float64 `json:"current_cycle_hours"`
	TotalDistance     float64 `json:"total_distance"` // miles
	TotalDuration     float64 `json:"total_duration"` // hours, stops included

	Route     *Route     `gorm:"foreignKey:TripID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"route,omitempty"`
	DailyLogs []DailyLog `gorm:"foreignKey:TripID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"daily_logs,omitempty"`
}
