package models

import (
	"time"

	"github.com/google/uuid"

	"eld_trip_planner/internal/geometry"
)

type StopType string

const (
	StopFuel          StopType = "fuel"
	StopRestBreak     StopType = "rest_break"
	StopMandatoryRest StopType = "mandatory_rest"
	StopPickup        StopType = "pickup"
	StopDropoff       StopType = "dropoff"
)

var stopLabels = map[StopType]string{
	StopFuel:          "Fuel Stop",
	StopRestBreak:     "30-Minute Break",
	StopMandatoryRest: "34-Hour Restart",
	StopPickup:        "Pickup",
	StopDropoff:       "Dropoff",
}

// Label is the display name of the stop type.
func (t StopType) Label() string {
	if l, ok := stopLabels[t]; ok {
		return l
	}
	return string(t)
}

// OnDuty reports whether time spent at the stop is on duty (not driving).
func (t StopType) OnDuty() bool {
	return t == StopFuel || t == StopPickup || t == StopDropoff
}

type Stop struct {
	Base
	RouteID  uuid.UUID `gorm:"type:uuid;index" json:"route_id"`
	StopType StopType  `gorm:"size:20;not null" json:"stop_type"`
	Name     string    `json:"name"`
	Lon      float64   `json:"longitude"`
	Lat      float64   `json:"latitude"`
	Duration float64   `json:"duration"` // hours

	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (s Stop) Location() geometry.Point { return geometry.Point{Lon: s.Lon, Lat: s.Lat} }

// End is when the stop is over.
func (s Stop) End() time.Time {
	return s.Timestamp.Add(time.Duration(s.Duration * float64(time.Hour)))
}
