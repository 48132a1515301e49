package models

import "github.com/google/uuid"

// DateLayout is the calendar date format of DailyLog.Date.
const DateLayout = "2006-01-02"

// DailyLog is one calendar day of a trip's duty record.
type DailyLog struct {
	Base
	TripID          uuid.UUID    `gorm:"type:uuid;uniqueIndex:idx_daily_log_trip_date" json:"trip_id"`
	Date            string       `gorm:"size:10;uniqueIndex:idx_daily_log_trip_date" json:"date"`
	TotalMiles      float64      `json:"total_miles"`
	Remarks         string       `json:"remarks"`
	DriverSignature string       `gorm:"size:250" json:"driver_signature"`
	DutyStatuses    []DutyStatus `gorm:"foreignKey:DailyLogID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"duty_statuses"`
}
