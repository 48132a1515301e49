package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type DutyStatusKind string

const (
	StatusOffDuty DutyStatusKind = "off-duty"
	StatusSleeper DutyStatusKind = "sleeper"
	StatusDriving DutyStatusKind = "driving"
	StatusOnDuty  DutyStatusKind = "on-duty"
)

func (k DutyStatusKind) Label() string {
	switch k {
	case StatusOffDuty:
		return "Off Duty"
	case StatusSleeper:
		return "Sleeper Berth"
	case StatusDriving:
		return "Driving"
	case StatusOnDuty:
		return "On Duty (Not Driving)"
	}
	return string(k)
}

// TimeOfDay is seconds since midnight. 86400 marks the end of the day.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60 * 60

func (t TimeOfDay) clock() (h, m, s int) {
	v := int(t)
	return v / 3600, v % 3600 / 60, v % 60
}

func (t TimeOfDay) String() string {
	h, m, s := t.clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// HHMM drops the seconds.
func (t TimeOfDay) HHMM() string {
	h, m, _ := t.clock()
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) Hours() float64 { return float64(t) / 3600 }

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return fmt.Errorf("time of day %q: %w", s, err)
	}
	v := TimeOfDay(h*3600 + m*60 + sec)
	if v < 0 || v > EndOfDay {
		return fmt.Errorf("time of day %q out of range", s)
	}
	*t = v
	return nil
}

// DutyStatus is one contiguous interval of a daily log.
type DutyStatus struct {
	Base
	DailyLogID  uuid.UUID      `gorm:"type:uuid;index" json:"daily_log_id"`
	StartTime   TimeOfDay      `json:"start_time"`
	EndTime     TimeOfDay      `json:"end_time"`
	Status      DutyStatusKind `gorm:"size:20;not null" json:"status"`
	Description string         `gorm:"size:250" json:"status_description"`
}
