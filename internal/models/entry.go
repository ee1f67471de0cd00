package models

import (
	"time"
)

// DateLayout is the calendar-day key entries are bucketed under.
const DateLayout = "2006-01-02"

type Entry struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Name      string      `json:"name"`
	Grams     int         `json:"grams"`
	Source    EntrySource `json:"source"`
	Rule      string      `json:"rule,omitempty"` // estimator rule when Source is "estimated"
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type EntrySource string

const (
	ManualSource    EntrySource = "manual"
	EstimatedSource EntrySource = "estimated"
	QuickSource     EntrySource = "quick"
)

type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lb"
)

type Settings struct {
	Unit             WeightUnit `json:"unit"`
	Weight           float64    `json:"weight"`
	AutoTarget       bool       `json:"auto_target"`
	GramsPerKg       float64    `json:"grams_per_kg"`
	TargetCustom     float64    `json:"target_custom"`
	Reminder         bool       `json:"reminder"`
	AutoCalcFromName bool       `json:"auto_calc_from_name"`
}

// DefaultSettings is used until the user saves their own.
func DefaultSettings() Settings {
	return Settings{
		Unit:             Kilograms,
		Weight:           75,
		AutoTarget:       true,
		GramsPerKg:       1.6,
		TargetCustom:     120,
		Reminder:         false,
		AutoCalcFromName: true,
	}
}

type DaySummary struct {
	Date      string   `json:"date"`
	Entries   []*Entry `json:"entries"`
	Total     int      `json:"total"`
	Target    int      `json:"target"`
	Remaining int      `json:"remaining"`
	Progress  float64  `json:"progress"` // percent of target, capped at 100
}

type DayPoint struct {
	Date   string `json:"date"`
	Total  int    `json:"total"`
	Target int    `json:"target"`
}
