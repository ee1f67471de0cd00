// Package target computes the daily protein goal from user settings.
package target

import (
	"math"

	"protein-log/internal/models"
)

const (
	Min = 20
	Max = 350

	defaultGramsPerKg = 1.6
	kgPerPound        = 0.453592
)

// Calculate returns the daily goal in grams, always within [Min, Max].
// A manual target is used as-is; otherwise the goal is body weight in kg
// times grams per kg.
func Calculate(s models.Settings) int {
	if !s.AutoTarget {
		return clamp(math.Round(s.TargetCustom))
	}
	weightKg := s.Weight
	if s.Unit == models.Pounds {
		weightKg = s.Weight * kgPerPound
	}
	perKg := s.GramsPerKg
	if perKg <= 0 {
		perKg = defaultGramsPerKg
	}
	return clamp(math.Round(perKg * weightKg))
}

func clamp(v float64) int {
	if math.IsNaN(v) || v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return int(v)
}
