// Package normalize maps raw composites onto the 0-100 standardized scale
// and classifies the result into tiers.
package normalize

import "math"

// Scale parameters of the standardized score.
const (
	Center  = 50.0 // score of a student sitting exactly on the cohort mean
	Spread  = 15.0 // points per standard deviation
	MinSSN  = 0.0
	MaxSSN  = 100.0
	decimal = 10.0
)

// Tier is an ordinal classification band of a standardized score.
type Tier string

// Tiers from highest to lowest.
const (
	TierExcellence  Tier = "excellence"
	TierTresSolide  Tier = "tres_solide"
	TierStable      Tier = "stable"
	TierFragile     Tier = "fragile"
	TierPrioritaire Tier = "prioritaire"
)

// tierFloors lists inclusive lower bounds, highest first.
var tierFloors = []struct {
	floor float64
	tier  Tier
}{
	{85, TierExcellence},
	{70, TierTresSolide},
	{55, TierStable},
	{40, TierFragile},
}

var tierLabels = map[Tier]string{
	TierExcellence:  "Excellence",
	TierTresSolide:  "Très solide",
	TierStable:      "Stable",
	TierFragile:     "Fragile",
	TierPrioritaire: "Prioritaire",
}

// Normalize converts raw into a standardized score against (mean, std).
// A zero std means no dispersion, so everyone is average.
func Normalize(raw, mean, std float64) float64 {
	if std == 0 {
		return Center
	}
	z := (raw - mean) / std
	return Round1(Clamp(Center+Spread*z, MinSSN, MaxSSN))
}

// Classify returns the tier of ssn. Boundaries belong to the higher tier.
func Classify(ssn float64) Tier {
	for _, f := range tierFloors {
		if ssn >= f.floor {
			return f.tier
		}
	}
	return TierPrioritaire
}

// Label returns the display label of the tier ssn falls into.
func Label(ssn float64) string {
	return Classify(ssn).Label()
}

// Label returns the display label of t, or the raw value for unknown tiers.
func (t Tier) Label() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseTier validates s as a tier name.
func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	_, ok := tierLabels[t]
	return t, ok
}

// Percentile returns the share of distribution strictly below score.
// An empty distribution yields the neutral 50.
func Percentile(score float64, distribution []float64) float64 {
	if len(distribution) == 0 {
		return Center
	}
	below := 0
	for _, d := range distribution {
		if d < score {
			below++
		}
	}
	return 100 * float64(below) / float64(len(distribution))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round1 rounds v to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*decimal) / decimal
}
