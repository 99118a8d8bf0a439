package gateway

import (
	"math"
	"strings"
)

// minorUnitMultipliers lists currencies whose minor unit is not 1/100.
var minorUnitMultipliers = map[string]float64{
	"JPY": 1,
	"KRW": 1,
}

const defaultMultiplier = 100

// ToMinorUnits converts a decimal amount into the integer minor-unit amount
// the gateway expects.
func ToMinorUnits(amount float64, currency string) int64 {
	multiplier, ok := minorUnitMultipliers[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		multiplier = defaultMultiplier
	}
	return int64(math.Round(amount * multiplier))
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(amount int64, currency string) float64 {
	multiplier, ok := minorUnitMultipliers[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		multiplier = defaultMultiplier
	}
	return float64(amount) / multiplier
}
