// Package units provides the unit conversions callers apply before and
// after the path engine. Speeds are stored and computed in meters per
// second; steering angles enter the engine in radians.
package units

import "math"

// Speed unit identifiers accepted by the API.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidSpeedUnits lists the accepted speed unit identifiers.
var ValidSpeedUnits = []string{MPS, MPH, KMPH, KPH}

// IsValidSpeedUnit reports whether unit is a recognized speed unit.
func IsValidSpeedUnit(unit string) bool {
	for _, u := range ValidSpeedUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed in m/s to the target unit. Unknown
// units pass the value through unchanged.
func ConvertSpeed(speedMPS float64, targetUnit string) float64 {
	switch targetUnit {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// DegreesToRadians converts a steering series recorded in degrees to
// the radians the path engine expects. The engine itself never
// converts; callers holding degrees must do it here.
func DegreesToRadians(degrees []float64) []float64 {
	out := make([]float64, len(degrees))
	for i, d := range degrees {
		out[i] = d * math.Pi / 180
	}
	return out
}

// ScaleSteering multiplies a steering series by a conversion ratio.
// Drive loggers often record steering-wheel angle rather than road-wheel
// angle; the ratio maps one to the other.
func ScaleSteering(angles []float64, ratio float64) []float64 {
	out := make([]float64, len(angles))
	for i, a := range angles {
		out[i] = a * ratio
	}
	return out
}
