package drivepath

import (
	"errors"
	"fmt"
	"math"
)

// Input validation errors for path integration.
var (
	// ErrLengthMismatch indicates the angle and speed series have
	// different lengths. The two channels must share one time base;
	// silently truncating to the shorter series would hide upstream
	// synchronization bugs, so it is rejected outright.
	ErrLengthMismatch = errors.New("drivepath: wheel angle and speed series lengths differ")

	// ErrEmptySeries indicates a zero-length input series.
	ErrEmptySeries = errors.New("drivepath: input series is empty")

	// ErrBadFrequency indicates a non-positive sampling frequency.
	ErrBadFrequency = errors.New("drivepath: sampling frequency must be positive")

	// ErrBadWheelBase indicates a non-positive wheel base.
	ErrBadWheelBase = errors.New("drivepath: wheel base must be positive")
)

// IntegratorConfig holds the fixed vehicle geometry for path
// integration.
type IntegratorConfig struct {
	// WheelBase is the front-to-rear axle distance in meters. It sets
	// the turning radius for a given steering angle: R = WheelBase / tan(angle).
	WheelBase float64 `json:"wheel_base"`
}

// DefaultIntegratorConfig returns the geometry of a typical passenger
// car.
func DefaultIntegratorConfig() IntegratorConfig {
	return IntegratorConfig{WheelBase: 2.5}
}

// CalculatePath reconstructs a 2D trajectory from synchronized steering
// and speed channels using a kinematic bicycle model.
//
// wheelAngle is in radians and speed in meters per second; both series
// must be the same length and share the same time base. The engine
// performs no unit conversion — callers holding degrees must convert
// (see the units package) before calling. samplingFrequency is the
// shared sample rate in Hz.
//
// The returned trajectory has len(speed)+1 points and always starts at
// the origin with heading along +x. Integration is single-step forward
// Euler: per sample the heading is advanced by speed*dt/R and the
// position by the updated heading. A zero-speed sample leaves position
// and heading unchanged; a zero-angle sample is straight-line travel
// (infinite turning radius).
func CalculatePath(wheelAngle, speed []float64, samplingFrequency float64, cfg IntegratorConfig) (Trajectory, error) {
	if len(wheelAngle) != len(speed) {
		return nil, fmt.Errorf("%w: %d angle samples vs %d speed samples", ErrLengthMismatch, len(wheelAngle), len(speed))
	}
	if len(wheelAngle) == 0 {
		return nil, ErrEmptySeries
	}
	if samplingFrequency <= 0 {
		return nil, fmt.Errorf("%w: got %v Hz", ErrBadFrequency, samplingFrequency)
	}
	if cfg.WheelBase <= 0 {
		return nil, fmt.Errorf("%w: got %v m", ErrBadWheelBase, cfg.WheelBase)
	}

	dt := 1 / samplingFrequency
	x, y, theta := 0.0, 0.0, 0.0

	path := make(Trajectory, 0, len(speed)+1)
	path = append(path, Point{})

	for i, spd := range speed {
		if spd == 0 {
			// Stationary sample: no motion, heading holds.
			path = append(path, Point{X: x, Y: y})
			continue
		}

		// Heading change over this step. Zero angle means straight
		// travel (infinite turning radius), so the heading holds.
		if angle := wheelAngle[i]; angle != 0 {
			r := cfg.WheelBase / math.Tan(angle)
			theta += spd * dt / r
		}

		// Position advances along the updated heading (single-step
		// Euler, not a midpoint scheme).
		x += spd * math.Cos(theta) * dt
		y += spd * math.Sin(theta) * dt
		path = append(path, Point{X: x, Y: y})
	}

	return path, nil
}
