// Package ahrs fuses gyroscope, accelerometer and magnetometer samples into
// an orientation estimate. It is meant to run once per sample inside a
// real-time sensor loop: nothing on the update path allocates, blocks or
// panics.
//
// Angular rates are in °/s, accelerations in G, magnetic fields in
// arbitrary units and angles in degrees.
package ahrs

import (
	"fmt"
	"math"
)

const (
	Pi    = math.Pi
	Deg   = Pi / 180 // Radians per degree
	Small = 1e-9     // Magnitudes below this cannot be normalized
)

// Convention names the earth axes: which way is up and which is north.
type Convention int

const (
	NWU Convention = iota // North-West-Up
	ENU                   // East-North-Up
	NED                   // North-East-Down
)

func (c Convention) String() string {
	switch c {
	case NWU:
		return "NWU"
	case ENU:
		return "ENU"
	case NED:
		return "NED"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// ParseConvention returns the Convention named s ("NWU", "ENU" or "NED").
func ParseConvention(s string) (Convention, error) {
	for _, c := range []Convention{NWU, ENU, NED} {
		if c.String() == s {
			return c, nil
		}
	}
	return NWU, fmt.Errorf("unknown convention %q", s)
}

// Settings holds the tuning of the AHRS algorithm.
// A zero GyroscopeRange, AccelerationRejection or MagneticRejection
// disables that feature; a zero Gain or RecoveryTriggerPeriod disables
// rejection altogether.
type Settings struct {
	Convention            Convention
	Gain                  float64 // Weight of the accelerometer/magnetometer feedback
	GyroscopeRange        float64 // Gyroscope full scale, °/s
	AccelerationRejection float64 // Max accelerometer error before it is ignored, degrees
	MagneticRejection     float64 // Max magnetometer error before it is ignored, degrees
	RecoveryTriggerPeriod int     // Rejected samples before a source is force-admitted
	InitialGain           float64 // Gain at the start of the initialisation ramp
	InitialisationPeriod  float64 // Duration of the initialisation ramp, s
}

// DefaultSettings returns NWU, gain 0.5, rejections of 90° and rejection
// disabled (zero recovery period), with a 3 s ramp down from gain 10.
func DefaultSettings() Settings {
	return Settings{
		Convention:            NWU,
		Gain:                  0.5,
		GyroscopeRange:        0,
		AccelerationRejection: 90,
		MagneticRejection:     90,
		RecoveryTriggerPeriod: 0,
		InitialGain:           10,
		InitialisationPeriod:  3,
	}
}

// Flags reports the conditions under which the latest estimate was made.
type Flags struct {
	Initialising         bool // Gain is still ramping down after a reset
	AngularRateRecovery  bool // Gyroscope exceeded its range on the latest sample
	AccelerationRecovery bool // Accelerometer is being force-admitted
	MagneticRecovery     bool // Magnetometer is being force-admitted
}

// Recovering reports whether any correction source is being force-admitted.
func (f Flags) Recovering() bool {
	return f.AccelerationRecovery || f.MagneticRecovery
}

// InternalStates exposes the rejection machinery for diagnostics.
type InternalStates struct {
	AccelerationError           float64 // Angle between measured and expected gravity, degrees
	AccelerometerIgnored        bool
	AccelerationRecoveryTrigger float64 // Rejection counter as a fraction of the recovery period
	MagneticError               float64 // Angle between measured and expected field, degrees
	MagnetometerIgnored         bool
	MagneticRecoveryTrigger     float64 // Rejection counter as a fraction of the recovery period
}
