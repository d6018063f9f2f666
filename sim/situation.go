// Package sim feeds recorded or synthesized sensor samples through the
// fusion pipeline and logs the results.
package sim

import "github.com/goflying/fusion/ahrs"

// Sample is one reading of all three sensors.
type Sample struct {
	T             float64     // Time stamp, s
	Gyroscope     ahrs.Vector // °/s
	Accelerometer ahrs.Vector // G
	Magnetometer  ahrs.Vector // Arbitrary units; zero when unavailable
}

// Situation is a source of sensor samples over a span of time.
type Situation interface {
	BeginTime() float64
	EndTime() float64
	// Measurement fills in the sensor readings at time t.
	Measurement(t float64, m *Sample) error
}
