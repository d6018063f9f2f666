package sim

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/goflying/fusion/ahrs"
	"github.com/westphae/quaternion"
)

// ErrOutOfRange is returned for times outside a situation.
var ErrOutOfRange = errors.New("requested time is outside of scenario")

// Noise describes the imperfections added to synthesized sensor readings.
// Noise levels are Gaussian standard deviations.
type Noise struct {
	Gyroscope         float64     // °/s
	Accelerometer     float64     // G
	Magnetometer      float64     // Field units
	GyroscopeBias     ahrs.Vector // °/s
	AccelerometerBias ahrs.Vector // G
	MagnetometerBias  ahrs.Vector // Field units
	MagnetometerInop  bool        // Report a zero magnetometer reading
}

// SituationSim defines a scenario by piecewise-linear interpolation of the
// attitude. The sensor is at rest apart from its rotation.
type SituationSim struct {
	t                []float64 // Times for situation, s
	roll, pitch, yaw []float64 // Attitude, degrees
	convention       ahrs.Convention
	up, field        ahrs.Vector // Earth frame
	Noise            Noise
}

// NewSituationSim returns a scenario passing through the given attitudes,
// degrees, at times t. The earth magnetic field has strength 1 and the
// given dip, degrees.
func NewSituationSim(c ahrs.Convention, dip float64, t, roll, pitch, yaw []float64) (*SituationSim, error) {
	n := len(t)
	if n < 2 || len(roll) != n || len(pitch) != n || len(yaw) != n {
		return nil, errors.New("situation needs at least two points and equal length slices")
	}
	if !sort.Float64sAreSorted(t) {
		return nil, errors.New("situation times must increase")
	}
	up, field := EarthReference(c, dip)
	return &SituationSim{
		t: t, roll: roll, pitch: pitch, yaw: yaw,
		convention: c,
		up:         up,
		field:      field,
	}, nil
}

// EarthReference returns the earth frame up direction and a unit magnetic
// field with the given dip, degrees, for a convention.
func EarthReference(c ahrs.Convention, dip float64) (up, field ahrs.Vector) {
	sd, cd := math.Sincos(dip * ahrs.Deg)
	switch c {
	case ahrs.ENU:
		return ahrs.Vector{Z: 1}, ahrs.Vector{Y: cd, Z: -sd}
	case ahrs.NED:
		return ahrs.Vector{Z: -1}, ahrs.Vector{X: cd, Z: sd}
	default:
		return ahrs.Vector{Z: 1}, ahrs.Vector{X: cd, Z: -sd}
	}
}

// BeginTime returns the time stamp when the simulation begins
func (s *SituationSim) BeginTime() float64 {
	return s.t[0]
}

// EndTime returns the time stamp when the simulation ends
func (s *SituationSim) EndTime() float64 {
	return s.t[len(s.t)-1]
}

// Convention returns the earth axes the situation is expressed in.
func (s *SituationSim) Convention() ahrs.Convention {
	return s.convention
}

// Interpolate returns the true attitude at time t.
func (s *SituationSim) Interpolate(t float64) (ahrs.Quaternion, error) {
	if t < s.t[0] || t > s.t[len(s.t)-1] {
		return ahrs.IdentityQuaternion(), ErrOutOfRange
	}
	ix := 0
	if t > s.t[0] {
		ix = sort.SearchFloat64s(s.t, t) - 1
	}

	f := (s.t[ix+1] - t) / (s.t[ix+1] - s.t[ix])
	return ahrs.EulerToQuaternion(ahrs.Euler{
		Roll:  f*s.roll[ix] + (1-f)*s.roll[ix+1],
		Pitch: f*s.pitch[ix] + (1-f)*s.pitch[ix+1],
		Yaw:   f*s.yaw[ix] + (1-f)*s.yaw[ix+1],
	}), nil
}

// rate returns the true angular rate at time t, sensor frame, °/s.
func (s *SituationSim) rate(t float64) (ahrs.Vector, error) {
	const ddt = 0.001
	t0, t1 := t, t+ddt
	if t1 > s.EndTime() {
		t1 = s.EndTime()
		t0 = t1 - ddt
	}

	q0, err := s.Interpolate(t0)
	if err != nil {
		return ahrs.Vector{}, err
	}
	q1, err := s.Interpolate(t1)
	if err != nil {
		return ahrs.Vector{}, err
	}

	// q̇ = ½·q⊗ω, so ω = 2·q*⊗q̇
	e := quaternion.Quaternion{W: q0.W, X: q0.X, Y: q0.Y, Z: q0.Z}
	de := quaternion.Quaternion{
		W: (q1.W - q0.W) / ddt,
		X: (q1.X - q0.X) / ddt,
		Y: (q1.Y - q0.Y) / ddt,
		Z: (q1.Z - q0.Z) / ddt,
	}
	h := quaternion.Prod(e.Conj(), de)
	return ahrs.Vector{X: 2 * h.X, Y: 2 * h.Y, Z: 2 * h.Z}.Scale(1 / ahrs.Deg), nil
}

// Measurement synthesizes the sensor readings at time t
func (s *SituationSim) Measurement(t float64, m *Sample) error {
	q, err := s.Interpolate(t)
	if err != nil {
		return err
	}
	h, err := s.rate(t)
	if err != nil {
		return err
	}

	// Rotate the earth references into the sensor frame
	e := quaternion.Quaternion{W: q.W, X: q.X, Y: q.Y, Z: q.Z}
	toSensor := func(v ahrs.Vector) ahrs.Vector {
		r := quaternion.Prod(e.Conj(), quaternion.Quaternion{X: v.X, Y: v.Y, Z: v.Z}, e)
		return ahrs.Vector{X: r.X, Y: r.Y, Z: r.Z}
	}

	n := s.Noise
	m.T = t
	m.Gyroscope = h.Add(n.GyroscopeBias).Add(gaussian(n.Gyroscope))
	m.Accelerometer = toSensor(s.up).Add(n.AccelerometerBias).Add(gaussian(n.Accelerometer))
	m.Magnetometer = ahrs.Vector{}
	if !n.MagnetometerInop {
		m.Magnetometer = toSensor(s.field).Add(n.MagnetometerBias).Add(gaussian(n.Magnetometer))
	}
	return nil
}

func gaussian(sigma float64) ahrs.Vector {
	if sigma == 0 {
		return ahrs.Vector{}
	}
	return ahrs.Vector{X: rand.NormFloat64(), Y: rand.NormFloat64(), Z: rand.NormFloat64()}.Scale(sigma)
}

// standardRateBank returns the bank angle, degrees, for a 3°/s turn at
// the given true airspeed, kt.
func standardRateBank(airspeed float64) float64 {
	const (
		g  = 9.80665  // m/s²
		kt = 0.514444 // m/s
	)
	return math.Atan(airspeed*kt*3*ahrs.Deg/g) / ahrs.Deg
}

// TurnSituation is two standard-rate 360° right turns, with entry and exit
func TurnSituation() *SituationSim {
	bank := standardRateBank(120)
	// start, initiate roll-in, end roll-in, initiate roll-out, end roll-out, end
	s, _ := NewSituationSim(ahrs.NWU, 60,
		[]float64{0, 10, 15, 255, 260, 270},
		[]float64{0, 0, bank, bank, 0, 0},
		[]float64{0, 0, 2, 2, 0, 0},
		[]float64{0, 0, 0, -720, -720, -720},
	)
	return s
}

// TakeoffSituation is a takeoff roll, climb and two left turns.
// Pitch changes during the roll in and out of the turns.
func TakeoffSituation() *SituationSim {
	bank1, bank2 := standardRateBank(95), standardRateBank(120)
	s, _ := NewSituationSim(ahrs.NWU, 60,
		[]float64{0, 10, 30, 35, 55, 115, 120, 150, 155, 175, 180, 210, 215, 230},
		[]float64{0, 0, 0, 0, 0, 0, -bank1, -bank1, 0, 0, -bank2, -bank2, 0, 0},
		[]float64{0, 0, 0, 11.5, 11.5, 11.5, 6.9, 6.9, 1.7, 1.7, 0, 0, 0, 0},
		[]float64{0, 0, 0, 0, 0, 0, 0, 90, 90, 90, 90, 180, 180, 180},
	)
	return s
}

// Scenarios lists the built-in situations by name.
var Scenarios = map[string]func() *SituationSim{
	"turn":    TurnSituation,
	"takeoff": TakeoffSituation,
}
