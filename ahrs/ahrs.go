package ahrs

import "math"

// State holds the complete information describing the AHRS estimate.
// Sensor frame is the frame of the gyroscope/accelerometer/magnetometer axes.
// Earth frame follows the configured Convention.
// A State is owned by a single sensor session and is not safe for
// concurrent use.
type State struct {
	settings              Settings // As supplied by the caller
	gyroscopeRange        float64  // Angular rate that raises AngularRateRecovery, °/s
	accelerationRejection float64  // Threshold on |half accelerometer feedback|²
	magneticRejection     float64  // Threshold on |half magnetometer feedback|²

	quaternion    Quaternion // Rotates sensor frame into earth frame
	accelerometer Vector     // Latest accelerometer sample, sensor frame, G

	initialising        bool    // Gain is ramping down from InitialGain
	rampedGain          float64 // Gain currently applied to the feedback
	rampedGainStep      float64 // Ramp rate, per s
	angularRateRecovery bool    // Latest gyroscope sample exceeded gyroscopeRange

	acceleration source // Rejection counters for the accelerometer
	magnetic     source // Rejection counters for the magnetometer
}

// source tracks the rejection and recovery of one correction source.
type source struct {
	halfFeedback    Vector // Latest feedback scaled by 0.5, applied or not
	ignored         bool   // Feedback was not applied on the latest sample
	recoveryTrigger int    // Rises by 1 per rejected sample, falls by 9 per admitted one
	recoveryTimeout int    // Drops to 0 while the source is being force-admitted
}

// Initialize returns a State with the default settings: identity
// orientation, zero acceleration, initialisation ramp active.
func Initialize() (s *State) {
	s = new(State)
	s.SetSettings(DefaultSettings())
	s.Reset()
	return s
}

// Reset restarts the algorithm from the identity orientation, keeping the
// settings.
func (s *State) Reset() {
	s.quaternion = IdentityQuaternion()
	s.accelerometer = Vector{}
	s.initialising = true
	s.rampedGain = s.settings.InitialGain
	s.angularRateRecovery = false
	s.acceleration = source{recoveryTimeout: s.settings.RecoveryTriggerPeriod}
	s.magnetic = source{recoveryTimeout: s.settings.RecoveryTriggerPeriod}
}

// SetSettings replaces the tuning of the algorithm and clears the
// rejection and recovery counters. A new InitialGain during
// initialisation restarts the gain ramp from that value.
func (s *State) SetSettings(settings Settings) {
	restartRamp := s.initialising && settings.InitialGain != s.settings.InitialGain
	s.settings = settings

	s.gyroscopeRange = math.Inf(1)
	if settings.GyroscopeRange > 0 {
		s.gyroscopeRange = 0.98 * settings.GyroscopeRange
	}
	s.accelerationRejection = rejectionThreshold(settings.AccelerationRejection)
	s.magneticRejection = rejectionThreshold(settings.MagneticRejection)
	if settings.Gain == 0 || settings.RecoveryTriggerPeriod == 0 {
		s.accelerationRejection = math.Inf(1)
		s.magneticRejection = math.Inf(1)
	}

	s.acceleration.recoveryTrigger = 0
	s.acceleration.recoveryTimeout = settings.RecoveryTriggerPeriod
	s.magnetic.recoveryTrigger = 0
	s.magnetic.recoveryTimeout = settings.RecoveryTriggerPeriod

	switch {
	case !s.initialising:
		s.rampedGain = settings.Gain
	case restartRamp:
		s.rampedGain = settings.InitialGain
	}
	s.rampedGainStep = 0
	if settings.InitialisationPeriod > 0 {
		s.rampedGainStep = (settings.InitialGain - settings.Gain) / settings.InitialisationPeriod
	}
}

// Settings returns the settings currently in use.
func (s *State) Settings() Settings {
	return s.settings
}

// rejectionThreshold converts a rejection angle in degrees into the
// threshold on the squared magnitude of a half feedback term.
func rejectionThreshold(angle float64) float64 {
	if angle <= 0 {
		return math.Inf(1)
	}
	v := 0.5 * math.Sin(angle*Deg)
	return v * v
}

// Update advances the estimate by dt seconds using a gyroscope sample
// (°/s), an accelerometer sample (G) and a magnetometer sample (any units).
// A zero accelerometer or magnetometer vector means that sensor is
// unavailable. dt must be positive; that is not checked.
func (s *State) Update(gyroscope, accelerometer, magnetometer Vector, dt float64) {
	s.accelerometer = accelerometer

	// Flag, but still integrate, a gyroscope that is beyond its range
	s.angularRateRecovery = gyroscope.maxAbs() > s.gyroscopeRange

	// Ramp down the gain during initialisation
	if s.initialising {
		s.rampedGain -= s.rampedGainStep * dt
		if !(s.rampedGain >= s.settings.Gain) || !(s.rampedGainStep > 0) || s.settings.Gain == 0 {
			s.rampedGain = s.settings.Gain
			s.initialising = false
		}
	}

	halfGravity := s.halfGravity()

	var halfAccelerometerFeedback Vector
	s.acceleration.ignored = true
	if !accelerometer.IsZero() {
		fb := feedback(accelerometer.Normalize(), halfGravity)
		if s.acceleration.admit(fb, s.accelerationRejection, s.initialising, s.settings.RecoveryTriggerPeriod) {
			halfAccelerometerFeedback = fb
		}
	}

	var halfMagnetometerFeedback Vector
	s.magnetic.ignored = true
	if !magnetometer.IsZero() {
		fb := feedback(halfGravity.Cross(magnetometer).Normalize(), s.halfMagnetic())
		if s.magnetic.admit(fb, s.magneticRejection, s.initialising, s.settings.RecoveryTriggerPeriod) {
			halfMagnetometerFeedback = fb
		}
	}

	// Feedback adjusts the angular rate; integrate q' = q + ½·q⊗ω·dt
	halfGyroscope := gyroscope.Scale(0.5 * Deg)
	adjusted := halfGyroscope.Add(halfAccelerometerFeedback.Add(halfMagnetometerFeedback).Scale(s.rampedGain))
	s.quaternion = s.quaternion.Add(s.quaternion.MultiplyVector(adjusted.Scale(dt))).Normalize()
}

// UpdateNoMagnetometer advances the estimate without a magnetometer.
// Heading is held at zero during initialisation.
func (s *State) UpdateNoMagnetometer(gyroscope, accelerometer Vector, dt float64) {
	s.Update(gyroscope, accelerometer, Vector{}, dt)
	if s.initialising {
		s.SetHeading(0)
	}
}

// UpdateExternalHeading advances the estimate using a heading (degrees)
// from another source, such as GPS, in place of a magnetometer.
func (s *State) UpdateExternalHeading(gyroscope, accelerometer Vector, heading, dt float64) {
	q := s.quaternion
	roll := math.Atan2(q.W*q.X+q.Y*q.Z, 0.5-q.Y*q.Y-q.X*q.X)
	sh, ch := math.Sincos(heading * Deg)
	sr, cr := math.Sincos(roll)
	magnetometer := Vector{
		X: ch,
		Y: -cr * sh,
		Z: sh * sr,
	}
	s.Update(gyroscope, accelerometer, magnetometer, dt)
}

// admit records a new half feedback term and decides whether it is applied.
// A rejected source is force-admitted once it has been rejected for more
// than period samples, until enough admitted samples drain its trigger.
func (c *source) admit(halfFeedback Vector, threshold float64, initialising bool, period int) bool {
	c.halfFeedback = halfFeedback
	c.ignored = true
	if initialising || halfFeedback.MagnitudeSquared() <= threshold {
		c.ignored = false
		c.recoveryTrigger -= 9
	} else {
		c.recoveryTrigger++
	}

	if c.recoveryTrigger > c.recoveryTimeout {
		c.recoveryTimeout = 0
		c.ignored = false
	} else {
		c.recoveryTimeout = period
	}
	c.recoveryTrigger = clamp(c.recoveryTrigger, 0, period)
	return !c.ignored
}

func (c *source) recovering() bool {
	return c.recoveryTrigger > c.recoveryTimeout
}

func (c *source) triggerFraction(period int) float64 {
	if period == 0 {
		return 0
	}
	return float64(c.recoveryTrigger) / float64(period)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// feedback returns the rotation error between a measured unit direction
// and a half-length reference direction.
func feedback(sensor, reference Vector) Vector {
	if sensor.Dot(reference) < 0 { // Error is beyond 90°
		return sensor.Cross(reference).Normalize()
	}
	return sensor.Cross(reference)
}

// halfGravity returns the expected direction of the accelerometer
// reading at rest ("up"), sensor frame, scaled by 0.5.
func (s *State) halfGravity() Vector {
	q := s.quaternion
	switch s.settings.Convention {
	case NED:
		return Vector{
			X: q.W*q.Y - q.X*q.Z,
			Y: -(q.Y*q.Z + q.W*q.X),
			Z: 0.5 - q.W*q.W - q.Z*q.Z,
		}
	default: // NWU, ENU
		return Vector{
			X: q.X*q.Z - q.W*q.Y,
			Y: q.Y*q.Z + q.W*q.X,
			Z: q.W*q.W - 0.5 + q.Z*q.Z,
		}
	}
}

// halfMagnetic returns the expected direction of up × magnetic north,
// sensor frame, scaled by 0.5.
func (s *State) halfMagnetic() Vector {
	q := s.quaternion
	switch s.settings.Convention {
	case ENU:
		return Vector{
			X: 0.5 - q.W*q.W - q.X*q.X,
			Y: q.W*q.Z - q.X*q.Y,
			Z: -(q.X*q.Z + q.W*q.Y),
		}
	case NED:
		return Vector{
			X: -(q.X*q.Y + q.W*q.Z),
			Y: 0.5 - q.W*q.W - q.Y*q.Y,
			Z: q.W*q.X - q.Y*q.Z,
		}
	default: // NWU
		return Vector{
			X: q.X*q.Y + q.W*q.Z,
			Y: q.W*q.W - 0.5 + q.Y*q.Y,
			Z: q.Y*q.Z - q.W*q.X,
		}
	}
}

// SetHeading rotates the estimate about the earth vertical so that its
// yaw equals heading, degrees.
func (s *State) SetHeading(heading float64) {
	q := s.quaternion
	yaw := math.Atan2(q.W*q.Z+q.X*q.Y, 0.5-q.Y*q.Y-q.Z*q.Z)
	h := 0.5 * (yaw - heading*Deg)
	rotation := Quaternion{W: math.Cos(h), Z: -math.Sin(h)}
	s.quaternion = rotation.Multiply(q).Normalize()
}

// SetQuaternion overwrites the orientation estimate.
func (s *State) SetQuaternion(q Quaternion) {
	s.quaternion = q.Normalize()
}

// Quaternion returns the current orientation estimate.
func (s *State) Quaternion() Quaternion {
	return s.quaternion
}

// Euler returns the current orientation estimate as Euler angles, degrees.
func (s *State) Euler() Euler {
	return QuaternionToEuler(s.quaternion)
}

// up returns the unit "up" vector of the earth frame.
func (s *State) up() Vector {
	if s.settings.Convention == NED {
		return Vector{Z: -1}
	}
	return Vector{Z: 1}
}

// EarthAcceleration returns the latest accelerometer sample rotated into
// the earth frame with gravity removed, G.
func (s *State) EarthAcceleration() Vector {
	return s.quaternion.Rotate(s.accelerometer).Subtract(s.up())
}

// LinearAcceleration returns the latest accelerometer sample with gravity
// removed, sensor frame, G.
func (s *State) LinearAcceleration() Vector {
	upSensor := s.quaternion.RotationMatrix().Transpose().MultiplyVector(s.up())
	return s.accelerometer.Subtract(upSensor)
}

// Flags returns the conditions under which the latest estimate was made.
func (s *State) Flags() Flags {
	return Flags{
		Initialising:         s.initialising,
		AngularRateRecovery:  s.angularRateRecovery,
		AccelerationRecovery: s.acceleration.recovering(),
		MagneticRecovery:     s.magnetic.recovering(),
	}
}

// InternalStates returns the state of the rejection machinery.
func (s *State) InternalStates() InternalStates {
	period := s.settings.RecoveryTriggerPeriod
	return InternalStates{
		AccelerationError:           asinSafe(2*s.acceleration.halfFeedback.Magnitude()) / Deg,
		AccelerometerIgnored:        s.acceleration.ignored,
		AccelerationRecoveryTrigger: s.acceleration.triggerFraction(period),
		MagneticError:               asinSafe(2*s.magnetic.halfFeedback.Magnitude()) / Deg,
		MagnetometerIgnored:         s.magnetic.ignored,
		MagneticRecoveryTrigger:     s.magnetic.triggerFraction(period),
	}
}
