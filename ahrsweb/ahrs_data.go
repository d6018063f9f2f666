package ahrsweb

import "github.com/goflying/fusion/ahrs"

// AHRSData is one published snapshot of the fusion output.
type AHRSData struct {
	T float64 // Time stamp of the sample, s

	// Final output
	Roll, Pitch, Yaw float64 // °
	QW, QX, QY, QZ   float64 // Quaternion rotating sensor frame to earth frame

	EX, EY, EZ float64 // Earth acceleration, gravity removed, G
	LX, LY, LZ float64 // Linear acceleration, sensor frame, G
	DX, DY, DZ float64 // Gyroscope bias, sensor frame, °/s

	// Flags
	Initialising, AngularRateRecovery, AccelerationRecovery, MagneticRecovery bool

	// Internal states
	AccelerationError, MagneticError                     float64 // °
	AccelerometerIgnored, MagnetometerIgnored            bool
	AccelerationRecoveryTrigger, MagneticRecoveryTrigger float64 // Fraction of the trigger period
}

// NewAHRSData captures the current estimate of f for a sample taken at t.
func NewAHRSData(t float64, f *ahrs.Fusion) *AHRSData {
	s := f.AHRS()
	e, q := s.Euler(), s.Quaternion()
	ea, la := s.EarthAcceleration(), s.LinearAcceleration()
	b := f.Offset().Bias()
	fl, is := s.Flags(), s.InternalStates()

	d := &AHRSData{T: t}
	d.Roll, d.Pitch, d.Yaw = e.Roll, e.Pitch, e.Yaw
	d.QW, d.QX, d.QY, d.QZ = q.W, q.X, q.Y, q.Z
	d.EX, d.EY, d.EZ = ea.X, ea.Y, ea.Z
	d.LX, d.LY, d.LZ = la.X, la.Y, la.Z
	d.DX, d.DY, d.DZ = b.X, b.Y, b.Z

	d.Initialising = fl.Initialising
	d.AngularRateRecovery = fl.AngularRateRecovery
	d.AccelerationRecovery = fl.AccelerationRecovery
	d.MagneticRecovery = fl.MagneticRecovery

	d.AccelerationError = is.AccelerationError
	d.AccelerometerIgnored = is.AccelerometerIgnored
	d.AccelerationRecoveryTrigger = is.AccelerationRecoveryTrigger
	d.MagneticError = is.MagneticError
	d.MagnetometerIgnored = is.MagnetometerIgnored
	d.MagneticRecoveryTrigger = is.MagneticRecoveryTrigger
	return d
}
