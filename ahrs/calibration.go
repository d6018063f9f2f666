package ahrs

// InertialCalibration holds the calibration of a gyroscope or accelerometer.
type InertialCalibration struct {
	Misalignment Matrix
	Sensitivity  Vector
	Offset       Vector
}

// MagneticCalibration holds the soft-iron and hard-iron corrections of a
// magnetometer.
type MagneticCalibration struct {
	SoftIron Matrix
	HardIron Vector
}

// IdentityInertialCalibration returns the calibration that leaves
// samples unchanged.
func IdentityInertialCalibration() InertialCalibration {
	return InertialCalibration{
		Misalignment: IdentityMatrix(),
		Sensitivity:  Vector{1, 1, 1},
	}
}

// IdentityMagneticCalibration returns the calibration that leaves
// samples unchanged.
func IdentityMagneticCalibration() MagneticCalibration {
	return MagneticCalibration{SoftIron: IdentityMatrix()}
}

// Apply calibrates a raw gyroscope or accelerometer sample.
func (c InertialCalibration) Apply(raw Vector) Vector {
	return CalibrateInertial(raw, c.Misalignment, c.Sensitivity, c.Offset)
}

// Apply calibrates a raw magnetometer sample.
func (c MagneticCalibration) Apply(raw Vector) Vector {
	return CalibrateMagnetic(raw, c.SoftIron, c.HardIron)
}

// CalibrateInertial returns misalignment·((raw - offset) ⊙ sensitivity).
// The order of the operations matters.
func CalibrateInertial(raw Vector, misalignment Matrix, sensitivity, offset Vector) Vector {
	return misalignment.MultiplyVector(raw.Subtract(offset).Hadamard(sensitivity))
}

// CalibrateMagnetic returns softIron·raw - hardIron.
func CalibrateMagnetic(raw Vector, softIron Matrix, hardIron Vector) Vector {
	return softIron.MultiplyVector(raw).Subtract(hardIron)
}
