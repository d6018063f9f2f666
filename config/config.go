// Package config loads the tuning of a fusion session from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/goflying/fusion/ahrs"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root of a tuning file. Fields omitted from the file keep
// their default values, so partial files are safe.
type Config struct {
	SampleRate *int `json:"sample_rate,omitempty"` // Hz

	// AHRS settings
	Convention            *string  `json:"convention,omitempty"` // "NWU", "ENU" or "NED"
	Gain                  *float64 `json:"gain,omitempty"`
	GyroscopeRange        *float64 `json:"gyroscope_range,omitempty"`         // °/s, 0 disables
	AccelerationRejection *float64 `json:"acceleration_rejection,omitempty"`  // °
	MagneticRejection     *float64 `json:"magnetic_rejection,omitempty"`      // °
	RecoveryTriggerPeriod *int     `json:"recovery_trigger_period,omitempty"` // samples, 0 disables rejection
	InitialGain           *float64 `json:"initial_gain,omitempty"`
	InitialisationPeriod  *float64 `json:"initialisation_period,omitempty"` // s

	Offset *Offset `json:"offset,omitempty"`

	// Sensor calibrations
	Gyroscope     *Inertial `json:"gyroscope,omitempty"`
	Accelerometer *Inertial `json:"accelerometer,omitempty"`
	Magnetometer  *Magnetic `json:"magnetometer,omitempty"`
}

// Offset tunes the gyroscope offset estimator.
type Offset struct {
	Window          *float64 `json:"window,omitempty"`           // s
	CutoffFrequency *float64 `json:"cutoff_frequency,omitempty"` // Hz
	Threshold       *float64 `json:"threshold,omitempty"`        // °/s
}

// Inertial is the calibration of a gyroscope or accelerometer.
// Matrices are listed row by row.
type Inertial struct {
	Misalignment *[9]float64 `json:"misalignment,omitempty"`
	Sensitivity  *[3]float64 `json:"sensitivity,omitempty"`
	Offset       *[3]float64 `json:"offset,omitempty"`
}

// Magnetic is the calibration of a magnetometer.
type Magnetic struct {
	SoftIron *[9]float64 `json:"soft_iron,omitempty"`
	HardIron *[3]float64 `json:"hard_iron,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// Default returns a Config with every field set to its default value.
func Default() *Config {
	s := ahrs.DefaultSettings()
	o := ahrs.DefaultOffsetConfig()
	return &Config{
		SampleRate:            ptrInt(100),
		Convention:            ptrString(s.Convention.String()),
		Gain:                  ptrFloat64(s.Gain),
		GyroscopeRange:        ptrFloat64(s.GyroscopeRange),
		AccelerationRejection: ptrFloat64(s.AccelerationRejection),
		MagneticRejection:     ptrFloat64(s.MagneticRejection),
		RecoveryTriggerPeriod: ptrInt(s.RecoveryTriggerPeriod),
		InitialGain:           ptrFloat64(s.InitialGain),
		InitialisationPeriod:  ptrFloat64(s.InitialisationPeriod),
		Offset: &Offset{
			Window:          ptrFloat64(o.Window),
			CutoffFrequency: ptrFloat64(o.CutoffFrequency),
			Threshold:       ptrFloat64(o.Threshold),
		},
	}
}

// Load reads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks that the values that are set make sense.
func (c *Config) Validate() error {
	if c.SampleRate != nil && *c.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be positive, got %d", *c.SampleRate)
	}
	if c.Convention != nil {
		if _, err := ahrs.ParseConvention(*c.Convention); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"gain", c.Gain},
		{"gyroscope_range", c.GyroscopeRange},
		{"acceleration_rejection", c.AccelerationRejection},
		{"magnetic_rejection", c.MagneticRejection},
		{"initial_gain", c.InitialGain},
		{"initialisation_period", c.InitialisationPeriod},
	} {
		if f.v != nil && !(*f.v >= 0 && !math.IsInf(*f.v, 1)) {
			return fmt.Errorf("%s must be a non-negative number, got %v", f.name, *f.v)
		}
	}
	if c.RecoveryTriggerPeriod != nil && *c.RecoveryTriggerPeriod < 0 {
		return fmt.Errorf("recovery_trigger_period must be non-negative, got %d", *c.RecoveryTriggerPeriod)
	}
	if c.Offset != nil {
		if v := c.Offset.Window; v != nil && !(*v > 0) {
			return fmt.Errorf("offset window must be positive, got %v", *v)
		}
		if v := c.Offset.CutoffFrequency; v != nil && !(*v >= 0) {
			return fmt.Errorf("offset cutoff_frequency must be non-negative, got %v", *v)
		}
		if v := c.Offset.Threshold; v != nil && !(*v >= 0) {
			return fmt.Errorf("offset threshold must be non-negative, got %v", *v)
		}
	}
	return nil
}

// GetSampleRate returns the sample rate or the default of 100 Hz.
func (c *Config) GetSampleRate() int {
	if c.SampleRate == nil {
		return 100
	}
	return *c.SampleRate
}

func getFloat64(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Settings returns the AHRS settings, defaults filling in omitted values.
func (c *Config) Settings() (ahrs.Settings, error) {
	s := ahrs.DefaultSettings()
	if c.Convention != nil {
		conv, err := ahrs.ParseConvention(*c.Convention)
		if err != nil {
			return s, err
		}
		s.Convention = conv
	}
	s.Gain = getFloat64(c.Gain, s.Gain)
	s.GyroscopeRange = getFloat64(c.GyroscopeRange, s.GyroscopeRange)
	s.AccelerationRejection = getFloat64(c.AccelerationRejection, s.AccelerationRejection)
	s.MagneticRejection = getFloat64(c.MagneticRejection, s.MagneticRejection)
	if c.RecoveryTriggerPeriod != nil {
		s.RecoveryTriggerPeriod = *c.RecoveryTriggerPeriod
	}
	s.InitialGain = getFloat64(c.InitialGain, s.InitialGain)
	s.InitialisationPeriod = getFloat64(c.InitialisationPeriod, s.InitialisationPeriod)
	return s, nil
}

// OffsetConfig returns the offset estimator tuning.
func (c *Config) OffsetConfig() ahrs.OffsetConfig {
	o := ahrs.DefaultOffsetConfig()
	if c.Offset == nil {
		return o
	}
	o.Window = getFloat64(c.Offset.Window, o.Window)
	o.CutoffFrequency = getFloat64(c.Offset.CutoffFrequency, o.CutoffFrequency)
	o.Threshold = getFloat64(c.Offset.Threshold, o.Threshold)
	return o
}

func matrix(m *[9]float64) ahrs.Matrix {
	if m == nil {
		return ahrs.IdentityMatrix()
	}
	return ahrs.MatrixFromRows([3][3]float64{
		{m[0], m[1], m[2]},
		{m[3], m[4], m[5]},
		{m[6], m[7], m[8]},
	})
}

func vector(v *[3]float64, def ahrs.Vector) ahrs.Vector {
	if v == nil {
		return def
	}
	return ahrs.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Calibration returns the inertial calibration, identity if c is nil.
func (c *Inertial) Calibration() ahrs.InertialCalibration {
	if c == nil {
		return ahrs.IdentityInertialCalibration()
	}
	return ahrs.InertialCalibration{
		Misalignment: matrix(c.Misalignment),
		Sensitivity:  vector(c.Sensitivity, ahrs.Vector{X: 1, Y: 1, Z: 1}),
		Offset:       vector(c.Offset, ahrs.Vector{}),
	}
}

// Calibration returns the magnetic calibration, identity if c is nil.
func (c *Magnetic) Calibration() ahrs.MagneticCalibration {
	if c == nil {
		return ahrs.IdentityMagneticCalibration()
	}
	return ahrs.MagneticCalibration{
		SoftIron: matrix(c.SoftIron),
		HardIron: vector(c.HardIron, ahrs.Vector{}),
	}
}

// SetMagnetometer stores a magnetic calibration, such as one fitted by
// the magnetometer package.
func (c *Config) SetMagnetometer(m ahrs.MagneticCalibration) {
	r := m.SoftIron.Rows()
	c.Magnetometer = &Magnetic{
		SoftIron: &[9]float64{r[0][0], r[0][1], r[0][2], r[1][0], r[1][1], r[1][2], r[2][0], r[2][1], r[2][2]},
		HardIron: &[3]float64{m.HardIron.X, m.HardIron.Y, m.HardIron.Z},
	}
}

// Fusion builds a fusion pipeline with the configured settings, offset
// estimator and calibrations.
func (c *Config) Fusion() (*ahrs.Fusion, error) {
	s, err := c.Settings()
	if err != nil {
		return nil, err
	}
	f := ahrs.NewFusionWithOffset(s, ahrs.InitializeOffsetWithConfig(c.GetSampleRate(), c.OffsetConfig()))
	f.Gyroscope = c.Gyroscope.Calibration()
	f.Accelerometer = c.Accelerometer.Calibration()
	f.Magnetometer = c.Magnetometer.Calibration()
	return f, nil
}
