package ahrs

import "math"

// OffsetConfig holds the tunables of the gyroscope offset estimator.
type OffsetConfig struct {
	Window          float64 // Stationary time required before the bias is adjusted, s
	CutoffFrequency float64 // Cutoff of the bias low-pass filter, Hz
	Threshold       float64 // Angular rate below which the gyroscope is stationary, °/s
}

// DefaultOffsetConfig returns a 5 s window, 0.02 Hz cutoff and 3 °/s threshold.
func DefaultOffsetConfig() OffsetConfig {
	return OffsetConfig{
		Window:          5,
		CutoffFrequency: 0.02,
		Threshold:       3,
	}
}

// Offset tracks and removes a slowly varying gyroscope bias.
// The bias only adapts after the gyroscope has been stationary for a full
// window.
type Offset struct {
	config            OffsetConfig
	filterCoefficient float64
	bias              Vector
	stationary        bool
	magnitudes        ring // |corrected rate| over the last window, °/s
}

// InitializeOffset returns an offset estimator with the default
// configuration for gyroscope samples arriving at sampleRate Hz.
func InitializeOffset(sampleRate int) *Offset {
	return InitializeOffsetWithConfig(sampleRate, DefaultOffsetConfig())
}

// InitializeOffsetWithConfig returns an offset estimator for samples
// arriving at sampleRate Hz.
func InitializeOffsetWithConfig(sampleRate int, c OffsetConfig) *Offset {
	if sampleRate < 1 {
		sampleRate = 1
	}
	n := int(math.Round(c.Window * float64(sampleRate)))
	if n < 1 {
		n = 1
	}
	return &Offset{
		config:            c,
		filterCoefficient: 2 * Pi * c.CutoffFrequency / float64(sampleRate),
		magnitudes:        newRing(n),
	}
}

// Update removes the current bias estimate from gyroscope and returns the
// corrected angular rate, °/s.
func (o *Offset) Update(gyroscope Vector) Vector {
	g := gyroscope.Subtract(o.bias)

	// Any axis above threshold (or not a number) means motion: restart the window
	if !(g.maxAbs() <= o.config.Threshold) {
		o.magnitudes.clear()
		o.stationary = false
		return g
	}

	o.magnitudes.push(g.Magnitude())
	o.stationary = o.magnitudes.full() && o.magnitudes.mean() < o.config.Threshold
	if o.stationary {
		o.bias = o.bias.Add(g.Scale(o.filterCoefficient))
	}
	return g
}

// Bias returns the current gyroscope bias estimate, °/s.
func (o *Offset) Bias() Vector {
	return o.bias
}

// Stationary reports whether the last update adjusted the bias.
func (o *Offset) Stationary() bool {
	return o.stationary
}

// Config returns the configuration the estimator was built with.
func (o *Offset) Config() OffsetConfig {
	return o.config
}

// ring is a fixed-capacity ring buffer of float64 with a running sum.
type ring struct {
	data []float64
	pos  int
	n    int
	sum  float64
}

func newRing(capacity int) ring {
	return ring{data: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n == len(r.data) {
		r.sum -= r.data[r.pos]
	} else {
		r.n++
	}
	r.data[r.pos] = v
	r.sum += v
	r.pos++
	if r.pos == len(r.data) {
		r.pos = 0
	}
}

func (r *ring) full() bool {
	return r.n == len(r.data)
}

func (r *ring) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Max(0, r.sum) / float64(r.n)
}

func (r *ring) clear() {
	r.pos = 0
	r.n = 0
	r.sum = 0
}
