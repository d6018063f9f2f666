/*
Drive the fusion pipeline from recorded or synthesized samples.
Replay plays back a recording; Simulate compares the estimate against a
situation whose true attitude is known.
*/

package sim

import (
	"fmt"
	"log"
	"math"

	"github.com/goflying/fusion/ahrs"
)

// Replay feeds samples through f in order and, if l is not nil, logs the
// estimate after each one. A leading sample at t=0 only marks the start
// of the recording and is skipped; samples whose time stamp does not
// advance are dropped. Replay returns the number of samples processed.
func Replay(f *ahrs.Fusion, samples []Sample, l *AHRSLogger) (n int, err error) {
	for i, m := range samples {
		if i == 0 && m.T == 0 {
			continue
		}
		if !f.Update(m.Gyroscope, m.Accelerometer, m.Magnetometer, m.T) {
			log.Printf("Sim: dropping sample %d, time %f does not advance\n", i, m.T)
			continue
		}
		n++
		if l == nil {
			continue
		}
		if err = l.LogFusion(m.T, f); err != nil {
			return n, err
		}
	}
	if l != nil {
		err = l.Flush()
	}
	return n, err
}

// AttitudeError summarizes the error of one Euler angle, degrees.
type AttitudeError struct {
	Mean, StdDev float64 // Exponentially weighted
	Max          float64 // Largest absolute error after initialisation
}

// Stats summarizes how closely a simulation tracked the true attitude.
type Stats struct {
	Samples          int
	Roll, Pitch, Yaw AttitudeError
}

func (s Stats) String() string {
	return fmt.Sprintf("%d samples, max error roll %.3f° pitch %.3f° yaw %.3f°",
		s.Samples, s.Roll.Max, s.Pitch.Max, s.Yaw.Max)
}

// SimulateHeader names the columns written by Simulate.
var SimulateHeader = []string{"t", "roll", "pitch", "yaw", "roll_true", "pitch_true", "yaw_true"}

type errorTracker struct {
	acc *VarianceAccumulator
	max float64
}

func (e *errorTracker) add(d float64, settled bool) {
	if e.acc == nil {
		e.acc = NewVarianceAccumulator(d, 0.99)
	} else {
		e.acc.Add(d)
	}
	if settled {
		e.max = math.Max(e.max, math.Abs(d))
	}
}

func (e *errorTracker) result() AttitudeError {
	if e.acc == nil {
		return AttitudeError{}
	}
	return AttitudeError{Mean: e.acc.Mean(), StdDev: math.Sqrt(e.acc.Variance()), Max: e.max}
}

// Simulate samples sit at sampleRate Hz, feeds the samples through f and
// compares the estimate with the true attitude. If l is not nil, the
// estimate and truth are logged with SimulateHeader columns.
func Simulate(sit *SituationSim, f *ahrs.Fusion, sampleRate float64, l *AHRSLogger) (stats Stats, err error) {
	var (
		m                Sample
		roll, pitch, yaw errorTracker
		dt               = 1 / sampleRate
		begin, end       = sit.BeginTime(), sit.EndTime()
	)

	for i := 1; begin+float64(i)*dt <= end; i++ {
		t := begin + float64(i)*dt
		if err = sit.Measurement(t, &m); err != nil {
			return stats, fmt.Errorf("measurement at time %f: %w", t, err)
		}
		q, _ := sit.Interpolate(t) // Peek behind the curtain: the actual attitude

		// Fusion time stamps start at zero
		if !f.Update(m.Gyroscope, m.Accelerometer, m.Magnetometer, t-begin) {
			continue
		}
		stats.Samples++

		e, truth := f.Euler(), ahrs.QuaternionToEuler(q)
		settled := !f.AHRS().Flags().Initialising
		roll.add(angleDiff(e.Roll, truth.Roll), settled)
		pitch.add(e.Pitch-truth.Pitch, settled)
		yaw.add(angleDiff(e.Yaw, truth.Yaw), settled)

		if l != nil {
			if err = l.Log(t, e.Roll, e.Pitch, e.Yaw, truth.Roll, truth.Pitch, truth.Yaw); err != nil {
				return stats, err
			}
		}
	}
	if l != nil {
		err = l.Flush()
	}

	stats.Roll, stats.Pitch, stats.Yaw = roll.result(), pitch.result(), yaw.result()
	return stats, err
}

// angleDiff returns a-b wrapped into (-180, 180], degrees
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
