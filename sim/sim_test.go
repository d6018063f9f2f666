package sim

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/goflying/fusion/ahrs"
)

const endToEnd = `timestamp,gx,gy,gz,ax,ay,az,mx,my,mz
0,0,0,0,0,0,1,1,0,0
0.04,0,0,0,0,0,1,1,0,0
`

func parseRows(t *testing.T, b []byte) (header []string, rows [][]float64) {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range recs[1:] {
		var row []float64
		for _, k := range rec {
			v, err := strconv.ParseFloat(k, 64)
			if err != nil {
				t.Fatal(err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return recs[0], rows
}

func TestReadSamples(t *testing.T) {
	in := "timestamp,gx,gy,gz,ax,ay,az\n# a comment\n0.01, 1, 2, 3, 0, 0, 1\n0.02,1,2,3,0,0,1,10,20,30\n"
	samples, err := ReadSamples(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("read %d samples, expected 2", len(samples))
	}
	want := Sample{T: 0.01, Gyroscope: ahrs.Vector{X: 1, Y: 2, Z: 3}, Accelerometer: ahrs.Vector{Z: 1}}
	if samples[0] != want {
		t.Errorf("first sample %+v, expected %+v", samples[0], want)
	}
	if samples[1].Magnetometer != (ahrs.Vector{X: 10, Y: 20, Z: 30}) {
		t.Errorf("second sample magnetometer %v", samples[1].Magnetometer)
	}

	// No header
	if samples, err = ReadSamples(strings.NewReader("0.5,0,0,0,0,0,1\n")); err != nil || len(samples) != 1 {
		t.Errorf("headerless file: %v, %v", samples, err)
	}
}

func TestReadSamplesErrors(t *testing.T) {
	for _, in := range []string{
		"0,1,2\n",
		"0,0,0,0,0,0,1\n0.01,0,0,x,0,0,1\n",
		"timestamp,gx\n0,0,0,0,0,0,1,1,0\n",
	} {
		if _, err := ReadSamples(strings.NewReader(in)); !errors.Is(err, ErrBadRecord) {
			t.Errorf("%q: got error %v", in, err)
		}
	}
}

func TestReplayEndToEnd(t *testing.T) {
	samples, err := ReadSamples(strings.NewReader(endToEnd))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	l, err := NewAHRSLogger(&out, FusionHeader...)
	if err != nil {
		t.Fatal(err)
	}
	f := ahrs.NewFusion(25, ahrs.DefaultSettings())
	n, err := Replay(f, samples, l)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("processed %d samples, expected 1", n)
	}

	header, rows := parseRows(t, out.Bytes())
	if strings.Join(header, ",") != strings.Join(FusionHeader, ",") {
		t.Errorf("header %v", header)
	}
	want := []float64{0.04, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("rows %v", rows)
	}
	for i, v := range rows[0] {
		if math.Abs(v-want[i]) > 1e-6 {
			t.Errorf("%s = %v, expected %v", FusionHeader[i], v, want[i])
		}
	}
	if !strings.Contains(out.String(), "0.04000000,") {
		t.Errorf("expected 8 decimal places, got %q", out.String())
	}
}

func TestReplayDropsStaleSamples(t *testing.T) {
	samples := []Sample{
		{T: 0.01, Accelerometer: ahrs.Vector{Z: 1}},
		{T: 0.02, Accelerometer: ahrs.Vector{Z: 1}},
		{T: 0.02, Accelerometer: ahrs.Vector{Z: 1}},
		{T: 0.015, Accelerometer: ahrs.Vector{Z: 1}},
		{T: 0.03, Accelerometer: ahrs.Vector{Z: 1}},
	}
	n, err := Replay(ahrs.NewFusion(100, ahrs.DefaultSettings()), samples, nil)
	if err != nil || n != 3 {
		t.Errorf("processed %d samples (%v), expected 3", n, err)
	}
}

func TestLoggerColumns(t *testing.T) {
	var out bytes.Buffer
	l, err := NewAHRSLogger(&out, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Log(1.0); err == nil {
		t.Error("expected an error logging too few values")
	}
	if err := l.Log(1.0, 2.5); err != nil {
		t.Fatal(err)
	}
	l.Flush()
	if got := out.String(); got != "a,b\n1.00000000,2.50000000\n" {
		t.Errorf("logged %q", got)
	}
}

// A standard-rate turn is 3°/s, which the default threshold would take for bias
const simulationThreshold = 0.5 // °/s

func simulationFusion() *ahrs.Fusion {
	c := ahrs.DefaultOffsetConfig()
	c.Threshold = simulationThreshold
	return ahrs.NewFusionWithOffset(ahrs.DefaultSettings(), ahrs.InitializeOffsetWithConfig(100, c))
}

func TestSimulate(t *testing.T) {
	for name, sit := range Scenarios {
		var out bytes.Buffer
		l, err := NewAHRSLogger(&out, SimulateHeader...)
		if err != nil {
			t.Fatal(err)
		}
		stats, err := Simulate(sit(), simulationFusion(), 100, l)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if stats.Samples < 100*int(sit().EndTime())-1 {
			t.Errorf("%s: only %d samples", name, stats.Samples)
		}
		for axis, e := range map[string]AttitudeError{"roll": stats.Roll, "pitch": stats.Pitch, "yaw": stats.Yaw} {
			if e.Max > 0.25 {
				t.Errorf("%s: %s error up to %.3f°", name, axis, e.Max)
			}
		}
		if _, rows := parseRows(t, out.Bytes()); len(rows) != stats.Samples {
			t.Errorf("%s: logged %d rows for %d samples", name, len(rows), stats.Samples)
		}
	}
}

// The offset estimator absorbs any steady rotation slower than its
// threshold, so scenarios hold still or move faster than that.
func TestScenarioRates(t *testing.T) {
	for name, sit := range Scenarios {
		s := sit()
		for i := 1; i < len(s.t); i++ {
			mid := (s.t[i-1] + s.t[i]) / 2
			r, err := s.rate(mid)
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if w := r.Magnitude(); w > 1e-6 && w < simulationThreshold {
				t.Errorf("%s: %.3f°/s from %v to %v s", name, w, s.t[i-1], s.t[i])
			}
		}
	}
}

func TestSimulateNoMagnetometer(t *testing.T) {
	sit := TurnSituation()
	sit.Noise.MagnetometerInop = true
	stats, err := Simulate(sit, simulationFusion(), 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Roll.Max > 0.25 || stats.Pitch.Max > 0.25 {
		t.Errorf("tilt error %v", stats)
	}
}

func TestTurnRate(t *testing.T) {
	sit := TurnSituation()
	var m Sample
	if err := sit.Measurement(100, &m); err != nil {
		t.Fatal(err)
	}
	if r := m.Gyroscope.Magnitude(); math.Abs(r-3) > 1e-3 {
		t.Errorf("turn rate %v°/s, expected 3", r)
	}
	if a := m.Accelerometer.Magnitude(); math.Abs(a-1) > 1e-9 {
		t.Errorf("accelerometer magnitude %v", a)
	}
	if err := sit.Measurement(sit.EndTime()+1, &m); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSituationFromSamples(t *testing.T) {
	samples, _ := ReadSamples(strings.NewReader(endToEnd))
	sit, err := NewSituationFromSamples(samples)
	if err != nil {
		t.Fatal(err)
	}
	var m Sample
	if err := sit.Measurement(0.03, &m); err != nil || m.T != 0 {
		t.Errorf("measurement at 0.03: %+v, %v", m, err)
	}
	if err := sit.Measurement(0.04, &m); err != nil || m.T != 0.04 {
		t.Errorf("measurement at 0.04: %+v, %v", m, err)
	}
	if _, err := NewSituationFromSamples([]Sample{{T: 1}, {T: 0}}); err == nil {
		t.Error("expected an error for samples out of order")
	}
}

func TestVarianceAccumulator(t *testing.T) {
	a := NewVarianceAccumulator(2, 0.9)
	for i := 0; i < 100; i++ {
		if _, m, v := a.Add(2); m != 2 || v != 0 {
			t.Fatalf("constant input gave mean %v, variance %v", m, v)
		}
	}
	for i := 0; i < 1000; i++ {
		a.Add(float64(2*(i%2)) - 1)
	}
	if math.Abs(a.Mean()) > 0.1 || math.Abs(a.Variance()-1) > 0.2 {
		t.Errorf("±1 input gave mean %v, variance %v", a.Mean(), a.Variance())
	}
}
