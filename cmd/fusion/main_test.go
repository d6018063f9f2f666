package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goflying/fusion/ahrs"
	"github.com/goflying/fusion/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReplay(t *testing.T) {
	in := writeFile(t, "samples.csv", "timestamp,gx,gy,gz,ax,ay,az,mx,my,mz\n0,0,0,0,0,0,1,1,0,0\n0.04,0,0,0,0,0,1,1,0,0\n")
	out := filepath.Join(t.TempDir(), "result.csv")

	msg, err := run(t, "replay", in, "-o", out, "--rate", "25")
	require.NoError(t, err)
	assert.Contains(t, msg, "fused 1 of 2 samples")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "dt,euler_yaw,euler_pitch,euler_roll"))
	assert.True(t, strings.HasPrefix(lines[1], "0.04000000,"))
	assert.True(t, strings.HasSuffix(lines[1], ",1.00000000,0.00000000,0.00000000,0.00000000"))
}

func TestReplayErrors(t *testing.T) {
	_, err := run(t, "replay", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.csv", "0,1,2\n")
	_, err = run(t, "replay", bad)
	assert.Error(t, err)

	good := writeFile(t, "good.csv", "0.01,0,0,0,0,0,1\n")
	_, err = run(t, "replay", good, "--config", writeFile(t, "tuning.json", `{"convention": "up"}`))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := writeFile(t, "a.csv", "t,x\n1,0.5\n2,0.25\n")
	b := writeFile(t, "b.csv", "t,x\n1,0.5005\n2,0.25\n")

	out, err := run(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "column")

	_, err = run(t, "compare", a, b, "--tolerance", "1e-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column x")

	c := writeFile(t, "c.csv", "t,y\n1,0.5\n2,0.25\n")
	_, err = run(t, "compare", a, c)
	assert.Error(t, err)
}

func TestCompareResults(t *testing.T) {
	diffs, err := compareResults(
		strings.NewReader("t,x\n1,1\n2,2\n3,3\n4,4\n"),
		strings.NewReader("t,x\n1,1\n2,2\n3,5\n4,4\n"),
	)
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.Equal(t, columnDiff{Name: "t"}, diffs[0])
	assert.Equal(t, 2.0, diffs[1].Max)
	assert.InDelta(t, 1.0, diffs[1].RMS, 1e-12)

	_, err = compareResults(strings.NewReader("t\n1\n"), strings.NewReader("t\n1\n2\n"))
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	out, err := run(t, "simulate", "turn")
	require.NoError(t, err)
	assert.Contains(t, out, "turn:")
	assert.Contains(t, out, "max error roll")

	_, err = run(t, "simulate", "barrel-roll")
	assert.Error(t, err)
}

func TestMagcal(t *testing.T) {
	// Points on a sphere of radius 50, scaled and offset per axis
	var b strings.Builder
	b.WriteString("timestamp,gx,gy,gz,ax,ay,az,mx,my,mz\n")
	i := 0
	for theta := 10.0; theta < 180; theta += 20 {
		for phi := 0.0; phi < 360; phi += 30 {
			st, ct := math.Sincos(theta * ahrs.Deg)
			sp, cp := math.Sincos(phi * ahrs.Deg)
			m := ahrs.Vector{X: 50 * st * cp * 1.2, Y: 50 * st * sp * 0.8, Z: 50 * ct}.Add(ahrs.Vector{X: 10, Y: -20, Z: 5})
			i++
			fmt.Fprintf(&b, "%d,0,0,0,0,0,1,%f,%f,%f\n", i, m.X, m.Y, m.Z)
		}
	}
	in := writeFile(t, "mag.csv", b.String())
	save := filepath.Join(t.TempDir(), "tuning.json")

	out, err := run(t, "magcal", in, "--save", save)
	require.NoError(t, err)
	assert.Contains(t, out, "hard iron")

	cfg, err := config.Load(save)
	require.NoError(t, err)
	c := cfg.Magnetometer.Calibration()

	// The calibrated extremes are centred on the origin
	for _, m := range []ahrs.Vector{{X: 70, Y: -20, Z: 5}, {X: -50, Y: -20, Z: 5}} {
		assert.InDelta(t, 50, c.Apply(m).Magnitude(), 0.1)
	}
	assert.InDelta(t, 0, c.Apply(ahrs.Vector{X: 10, Y: -20, Z: 5}).Magnitude(), 0.1)

	_, err = run(t, "magcal", in, "--method", "guess")
	assert.Error(t, err)
	out, err = run(t, "magcal", in, "--method", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "soft iron")
}

func TestServeRejectsBothSources(t *testing.T) {
	_, err := run(t, "serve", "--scenario", "turn", "--input", "x.csv")
	assert.Error(t, err)
	_, err = run(t, "serve", "--scenario", "loop")
	assert.Error(t, err)
}
