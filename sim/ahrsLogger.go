package sim

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/goflying/fusion/ahrs"
)

// FusionHeader names the columns written by LogFusion. The first column
// holds the sample time stamp.
var FusionHeader = []string{
	"dt",
	"euler_yaw", "euler_pitch", "euler_roll",
	"earth_x", "earth_y", "earth_z",
	"q_w", "q_x", "q_y", "q_z",
}

// AHRSLogger writes rows of floats as CSV.
type AHRSLogger struct {
	w   *bufio.Writer
	h   []string
	fmt string
}

// NewAHRSLogger writes the header h to w and returns a logger for rows
// with one value per header column.
func NewAHRSLogger(w io.Writer, h ...string) (l *AHRSLogger, err error) {
	l = &AHRSLogger{w: bufio.NewWriter(w), h: h}
	if _, err = fmt.Fprint(l.w, strings.Join(l.h, ","), "\n"); err != nil {
		return nil, err
	}
	s := strings.Repeat("%.8f,", len(l.h))
	l.fmt = strings.Join([]string{s[:len(s)-1], "\n"}, "")
	return l, nil
}

// Log writes one row.
func (l *AHRSLogger) Log(v ...interface{}) error {
	if len(v) != len(l.h) {
		return fmt.Errorf("logging %d values for %d columns", len(v), len(l.h))
	}
	_, err := fmt.Fprintf(l.w, l.fmt, v...)
	return err
}

// LogFusion writes the FusionHeader columns for the current estimate of f.
func (l *AHRSLogger) LogFusion(t float64, f *ahrs.Fusion) error {
	e := f.Euler()
	a := f.EarthAcceleration()
	q := f.Quaternion()
	return l.Log(t, e.Yaw, e.Pitch, e.Roll, a.X, a.Y, a.Z, q.W, q.X, q.Y, q.Z)
}

// Flush writes any buffered rows to the underlying writer.
func (l *AHRSLogger) Flush() error {
	return l.w.Flush()
}
