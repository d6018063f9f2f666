package sim

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goflying/fusion/ahrs"
)

// ErrBadRecord is returned for CSV records that are not sensor samples.
var ErrBadRecord = errors.New("bad sample record")

// SampleHeader names the columns of a sample file. The magnetometer
// columns may be left out.
var SampleHeader = []string{"timestamp", "gx", "gy", "gz", "ax", "ay", "az", "mx", "my", "mz"}

// ReadSamples reads CSV records of the form
// timestamp,gx,gy,gz,ax,ay,az[,mx,my,mz]. A header line is skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return samples, err
		}
		line, _ := cr.FieldPos(0)

		if first && isHeader(rec) {
			continue
		}
		if len(rec) != 7 && len(rec) != 10 {
			return samples, fmt.Errorf("%w: line %d has %d fields", ErrBadRecord, line, len(rec))
		}

		var v [10]float64
		for i, k := range rec {
			if v[i], err = strconv.ParseFloat(strings.TrimSpace(k), 64); err != nil {
				return samples, fmt.Errorf("%w: line %d field %d: %v", ErrBadRecord, line, i+1, err)
			}
		}
		samples = append(samples, Sample{
			T:             v[0],
			Gyroscope:     ahrs.Vector{X: v[1], Y: v[2], Z: v[3]},
			Accelerometer: ahrs.Vector{X: v[4], Y: v[5], Z: v[6]},
			Magnetometer:  ahrs.Vector{X: v[7], Y: v[8], Z: v[9]},
		})
	}
	return samples, nil
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	return err != nil
}

// LoadSamples reads a sample file, see ReadSamples.
func LoadSamples(fn string) ([]Sample, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return samples, nil
}

// SituationFromFile plays back recorded samples.
type SituationFromFile struct {
	samples []Sample
}

// NewSituationFromFile loads the samples recorded in fn.
func NewSituationFromFile(fn string) (*SituationFromFile, error) {
	samples, err := LoadSamples(fn)
	if err != nil {
		return nil, err
	}
	return NewSituationFromSamples(samples)
}

// NewSituationFromSamples plays back samples, which must be in time order.
func NewSituationFromSamples(samples []Sample) (*SituationFromFile, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples")
	}
	ok := sort.SliceIsSorted(samples, func(i, j int) bool { return samples[i].T < samples[j].T })
	if !ok {
		return nil, errors.New("samples are not in time order")
	}
	return &SituationFromFile{samples: samples}, nil
}

func (s *SituationFromFile) BeginTime() float64 {
	return s.samples[0].T
}

func (s *SituationFromFile) EndTime() float64 {
	return s.samples[len(s.samples)-1].T
}

// Samples returns the recorded samples.
func (s *SituationFromFile) Samples() []Sample {
	return s.samples
}

// Measurement returns the latest recorded sample at or before t.
func (s *SituationFromFile) Measurement(t float64, m *Sample) error {
	if t < s.BeginTime() || t > s.EndTime() {
		return ErrOutOfRange
	}
	ix := sort.Search(len(s.samples), func(i int) bool { return s.samples[i].T > t }) - 1
	*m = s.samples[ix]
	return nil
}
