package ahrsweb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/goflying/fusion/ahrs"
	"github.com/goflying/fusion/sim"
)

// SimListener plays a situation through a fusion pipeline and publishes
// the estimate to a room.
type SimListener struct {
	Room       *Room
	Fusion     *ahrs.Fusion
	Situation  sim.Situation
	SampleRate float64 // Hz
	Speed      float64 // Playback speed relative to real time; 0 runs flat out
	Every      int     // Publish one of every Every samples
}

// Run plays the whole situation, or until ctx is cancelled.
// It returns the number of samples processed.
func (l *SimListener) Run(ctx context.Context) (n int, err error) {
	if !(l.SampleRate > 0) {
		return 0, fmt.Errorf("bad sample rate %v", l.SampleRate)
	}
	every := l.Every
	if every < 1 {
		every = 1
	}

	var (
		m          sim.Sample
		dt         = 1 / l.SampleRate
		begin, end = l.Situation.BeginTime(), l.Situation.EndTime()
		tick       <-chan time.Time
	)
	if l.Speed > 0 {
		if period := time.Duration(float64(time.Second) * dt / l.Speed); period > 0 {
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			tick = ticker.C
		}
	}

	log.Printf("AHRSWeb: Playing situation from %.2f to %.2f s\n", begin, end)
	for i := 1; begin+float64(i)*dt <= end; i++ {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return n, ctx.Err()
			}
		} else if err = ctx.Err(); err != nil {
			return n, err
		}

		t := begin + float64(i)*dt
		if err = l.Situation.Measurement(t, &m); err != nil {
			return n, fmt.Errorf("measurement at time %f: %w", t, err)
		}
		if !l.Fusion.Update(m.Gyroscope, m.Accelerometer, m.Magnetometer, t-begin) {
			continue
		}
		n++
		if n%every != 0 {
			continue
		}
		if err = l.Room.PublishData(NewAHRSData(t, l.Fusion)); err != nil {
			return n, err
		}
	}
	log.Printf("AHRSWeb: Situation finished after %d samples\n", n)
	return n, nil
}
