package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goflying/fusion/ahrs"
	"github.com/goflying/fusion/sim"
)

func scenarioNames() string {
	var names []string
	for k := range sim.Scenarios {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func simulateCmd() *cobra.Command {
	var (
		output    string
		threshold float64
		noise     float64
		noMag     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate <scenario>",
		Short: "Fuse a synthetic flight",
		Long: `simulate synthesizes the sensor samples of a scenario whose attitude is
known and reports how closely the estimate tracks it.

Scenarios: ` + scenarioNames(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newSit, ok := sim.Scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q, try one of %s", args[0], scenarioNames())
			}
			sit := newSit()
			sit.Noise.Gyroscope = noise
			sit.Noise.Accelerometer = noise / 100
			sit.Noise.Magnetometer = noise / 100
			sit.Noise.MagnetometerInop = noMag

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := cfg.Settings()
			if err != nil {
				return err
			}
			s.Convention = sit.Convention()
			o := cfg.OffsetConfig()
			if threshold > 0 {
				o.Threshold = threshold
			}
			f := ahrs.NewFusionWithOffset(s, ahrs.InitializeOffsetWithConfig(cfg.GetSampleRate(), o))

			var l *sim.AHRSLogger
			if output != "" {
				out, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer out.Close()
				if l, err = sim.NewAHRSLogger(out, sim.SimulateHeader...); err != nil {
					return err
				}
			}

			stats, err := sim.Simulate(sit, f, float64(cfg.GetSampleRate()), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV of estimated and true attitude")
	// A standard-rate turn is 3°/s, the default stationary threshold
	cmd.Flags().Float64Var(&threshold, "offset-threshold", 0.5, "gyroscope offset stationary threshold, °/s (0 keeps the tuning file value)")
	cmd.Flags().Float64Var(&noise, "noise", 0, "gyroscope noise, °/s; accelerometer and magnetometer get 1% of it")
	cmd.Flags().BoolVar(&noMag, "no-mag", false, "simulate a failed magnetometer")
	return cmd
}
