package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goflying/fusion/ahrs"
	"github.com/goflying/fusion/config"
	magkal "github.com/goflying/fusion/magnetometer"
	"github.com/goflying/fusion/sim"
)

func magcalCmd() *cobra.Command {
	var (
		method string
		save   string
	)

	cmd := &cobra.Command{
		Use:   "magcal <samples.csv>",
		Short: "Fit a magnetometer calibration",
		Long: `magcal fits hard-iron and soft-iron corrections to the magnetometer
columns of a sample file recorded while the sensor was turned through
every orientation.

Methods:
  ellipsoid  Least-squares ellipsoid fit over every sample (default)
  simple     Min/max along each axis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := sim.LoadSamples(args[0])
			if err != nil {
				return err
			}
			var mags []ahrs.Vector
			for _, s := range samples {
				if !s.Magnetometer.IsZero() {
					mags = append(mags, s.Magnetometer)
				}
			}

			var r magkal.Result
			switch method {
			case "ellipsoid":
				r, err = magkal.FitEllipsoid(mags)
			case "simple":
				r, err = magkal.FitSimple(mags)
			default:
				return fmt.Errorf("unknown method %q", method)
			}
			if err != nil {
				return fmt.Errorf("fitting %d samples: %w", len(mags), err)
			}

			c := r.Calibration
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "soft iron %.4f %.4f %.4f\n", c.SoftIron.XX, c.SoftIron.YY, c.SoftIron.ZZ)
			fmt.Fprintf(out, "hard iron %.4f %.4f %.4f\n", c.HardIron.X, c.HardIron.Y, c.HardIron.Z)
			fmt.Fprintf(out, "field %.4f, residual %.4f over %d samples\n", r.Field, r.Residual, len(mags))

			if save == "" {
				return nil
			}
			cfg := config.Default()
			if configPath != "" {
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			cfg.SetMagnetometer(c)
			if err := cfg.Save(save); err != nil {
				return fmt.Errorf("saving calibration: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "ellipsoid", "fit method: ellipsoid or simple")
	cmd.Flags().StringVar(&save, "save", "", "write the tuning file with this calibration to a JSON file")
	return cmd
}
