// fusion replays, simulates and serves AHRS sensor fusion.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/goflying/fusion/ahrs"
	"github.com/goflying/fusion/config"
)

var version = "dev"

var (
	configPath string
	sampleRate int
)

func main() {
	if err := fang.Execute(context.Background(), rootCmd()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fusion",
		Short: "AHRS sensor fusion tools",
		Long: `fusion estimates orientation from gyroscope, accelerometer and
magnetometer samples.

Commands:
  replay     Fuse a recorded CSV of samples and write the estimates as CSV
  simulate   Fuse a synthetic flight and report the attitude error
  compare    Report the largest difference between two result CSVs
  magcal     Fit a hard/soft-iron magnetometer calibration
  serve      Publish fused estimates to websocket clients`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "JSON tuning file")
	root.PersistentFlags().IntVar(&sampleRate, "rate", 0, "sample rate in Hz, overrides the tuning file")

	root.AddCommand(
		replayCmd(),
		simulateCmd(),
		compareCmd(),
		magcalCmd(),
		serveCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if sampleRate > 0 {
		rate := sampleRate
		cfg.SampleRate = &rate
	}
	return cfg, nil
}

func newFusion() (*ahrs.Fusion, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	f, err := cfg.Fusion()
	return f, cfg, err
}
