package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goflying/fusion/sim"
)

func replayCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "replay <samples.csv>",
		Short: "Fuse recorded samples",
		Long: `replay reads timestamp,gx,gy,gz,ax,ay,az[,mx,my,mz] records, fuses
them and writes one row of estimates per sample.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := sim.LoadSamples(args[0])
			if err != nil {
				return err
			}
			f, _, err := newFusion()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				out, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer out.Close()
				w = out
			}

			l, err := sim.NewAHRSLogger(w, sim.FusionHeader...)
			if err != nil {
				return err
			}
			n, err := sim.Replay(f, samples, l)
			if err != nil {
				return fmt.Errorf("replaying %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "fused %d of %d samples\n", n, len(samples))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")
	return cmd
}
