package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goflying/fusion/ahrsweb"
	"github.com/goflying/fusion/sim"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		scenario string
		input    string
		speed    float64
		every    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish fused estimates over a websocket",
		Long: `serve runs a websocket room at /ahrsweb. Every message a client sends is
forwarded to all clients. With --scenario or --input, the fused estimates
of a synthetic or recorded flight are published as JSON as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var sit sim.Situation
			switch {
			case scenario != "" && input != "":
				return errors.New("use only one of --scenario and --input")
			case scenario != "":
				newSit, ok := sim.Scenarios[scenario]
				if !ok {
					return fmt.Errorf("unknown scenario %q, try one of %s", scenario, scenarioNames())
				}
				sit = newSit()
			case input != "":
				var err error
				if sit, err = sim.NewSituationFromFile(input); err != nil {
					return err
				}
			}

			r := ahrsweb.NewRoom()
			go r.Run(ctx)

			mux := http.NewServeMux()
			mux.Handle("/ahrsweb", r)
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			if sit != nil {
				f, cfg, err := newFusion()
				if err != nil {
					return err
				}
				l := &ahrsweb.SimListener{
					Room:       r,
					Fusion:     f,
					Situation:  sit,
					SampleRate: float64(cfg.GetSampleRate()),
					Speed:      speed,
					Every:      every,
				}
				go func() {
					if _, err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Println("AHRSWeb: Listener stopped:", err)
					}
				}()
			}

			go func() {
				<-ctx.Done()
				shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				srv.Shutdown(shutdown)
			}()

			log.Println("AHRSWeb: Starting web server on", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("AHRSWeb: ListenAndServe: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", fmt.Sprintf(":%d", ahrsweb.Port), "address to serve on")
	cmd.Flags().StringVar(&scenario, "scenario", "", "publish a synthetic flight: "+scenarioNames())
	cmd.Flags().StringVar(&input, "input", "", "publish a recorded sample file")
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed relative to real time")
	cmd.Flags().IntVar(&every, "every", 10, "publish one of every n samples")
	return cmd
}
