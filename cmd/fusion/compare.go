package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// columnDiff is the difference between one column of two result files.
type columnDiff struct {
	Name     string
	Max, RMS float64
}

func readColumns(r io.Reader) (header []string, cols [][]float64, err error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(recs) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}
	header = recs[0]
	cols = make([][]float64, len(header))
	for i, rec := range recs[1:] {
		for j, k := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(k), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %s: %w", i+1, header[j], err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return header, cols, nil
}

// compareResults returns the per-column differences of two CSV files
// with the same header and number of rows.
func compareResults(a, b io.Reader) ([]columnDiff, error) {
	ha, ca, err := readColumns(a)
	if err != nil {
		return nil, err
	}
	hb, cb, err := readColumns(b)
	if err != nil {
		return nil, err
	}
	if strings.Join(ha, ",") != strings.Join(hb, ",") {
		return nil, fmt.Errorf("headers differ: %v and %v", ha, hb)
	}

	diffs := make([]columnDiff, len(ha))
	for j, name := range ha {
		if len(ca[j]) != len(cb[j]) {
			return nil, fmt.Errorf("column %s has %d and %d rows", name, len(ca[j]), len(cb[j]))
		}
		diffs[j].Name = name
		if n := len(ca[j]); n > 0 {
			diffs[j].Max = floats.Distance(ca[j], cb[j], math.Inf(1))
			diffs[j].RMS = floats.Distance(ca[j], cb[j], 2) / math.Sqrt(float64(n))
		}
	}
	return diffs, nil
}

func compareCmd() *cobra.Command {
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "compare <a.csv> <b.csv>",
		Short: "Compare two result files",
		Long: `compare reports, per column, the largest and RMS difference between two
CSV files written by replay, and fails if any exceeds the tolerance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fa, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fa.Close()
			fb, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer fb.Close()

			diffs, err := compareResults(fa, fb)
			if err != nil {
				return fmt.Errorf("comparing %s and %s: %w", args[0], args[1], err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "column\tmax\trms")
			var worst columnDiff
			for _, d := range diffs {
				fmt.Fprintf(w, "%s\t%.3g\t%.3g\n", d.Name, d.Max, d.RMS)
				if d.Max > worst.Max {
					worst = d
				}
			}
			w.Flush()

			if worst.Max > tolerance {
				return fmt.Errorf("column %s differs by %g, tolerance %g", worst.Name, worst.Max, tolerance)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-3, "largest acceptable difference")
	return cmd
}
