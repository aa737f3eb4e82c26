package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/star/solarweather/internal/chart"
	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/simulation"
)

// horizonFlags selects the number of simulated days.
type horizonFlags struct {
	days  int
	years int
}

func (h *horizonFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&h.days, "days", 0, "number of days to simulate")
	cmd.Flags().IntVar(&h.years, "years", 10, "years to simulate when --days is not set")
}

func (h *horizonFlags) dayCount() int {
	if h.days != 0 {
		return h.days
	}
	return h.years * forecast.DaysPerYear
}

// buildLocal generates and validates a simulation in-process.
func buildLocal(cmd *cobra.Command, opts *rootOptions, days int) (*simulation.Simulation, error) {
	gen := simulation.NewGenerator(opts.workers, opts.logger(cmd.ErrOrStderr()))
	s, err := gen.Generate(cmd.Context(), days)
	var vf *simulation.ValidationFailure
	if errors.As(err, &vf) {
		for _, e := range vf.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %s\n", e)
		}
	}
	return s, err
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		horizon horizonFlags
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the forecast and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildLocal(cmd, opts, horizon.dayCount())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s.Summary)
			}
			printSummary(cmd.OutOrStdout(), s.Summary)
			return nil
		},
	}
	horizon.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newDayCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "day N",
		Short: "Print the weather of day N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day must be an integer: %q", args[0])
			}
			if n < 0 {
				return fmt.Errorf("day %d: %w", n, simulation.ErrDayNotFound)
			}

			s, err := buildLocal(cmd, opts, n+1)
			if err != nil {
				return err
			}
			d, err := s.LookupDay(n)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "day %d: %s (perimeter %.4f)\n", d.Number, d.Condition, d.Perimeter)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPeriodsCmd(opts *rootOptions) *cobra.Command {
	var horizon horizonFlags
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Print the weather periods of the forecast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildLocal(cmd, opts, horizon.dayCount())
			if err != nil {
				return err
			}
			periods := simulation.Periods(s.Days)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONDITION\tSTART\tEND\tDAYS\tPEAK")
			for _, p := range periods {
				peak := "-"
				if p.PeakDay != nil {
					peak = strconv.Itoa(*p.PeakDay)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", p.Condition, p.Start, p.End, p.Length(), peak)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			c := simulation.CountPeriods(periods)
			fmt.Fprintf(cmd.OutOrStdout(), "\ndry %d, rain %d, optimal %d, normal %d\n", c.Dry, c.Rain, c.Optimal, c.Normal)
			return nil
		},
	}
	horizon.register(cmd)
	return cmd
}

func newChartCmd(opts *rootOptions) *cobra.Command {
	var (
		horizon horizonFlags
		output  string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the triangle perimeter of every day as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildLocal(cmd, opts, horizon.dayCount())
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := chart.RenderPerimeter(f, s.Days, chart.DefaultOptions()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	horizon.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "perimeter.png", "output file")
	return cmd
}

func printSummary(w io.Writer, s simulation.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "horizon\t%d days\n", s.Horizon)
	fmt.Fprintf(tw, "dry\t%d\n", s.DryCount)
	fmt.Fprintf(tw, "rain\t%d\n", s.RainCount)
	fmt.Fprintf(tw, "optimal\t%d\n", s.OptimalCount)
	fmt.Fprintf(tw, "normal\t%d\n", s.NormalCount)
	fmt.Fprintf(tw, "max perimeter\t%.4f\n", s.MaxPerimeter)
	fmt.Fprintf(tw, "peak days\t%v\n", s.PeakDays)
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
