package main

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	workers  int
	logLevel string
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Weather forecast for the Ferengi, Betasoide and Vulcano system",
		Long: `Classify the weather of every day of a three-planet solar system.

Local commands build the forecast in-process. The query command talks to a
running solarweather server, and generate/reset operate on the store
configured through SOLARWEATHER_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().IntVar(&opts.workers, "workers", runtime.NumCPU(), "classification workers")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSimulateCmd(opts),
		newDayCmd(opts),
		newPeriodsCmd(opts),
		newChartCmd(opts),
		newGenerateCmd(opts),
		newResetCmd(opts),
		newQueryCmd(),
	)
	return cmd
}
