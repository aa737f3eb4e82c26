package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/solarweather/internal/config"
	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/repository"
	"github.com/star/solarweather/internal/simulation"
)

// openStore opens the store configured through the environment.
func openStore(cmd *cobra.Command, opts *rootOptions) (*repository.Instrumented, *config.Config, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.New(cmd.Context(), cfg, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, err
	}
	return repo, cfg, nil
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the forecast into the configured store",
		Long: `Generate the forecast and store it in the backend selected by
SOLARWEATHER_STORE_BACKEND. Nothing is written when a forecast is already stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cfg, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			logger := opts.logger(cmd.ErrOrStderr())
			horizon := forecast.HorizonDays(cfg.HorizonYears, time.Now())
			svc := forecast.NewService(repo, simulation.NewGenerator(opts.workers, logger), horizon, logger)
			if days == 0 {
				days = svc.DefaultDays()
			}

			res, err := svc.Generate(cmd.Context(), days)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case forecast.Created:
				printSummary(cmd.OutOrStdout(), res.Summary)
			case forecast.AlreadyExists:
				fmt.Fprintf(cmd.OutOrStdout(), "a forecast is already stored in the %s store\n", repo.Backend())
			default:
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %s\n", e)
				}
				return errors.New("simulation rejected")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days (default: SOLARWEATHER_HORIZON_YEARS from today)")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored forecast so it can be generated again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store reset\n", repo.Backend())
			return nil
		},
	}
}
