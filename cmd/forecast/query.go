package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/solarweather/internal/client"
)

type queryOptions struct {
	server  string
	token   string
	timeout time.Duration
}

func (o *queryOptions) client() *client.Client {
	return client.New(o.server, o.token, o.timeout)
}

func newQueryCmd() *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a running forecast server",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SOLARWEATHER_AUTH_TOKEN"), "bearer token for generation")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newQueryDayCmd(opts),
		newQuerySummaryCmd(opts),
		newQueryGenerateCmd(opts),
	)
	return cmd
}

func newQueryDayCmd(opts *queryOptions) *cobra.Command {
	var withBodies bool
	cmd := &cobra.Command{
		Use:   "day N",
		Short: "Fetch the weather of day N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day must be an integer: %q", args[0])
			}
			d, err := opts.client().Day(cmd.Context(), n, withBodies)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().BoolVar(&withBodies, "bodies", false, "include body positions")
	return cmd
}

func newQuerySummaryCmd(opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Fetch the forecast summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.client().Summary(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newQueryGenerateCmd(opts *queryOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ask the server to generate the forecast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Generate(cmd.Context(), days)
			if err != nil {
				return err
			}
			if !res.Created {
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), res.Summary)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days (default: server horizon)")
	return cmd
}
