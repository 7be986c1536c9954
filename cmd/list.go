package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"showtimes-console/config"
	"showtimes-console/service"
	"showtimes-console/tui"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all of today's showtimes as a table",
		Long:  `Loads today's showtimes (from the cache when it is fresh) and prints every theater's movies at once.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cmd, opts, true)
			if err != nil {
				return err
			}
			defer closeLog()

			errOut := cmd.ErrOrStderr()
			progress := func(done, total int, th config.Theater) {
				fmt.Fprintf(errOut, "Fetching %s (%d/%d)...\n", th.Label(), done+1, total)
			}
			loader := newLoader(cfg, opts, logger, service.WithProgress(progress))

			entries, date, err := loader.LoadEntriesForToday(cmd.Context())
			if err != nil {
				return finish(cmd, err)
			}
			if rows := tui.WriteListing(cmd.OutOrStdout(), entries, date); rows == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No movies found to display. Check your config or cache.")
			}
			return nil
		},
	}
}
