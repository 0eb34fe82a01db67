package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mayday/internal/app"
	"mayday/internal/maintenance"
)

func init() {
	cmdRoot.AddCommand(cmdReindex())
}

func cmdReindex() *cobra.Command {
	return &cobra.Command{
		Use:          "reindex",
		Short:        "Recompute artist pinyin and index letters",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := maintenance.ReindexArtists(ctx, a.Repo, a.Indexer)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d artists across %d songs\n", report.Artists, report.Songs)
				for _, artist := range report.Unindexed {
					fmt.Fprintf(cmd.OutOrStdout(), "  unindexed: %s\n", artist)
				}
				return nil
			})
		},
	}
}
