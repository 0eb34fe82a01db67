package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mayday/internal/app"
)

func init() {
	cmdRoot.AddCommand(cmdScan())
}

func cmdScan() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan [directory]",
		Short:        "Scan a directory and reconcile its audio files with the catalog",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fresh, _ := cmd.Flags().GetBool("fresh")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				root := a.Config.Library.MusicDirectory
				if len(args) == 1 {
					root = args[0]
				}

				result, cached, err := a.Scan(ctx, root, fresh)
				if err != nil && result == nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %s", root)
				if cached {
					fmt.Fprint(out, " (cached)")
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  files:          %d\n", result.Files)
				fmt.Fprintf(out, "  created:        %d\n", result.Created)
				fmt.Fprintf(out, "  updated:        %d\n", result.Updated)
				fmt.Fprintf(out, "  skipped:        %d\n", result.Skipped)
				fmt.Fprintf(out, "  albums created: %d\n", result.AlbumsCreated)
				fmt.Fprintf(out, "  duration:       %s\n", result.Duration)
				return err
			})
		},
	}
	cmd.Flags().Bool("fresh", false, "ignore any cached result for this directory")
	return cmd
}
