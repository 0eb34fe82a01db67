package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mayday/internal/app"
	"mayday/internal/lyrics"
)

func init() {
	cmdRoot.AddCommand(cmdLyrics())
}

func cmdLyrics() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lyrics",
		Short:        "Attach lyric files to catalog songs",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				dir, _       = cmd.Flags().GetString("dir")
				load, _      = cmd.Flags().GetBool("load")
				overwrite, _ = cmd.Flags().GetBool("overwrite")
			)

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if dir == "" {
					dir = a.Config.Lyrics.Directory
				}
				if !cmd.Flags().Changed("overwrite") {
					overwrite = a.Config.Lyrics.Overwrite
				}
				dryRun := !load
				if !cmd.Flags().Changed("load") {
					dryRun = a.Config.Lyrics.DryRun
				}

				report, err := a.LyricsLoader(overwrite, dryRun).Load(ctx, dir)
				if err != nil {
					return err
				}
				printLyricsReport(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().String("dir", "", "lyric directory (default lyrics.directory)")
	cmd.Flags().Bool("load", false, "store lyrics instead of previewing (default !lyrics.dry_run)")
	cmd.Flags().Bool("overwrite", false, "replace lyrics songs already have")
	return cmd
}

func printLyricsReport(cmd *cobra.Command, r *lyrics.Report) {
	out := cmd.OutOrStdout()
	if r.DryRun {
		fmt.Fprintln(out, "Preview mode, nothing will be stored (use --load)")
	}

	for _, res := range r.Results {
		name := filepath.Base(res.Path)
		switch res.Outcome {
		case lyrics.ResultNotFound:
			fmt.Fprintf(out, "  ✗ %s: no matching song\n", name)
		case lyrics.ResultSkipped:
			fmt.Fprintf(out, "  - %s: %q already has lyrics\n", name, res.Title)
		case lyrics.ResultUnreadable:
			fmt.Fprintf(out, "  ✗ %s: unreadable or empty\n", name)
		default:
			fmt.Fprintf(out, "  ✓ %s -> %q (score %.1f, %d chars, %s)\n", name, res.Title, res.Score, res.Chars, res.Encoding)
		}
	}

	fmt.Fprintf(out, "Files: %d  matched: %d  updated: %d  skipped: %d  not found: %d  unreadable: %d\n",
		r.Files, r.Matched, r.Updated, r.Skipped, r.NotFound, r.Unreadable)
}
