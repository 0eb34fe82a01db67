package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mayday/internal/app"
	"mayday/internal/maintenance"
	"mayday/internal/models"
)

func init() {
	cmdRoot.AddCommand(cmdReport())
}

func cmdReport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read-only catalog health reports",
	}
	cmd.AddCommand(cmdReportDuplicates(), cmdReportMissing(), cmdReportAlbums(), cmdReportRelink())
	return cmd
}

func cmdReportDuplicates() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "duplicates",
		Short:        "List songs sharing title, artist and album",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetStringSlice("protect")
			protect := make(map[int64]bool, len(raw))
			for _, s := range raw {
				id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid song id %q", s)
				}
				protect[id] = true
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				groups, err := maintenance.FindDuplicateSongs(ctx, a.Repo, protect)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				removable := 0
				for _, g := range groups {
					album := g.AlbumName
					if album == "" {
						album = "(no album)"
					}
					fmt.Fprintf(out, "%s - %s [%s]\n", g.Title, g.Artist, album)
					fmt.Fprintf(out, "  keep   #%d %s\n", g.Keep.ID, songPath(&g.Keep))
					for _, s := range g.Remove {
						fmt.Fprintf(out, "  remove #%d %s\n", s.ID, songPath(&s))
					}
					for _, s := range g.Protected {
						fmt.Fprintf(out, "  locked #%d %s\n", s.ID, songPath(&s))
					}
					removable += len(g.Remove)
				}
				fmt.Fprintf(out, "%d duplicate groups, %d removable songs\n", len(groups), removable)
				return nil
			})
		},
	}
	cmd.Flags().StringSlice("protect", nil, "song ids never proposed for removal")
	return cmd
}

func cmdReportMissing() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "missing",
		Short:        "List songs whose files no longer exist",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uploads, _ := cmd.Flags().GetString("uploads")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := maintenance.CheckSongFiles(ctx, a.Repo, uploads)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tORIGINAL PATH\tFILE PATH")
				for _, m := range report.Missing {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Song.ID, m.Song.Title, m.OriginalPath, m.FilePath)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d songs: %d found, %d missing\n",
					report.Checked, report.Found, len(report.Missing))
				return nil
			})
		},
	}
	cmd.Flags().String("uploads", "", "directory relative uploaded file paths are resolved against")
	return cmd
}

func cmdReportAlbums() *cobra.Command {
	return &cobra.Command{
		Use:          "albums",
		Short:        "List albums with no songs under the authoritative directory",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				root := a.Config.Library.AuthoritativeDirectory
				findings, err := maintenance.AuditAlbums(ctx, a.Repo, root)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, f := range findings {
					fmt.Fprintf(out, "#%d %s: %s\n", f.Album.ID, f.Album.Name, f.Reason)
					for _, p := range f.SongPaths {
						fmt.Fprintf(out, "    %s\n", p)
					}
				}
				fmt.Fprintf(out, "%d albums outside %s\n", len(findings), root)
				return nil
			})
		},
	}
}

func cmdReportRelink() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "relink",
		Short:        "Match song titles to files under the music directory and fix stale paths",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apply, _ := cmd.Flags().GetBool("apply")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				dir := a.Config.Library.MusicDirectory
				report, err := maintenance.RelinkSongPaths(ctx, a.Repo, dir, apply)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, r := range report.Relinked {
					from := r.From
					if from == "" {
						from = "(no path)"
					}
					fmt.Fprintf(out, "#%d %s\n  %s\n  -> %s (%.0f)\n", r.Song.ID, r.Song.Title, from, r.To, r.Score)
				}
				for _, s := range report.Unmatched {
					fmt.Fprintf(out, "#%d %s: no matching file\n", s.ID, s.Title)
				}
				verb := "would relink"
				if apply {
					verb = "relinked"
				}
				fmt.Fprintf(out, "Checked %d songs against %d files: %s %d, unchanged %d, unmatched %d\n",
					report.Checked, report.Files, verb, len(report.Relinked), report.Unchanged, len(report.Unmatched))
				return nil
			})
		},
	}
	cmd.Flags().Bool("apply", false, "write the new paths instead of only listing them")
	return cmd
}

func songPath(s *models.Song) string {
	if s.OriginalPath != "" {
		return s.OriginalPath
	}
	if s.FilePath != "" {
		return s.FilePath
	}
	return "(no path)"
}
