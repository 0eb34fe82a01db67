package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mayday/internal/app"
	"mayday/internal/logging"
	"mayday/internal/pagination"
)

func init() {
	cmdRoot.AddCommand(cmdLogs())
}

func cmdLogs() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "logs",
		Short:        "Show or prune persisted log entries",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				level, _  = cmd.Flags().GetString("level")
				module, _ = cmd.Flags().GetString("module")
				page, _   = cmd.Flags().GetInt("page")
				size, _   = cmd.Flags().GetInt("page-size")
				prune, _  = cmd.Flags().GetDuration("prune")
			)

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if prune > 0 {
					n, err := a.Logs.DeleteOldLogs(ctx, prune)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d log entries older than %s\n", n, prune)
					return nil
				}

				page, size := pagination.Normalize(page, size, 50)
				entries, total, err := a.Logs.Query(ctx, logging.LogFilters{
					Level:  level,
					Module: module,
					Offset: pagination.CalculateOffset(page, size),
					Limit:  size,
				})
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s %-5s %-12s %s", e.Timestamp.Format(time.RFC3339), e.Level, e.Module, e.Message)
					if e.Error != "" {
						fmt.Fprintf(out, " error=%q", e.Error)
					}
					fmt.Fprintln(out)
				}
				meta := pagination.Calculate(total, page, size)
				fmt.Fprintf(out, "Page %d of %d (%d entries)\n", meta.CurrentPage, meta.TotalPages, meta.TotalCount)
				return nil
			})
		},
	}
	cmd.Flags().String("level", "", "filter by level")
	cmd.Flags().String("module", "", "filter by module")
	cmd.Flags().Int("page", 1, "page to print, newest first")
	cmd.Flags().Int("page-size", 50, "entries per page")
	cmd.Flags().Duration("prune", 0, "delete entries older than this instead of listing")
	return cmd
}
