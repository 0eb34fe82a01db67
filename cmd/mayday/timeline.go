package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mayday/internal/app"
	"mayday/internal/timeline"
)

func init() {
	cmdRoot.AddCommand(cmdTimeline())
}

func cmdTimeline() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "timeline",
		Short:        "Print albums, tours, quotes and images newest first",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				kind, _   = cmd.Flags().GetString("kind")
				from, _   = cmd.Flags().GetString("from")
				to, _     = cmd.Flags().GetString("to")
				output, _ = cmd.Flags().GetString("output")
			)

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				items, err := queryTimeline(ctx, a.Timeline(), kind, from, to)
				if err != nil {
					return err
				}

				return printItems(cmd, items, output)
			})
		},
	}
	cmd.Flags().String("kind", "", "only album, tour, quote or image")
	cmd.Flags().String("from", "", "start date YYYY-MM-DD")
	cmd.Flags().String("to", "", "end date YYYY-MM-DD")
	cmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func queryTimeline(ctx context.Context, tl *timeline.Timeline, kind, from, to string) ([]timeline.Item, error) {
	if kind != "" {
		k, err := timeline.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		return tl.ByKind(ctx, k)
	}

	if from == "" && to == "" {
		return tl.All(ctx)
	}

	start := time.Time{}
	end := time.Now().UTC()
	var err error
	if from != "" {
		if start, err = time.Parse("2006-01-02", from); err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse("2006-01-02", to); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return tl.ByDateRange(ctx, start, end)
}

func printItems(cmd *cobra.Command, items []timeline.Item, output string) error {
	out := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		for _, it := range items {
			fmt.Fprintf(out, "%s  %-5s  %s\n", it.Date.Format("2006-01-02"), it.Kind, it.Title)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
