package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alimgiray/gitreach/internal/app"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage watched repositories",
	}

	var interval int
	add := &cobra.Command{
		Use:   "add <owner/repo>",
		Short: "Watch a repository for new contributors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				w, err := a.Watch.Add(cmd.Context(), args[0], interval)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %dh (%s)\n", w.Repo, w.IntervalHours, w.ID)
				return nil
			})
		},
	}
	add.Flags().IntVar(&interval, "interval", 24, "hours between checks")

	list := &cobra.Command{
		Use:   "list",
		Short: "List watched repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				repos, err := a.Watch.List(cmd.Context())
				if err != nil {
					return err
				}
				printWatchedRepos(cmd.OutOrStdout(), repos)
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop watching a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				return a.Watch.Delete(cmd.Context(), args[0])
			})
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Check due watched repositories for new contributors now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				result, err := a.Watch.CheckDue(cmd.Context())
				if err != nil {
					return err
				}
				printCheckResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove, check)
	return cmd
}

func printWatchedRepos(out io.Writer, repos []models.WatchedRepo) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREPO\tINTERVAL\tLAST CHECKED")
	for _, w := range repos {
		last := "never"
		if w.LastCheckedAt != nil {
			last = w.LastCheckedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%dh\t%s\n", w.ID, w.Repo, w.IntervalHours, last)
	}
	tw.Flush()
}

func printCheckResult(out io.Writer, result *models.WatchCheckResult) {
	fmt.Fprintf(out, "Checked %d repositories\n", result.Checked)
	for _, r := range result.Results {
		if r.Error != "" {
			fmt.Fprintf(out, "  %s: %s\n", r.Repo, r.Error)
			continue
		}
		fmt.Fprintf(out, "  %s: %d new contributors\n", r.Repo, len(r.NewContributors))
		for _, c := range r.NewContributors {
			fmt.Fprintf(out, "    %s (@%s)\n", c.DisplayName(), c.Username)
		}
	}
}
