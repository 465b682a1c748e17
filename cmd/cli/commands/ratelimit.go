package commands

import (
	"fmt"

	"github.com/alimgiray/gitreach/internal/app"
	"github.com/spf13/cobra"
)

func newRateLimitCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show the GitHub API quota of a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				rl, err := a.Scrapes.RateLimit(cmd.Context(), token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d/%d requests remaining, resets at %s\n",
					rl.Remaining, rl.Limit, rl.Reset.Local().Format("15:04:05"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "GitHub token (default from GITHUB_TOKEN)")
	return cmd
}
