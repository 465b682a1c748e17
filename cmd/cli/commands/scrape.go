package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alimgiray/gitreach/internal/app"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/spf13/cobra"
)

func newScrapeCommand() *cobra.Command {
	var (
		token      string
		exportPath string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a contributor scrape and wait for it to finish",
	}
	cmd.PersistentFlags().StringVar(&token, "token", "", "GitHub token (default from GITHUB_TOKEN)")
	cmd.PersistentFlags().StringVar(&exportPath, "export", "", "write reachable contributors to a .csv or .xlsx file")

	run := func(scrapeType models.ScrapeType) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if exportPath != "" {
				if _, err := exportFormat(exportPath); err != nil {
					return err
				}
			}
			return withApp(func(a *app.App) error {
				return runScrape(cmd.Context(), a, cmd.OutOrStdout(), services.StartScrapeRequest{
					Type:   scrapeType,
					Target: args[0],
					Token:  token,
				}, exportPath)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "org <name>",
			Short: "Scrape every non-fork, non-archived repository of an organization",
			Args:  cobra.ExactArgs(1),
			RunE:  run(models.ScrapeTypeOrganization),
		},
		&cobra.Command{
			Use:   "repo <owner/repo>",
			Short: "Scrape a single repository",
			Args:  cobra.ExactArgs(1),
			RunE:  run(models.ScrapeTypeRepository),
		},
	)
	return cmd
}

func runScrape(ctx context.Context, a *app.App, out io.Writer, req services.StartScrapeRequest, exportPath string) error {
	started, err := a.Scrapes.StartScrape(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Scrape %s started (%d API requests remaining)\n", started.Scrape.ID, started.RateLimit.Remaining)

	// an interrupt cancels the running scrape, which records itself as failed
	done := make(chan struct{})
	go func() {
		a.Workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Workers.StopAll()
	}

	scrape, err := a.Scrapes.GetScrape(context.Background(), started.Scrape.ID)
	if err != nil {
		return err
	}
	printSummary(out, scrape)

	if scrape.Status != models.ScrapeStatusCompleted {
		return fmt.Errorf("scrape %s", scrape.Status)
	}
	if exportPath != "" {
		if err := writeExport(context.Background(), a, scrape.ID, exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", exportPath)
	}
	return nil
}

func printSummary(out io.Writer, scrape *models.Scrape) {
	fmt.Fprintf(out, "%s %s: %s\n", scrape.Type, scrape.Target, scrape.Status)
	if scrape.Error != nil {
		fmt.Fprintf(out, "  error: %s\n", *scrape.Error)
		return
	}

	reachable := 0
	for _, c := range scrape.Contributors {
		if !c.Contacts.IsEmpty() {
			reachable++
		}
	}
	fmt.Fprintf(out, "  contributors: %d (%d with contact details)\n", len(scrape.Contributors), reachable)
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <scrape-id> <file.csv|file.xlsx>",
		Short: "Export a scrape's reachable contributors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exportFormat(args[1]); err != nil {
				return err
			}
			return withApp(func(a *app.App) error {
				if err := writeExport(cmd.Context(), a, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[1])
				return nil
			})
		},
	}
}

// exportFormat picks the export format from the file extension
func exportFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".xlsx":
		return ext[1:], nil
	default:
		return "", fmt.Errorf("unsupported export file %q: use .csv or .xlsx", path)
	}
}

func writeExport(ctx context.Context, a *app.App, scrapeID, path string) error {
	format, err := exportFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if format == "xlsx" {
		err = a.Export.WriteXLSX(ctx, scrapeID, f)
	} else {
		err = a.Export.WriteCSV(ctx, scrapeID, f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
