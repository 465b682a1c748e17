package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Contributors"

var exportHeaders = []string{
	"Name", "Username", "GitHub Profile", "Contributions",
	"Email", "Twitter", "LinkedIn", "Website",
	"Contacted", "Contact Date", "Notes",
}

// ExportService writes a scrape's reachable contributors as CSV or XLSX
type ExportService struct {
	store ScrapeStore
}

func NewExportService(store ScrapeStore) *ExportService {
	return &ExportService{store: store}
}

// Rows returns one row per contributor with at least one contact channel
func (s *ExportService) Rows(ctx context.Context, scrapeID string) ([][]string, error) {
	scrape, err := s.store.GetScrape(ctx, scrapeID)
	if err != nil {
		return nil, err
	}
	return exportRows(scrape.Contributors), nil
}

// WriteCSV writes the export as CSV with a header row
func (s *ExportService) WriteCSV(ctx context.Context, scrapeID string, w io.Writer) error {
	rows, err := s.Rows(ctx, scrapeID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the export as a single-sheet workbook
func (s *ExportService) WriteXLSX(ctx context.Context, scrapeID string, w io.Writer) error {
	rows, err := s.Rows(ctx, scrapeID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeSheetRow(f, 1, exportHeaders); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}

	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func exportRows(contributors []models.Contributor) [][]string {
	rows := make([][]string, 0, len(contributors))
	for _, c := range contributors {
		if c.Contacts.IsEmpty() {
			continue
		}

		twitter := ""
		if c.Contacts.Twitter != "" {
			twitter = "https://twitter.com/" + c.Contacts.Twitter
		}
		contacted := "No"
		if c.Contacted {
			contacted = "Yes"
		}

		rows = append(rows, []string{
			c.DisplayName(),
			c.Username,
			c.ProfileURL(),
			strconv.Itoa(c.Contributions),
			c.Contacts.Email,
			twitter,
			c.Contacts.LinkedIn,
			c.Contacts.Website,
			contacted,
			derefOr(c.ContactedDate, ""),
			derefOr(c.Notes, ""),
		})
	}
	return rows
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
