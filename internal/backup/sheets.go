package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finbase/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsExporter mirrors records into a Google spreadsheet, one tab per
// record kind. Tabs must exist before the exporter runs.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ Exporter = (*SheetsExporter)(nil)

// NewSheetsExporter builds an exporter authenticated with service account
// credentials. credentialsFile may be empty when credentialsJSON is set.
func NewSheetsExporter(ctx context.Context, spreadsheetID, credentialsJSON, credentialsFile string) (*SheetsExporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		data, err := os.ReadFile(strings.TrimSpace(credentialsFile))
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", spreadsheetID)
	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func sheetTab(kind core.Kind) string {
	// Tab names are capitalized kind names ("Income", "Budget", ...).
	s := string(kind)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func recordRow(r core.Record) []any {
	row := []any{
		r.ID,
		r.Name,
		r.Amount.String(),
		r.Currency,
		r.Category,
		string(r.Frequency),
		r.StartDate.String(),
		r.EndDate.String(),
		r.IsActive,
	}
	if r.Asset != nil {
		row = append(row, r.Asset.Quantity.String(), r.Asset.UnitPrice.String())
	}
	return row
}

// ExportRecord appends the record as a new row on its kind's tab. Rows are
// append-only; the spreadsheet is an audit trail, not the system of record.
func (s *SheetsExporter) ExportRecord(ctx context.Context, r core.Record) error {
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := sheetTab(r.Kind)

	// Find the next empty row by reading the ID column first.
	rng := fmt.Sprintf("%s!A:A", tab)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get dimensions for %s: %w", tab, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:K%d", tab, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{recordRow(r)}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}
	return nil
}

// ExportSnapshot replaces the kind's tab contents with the given records.
func (s *SheetsExporter) ExportSnapshot(ctx context.Context, kind core.Kind, records []core.Record) error {
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := sheetTab(kind)

	clearRange := fmt.Sprintf("%s!A2:K", tab)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}
	if len(records) == 0 {
		return nil
	}

	values := make([][]any, 0, len(records))
	for _, r := range records {
		values = append(values, recordRow(r))
	}
	dataRange := fmt.Sprintf("%s!A2:K%d", tab, 1+len(values))
	vr := &gsheet.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}
	return nil
}
