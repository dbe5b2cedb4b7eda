package export

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter publishes documents to a Google Sheets spreadsheet, one tab per address.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Publish ensures the address tab exists, then clears and rewrites it.
func (w *SheetsWriter) Publish(ctx context.Context, doc Document) error {
	tab := TabName(doc.Args.Address)

	meta, err := w.ensureSheets(ctx, tab)
	if err != nil {
		return err
	}

	values, headerRow := buildSheetValues(doc)
	quoted := "'" + tab + "'"

	_, err = w.svc.Spreadsheets.Values.Clear(
		w.spreadsheetID,
		quoted+"!A:Z",
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", tab, err)
	}

	_, err = w.svc.Spreadsheets.Values.Update(
		w.spreadsheetID,
		quoted+"!A1",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", tab, err)
	}

	if err := w.applyFormatting(ctx, meta[tab], headerRow, len(doc.Rows[0])); err != nil {
		return fmt.Errorf("formatting %s: %w", tab, err)
	}

	slog.Info("export: sheet updated", "tab", tab, "rows", len(doc.Rows)-1)
	return nil
}

// TabName derives a sheet title from an address. Titles are capped at 100 characters.
func TabName(address string) string {
	name := SheetName + " " + safeName(address)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// buildSheetValues lays out the preamble, a blank row and the table.
// It also returns the zero-based index of the column header row.
func buildSheetValues(doc Document) ([][]any, int) {
	preamble := Preamble(doc.Args)
	values := make([][]any, 0, len(preamble)+1+len(doc.Rows))
	for _, line := range preamble {
		values = append(values, toCells(line, false))
	}
	values = append(values, []any{""})

	headerRow := len(values)
	for i, row := range doc.Rows {
		values = append(values, toCells(row, i > 0))
	}
	return values, headerRow
}

type sheetMeta struct {
	id int64
}

// ensureSheets creates any of the named sheets that do not already exist
// and returns the metadata of every named sheet.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) (map[string]sheetMeta, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	meta := make(map[string]sheetMeta, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		meta[s.Properties.Title] = sheetMeta{id: s.Properties.SheetId}
	}

	var requests []*sheets.Request
	for _, name := range names {
		if _, ok := meta[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return meta, nil
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating sheets: %w", err)
	}

	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			meta[r.AddSheet.Properties.Title] = sheetMeta{id: r.AddSheet.Properties.SheetId}
		}
	}
	return meta, nil
}

// applyFormatting highlights and freezes the column header row.
func (w *SheetsWriter) applyFormatting(ctx context.Context, m sheetMeta, headerRow, cols int) error {
	// #D9EAD3
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}

	reqs := []*sheets.Request{
		cellFormatReq(m.id, int64(headerRow), int64(headerRow+1), 0, int64(cols),
			&sheets.CellFormat{
				BackgroundColor:     lightGreen,
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: m.id,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount:    int64(headerRow + 1),
						FrozenColumnCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
			},
		},
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}

func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
