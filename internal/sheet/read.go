package sheet

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// StreamCSV reads CSV records from r and sends them on the row channel,
// trimming surrounding whitespace from every field. Both channels are closed
// when reading completes. At most one error is sent.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "sheet: csv context cancelled")
				return
			}

			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "sheet: read csv row")
				return
			}
			for i, field := range rec {
				rec[i] = strings.TrimSpace(field)
			}

			select {
			case rowCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "sheet: csv context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV collects every row from r.
func ReadCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	rowCh, errCh := StreamCSV(ctx, r)
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadXLSX returns the rows of the first worksheet in the workbook held by r.
func ReadXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: workbook has no sheets")
	}

	sh := f.Sheets[0]
	if named, ok := f.Sheet[SheetName]; ok {
		sh = named
	}

	rows := make([][]string, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

// ReadFile loads attempts from a .csv or .xlsx file.
func ReadFile(ctx context.Context, path string, now time.Time) ([]model.RetrievalAttempt, error) {
	f, err := os.Open(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = ReadXLSX(f)
	case ".csv":
		rows, err = ReadCSV(ctx, f)
	default:
		return nil, eris.Errorf("sheet: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return ParseAttempts(rows, now)
}

// ParseAttempts maps a header row plus data rows to attempts. Unknown columns
// are ignored. Missing status defaults to research, missing last action to
// now and missing version to 1. Blank rows are skipped.
func ParseAttempts(rows [][]string, now time.Time) ([]model.RetrievalAttempt, error) {
	if len(rows) == 0 {
		return nil, eris.New("sheet: missing header row")
	}

	byHeader := make(map[string]column, len(exportColumns)+len(importOnlyColumns))
	for _, c := range exportColumns {
		byHeader[strings.ToLower(c.Header)] = c
	}
	for _, c := range importOnlyColumns {
		byHeader[strings.ToLower(c.Header)] = c
	}

	header := rows[0]
	cols := make([]*column, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if c, ok := byHeader[key]; ok {
			cols[i] = &c
			seen[key] = true
		}
	}
	for _, h := range requiredHeaders {
		if !seen[strings.ToLower(h)] {
			return nil, eris.Errorf("sheet: missing required column %q", h)
		}
	}

	out := make([]model.RetrievalAttempt, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		a := model.RetrievalAttempt{
			Status:       model.StatusResearch,
			LastActionAt: now.UTC(),
			Version:      1,
		}
		for i, v := range row {
			if i >= len(cols) || cols[i] == nil || v == "" {
				continue
			}
			if err := cols[i].set(&a, v); err != nil {
				return nil, eris.Wrapf(err, "sheet: row %d column %q", n+2, cols[i].Header)
			}
		}
		if a.ID == "" {
			return nil, eris.Errorf("sheet: row %d has no ID", n+2)
		}
		if !a.Status.Valid() {
			return nil, eris.Errorf("sheet: row %d has unknown status %q", n+2, a.Status)
		}
		out = append(out, a)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
