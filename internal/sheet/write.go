package sheet

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates s.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", eris.Errorf("sheet: unknown format %q", s)
	}
}

// FileName returns the download name for an export taken at now.
func FileName(now time.Time, f Format) string {
	return "research-attempts-" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Write encodes attempts to w in format f.
func Write(w io.Writer, f Format, attempts []model.RetrievalAttempt) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, attempts)
	default:
		return WriteCSV(w, attempts)
	}
}

// WriteCSV writes a header row followed by one row per attempt.
func WriteCSV(w io.Writer, attempts []model.RetrievalAttempt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return eris.Wrap(err, "sheet: write csv header")
	}
	for _, a := range attempts {
		if err := cw.Write(record(a)); err != nil {
			return eris.Wrapf(err, "sheet: write csv row %s", a.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "sheet: flush csv")
}

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Research Attempts"

// WriteXLSX writes attempts to a single-sheet workbook.
func WriteXLSX(w io.Writer, attempts []model.RetrievalAttempt) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add xlsx sheet")
	}

	addRow := func(cells []string) {
		row := sh.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	addRow(Headers())
	for _, a := range attempts {
		addRow(record(a))
	}

	return eris.Wrap(f.Write(w), "sheet: write xlsx")
}
