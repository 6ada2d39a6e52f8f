// Package sheet reads and writes retrieval attempts as CSV and XLSX tables.
package sheet

import (
	"strconv"
	"time"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// column maps a header to an attempt field.
type column struct {
	Header string
	get    func(model.RetrievalAttempt) string
	set    func(*model.RetrievalAttempt, string) error
}

func strCol(header string, field func(*model.RetrievalAttempt) *string) column {
	return column{
		Header: header,
		get:    func(a model.RetrievalAttempt) string { return *field(&a) },
		set: func(a *model.RetrievalAttempt, v string) error {
			*field(a) = v
			return nil
		},
	}
}

// exportColumns is the column set written by exports, in order.
var exportColumns = []column{
	strCol("ID", func(a *model.RetrievalAttempt) *string { return &a.ID }),
	{
		Header: "Retrieval Method",
		get:    func(a model.RetrievalAttempt) string { return string(a.RetrievalMethod) },
		set: func(a *model.RetrievalAttempt, v string) error {
			a.RetrievalMethod = model.RetrievalMethod(v)
			return nil
		},
	},
	strCol("Client Name", func(a *model.RetrievalAttempt) *string { return &a.ClientName }),
	strCol("Demand ID", func(a *model.RetrievalAttempt) *string { return &a.DemandID }),
	strCol("Provider Name", func(a *model.RetrievalAttempt) *string { return &a.ProviderName }),
	strCol("Provider Group", func(a *model.RetrievalAttempt) *string { return &a.ProviderGroup }),
	strCol("Start Address", func(a *model.RetrievalAttempt) *string { return &a.StartAddress }),
	strCol("Chase Address", func(a *model.RetrievalAttempt) *string { return &a.ChaseAddress }),
	{
		Header: "Status",
		get:    func(a model.RetrievalAttempt) string { return string(a.Status) },
		set: func(a *model.RetrievalAttempt, v string) error {
			a.Status = model.Status(v)
			return nil
		},
	},
	{
		Header: "Last Action",
		get:    func(a model.RetrievalAttempt) string { return a.LastActionAt.UTC().Format(time.RFC3339) },
		set: func(a *model.RetrievalAttempt, v string) error {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return err
			}
			a.LastActionAt = t.UTC()
			return nil
		},
	},
	strCol("Phone", func(a *model.RetrievalAttempt) *string { return &a.Phone }),
	strCol("Fax", func(a *model.RetrievalAttempt) *string { return &a.Fax }),
	strCol("Email", func(a *model.RetrievalAttempt) *string { return &a.Email }),
	strCol("Contact Name", func(a *model.RetrievalAttempt) *string { return &a.ContactName }),
	strCol("Research Agent", func(a *model.RetrievalAttempt) *string { return &a.ResearchAgent }),
}

// importOnlyColumns are accepted on import but never exported.
var importOnlyColumns = []column{
	strCol("Provider NPI", func(a *model.RetrievalAttempt) *string { return &a.ProviderNPI }),
	{
		Header: "Version",
		get:    func(a model.RetrievalAttempt) string { return strconv.Itoa(a.Version) },
		set: func(a *model.RetrievalAttempt, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			a.Version = n
			return nil
		},
	},
}

// requiredHeaders must be present in an imported sheet.
var requiredHeaders = []string{"ID", "Retrieval Method", "Client Name", "Demand ID", "Provider Name", "Provider Group", "Start Address", "Chase Address"}

// Headers returns the export header row.
func Headers() []string {
	out := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		out[i] = c.Header
	}
	return out
}

func record(a model.RetrievalAttempt) []string {
	out := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		out[i] = c.get(a)
	}
	return out
}
