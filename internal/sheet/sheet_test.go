package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retrieval-cli/internal/model"
)

var now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sample() []model.RetrievalAttempt {
	return []model.RetrievalAttempt{
		{
			ID:              "D101",
			RetrievalMethod: model.RetrievalMethodOffsite,
			ClientName:      "Acme Health",
			DemandID:        "DEM-1",
			ProviderName:    "Dr. Ada Lane",
			ProviderGroup:   "Lane Clinic",
			StartAddress:    "1 Main St, Springfield, IL",
			ChaseAddress:    "1 Main St, Springfield, IL",
			Status:          model.StatusReadyForOutreach,
			LastActionAt:    now.Add(-48 * time.Hour),
			Phone:           "555-0100",
			ResearchAgent:   "ava",
			Version:         3,
		},
		{
			ID:              "D102",
			RetrievalMethod: model.RetrievalMethodHIH,
			ClientName:      "Beta, Inc.",
			DemandID:        "DEM-2",
			ProviderName:    "Dr. Bo Chen",
			ProviderGroup:   "Chen Group",
			StartAddress:    "9 Elm Rd",
			ChaseAddress:    "9 Elm Rd",
			Status:          model.StatusResearch,
			LastActionAt:    now,
			Version:         1,
		},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "research-attempts-2025-03-14.csv", FileName(now, FormatCSV))
	assert.Equal(t, "research-attempts-2025-03-14.xlsx", FileName(now, FormatXLSX))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"ID", "Retrieval Method", "Client Name", "Demand ID", "Provider Name",
		"Provider Group", "Start Address", "Chase Address", "Status", "Last Action",
		"Phone", "Fax", "Email", "Contact Name", "Research Agent",
	}, rows[0])
	assert.Equal(t, "D101", rows[1][0])
	assert.Equal(t, "ready_for_outreach", rows[1][8])
	assert.Equal(t, "2025-03-12T09:30:00Z", rows[1][9])
	assert.Equal(t, "555-0100", rows[1][10])
	assert.Equal(t, "", rows[1][11], "absent optional fields are empty")
	assert.Equal(t, "Beta, Inc.", rows[2][2])
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	got, err := ParseAttempts(rows, now)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "D101", got[0].ID)
	assert.Equal(t, model.StatusReadyForOutreach, got[0].Status)
	assert.Equal(t, now.Add(-48*time.Hour), got[0].LastActionAt)
	assert.Equal(t, "ava", got[0].ResearchAgent)
	assert.Equal(t, 1, got[0].Version, "version is not exported")
	assert.Equal(t, "Beta, Inc.", got[1].ClientName)
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample()))

	rows, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers(), rows[0])

	got, err := ParseAttempts(rows, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dr. Ada Lane", got[0].ProviderName)
	assert.Equal(t, model.RetrievalMethodHIH, got[1].RetrievalMethod)
}

func TestParseAttemptsDefaults(t *testing.T) {
	rows := [][]string{
		{"ID", "Retrieval Method", "Client Name", "Demand ID", "Provider Name", "Provider NPI", "Provider Group", "Start Address", "Chase Address", "Version", "Notes"},
		{"D200", "Offsite", "Acme", "DEM-9", "Dr. X", "1234567890", "X Group", "5 Oak Ave", "5 Oak Ave", "4", "ignored"},
		{"", "", "", "", "", "", "", "", "", "", ""},
	}

	got, err := ParseAttempts(rows, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusResearch, got[0].Status)
	assert.Equal(t, now, got[0].LastActionAt)
	assert.Equal(t, 4, got[0].Version)
	assert.Equal(t, "1234567890", got[0].ProviderNPI)
}

func TestParseAttemptsErrors(t *testing.T) {
	header := Headers()
	row := func(mut func([]string)) []string {
		r := record(sample()[1])
		mut(r)
		return r
	}

	tests := []struct {
		name string
		rows [][]string
		msg  string
	}{
		{"empty", nil, "missing header row"},
		{"missing column", [][]string{{"ID", "Client Name"}}, `missing required column "Retrieval Method"`},
		{"no id", [][]string{header, row(func(r []string) { r[0] = "" })}, "row 2 has no ID"},
		{"bad status", [][]string{header, row(func(r []string) { r[8] = "lost" })}, `unknown status "lost"`},
		{"bad time", [][]string{header, row(func(r []string) { r[9] = "yesterday" })}, `column "Last Action"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAttempts(tt.rows, now)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestStreamCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"))
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample()))
	xlsxPath := filepath.Join(dir, "in.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, buf.Bytes(), 0o600))

	got, err := ReadFile(context.Background(), xlsxPath, now)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	txt := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err = ReadFile(context.Background(), txt, now)
	assert.ErrorContains(t, err, "unsupported file type")
}
