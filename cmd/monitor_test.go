package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/retrieval-cli/internal/monitoring"
	"github.com/sells-group/retrieval-cli/internal/view"
)

func TestFormatSnapshot(t *testing.T) {
	snap := &monitoring.Snapshot{
		InResearch: 4,
		Overdue:    2,
		ByBucket:   map[view.Bucket]int{view.Bucket0To3: 2, view.Bucket8To14: 1, view.Bucket30OrAbove: 1},
		OldestID:   "ATT-9",
		OldestDays: 33,
		SLADays:    3,
	}

	var buf bytes.Buffer
	formatSnapshot(&buf, snap, []monitoring.Alert{{Severity: "high", Message: "Attempt ATT-9 is stale"}})
	out := buf.String()

	assert.Contains(t, out, "In research:")
	assert.Contains(t, out, "Overdue (>3d):")
	assert.Contains(t, out, "8-14 days:")
	assert.Contains(t, out, "ATT-9 (33 days)")
	assert.Contains(t, out, "Alerts (1):")
	assert.Contains(t, out, "[high] Attempt ATT-9 is stale")
}

func TestFormatSnapshot_NoAlerts(t *testing.T) {
	var buf bytes.Buffer
	formatSnapshot(&buf, &monitoring.Snapshot{ByBucket: map[view.Bucket]int{}}, nil)
	assert.Contains(t, buf.String(), "No alerts.")
	assert.NotContains(t, buf.String(), "Oldest:")
}
