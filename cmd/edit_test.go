package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retrieval-cli/internal/attempt"
	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/validate"
)

func formCommand(t *testing.T, bulk bool, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFormFlags(cmd)
	if bulk {
		cmd.Flags().Bool("pnp004", false, "")
	}
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestEditForm_KeepsUnsetFields(t *testing.T) {
	current := sampleAttempt("D1", 1)
	current.Phone = "555-555-0100"
	current.Email = "records@metro.org"
	current.Fax = "555-555-0101"

	form, err := editForm(formCommand(t, false, "--phone", "2065550199", "--fax", "", "--format-phone"), current)
	require.NoError(t, err)
	assert.Equal(t, "206-555-0199", form.Phone)
	assert.Empty(t, form.Fax, "explicit empty value clears")
	assert.Equal(t, "records@metro.org", form.Email)
	assert.Equal(t, current.ChaseAddress, form.ChaseAddress)
	assert.Equal(t, model.OutcomeNone, form.Outcome)
}

func TestEditForm_Outcome(t *testing.T) {
	form, err := editForm(formCommand(t, false, "--outcome", "research_completed", "--reason", "found"), sampleAttempt("D1", 1))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeResearchCompleted, form.Outcome)
	assert.Equal(t, "found", form.Reason)

	_, err = editForm(formCommand(t, false, "--outcome", "done"), sampleAttempt("D1", 1))
	assert.ErrorContains(t, err, `unknown outcome "done"`)
}

func TestBulkForm(t *testing.T) {
	form, err := bulkForm(formCommand(t, true, "--fax", "555-555-0199", "--reason", "bad numbers", "--pnp004"))
	require.NoError(t, err)
	assert.Equal(t, model.BulkEditForm{
		Fax:     "555-555-0199",
		Reason:  "bad numbers",
		Outcome: model.OutcomeResearchFailed,
	}, form)

	form, err = bulkForm(formCommand(t, true, "--format-phone", "--reason", "x"))
	require.NoError(t, err)
	assert.Empty(t, form.Phone, "blank phone stays blank")
}

func TestReportEditError(t *testing.T) {
	st := store.NewMemory()
	eng := attempt.NewEngine(st, attempt.WithClock(func() time.Time { return testNow }))

	_, err := eng.ApplyBulkEdit(t.Context(), nil, model.BulkEditForm{Fax: "1", Reason: "x"})
	require.Error(t, err)

	var buf bytes.Buffer
	assert.Equal(t, err, reportEditError(&buf, err))
	assert.Contains(t, buf.String(), validate.FieldIDs+": "+validate.MsgNoSelection)
}
