package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromOutcome(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Status
	}{
		{OutcomeNone, StatusResearch},
		{OutcomeResearchCompleted, StatusCancelledFailed},
		{OutcomeResearchFailed, StatusBlockedExternal},
		{Outcome("something_else"), StatusResearch},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromOutcome(tt.outcome))
		})
	}
}

func TestIsValidTransition_FromResearch(t *testing.T) {
	for _, to := range Statuses {
		assert.True(t, IsValidTransition(StatusResearch, to), "research -> %s", to)
	}
	assert.Equal(t, Statuses, AllowedTransitions(StatusResearch))
}

func TestIsValidTransition_TerminalStatuses(t *testing.T) {
	for _, from := range Statuses[1:] {
		assert.True(t, from.IsTerminal(), "%s should be terminal", from)
		assert.Empty(t, AllowedTransitions(from))
		for _, to := range Statuses {
			assert.False(t, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, StatusResearch.IsTerminal())
}

func TestIsValidTransition_UnknownStatus(t *testing.T) {
	assert.False(t, IsValidTransition(Status("bogus"), StatusResearch))
	assert.False(t, IsValidTransition(StatusResearch, Status("bogus")))
	assert.False(t, Status("bogus").Valid())
}

func TestOutcomeAuditMessage(t *testing.T) {
	assert.Equal(t,
		"Retrieval coordinates changed as a result of research, retrieval attempt cancelled, new retrieval attempt dispatched",
		OutcomeAuditMessage(OutcomeResearchCompleted, "ignored"))
	assert.Equal(t, "PNP4 invalid contact information - bad number",
		OutcomeAuditMessage(OutcomeResearchFailed, "bad number"))
	assert.Equal(t, "PNP4 invalid contact information",
		OutcomeAuditMessage(OutcomeResearchFailed, ""))
	assert.Equal(t, "moved", OutcomeAuditMessage(OutcomeNone, "moved"))
	assert.Equal(t, "Status updated", OutcomeAuditMessage(OutcomeNone, ""))
}

func TestOutcome_Valid(t *testing.T) {
	assert.True(t, OutcomeNone.Valid())
	assert.True(t, OutcomeResearchCompleted.Valid())
	assert.True(t, OutcomeResearchFailed.Valid())
	assert.False(t, Outcome("done").Valid())
	assert.True(t, OutcomeResearchFailed.RequiresReason())
	assert.False(t, OutcomeNone.RequiresReason())
}

func TestStatus_DisplayName(t *testing.T) {
	assert.Equal(t, "Blocked (External)", StatusBlockedExternal.DisplayName())
	assert.Equal(t, "Cancelled - Failed", StatusCancelledFailed.DisplayName())
	assert.Equal(t, "mystery", Status("mystery").DisplayName())
}

func TestDaysInResearch(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	hours := func(h float64) time.Time { return now.Add(-time.Duration(h * float64(time.Hour))) }

	assert.Equal(t, 0, DaysInResearch(now, now))
	assert.Equal(t, 0, DaysInResearch(now, hours(23.9)))
	assert.Equal(t, 4, DaysInResearch(now, hours(4.9*24)))
	assert.Equal(t, 3, DaysInResearch(now, hours(3.9*24)))
	assert.Equal(t, 7, DaysInResearch(now, hours(7.1*24)))
}

func TestOverdue(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsOverdue(now, now.Add(-72*time.Hour), DefaultSLADays))
	assert.True(t, IsOverdue(now, now.Add(-73*time.Hour), DefaultSLADays))
	assert.Equal(t, 0, OverdueDays(now, now.Add(-24*time.Hour), DefaultSLADays))
	assert.Equal(t, 2, OverdueDays(now, now.Add(-5*24*time.Hour-time.Hour), DefaultSLADays))
}
