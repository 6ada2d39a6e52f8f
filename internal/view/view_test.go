package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/retrieval-cli/internal/model"
)

var now = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) time.Time {
	return now.Add(-time.Duration(d * float64(24*time.Hour)))
}

func att(id string, mutate ...func(*model.RetrievalAttempt)) model.RetrievalAttempt {
	a := model.RetrievalAttempt{
		ID:              id,
		RetrievalMethod: model.RetrievalMethodOffsite,
		ClientName:      "Acme Health",
		DemandID:        "DEM-001",
		ProviderName:    "Dr. Jane Smith",
		ProviderGroup:   "Smith Medical Group",
		ChaseAddress:    "123 Main St",
		Status:          model.StatusResearch,
		LastActionAt:    daysAgo(1),
		Version:         1,
	}
	for _, m := range mutate {
		m(&a)
	}
	return a
}

func ids(attempts []model.RetrievalAttempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = a.ID
	}
	return out
}

func TestFilter_SearchSingleTerm(t *testing.T) {
	in := []model.RetrievalAttempt{att("D102-a"), att("x-d102"), att("d103")}
	got := Filter(in, FilterSpec{Search: "  d102 "}, now)
	assert.Equal(t, []string{"D102-a", "x-d102"}, ids(got))
}

func TestFilter_SearchFragments(t *testing.T) {
	in := []model.RetrievalAttempt{att("abc-1"), att("xyz-2"), att("DEF-3"), att("ghi")}
	got := Filter(in, FilterSpec{Search: "abc, def"}, now)
	assert.Equal(t, []string{"abc-1", "DEF-3"}, ids(got))

	got = Filter(in, FilterSpec{Search: "ghi xyz"}, now)
	assert.Equal(t, []string{"xyz-2", "ghi"}, ids(got))
}

func TestFilter_SearchSeparatorsOnlyMatchesNothing(t *testing.T) {
	in := []model.RetrievalAttempt{att("abc")}
	assert.Empty(t, Filter(in, FilterSpec{Search: " , "}, now))
	assert.Len(t, Filter(in, FilterSpec{Search: "   "}, now), 1)
}

func TestFilter_MultiSelects(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("a1"),
		att("a2", func(a *model.RetrievalAttempt) { a.RetrievalMethod = model.RetrievalMethodHIH }),
		att("a3", func(a *model.RetrievalAttempt) { a.ClientName = "Beta Insurance" }),
	}
	got := Filter(in, FilterSpec{RetrievalMethod: []string{"Offsite"}}, now)
	assert.Equal(t, []string{"a1", "a3"}, ids(got))

	got = Filter(in, FilterSpec{RetrievalMethod: []string{"Offsite"}, ClientName: []string{"Beta Insurance"}}, now)
	assert.Equal(t, []string{"a3"}, ids(got))

	assert.Empty(t, Filter(in, FilterSpec{ProviderGroup: []string{"Nobody"}}, now))
}

func TestFilter_ResearchAgentAbsentAlwaysPasses(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("a1", func(a *model.RetrievalAttempt) { a.ResearchAgent = "agent_smith" }),
		att("a2", func(a *model.RetrievalAttempt) { a.ResearchAgent = "agent_jones" }),
		att("a3"),
	}
	got := Filter(in, FilterSpec{ResearchAgent: []string{"agent_smith"}}, now)
	assert.Equal(t, []string{"a1", "a3"}, ids(got))
}

func TestFilter_DaysBucket(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("in", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(4.9) }),
		att("young", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(3.9) }),
		att("edge", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(7.1) }),
		att("old", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(8.1) }),
	}
	// Days are floored, so 7.1 days counts as day 7.
	got := Filter(in, FilterSpec{DaysInResearch: Bucket4To7}, now)
	assert.Equal(t, []string{"in", "edge"}, ids(got))
}

func TestFilter_FutureLastActionInZeroToThree(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("future", func(a *model.RetrievalAttempt) { a.LastActionAt = now.Add(36 * time.Hour) }),
		att("today", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(0.5) }),
		att("stale", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(5) }),
	}
	got := Filter(in, FilterSpec{DaysInResearch: Bucket0To3}, now)
	assert.Equal(t, []string{"future", "today"}, ids(got))
}

func TestBucket_Contains(t *testing.T) {
	tests := []struct {
		bucket Bucket
		days   int
		want   bool
	}{
		{BucketAll, 400, true},
		{Bucket0To3, 0, true},
		{Bucket0To3, 3, true},
		{Bucket0To3, 4, false},
		{Bucket0To3, -2, true},
		{Bucket4To7, -2, false},
		{Bucket4To7, 4, true},
		{Bucket4To7, 7, true},
		{Bucket4To7, 8, false},
		{Bucket8To14, 14, true},
		{Bucket15To30, 30, true},
		{Bucket30OrAbove, 30, true},
		{Bucket30OrAbove, 29, false},
		{Bucket("bogus"), 5, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.bucket.Contains(tt.days), "%s contains %d", tt.bucket, tt.days)
	}
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, BucketAll, b)

	b, err = ParseBucket("15-30")
	require.NoError(t, err)
	assert.Equal(t, Bucket15To30, b)

	_, err = ParseBucket("3-5")
	assert.Error(t, err)
}

func TestSort_StringsWithAbsentValues(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("a1", func(a *model.RetrievalAttempt) { a.ContactName = "bob" }),
		att("a2"),
		att("a3", func(a *model.RetrievalAttempt) { a.ContactName = "Alice" }),
	}
	asc := Sort(in, SortSpec{Field: "contactName", Direction: Asc}, now)
	assert.Equal(t, []string{"a3", "a1", "a2"}, ids(asc))

	desc := Sort(in, SortSpec{Field: "contactName", Direction: Desc}, now)
	assert.Equal(t, []string{"a2", "a1", "a3"}, ids(desc))

	// Input is untouched.
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(in))
}

func TestSort_Numbers(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("a1", func(a *model.RetrievalAttempt) { a.Version = 10 }),
		att("a2", func(a *model.RetrievalAttempt) { a.Version = 2 }),
	}
	got := Sort(in, SortSpec{Field: "version", Direction: Asc}, now)
	assert.Equal(t, []string{"a2", "a1"}, ids(got))
}

func TestSort_LastActionAndDays(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("mid", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(5) }),
		att("new", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(0.5) }),
		att("old", func(a *model.RetrievalAttempt) { a.LastActionAt = daysAgo(20) }),
	}
	got := Sort(in, DefaultSort, now)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(got))

	got = Sort(in, SortSpec{Field: FieldDaysInResearch, Direction: Asc}, now)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(got))

	got = Sort(in, SortSpec{}, now)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(got))
}

func TestSort_UnknownFieldKeepsOrder(t *testing.T) {
	in := []model.RetrievalAttempt{att("b"), att("a")}
	got := Sort(in, SortSpec{Field: "nope", Direction: Asc}, now)
	assert.Equal(t, []string{"b", "a"}, ids(got))
}

func TestCompareKeys_MixedFallsBackToString(t *testing.T) {
	got := Sort(nil, SortSpec{Field: "id"}, now)
	assert.Empty(t, got)
	col := collate.New(language.English)
	assert.Negative(t, compareKeys(col, 10, "9"))
	assert.Positive(t, compareKeys(col, nil, "a"))
	assert.Zero(t, compareKeys(col, nil, nil))
}

func TestBuild_FiltersThenSorts(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("d102-b", func(a *model.RetrievalAttempt) { a.ProviderName = "Zed" }),
		att("d999", func(a *model.RetrievalAttempt) { a.ProviderName = "Adam" }),
		att("d102-a", func(a *model.RetrievalAttempt) { a.ProviderName = "Mia" }),
	}
	res := Build(in, FilterSpec{Search: "d102"}, SortSpec{Field: "providerName", Direction: Asc}, now)
	assert.Equal(t, []string{"d102-a", "d102-b"}, ids(res.Attempts))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Filtered)
	assert.Equal(t, "2 of 3 attempts", res.Label())
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "5 attempts", CountLabel(5, 5))
	assert.Equal(t, "0 of 5 attempts", CountLabel(5, 0))
}

func TestOptions(t *testing.T) {
	in := []model.RetrievalAttempt{
		att("a1", func(a *model.RetrievalAttempt) { a.ResearchAgent = "agent_smith" }),
		att("a2", func(a *model.RetrievalAttempt) {
			a.ClientName = "Beta Insurance"
			a.RetrievalMethod = model.RetrievalMethodHIH
		}),
		att("a3"),
	}
	opts := Options(in)
	assert.Equal(t, []string{"Acme Health", "Beta Insurance"}, opts.ClientName)
	assert.Equal(t, []string{"HIH", "Offsite"}, opts.RetrievalMethod)
	assert.Equal(t, []string{"agent_smith"}, opts.ResearchAgent)
	assert.Equal(t, []string{"DEM-001"}, opts.DemandID)
}

func TestToggleDirectionAndTier(t *testing.T) {
	assert.Equal(t, Desc, ToggleDirection(Asc))
	assert.Equal(t, Asc, ToggleDirection(Desc))

	assert.Equal(t, TierFresh, AgeTier(1))
	assert.Equal(t, TierRecent, AgeTier(3))
	assert.Equal(t, TierAging, AgeTier(7))
	assert.Equal(t, TierStale, AgeTier(14))
	assert.Equal(t, TierLate, AgeTier(30))
	assert.Equal(t, TierCritical, AgeTier(31))
}
