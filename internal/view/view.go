package view

import (
	"slices"
	"strconv"
	"time"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// Result is the derived list handed to consumers.
type Result struct {
	Attempts []model.RetrievalAttempt `json:"attempts"`
	Total    int                      `json:"total"`
	Filtered int                      `json:"filtered"`
}

// Label returns the count caption for r.
func (r Result) Label() string {
	return CountLabel(r.Total, r.Filtered)
}

// Build filters attempts and sorts the survivors.
func Build(attempts []model.RetrievalAttempt, filter FilterSpec, sort SortSpec, now time.Time) Result {
	filtered := Filter(attempts, filter, now)
	return Result{
		Attempts: Sort(filtered, sort, now),
		Total:    len(attempts),
		Filtered: len(filtered),
	}
}

// CountLabel renders "N attempts" or "F of N attempts".
func CountLabel(total, filtered int) string {
	if total == filtered {
		return strconv.Itoa(total) + " attempts"
	}
	return strconv.Itoa(filtered) + " of " + strconv.Itoa(total) + " attempts"
}

// FilterOptions holds the distinct values offered by each multi-select.
type FilterOptions struct {
	RetrievalMethod []string `json:"retrievalMethod"`
	ClientName      []string `json:"clientName"`
	DemandID        []string `json:"demandId"`
	ProviderGroup   []string `json:"providerGroup"`
	ProviderName    []string `json:"providerName"`
	ResearchAgent   []string `json:"researchAgent"`
}

// Options collects the sorted distinct non-empty values of every
// multi-select field.
func Options(attempts []model.RetrievalAttempt) FilterOptions {
	distinct := func(get func(model.RetrievalAttempt) string) []string {
		seen := make(map[string]struct{})
		out := []string{}
		for _, a := range attempts {
			v := get(a)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
		slices.Sort(out)
		return out
	}
	return FilterOptions{
		RetrievalMethod: distinct(func(a model.RetrievalAttempt) string { return string(a.RetrievalMethod) }),
		ClientName:      distinct(func(a model.RetrievalAttempt) string { return a.ClientName }),
		DemandID:        distinct(func(a model.RetrievalAttempt) string { return a.DemandID }),
		ProviderGroup:   distinct(func(a model.RetrievalAttempt) string { return a.ProviderGroup }),
		ProviderName:    distinct(func(a model.RetrievalAttempt) string { return a.ProviderName }),
		ResearchAgent:   distinct(func(a model.RetrievalAttempt) string { return a.ResearchAgent }),
	}
}

// Tier is the age band used to highlight rows.
type Tier string

const (
	TierFresh    Tier = "fresh"
	TierRecent   Tier = "recent"
	TierAging    Tier = "aging"
	TierStale    Tier = "stale"
	TierLate     Tier = "late"
	TierCritical Tier = "critical"
)

// AgeTier bands days in research for highlighting.
func AgeTier(days int) Tier {
	switch {
	case days <= 1:
		return TierFresh
	case days <= 3:
		return TierRecent
	case days <= 7:
		return TierAging
	case days <= 14:
		return TierStale
	case days <= 30:
		return TierLate
	default:
		return TierCritical
	}
}
