// Package view derives the visible attempt list: filter first, then sort.
package view

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// Bucket is a days-in-research range. Bounds are inclusive.
type Bucket string

const (
	BucketAll       Bucket = "all"
	Bucket0To3      Bucket = "0-3"
	Bucket4To7      Bucket = "4-7"
	Bucket8To14     Bucket = "8-14"
	Bucket15To30    Bucket = "15-30"
	Bucket30OrAbove Bucket = "30+"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketAll, Bucket0To3, Bucket4To7, Bucket8To14, Bucket15To30, Bucket30OrAbove}

// bounds maps a bucket to its inclusive day range; max < 0 means unbounded.
// A min of 0 is open below so a lastActionAt in the future lands in 0-3.
var bounds = map[Bucket][2]int{
	Bucket0To3:      {0, 3},
	Bucket4To7:      {4, 7},
	Bucket8To14:     {8, 14},
	Bucket15To30:    {15, 30},
	Bucket30OrAbove: {30, -1},
}

// Contains reports whether days falls inside b. BucketAll and unknown
// buckets contain every value.
func (b Bucket) Contains(days int) bool {
	r, ok := bounds[b]
	if !ok {
		return true
	}
	if r[0] > 0 && days < r[0] {
		return false
	}
	return r[1] < 0 || days <= r[1]
}

// ParseBucket validates s. An empty string means BucketAll.
func ParseBucket(s string) (Bucket, error) {
	if s == "" {
		return BucketAll, nil
	}
	b := Bucket(s)
	if slices.Contains(Buckets, b) {
		return b, nil
	}
	return "", eris.Errorf("view: unknown days bucket %q", s)
}

// FilterSpec selects attempts. Empty selections impose no constraint.
type FilterSpec struct {
	RetrievalMethod []string `json:"retrievalMethod"`
	ClientName      []string `json:"clientName"`
	DemandID        []string `json:"demandId"`
	ProviderGroup   []string `json:"providerGroup"`
	ProviderName    []string `json:"providerName"`
	ResearchAgent   []string `json:"researchAgent"`
	Search          string   `json:"search"`
	DaysInResearch  Bucket   `json:"daysInResearch"`
}

var searchSplit = regexp.MustCompile(`[,\s]+`)

// Filter returns the attempts matching spec, preserving input order.
func Filter(attempts []model.RetrievalAttempt, spec FilterSpec, now time.Time) []model.RetrievalAttempt {
	match := newMatcher(spec, now)
	out := make([]model.RetrievalAttempt, 0, len(attempts))
	for _, a := range attempts {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

func newMatcher(spec FilterSpec, now time.Time) func(model.RetrievalAttempt) bool {
	search := searchTerms(spec.Search)
	return func(a model.RetrievalAttempt) bool {
		if search != nil && !search(a.ID) {
			return false
		}
		if !selected(spec.RetrievalMethod, string(a.RetrievalMethod)) ||
			!selected(spec.ClientName, a.ClientName) ||
			!selected(spec.DemandID, a.DemandID) ||
			!selected(spec.ProviderGroup, a.ProviderGroup) ||
			!selected(spec.ProviderName, a.ProviderName) {
			return false
		}
		// Unassigned attempts are never hidden by the agent filter.
		if a.ResearchAgent != "" && !selected(spec.ResearchAgent, a.ResearchAgent) {
			return false
		}
		return spec.DaysInResearch.Contains(model.DaysInResearch(now, a.LastActionAt))
	}
}

// searchTerms builds the id predicate for a search string, or nil when the
// search is empty. Input holding a space or comma is a list of id fragments
// and matches when any fragment does.
func searchTerms(raw string) func(id string) bool {
	term := strings.ToLower(strings.TrimSpace(raw))
	if term == "" {
		return nil
	}
	if !strings.ContainsAny(term, " ,") {
		return func(id string) bool {
			return strings.Contains(strings.ToLower(id), term)
		}
	}

	var fragments []string
	for _, f := range searchSplit.Split(term, -1) {
		if f != "" {
			fragments = append(fragments, f)
		}
	}
	return func(id string) bool {
		id = strings.ToLower(id)
		for _, f := range fragments {
			if strings.Contains(id, f) {
				return true
			}
		}
		return false
	}
}

func selected(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}
