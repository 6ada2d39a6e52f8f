package view

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ToggleDirection flips d.
func ToggleDirection(d Direction) Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// FieldDaysInResearch is the computed sort field derived from LastActionAt.
const FieldDaysInResearch = "daysInResearch"

// SortSpec orders attempts by a JSON field name.
type SortSpec struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort shows the most recently touched attempts first.
var DefaultSort = SortSpec{Field: "lastActionAt", Direction: Desc}

// SortFields lists the accepted SortSpec.Field values.
var SortFields = []string{
	"id", "retrievalMethod", "clientName", "demandId", "providerName", "providerNPI",
	"providerGroup", "startAddress", "chaseAddress", "status", "lastActionAt",
	"phone", "fax", "email", "contactName", "researchAgent", "version", FieldDaysInResearch,
}

// sortKey is one attempt's value for the sort field. A nil value is absent.
type sortKey any

func keyOf(a model.RetrievalAttempt, field string, now time.Time) sortKey {
	opt := func(s string) sortKey {
		if s == "" {
			return nil
		}
		return s
	}
	switch field {
	case "id":
		return a.ID
	case "retrievalMethod":
		return string(a.RetrievalMethod)
	case "clientName":
		return a.ClientName
	case "demandId":
		return a.DemandID
	case "providerName":
		return a.ProviderName
	case "providerNPI":
		return a.ProviderNPI
	case "providerGroup":
		return a.ProviderGroup
	case "startAddress":
		return a.StartAddress
	case "chaseAddress":
		return a.ChaseAddress
	case "status":
		return string(a.Status)
	case "lastActionAt":
		return a.LastActionAt
	case "phone":
		return opt(a.Phone)
	case "fax":
		return opt(a.Fax)
	case "email":
		return opt(a.Email)
	case "contactName":
		return opt(a.ContactName)
	case "researchAgent":
		return opt(a.ResearchAgent)
	case "version":
		return a.Version
	case FieldDaysInResearch:
		return model.DaysInResearch(now, a.LastActionAt)
	default:
		return nil
	}
}

// Sort returns a new slice ordered by spec. Absent values sort last when
// ascending and first when descending. Strings use English collation.
func Sort(attempts []model.RetrievalAttempt, spec SortSpec, now time.Time) []model.RetrievalAttempt {
	if spec.Field == "" {
		spec = DefaultSort
	}
	col := collate.New(language.English)

	type row struct {
		a   model.RetrievalAttempt
		key sortKey
	}
	rows := make([]row, len(attempts))
	for i, a := range attempts {
		rows[i] = row{a: a, key: keyOf(a, spec.Field, now)}
	}

	slices.SortStableFunc(rows, func(x, y row) int {
		c := compareKeys(col, x.key, y.key)
		if spec.Direction == Desc {
			return -c
		}
		return c
	})

	out := make([]model.RetrievalAttempt, len(rows))
	for i, r := range rows {
		out[i] = r.a
	}
	return out
}

// compareKeys orders two keys ascending with absent values last.
func compareKeys(col *collate.Collator, x, y sortKey) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return 1
	case y == nil:
		return -1
	}

	switch xv := x.(type) {
	case string:
		if yv, ok := y.(string); ok {
			return col.CompareString(xv, yv)
		}
	case int:
		if yv, ok := y.(int); ok {
			return cmp.Compare(xv, yv)
		}
	case time.Time:
		if yv, ok := y.(time.Time); ok {
			return xv.Compare(yv)
		}
	}
	return col.CompareString(fmt.Sprint(x), fmt.Sprint(y))
}
