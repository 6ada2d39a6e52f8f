package addressnorm

import (
	"context"
	"regexp"
	"strings"
)

// DefaultMinLength is the shortest address the client will normalize.
const DefaultMinLength = 5

// MsgTooShort is reported for addresses below the minimum length.
const MsgTooShort = "Address too short for validation"

// Confidence levels assigned by the rule-based provider.
const (
	ConfidenceStructured = 0.95
	ConfidenceCleanup    = 0.75
	ConfidenceOriginal   = 0.5
)

var streetTypes = map[string]string{
	"st":        "Street",
	"street":    "Street",
	"ave":       "Avenue",
	"avenue":    "Avenue",
	"rd":        "Road",
	"road":      "Road",
	"dr":        "Drive",
	"drive":     "Drive",
	"blvd":      "Boulevard",
	"boulevard": "Boulevard",
	"ln":        "Lane",
	"lane":      "Lane",
	"ct":        "Court",
	"court":     "Court",
	"pl":        "Place",
	"place":     "Place",
	"way":       "Way",
	"cir":       "Circle",
	"circle":    "Circle",
}

var (
	structuredAddress = regexp.MustCompile(`(?i)(\d+)\s+(.*?)\s+(st|street|ave|avenue|rd|road|dr|drive|blvd|boulevard|ln|lane|ct|court|pl|place|way|cir|circle)\b\s*,?\s*(.+)`)
	cityStateZip      = regexp.MustCompile(`(?i)^(.+?),?\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)$`)
	zipCode           = regexp.MustCompile(`\d{5}(?:-\d{4})?`)
	stateCode         = regexp.MustCompile(`(?i)\b[A-Z]{2}\b`)
	partSplit         = regexp.MustCompile(`[,\s]+`)
	whitespace        = regexp.MustCompile(`\s+`)
	wordStart         = regexp.MustCompile(`\b\w`)
	doubleSpace       = regexp.MustCompile(`\s{2,}`)
	abbreviation      = regexp.MustCompile(`(?i)\b(st|ave|rd|dr|blvd|ln|ct|pl)\b`)
	fullStreetType    = regexp.MustCompile(`(?i)\b(street|avenue|road|drive|boulevard|lane|court|place)\b`)

	abbreviationFixes = []struct {
		re   *regexp.Regexp
		full string
	}{
		{regexp.MustCompile(`(?i)\bSt\b`), "Street"},
		{regexp.MustCompile(`(?i)\bAve\b`), "Avenue"},
		{regexp.MustCompile(`(?i)\bRd\b`), "Road"},
		{regexp.MustCompile(`(?i)\bDr\b`), "Drive"},
		{regexp.MustCompile(`(?i)\bBlvd\b`), "Boulevard"},
		{regexp.MustCompile(`(?i)\bLn\b`), "Lane"},
		{regexp.MustCompile(`(?i)\bCt\b`), "Court"},
		{regexp.MustCompile(`(?i)\bPl\b`), "Place"},
	}
)

// RuleProvider normalizes US-style street addresses with pattern rules.
type RuleProvider struct{}

// Name implements Provider.
func (RuleProvider) Name() string { return "rules" }

// Normalize implements Provider. A structured parse wins; otherwise a basic
// cleanup is offered when it changes the text. The original is appended as
// the last fallback whenever any suggestion exists.
func (RuleProvider) Normalize(_ context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	suggestions := []Suggestion{}

	if s, ok := structured(address); ok {
		suggestions = append(suggestions, s)
	} else if cleaned := basicCleanup(address); cleaned != address {
		suggestions = append(suggestions, Suggestion{
			Original:   address,
			Normalized: cleaned,
			Confidence: ConfidenceCleanup,
		})
	}

	if len(suggestions) > 0 {
		suggestions = append(suggestions, Suggestion{
			Original:   address,
			Normalized: address,
			Confidence: ConfidenceOriginal,
		})
	}
	return &Result{Valid: len(suggestions) > 0, Suggestions: suggestions}, nil
}

func structured(address string) (Suggestion, bool) {
	m := structuredAddress.FindStringSubmatch(address)
	if m == nil {
		return Suggestion{}, false
	}
	number, street, streetType, rest := m[1], m[2], m[3], m[4]
	city, state, zip := parseCityStateZip(rest)

	normalized := number + " " + street + " " + normalizeStreetType(streetType) + ", " + city + ", " + state + " " + zip
	return Suggestion{
		Original:   address,
		Normalized: strings.TrimSpace(normalized),
		Confidence: ConfidenceStructured,
		Components: Components{
			StreetNumber: number,
			StreetName:   strings.TrimSpace(street),
			City:         city,
			State:        state,
			ZipCode:      zip,
		},
	}, true
}

func normalizeStreetType(t string) string {
	if full, ok := streetTypes[strings.ToLower(t)]; ok {
		return full
	}
	return t
}

func parseCityStateZip(s string) (city, state, zip string) {
	if m := cityStateZip.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.ToUpper(m[2]), m[3]
	}

	if parts := partSplit.Split(s, -1); len(parts) > 0 {
		city = parts[0]
	}
	state = strings.ToUpper(stateCode.FindString(s))
	zip = zipCode.FindString(s)
	return city, state, zip
}

func basicCleanup(address string) string {
	out := whitespace.ReplaceAllString(address, " ")
	out = wordStart.ReplaceAllStringFunc(out, strings.ToUpper)
	for _, fix := range abbreviationFixes {
		out = fix.re.ReplaceAllString(out, fix.full)
	}
	return strings.TrimSpace(out)
}

// NeedsNormalization reports whether address looks worth normalizing:
// abbreviated street types, repeated spaces, or no spelled-out street type.
func NeedsNormalization(address string) bool {
	if len([]rune(strings.TrimSpace(address))) < DefaultMinLength {
		return false
	}
	return abbreviation.MatchString(address) ||
		doubleSpace.MatchString(address) ||
		!fullStreetType.MatchString(address)
}
