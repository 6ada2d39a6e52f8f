package addressnorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retrieval-cli/internal/resilience"
)

func TestRuleProvider_Structured(t *testing.T) {
	res, err := RuleProvider{}.Normalize(context.Background(), "1200 oak ave, Portland, or 97201")
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Len(t, res.Suggestions, 2)

	best := res.Suggestions[0]
	assert.Equal(t, "1200 oak Avenue, Portland, OR 97201", best.Normalized)
	assert.Equal(t, ConfidenceStructured, best.Confidence)
	assert.Equal(t, Components{
		StreetNumber: "1200",
		StreetName:   "oak",
		City:         "Portland",
		State:        "OR",
		ZipCode:      "97201",
	}, best.Components)

	fallback := res.Suggestions[1]
	assert.Equal(t, "1200 oak ave, Portland, or 97201", fallback.Normalized)
	assert.Equal(t, ConfidenceOriginal, fallback.Confidence)
}

func TestRuleProvider_FullStreetTypeNotSplit(t *testing.T) {
	res, err := RuleProvider{}.Normalize(context.Background(), "123 Main Street, Springfield, IL")
	require.NoError(t, err)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, "123 Main Street, Springfield, IL", res.Suggestions[0].Normalized)
	assert.Equal(t, "Springfield", res.Suggestions[0].Components.City)
	assert.Equal(t, "IL", res.Suggestions[0].Components.State)
}

func TestRuleProvider_BasicCleanup(t *testing.T) {
	res, err := RuleProvider{}.Normalize(context.Background(), "po box   42  harbor st")
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, "Po Box 42 Harbor Street", res.Suggestions[0].Normalized)
	assert.Equal(t, ConfidenceCleanup, res.Suggestions[0].Confidence)
}

func TestRuleProvider_NothingToSuggest(t *testing.T) {
	res, err := RuleProvider{}.Normalize(context.Background(), "Rural Route Nine")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Empty(t, res.Suggestions)
}

func TestClient_TooShort(t *testing.T) {
	c := NewClient()
	res, err := c.Normalize(context.Background(), "  12 ")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, MsgTooShort, res.Error)
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Normalize(_ context.Context, address string) (*Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Result{Valid: true, Suggestions: []Suggestion{{Original: address, Normalized: address, Confidence: 1}}}, nil
}

func TestClient_CachesResults(t *testing.T) {
	p := &countingProvider{}
	c := NewClient(WithProvider(p), WithRateLimit(100))

	for i := 0; i < 3; i++ {
		res, err := c.Normalize(context.Background(), "500 Elm Street")
		require.NoError(t, err)
		assert.True(t, res.Valid)
	}
	assert.Equal(t, 1, p.calls)
}

func TestClient_BreakerOpens(t *testing.T) {
	p := &countingProvider{err: errors.New("upstream down")}
	c := NewClient(
		WithProvider(p),
		WithRateLimit(100),
		WithBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}),
	)

	for i := 0; i < 2; i++ {
		_, err := c.Normalize(context.Background(), "500 Elm Street")
		require.Error(t, err)
	}
	_, err := c.Normalize(context.Background(), "500 Elm Street")
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, 2, p.calls)
}

func TestClient_LatencyHonoursContext(t *testing.T) {
	c := NewClient(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Normalize(ctx, "500 Elm Street")
	assert.Error(t, err)
}

func TestNeedsNormalization(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"", false},
		{"1 a", false},
		{"123 Main St", true},
		{"123 Main  Street", true},
		{"123 Main Street", false},
		{"Rural Route Nine", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NeedsNormalization(tt.addr), tt.addr)
	}
}
