// Package addressnorm suggests normalized forms of free-text postal
// addresses. Suggestions are advisory; callers decide which text to keep.
package addressnorm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/retrieval-cli/internal/resilience"
)

// Client normalizes addresses.
type Client interface {
	Normalize(ctx context.Context, address string) (*Result, error)
}

// Components are the parsed parts of a structured suggestion.
type Components struct {
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Suggestion is one candidate rewrite of the input address.
type Suggestion struct {
	Original   string     `json:"original"`
	Normalized string     `json:"normalized"`
	Confidence float64    `json:"confidence"`
	Components Components `json:"components"`
}

// Result holds the suggestions for an address, best first.
type Result struct {
	Valid       bool         `json:"isValid"`
	Suggestions []Suggestion `json:"suggestions"`
	Error       string       `json:"error,omitempty"`
}

// Provider produces suggestions for a trimmed address.
type Provider interface {
	Name() string
	Normalize(ctx context.Context, address string) (*Result, error)
}

// Option configures the client.
type Option func(*client)

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithProvider replaces the rule-based provider.
func WithProvider(p Provider) Option {
	return func(c *client) { c.provider = p }
}

// WithLatency delays every provider call, mimicking a remote service.
func WithLatency(d time.Duration) Option {
	return func(c *client) { c.latency = d }
}

// WithBreaker guards provider calls with a circuit breaker.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *client) { c.breaker = resilience.NewCircuitBreaker(cfg) }
}

// WithMinLength sets the shortest address worth normalizing.
func WithMinLength(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.minLength = n
		}
	}
}

type client struct {
	provider  Provider
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
	latency   time.Duration
	minLength int

	mu    sync.RWMutex
	cache map[string]*Result
}

// NewClient creates a Client backed by the rule-based normalizer.
func NewClient(opts ...Option) Client {
	c := &client{
		provider:  RuleProvider{},
		limiter:   rate.NewLimiter(5, 5),
		breaker:   resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		minLength: DefaultMinLength,
		cache:     make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize returns suggestions for address. Inputs shorter than the minimum
// length yield an invalid result, not an error.
func (c *client) Normalize(ctx context.Context, address string) (*Result, error) {
	trimmed := strings.TrimSpace(address)
	if len([]rune(trimmed)) < c.minLength {
		return &Result{Suggestions: []Suggestion{}, Error: MsgTooShort}, nil
	}

	key := cacheKey(trimmed)
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "addressnorm: rate limit")
	}

	res, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*Result, error) {
		if err := sleep(ctx, c.latency); err != nil {
			return nil, err
		}
		return c.provider.Normalize(ctx, trimmed)
	})
	if err != nil {
		zap.L().Warn("addressnorm: provider failed",
			zap.String("provider", c.provider.Name()),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "addressnorm: %s normalize", c.provider.Name())
	}

	c.mu.Lock()
	c.cache[key] = res
	c.mu.Unlock()
	return res, nil
}

func cacheKey(address string) string {
	h := sha256.Sum256([]byte(strings.ToLower(address)))
	return fmt.Sprintf("%x", h)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
