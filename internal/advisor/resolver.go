package advisor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"LuminCredit/internal/model"
	"LuminCredit/internal/scoring"
)

// Options configures a resolver built by New.
type Options struct {
	Provider    string // "gemini", "openai", "static" or empty
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	Proxy       string
	Static      model.ImpactWeightSet
}

// httpClient builds the client advisory calls go through.
func httpClient(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		u, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// New builds the resolver selected by opts.Provider. An empty provider
// returns a StaticResolver with the policy weights.
func New(ctx context.Context, opts Options, policy model.Policy) (scoring.WeightResolver, error) {
	switch opts.Provider {
	case "", "static":
		w := opts.Static
		if w == (model.ImpactWeightSet{}) {
			w = policy.Weights
		}
		return NewStaticResolver(w), nil
	case "gemini":
		return NewGeminiResolver(ctx, opts, policy)
	case "openai":
		return NewChatResolver(opts, policy)
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", opts.Provider)
	}
}

// StaticResolver always returns the same weights.
type StaticResolver struct {
	Weights model.ImpactWeightSet
}

// NewStaticResolver creates a resolver pinned to w.
func NewStaticResolver(w model.ImpactWeightSet) *StaticResolver {
	return &StaticResolver{Weights: w}
}

func (s *StaticResolver) Name() string { return "static" }

// Static reports that no advisory call is made.
func (s *StaticResolver) Static() bool { return true }

func (s *StaticResolver) Resolve(_ context.Context, _ *model.UserFinancialRecord, _ int) (model.ImpactWeightSet, error) {
	return s.Weights, nil
}
