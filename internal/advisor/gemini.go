package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"LuminCredit/internal/model"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiResolver asks a Gemini model for impact weights.
type GeminiResolver struct {
	client      *genai.Client
	model       string
	temperature float32
	fallback    model.ImpactWeightSet
}

// NewGeminiResolver creates a resolver backed by the Gemini API.
func NewGeminiResolver(ctx context.Context, opts Options, policy model.Policy) (*GeminiResolver, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	hc, err := httpClient(opts)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	name := opts.Model
	if name == "" {
		name = defaultGeminiModel
	}
	return &GeminiResolver{
		client:      client,
		model:       name,
		temperature: opts.Temperature,
		fallback:    policy.Weights,
	}, nil
}

func (g *GeminiResolver) Name() string { return "gemini" }

func (g *GeminiResolver) Resolve(ctx context.Context, rec *model.UserFinancialRecord, provisional int) (model.ImpactWeightSet, error) {
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		Temperature:       &temp,
		ResponseMIMEType:  "application/json",
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(rec, provisional)), cfg)
	if err != nil {
		return model.ImpactWeightSet{}, fmt.Errorf("gemini: generate: %w", err)
	}
	text, err := candidateText(resp)
	if err != nil {
		return model.ImpactWeightSet{}, err
	}
	return parseWeights(text, g.fallback)
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w: empty response", ErrMalformedReply)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: %w: no text parts", ErrMalformedReply)
	}
	return sb.String(), nil
}
