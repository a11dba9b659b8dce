// internal/consolidator/ai.go
// Optional LLM assessment of high-risk zones. A critical or escalating
// verdict amplifies the final score; any failure leaves the score untouched.

package consolidator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "riskmap/pkg/errors"
)

// ZoneAssessment is the structured verdict for one zone.
type ZoneAssessment struct {
	RiskAssessment        string   `json:"risk_assessment"`        // low/medium/high/critical
	EscalationProbability string   `json:"escalation_probability"` // low/medium/high
	TrendAnalysis         string   `json:"trend_analysis"`         // improving/stable/deteriorating
	KeyFactors            []string `json:"key_factors"`
}

// ZoneAnalyzer assesses a consolidated zone.
type ZoneAnalyzer interface {
	AssessZone(ctx context.Context, zoneContext string) (*ZoneAssessment, error)
}

// LLMZoneAnalyzer calls an OpenAI-compatible chat endpoint.
type LLMZoneAnalyzer struct {
	client *openai.Client
	model  string
}

// NewLLMZoneAnalyzer creates a zone analyzer over an OpenAI-compatible endpoint.
func NewLLMZoneAnalyzer(baseURL, apiKey, model string) *LLMZoneAnalyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMZoneAnalyzer{client: openai.NewClientWithConfig(cfg), model: model}
}

const zonePrompt = `Analyze this conflict zone and provide a structured assessment:

%s

Respond with only valid JSON in this exact shape:
{
  "risk_assessment": "low/medium/high/critical",
  "escalation_probability": "low/medium/high",
  "trend_analysis": "improving/stable/deteriorating",
  "key_factors": ["factor1", "factor2"]
}`

// AssessZone implements ZoneAnalyzer.
func (a *LLMZoneAnalyzer) AssessZone(ctx context.Context, zoneContext string) (*ZoneAssessment, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(zonePrompt, zoneContext)},
		},
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, apperrors.NewProviderError("zone-analyzer", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewProviderError("zone-analyzer", fmt.Errorf("no choices returned"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var assessment ZoneAssessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &assessment); err != nil {
		return nil, apperrors.NewProviderError("zone-analyzer", fmt.Errorf("invalid JSON response: %w", err))
	}
	return &assessment, nil
}

// zoneContext builds the prompt context the analyzer sees for one zone.
func zoneContext(z *Zone) string {
	parts := []string{fmt.Sprintf("Conflict zone: %s", z.LocationLabel)}
	if z.Country != "" {
		parts = append(parts, fmt.Sprintf("Country: %s", z.Country))
	}
	sources := make([]string, 0, len(z.Sources))
	for s := range z.Sources {
		sources = append(sources, s)
	}
	parts = append(parts, fmt.Sprintf("Data sources: %s", strings.Join(sources, ", ")))
	parts = append(parts, fmt.Sprintf("Total events: %d", z.TotalEvents))
	if z.TotalFatalities > 0 {
		parts = append(parts, fmt.Sprintf("Reported fatalities: %d", z.TotalFatalities))
	}
	if len(z.Actors) > 0 {
		limit := len(z.Actors)
		if limit > 3 {
			limit = 3
		}
		parts = append(parts, fmt.Sprintf("Actors: %s", strings.Join(z.Actors[:limit], ", ")))
	}
	if len(z.EventTypes) > 0 {
		parts = append(parts, fmt.Sprintf("Event types: %s", strings.Join(z.EventTypes, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Current risk score: %.2f", z.FinalScore))
	return strings.Join(parts, ". ")
}
