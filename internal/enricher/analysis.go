// internal/enricher/analysis.go
// Text analysis backends. The LLM analyzer extracts entities, sentiment,
// and a conflict probability in one structured call; the keyword analyzer
// is the always-available fallback built from conflict lexicons.

package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "riskmap/pkg/errors"
)

// TextAnalysis is the combined output of one analysis pass.
type TextAnalysis struct {
	Persons             []string `json:"persons"`
	Organizations       []string `json:"organizations"`
	Locations           []string `json:"locations"`
	Misc                []string `json:"misc"`
	Sentiment           float64  `json:"sentiment"`
	ConflictProbability float64  `json:"conflict_probability"`
	Category            string   `json:"category"`
}

// Analyzer produces a TextAnalysis for canonical-language text.
type Analyzer interface {
	Analyze(ctx context.Context, title, body string) (*TextAnalysis, error)
}

// LLMAnalyzer runs the analysis through an OpenAI-compatible chat endpoint.
type LLMAnalyzer struct {
	client *openai.Client
	model  string
}

// NewLLMAnalyzer creates an analyzer over an OpenAI-compatible endpoint.
func NewLLMAnalyzer(baseURL, apiKey, model string) *LLMAnalyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMAnalyzer{client: openai.NewClientWithConfig(cfg), model: model}
}

const analysisPrompt = `Analyze this news text for geopolitical risk. Extract named entities and assess conflict relevance.

Title: %s

Text: %s

Respond with only valid JSON in this exact shape:
{
  "persons": ["..."],
  "organizations": ["..."],
  "locations": ["..."],
  "misc": ["..."],
  "sentiment": -0.5,
  "conflict_probability": 0.7,
  "category": "armed_conflict"
}

sentiment is in [-1,1]. conflict_probability is in [0,1]. category is one of:
armed_conflict, civil_unrest, terrorism, diplomacy, sanctions, humanitarian, politics, other.`

// Analyze implements Analyzer.
func (a *LLMAnalyzer) Analyze(ctx context.Context, title, body string) (*TextAnalysis, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(analysisPrompt, title, body)},
		},
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, apperrors.NewProviderError("llm-analyzer", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewProviderError("llm-analyzer", fmt.Errorf("no choices returned"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var analysis TextAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &analysis); err != nil {
		return nil, apperrors.NewProviderError("llm-analyzer", fmt.Errorf("invalid JSON response: %w", err))
	}

	analysis.Sentiment = clamp(analysis.Sentiment, -1, 1)
	analysis.ConflictProbability = clamp(analysis.ConflictProbability, 0, 1)
	return &analysis, nil
}

// KeywordAnalyzer scores text against conflict lexicons. It extracts no
// entities beyond capitalized location candidates; its job is to keep
// sentiment and risk flowing when no LLM is reachable.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates the fallback analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer { return &KeywordAnalyzer{} }

// severeKeywords signal direct violence; each hit contributes heavily.
var severeKeywords = []string{
	"missile", "airstrike", "air strike", "strike", "bombing", "bombed", "shelling",
	"invasion", "offensive", "killed", "kills", "massacre", "explosion", "war",
	"artillery", "drone attack", "casualties", "fatalities", "gunmen", "attack",
}

// tensionKeywords signal instability short of open violence.
var tensionKeywords = []string{
	"protest", "riot", "sanctions", "crisis", "military", "troops", "clashes",
	"coup", "insurgency", "ceasefire", "escalation", "mobilization", "hostilities",
	"blockade", "martial law", "uprising",
}

var negativeWords = []string{
	"kill", "dead", "death", "wounded", "destroyed", "catastrophe", "violence",
	"threat", "fear", "crisis", "collapse", "disaster", "victims", "injured",
	"devastating", "atrocity",
}

var positiveWords = []string{
	"peace", "agreement", "ceasefire", "recovery", "aid", "rebuilt", "stability",
	"cooperation", "breakthrough", "resolved", "humanitarian relief",
}

// Analyze implements Analyzer.
func (a *KeywordAnalyzer) Analyze(_ context.Context, title, body string) (*TextAnalysis, error) {
	text := strings.ToLower(title + " " + body)

	return &TextAnalysis{
		Locations:           capitalizedCandidates(title + ". " + body),
		Sentiment:           lexiconSentiment(text),
		ConflictProbability: keywordConflictScore(text),
		Category:            keywordCategory(text),
	}, nil
}

// keywordConflictScore estimates conflict probability from lexicon hits.
func keywordConflictScore(text string) float64 {
	score := 0.0
	for _, kw := range severeKeywords {
		if strings.Contains(text, kw) {
			score += 0.3
		}
	}
	for _, kw := range tensionKeywords {
		if strings.Contains(text, kw) {
			score += 0.12
		}
	}
	return clamp(score, 0, 1)
}

// lexiconSentiment is a crude polarity score over small word lists.
func lexiconSentiment(text string) float64 {
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	raw := float64(pos-neg) / float64(pos+neg)
	// dampen single-hit texts so one word does not saturate the scale
	confidence := float64(pos+neg) / 4.0
	if confidence > 1 {
		confidence = 1
	}
	return clamp(raw*confidence, -1, 1)
}

func keywordCategory(text string) string {
	switch {
	case containsAny(text, "missile", "airstrike", "shelling", "invasion", "artillery", "war"):
		return "armed_conflict"
	case containsAny(text, "protest", "riot", "uprising", "coup"):
		return "civil_unrest"
	case containsAny(text, "sanctions", "diplomacy", "summit", "treaty"):
		return "diplomacy"
	case containsAny(text, "refugee", "famine", "humanitarian"):
		return "humanitarian"
	default:
		return "other"
	}
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// capitalizedCandidates pulls capitalized tokens as location candidates.
// Deliberately loose: downstream geocoding discards names it cannot resolve.
func capitalizedCandidates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	sentenceStart := true

	for _, word := range strings.Fields(text) {
		token := strings.Trim(word, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		isUpper := token[0] >= 'A' && token[0] <= 'Z'
		if isUpper && !sentenceStart && len(token) > 2 && !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
		sentenceStart = strings.ContainsAny(word, ".!?")
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
