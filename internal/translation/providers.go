// internal/translation/providers.go
// Concrete translation providers: a self-hosted LibreTranslate-style HTTP
// service and OpenAI-compatible LLM endpoints used as fallbacks.

package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "riskmap/pkg/errors"
)

// Provider translates text between two languages.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// LibreTranslateProvider calls a self-hosted LibreTranslate instance.
type LibreTranslateProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewLibreTranslateProvider creates the self-hosted MT provider.
func NewLibreTranslateProvider(baseURL, apiKey string) *LibreTranslateProvider {
	return &LibreTranslateProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Provider
func (p *LibreTranslateProvider) Name() string { return "libretranslate" }

// Translate implements Provider
func (p *LibreTranslateProvider) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	payload := map[string]string{
		"q":      text,
		"source": srcLang,
		"target": dstLang,
		"format": "text",
	}
	if p.apiKey != "" {
		payload["api_key"] = p.apiKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewProviderError(p.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewProviderError(p.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperrors.NewProviderError(p.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewProviderError(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewProviderError(p.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.NewProviderError(p.Name(), err)
	}
	if strings.TrimSpace(parsed.TranslatedText) == "" {
		return "", apperrors.NewProviderError(p.Name(), fmt.Errorf("empty translation"))
	}
	return parsed.TranslatedText, nil
}

// LLMProvider translates through an OpenAI-compatible chat endpoint.
// Used for languages the self-hosted MT handles poorly and as the fallback
// when it is down.
type LLMProvider struct {
	name   string
	client *openai.Client
	model  string
}

// NewLLMProvider creates a chat-based translation provider. baseURL may
// point at any OpenAI-compatible service (Groq, OpenAI, a local gateway).
func NewLLMProvider(name, baseURL, apiKey, model string) *LLMProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMProvider{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name implements Provider
func (p *LLMProvider) Name() string { return p.name }

// Translate implements Provider
func (p *LLMProvider) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, no explanations.\n\n%s",
		srcLang, dstLang, text,
	)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", apperrors.NewProviderError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewProviderError(p.name, fmt.Errorf("no choices returned"))
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", apperrors.NewProviderError(p.name, fmt.Errorf("empty translation"))
	}
	return out, nil
}
