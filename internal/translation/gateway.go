// internal/translation/gateway.go
// Multi-provider translation with ordered fallback. Each provider sits
// behind its own circuit breaker; results are cached in Redis by content
// hash since translation is a pure function of (text, src, dst).

package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"riskmap/internal/config"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// Metrics receives per-provider translation outcomes.
type Metrics interface {
	RecordTranslation(provider string, ok bool)
	SetBreakerState(provider, state string)
}

// Gateway tries providers in configured order and returns the first
// non-empty result.
type Gateway struct {
	providers []Provider
	breakers  map[string]*gobreaker.CircuitBreaker
	cache     *redis.Client
	cacheTTL  time.Duration
	metrics   Metrics
	logger    *logger.Logger
}

// NewGateway assembles the provider chain from configuration. Unknown
// provider names in the chain are a configuration error.
func NewGateway(cfg *config.Config, cache *redis.Client, metrics Metrics, log *logger.Logger) (*Gateway, error) {
	available := map[string]Provider{
		"libretranslate": NewLibreTranslateProvider(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey),
		"primary-llm":    NewLLMProvider("primary-llm", cfg.PrimaryLLMBaseURL, cfg.PrimaryLLMAPIKey, cfg.PrimaryLLMModel),
		"secondary-llm":  NewLLMProvider("secondary-llm", cfg.SecondaryLLMBaseURL, cfg.SecondaryLLMAPIKey, cfg.SecondaryLLMModel),
	}

	var chain []Provider
	for _, name := range cfg.TranslationProviderChain {
		p, ok := available[name]
		if !ok {
			return nil, apperrors.NewConfigError("TRANSLATION_PROVIDER_CHAIN", fmt.Sprintf("unknown provider %q", name))
		}
		chain = append(chain, p)
	}

	g := &Gateway{
		providers: chain,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		cache:     cache,
		cacheTTL:  cfg.TranslationCacheTTL,
		metrics:   metrics,
		logger:    log.With("component", "translation"),
	}

	for _, p := range chain {
		name := p.Name()
		g.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.BreakerFailureThreshold)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.metrics.SetBreakerState(name, to.String())
				g.logger.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return g, nil
}

// NewGatewayWithProviders builds a gateway over explicit providers, used by
// tests and by deployments that inject custom chains.
func NewGatewayWithProviders(providers []Provider, failureThreshold int, cooldown time.Duration, metrics Metrics, log *logger.Logger) *Gateway {
	g := &Gateway{
		providers: providers,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		metrics:   metrics,
		logger:    log.With("component", "translation"),
	}
	for _, p := range providers {
		name := p.Name()
		g.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(failureThreshold)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.metrics.SetBreakerState(name, to.String())
			},
		})
	}
	return g
}

// Translate returns text translated from srcLang to dstLang, or
// ErrAllProvidersFailed once the chain is exhausted. Providers whose
// breaker is open are skipped without being called.
func (g *Gateway) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	if text == "" || srcLang == dstLang {
		return text, nil
	}

	key := cacheKey(text, srcLang, dstLang)
	if cached := g.cacheGet(ctx, key); cached != "" {
		return cached, nil
	}

	for _, p := range g.providers {
		name := p.Name()
		cb := g.breakers[name]

		out, err := cb.Execute(func() (interface{}, error) {
			return p.Translate(ctx, text, srcLang, dstLang)
		})
		if err != nil {
			g.metrics.RecordTranslation(name, false)
			if err != gobreaker.ErrOpenState && err != gobreaker.ErrTooManyRequests {
				g.logger.Debug("provider failed", "provider", name, "error", err.Error())
			}
			continue
		}

		translated := out.(string)
		g.metrics.RecordTranslation(name, true)
		g.cacheSet(ctx, key, translated)
		return translated, nil
	}

	return "", apperrors.ErrAllProvidersFailed
}

func cacheKey(text, srcLang, dstLang string) string {
	sum := sha256.Sum256([]byte(srcLang + "|" + dstLang + "|" + text))
	return "translation:" + hex.EncodeToString(sum[:])
}

func (g *Gateway) cacheGet(ctx context.Context, key string) string {
	if g.cache == nil {
		return ""
	}
	val, err := g.cache.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}

func (g *Gateway) cacheSet(ctx context.Context, key, value string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, value, g.cacheTTL).Err(); err != nil {
		g.logger.Debug("translation cache write failed", "error", err.Error())
	}
}
