package translation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

type fakeProvider struct {
	name   string
	fail   bool
	result string

	mu    sync.Mutex
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.fail {
		return "", apperrors.NewProviderError(p.name, errors.New("boom"))
	}
	if p.result != "" {
		return p.result, nil
	}
	return "translated:" + text, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeMetrics struct {
	mu      sync.Mutex
	success map[string]int
	failure map[string]int
	states  map[string]string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		success: make(map[string]int),
		failure: make(map[string]int),
		states:  make(map[string]string),
	}
}

func (m *fakeMetrics) RecordTranslation(provider string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.success[provider]++
	} else {
		m.failure[provider]++
	}
}

func (m *fakeMetrics) SetBreakerState(provider, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[provider] = state
}

func TestFallbackToSecondProvider(t *testing.T) {
	a := &fakeProvider{name: "a", fail: true}
	b := &fakeProvider{name: "b", result: "hola"}
	metrics := newFakeMetrics()

	g := NewGatewayWithProviders([]Provider{a, b}, 3, time.Minute, metrics, logger.NewLogger())

	out, err := g.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 1, metrics.failure["a"], "failed provider increments its counter")
	assert.Equal(t, 1, metrics.success["b"])
}

func TestBreakerSkipsProviderAfterThreshold(t *testing.T) {
	const threshold = 3
	a := &fakeProvider{name: "a", fail: true}
	b := &fakeProvider{name: "b"}
	g := NewGatewayWithProviders([]Provider{a, b}, threshold, time.Minute, newFakeMetrics(), logger.NewLogger())

	for i := 0; i < threshold; i++ {
		_, err := g.Translate(context.Background(), "hello", "en", "es")
		require.NoError(t, err)
	}
	assert.Equal(t, threshold, a.callCount())

	// breaker is open now: a must be skipped without being called
	for i := 0; i < 5; i++ {
		out, err := g.Translate(context.Background(), "hello", "en", "es")
		require.NoError(t, err)
		assert.Equal(t, "translated:hello", out)
	}
	assert.Equal(t, threshold, a.callCount(), "open breaker must not call the provider")
}

func TestAllProvidersFailed(t *testing.T) {
	a := &fakeProvider{name: "a", fail: true}
	b := &fakeProvider{name: "b", fail: true}
	g := NewGatewayWithProviders([]Provider{a, b}, 5, time.Minute, newFakeMetrics(), logger.NewLogger())

	_, err := g.Translate(context.Background(), "hello", "en", "es")
	assert.ErrorIs(t, err, apperrors.ErrAllProvidersFailed)
}

func TestSameLanguageShortCircuits(t *testing.T) {
	a := &fakeProvider{name: "a"}
	g := NewGatewayWithProviders([]Provider{a}, 5, time.Minute, newFakeMetrics(), logger.NewLogger())

	out, err := g.Translate(context.Background(), "hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Zero(t, a.callCount())
}
