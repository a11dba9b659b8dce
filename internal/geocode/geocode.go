// Package geocode resolves place names to coordinates through an external
// geocoding collaborator. Results are cached aggressively: place names
// repeat constantly across articles and the upstream service is rate
// sensitive.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	apperrors "riskmap/pkg/errors"
)

// Result is a resolved location. Found is false for unknown place names.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	Found     bool    `json:"found"`
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (Result, error)
}

// HTTPGeocoder calls a Nominatim-style search endpoint.
type HTTPGeocoder struct {
	baseURL  string
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// NewHTTPGeocoder creates a geocoder over the configured provider.
// Public Nominatim allows one request per second; the limiter enforces it.
func NewHTTPGeocoder(baseURL string, cache *redis.Client, cacheTTL time.Duration) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Geocode implements Geocoder.
func (g *HTTPGeocoder) Geocode(ctx context.Context, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, nil
	}

	cacheKey := "geocode:" + strings.ToLower(name)
	if g.cache != nil {
		if raw, err := g.cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached Result
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Result{}, apperrors.NewProviderError("geocoder", err)
	}
	req.Header.Set("User-Agent", "riskmap/1.0 (+geopolitical intelligence pipeline)")

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, apperrors.NewProviderError("geocoder", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, apperrors.NewProviderError("geocoder", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, apperrors.NewProviderError("geocoder", fmt.Errorf("status %d", resp.StatusCode))
	}

	var places []struct {
		Lat     string `json:"lat"`
		Lon     string `json:"lon"`
		Address struct {
			Country string `json:"country"`
			State   string `json:"state"`
			Region  string `json:"region"`
		} `json:"address"`
	}
	if err := json.Unmarshal(body, &places); err != nil {
		return Result{}, apperrors.NewProviderError("geocoder", err)
	}

	result := Result{}
	if len(places) > 0 {
		lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
		lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
		if latErr == nil && lonErr == nil {
			region := places[0].Address.State
			if region == "" {
				region = places[0].Address.Region
			}
			result = Result{
				Latitude:  lat,
				Longitude: lon,
				Country:   places[0].Address.Country,
				Region:    region,
				Found:     true,
			}
		}
	}

	// not_found is cached too: unknown names repeat just as often
	if g.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			g.cache.Set(ctx, cacheKey, raw, g.cacheTTL)
		}
	}
	return result, nil
}
