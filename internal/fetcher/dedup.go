// internal/fetcher/dedup.go
// Batch-local deduplication: content hash, normalized URL, and
// title-similarity matching inside a time window. Catches the same story
// republished across feeds with trivially different titles or tracking
// parameters before it reaches storage.

package fetcher

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"riskmap/internal/models"
)

// Deduper is the short-lived duplicate filter for one fetch run.
type Deduper struct {
	threshold float64
	window    time.Duration

	mu      sync.Mutex
	hashes  map[string]struct{}
	urls    map[string]struct{}
	entries []dedupEntry
}

type dedupEntry struct {
	title       string // normalized
	publishedAt time.Time
}

// NewDeduper creates a dedup filter. threshold is the title similarity
// at or above which two entries count as the same story; window bounds how far
// apart in time near-identical titles still collapse.
func NewDeduper(threshold float64, window time.Duration) *Deduper {
	return &Deduper{
		threshold: threshold,
		window:    window,
		hashes:    make(map[string]struct{}),
		urls:      make(map[string]struct{}),
	}
}

// IsDuplicate reports whether the article duplicates one already seen in
// this run, recording it otherwise.
func (d *Deduper) IsDuplicate(a *models.Article) bool {
	normTitle := normalizeTitle(a.Title)
	normURL := normalizeURL(a.URL)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.hashes[a.ContentHash]; ok {
		return true
	}
	if _, ok := d.urls[normURL]; ok {
		return true
	}
	for _, entry := range d.entries {
		if absDuration(a.PublishedAt.Sub(entry.publishedAt)) > d.window {
			continue
		}
		if titleSimilarity(normTitle, entry.title) >= d.threshold {
			return true
		}
	}

	d.hashes[a.ContentHash] = struct{}{}
	d.urls[normURL] = struct{}{}
	d.entries = append(d.entries, dedupEntry{title: normTitle, publishedAt: a.PublishedAt})
	return false
}

// normalizeTitle lowercases, strips punctuation, and collapses whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r >= 0x80: // keep non-ASCII letters as-is
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// normalizeURL drops the scheme, tracking parameters, fragments, and
// trailing slashes so syndication variants of one link compare equal.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimRight(strings.ToLower(rawURL), "/")
	}

	query := u.Query()
	for param := range query {
		if strings.HasPrefix(param, "utm_") || param == "ref" || param == "fbclid" || param == "gclid" {
			query.Del(param)
		}
	}
	u.RawQuery = query.Encode()
	u.Fragment = ""

	normalized := strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return normalized
}

// titleSimilarity is 1 - normalized Levenshtein distance. Cheap exits for
// equal strings and wildly different lengths avoid the quadratic loop on
// obvious non-matches.
func titleSimilarity(t1, t2 string) float64 {
	if t1 == t2 {
		return 1.0
	}
	if t1 == "" || t2 == "" {
		return 0.0
	}

	len1, len2 := len(t1), len(t2)
	longer := len1
	if len2 > longer {
		longer = len2
	}
	shorter := len1 + len2 - longer
	if float64(shorter)/float64(longer) < 0.5 {
		return 0.0
	}

	distance := levenshtein(t1, t2)
	return 1.0 - float64(distance)/float64(longer)
}

func levenshtein(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, minInt(prev[j]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
