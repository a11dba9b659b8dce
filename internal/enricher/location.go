// internal/enricher/location.go
// Primary location selection: an article's event location comes from its
// extracted location entities, never from the source's home country.

package enricher

import (
	"context"
	"strings"
)

// ResolvedLocation is the chosen primary location of an article.
type ResolvedLocation struct {
	Name      string
	Country   string
	Region    string
	Latitude  float64
	Longitude float64
}

// pickPrimaryLocation chooses one location from the extracted entities:
//  1. the entity mentioned most often in the body,
//  2. on a tie, an entity that also appears in the title,
//  3. otherwise the first extracted entity.
func pickPrimaryLocation(locations []string, title, body string) string {
	if len(locations) == 0 {
		return ""
	}

	lowerTitle := strings.ToLower(title)
	lowerBody := strings.ToLower(body)

	best := locations[0]
	bestCount := -1
	bestInTitle := false

	for _, loc := range locations {
		count := strings.Count(lowerBody, strings.ToLower(loc))
		inTitle := strings.Contains(lowerTitle, strings.ToLower(loc))

		better := count > bestCount ||
			(count == bestCount && inTitle && !bestInTitle)
		if better {
			best = loc
			bestCount = count
			bestInTitle = inTitle
		}
	}
	return best
}

// resolveLocation geocodes the primary location entity. Entities the
// geocoder cannot resolve are tried in selection order until one matches.
func (p *Pool) resolveLocation(ctx context.Context, locations []string, title, body string) (*ResolvedLocation, error) {
	if len(locations) == 0 {
		return nil, nil
	}

	primary := pickPrimaryLocation(locations, title, body)

	// try the primary first, then the remaining entities in order
	ordered := make([]string, 0, len(locations))
	ordered = append(ordered, primary)
	for _, loc := range locations {
		if loc != primary {
			ordered = append(ordered, loc)
		}
	}

	var lastErr error
	for _, name := range ordered {
		res, err := p.geocoder.Geocode(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}
		if res.Found {
			return &ResolvedLocation{
				Name:      name,
				Country:   res.Country,
				Region:    res.Region,
				Latitude:  res.Latitude,
				Longitude: res.Longitude,
			}, nil
		}
	}
	return nil, lastErr
}
