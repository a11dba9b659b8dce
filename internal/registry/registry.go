// Package registry holds the static catalog of news feeds. The catalog is
// immutable after load; operators enable/disable sources through the control
// channel, which rebuilds the registry from the catalog plus overrides.
package registry

import (
	"fmt"
	"sync"

	"riskmap/internal/models"
)

// Registry is an immutable, projection-indexed view of the source catalog.
// Safe for concurrent use: the maps are never mutated after construction.
type Registry struct {
	byName         map[string]models.Source
	byLanguage     map[string][]models.Source
	byPriority     map[string][]models.Source
	byConflictZone map[string][]models.Source
	all            []models.Source
}

// Manager owns the current Registry and supports atomic reloads with
// operator overrides (disabled source names).
type Manager struct {
	mu       sync.RWMutex
	current  *Registry
	disabled map[string]bool
}

// NewManager builds a manager over the compiled-in catalog.
func NewManager() (*Manager, error) {
	m := &Manager{disabled: make(map[string]bool)}
	reg, err := build(Catalog(), m.disabled)
	if err != nil {
		return nil, err
	}
	m.current = reg
	return m, nil
}

// Current returns the active registry snapshot.
func (m *Manager) Current() *Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetEnabled flips a source on or off and rebuilds the registry.
// Disabling removes the source from every projection.
func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.current.byName[name]; !ok && enabled {
		// allow re-enabling a previously disabled source
		if !m.disabled[name] {
			return fmt.Errorf("unknown source %q", name)
		}
	}
	if enabled {
		delete(m.disabled, name)
	} else {
		m.disabled[name] = true
	}
	reg, err := build(Catalog(), m.disabled)
	if err != nil {
		return err
	}
	m.current = reg
	return nil
}

// Reload rebuilds the registry from the catalog, keeping overrides.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, err := build(Catalog(), m.disabled)
	if err != nil {
		return err
	}
	m.current = reg
	return nil
}

func build(catalog []models.Source, disabled map[string]bool) (*Registry, error) {
	reg := &Registry{
		byName:         make(map[string]models.Source),
		byLanguage:     make(map[string][]models.Source),
		byPriority:     make(map[string][]models.Source),
		byConflictZone: make(map[string][]models.Source),
	}

	seenURLs := make(map[string]string)
	for _, src := range catalog {
		if prev, dup := seenURLs[src.FeedURL]; dup {
			return nil, fmt.Errorf("duplicate feed_url %s shared by %q and %q", src.FeedURL, prev, src.Name)
		}
		seenURLs[src.FeedURL] = src.Name

		if _, dup := reg.byName[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		src.Enabled = !disabled[src.Name]
		reg.byName[src.Name] = src

		if !src.Enabled {
			continue
		}
		reg.all = append(reg.all, src)
		reg.byLanguage[src.Language] = append(reg.byLanguage[src.Language], src)
		reg.byPriority[src.Priority] = append(reg.byPriority[src.Priority], src)
		if src.ConflictZoneTag != "" {
			reg.byConflictZone[src.ConflictZoneTag] = append(reg.byConflictZone[src.ConflictZoneTag], src)
		}
	}
	return reg, nil
}

// All returns every enabled source.
func (r *Registry) All() []models.Source {
	return r.all
}

// ByName returns a source (enabled or not) by name.
func (r *Registry) ByName(name string) (models.Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// SourcesByLanguage returns enabled sources publishing in lang.
func (r *Registry) SourcesByLanguage(lang string) []models.Source {
	return r.byLanguage[lang]
}

// SourcesByPriority returns enabled sources at priority p.
func (r *Registry) SourcesByPriority(p string) []models.Source {
	return r.byPriority[p]
}

// SourcesByConflictZone returns enabled sources tagged with a conflict zone.
func (r *Registry) SourcesByConflictZone(tag string) []models.Source {
	return r.byConflictZone[tag]
}

// Languages returns every language with at least one enabled source.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.byLanguage))
	for l := range r.byLanguage {
		langs = append(langs, l)
	}
	return langs
}
