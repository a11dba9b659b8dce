package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/internal/models"
)

func TestCatalogFeedURLsUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, src := range Catalog() {
		prev, dup := seen[src.FeedURL]
		require.False(t, dup, "feed_url %s shared by %q and %q", src.FeedURL, prev, src.Name)
		seen[src.FeedURL] = src.Name
	}
}

func TestProjections(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	reg := m.Current()

	assert.NotEmpty(t, reg.All())

	for _, src := range reg.SourcesByLanguage("uk") {
		assert.Equal(t, "uk", src.Language)
	}
	for _, src := range reg.SourcesByPriority(models.PriorityCritical) {
		assert.Equal(t, models.PriorityCritical, src.Priority)
	}
	for _, src := range reg.SourcesByConflictZone("ukraine") {
		assert.Equal(t, "ukraine", src.ConflictZoneTag)
	}
	assert.NotEmpty(t, reg.SourcesByConflictZone("ukraine"))
}

func TestDisableRemovesFromAllProjections(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	name := "Ukrainska Pravda"
	src, ok := m.Current().ByName(name)
	require.True(t, ok)

	require.NoError(t, m.SetEnabled(name, false))
	reg := m.Current()

	for _, s := range reg.All() {
		assert.NotEqual(t, name, s.Name)
	}
	for _, s := range reg.SourcesByLanguage(src.Language) {
		assert.NotEqual(t, name, s.Name)
	}
	for _, s := range reg.SourcesByPriority(src.Priority) {
		assert.NotEqual(t, name, s.Name)
	}
	for _, s := range reg.SourcesByConflictZone(src.ConflictZoneTag) {
		assert.NotEqual(t, name, s.Name)
	}

	// the source still resolves by name, flagged disabled
	disabled, ok := reg.ByName(name)
	require.True(t, ok)
	assert.False(t, disabled.Enabled)

	// re-enable restores it
	require.NoError(t, m.SetEnabled(name, true))
	found := false
	for _, s := range m.Current().All() {
		if s.Name == name {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReloadKeepsOverrides(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	require.NoError(t, m.SetEnabled("Meduza", false))
	require.NoError(t, m.Reload())

	s, ok := m.Current().ByName("Meduza")
	require.True(t, ok)
	assert.False(t, s.Enabled)
}

func TestUnknownSource(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	assert.Error(t, m.SetEnabled("No Such Feed", true))
}
