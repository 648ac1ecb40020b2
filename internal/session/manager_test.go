package session

import (
	"testing"
	"time"

	"egzersizlab/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixtureCatalog() *catalog.Catalog {
	return &catalog.Catalog{Categories: []catalog.Category{{
		ID:    "flexibility",
		Title: "Flexibility",
		Tests: fixtureTests(),
	}}}
}

func TestManagerCreateFiltersOnce(t *testing.T) {
	m := NewManager(fixtureCatalog(), time.Hour, zap.NewNop())

	s, err := m.Create(7, "flexibility", []string{"shoulder"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 7, s.UserID)

	// Only the shoulder test matched; region-less tests ride along.
	var ids []string
	for _, test := range s.Tests() {
		ids = append(ids, test.ID)
	}
	assert.Contains(t, ids, "shoulder-reach")
	assert.NotContains(t, ids, "sit-and-reach")

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestManagerCreateUnknownCategory(t *testing.T) {
	m := NewManager(fixtureCatalog(), time.Hour, zap.NewNop())
	_, err := m.Create(7, "nope", nil)
	require.Error(t, err)
}

func TestManagerClose(t *testing.T) {
	m := NewManager(fixtureCatalog(), time.Hour, zap.NewNop())
	s, err := m.Create(7, "flexibility", nil)
	require.NoError(t, err)

	m.Close(s.ID)
	_, ok := m.Get(s.ID)
	assert.False(t, ok)

	// Closing an unknown id is harmless.
	m.Close("missing")
}

func TestManagerSweepRemovesIdleSessions(t *testing.T) {
	m := NewManager(fixtureCatalog(), 10*time.Millisecond, zap.NewNop())

	stale, err := m.Create(7, "flexibility", nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	fresh, err := m.Create(8, "flexibility", nil)
	require.NoError(t, err)

	m.sweep()

	_, ok := m.Get(stale.ID)
	assert.False(t, ok, "idle session should be swept")
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok, "active session should survive")
}
