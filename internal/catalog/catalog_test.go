package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/toolhub/internal/config"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func sampleDefs() []config.ToolConfig {
	return []config.ToolConfig{
		{ID: "jupyter", Name: "Jupyter", Command: "jupyter lab", Port: intPtr(8888)},
		{ID: "docs", Name: "Docs", LaunchURL: "https://docs.example.com"},
		{ID: "old", Name: "Old Thing", Command: "old", Enabled: boolPtr(false)},
	}
}

func TestStaticGetAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(sampleDefs())

	tool, err := s.Get(ctx, "jupyter")
	require.NoError(t, err)
	assert.Equal(t, "Jupyter", tool.Name)
	require.NotNil(t, tool.Port)
	assert.Equal(t, 8888, *tool.Port)
	assert.True(t, tool.Enabled)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrToolNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"docs", "jupyter", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(sampleDefs())

	tool, err := Resolve(ctx, s, " docs ")
	require.NoError(t, err)
	assert.Equal(t, "docs", tool.ID)

	_, err = Resolve(ctx, s, "old")
	assert.ErrorIs(t, err, ErrToolDisabled)

	_, err = Resolve(ctx, s, "nope")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestFromConfigCopiesPort(t *testing.T) {
	def := config.ToolConfig{ID: "a", Name: "A", Port: intPtr(1)}
	tool := FromConfig(def)
	*def.Port = 2
	assert.Equal(t, 1, *tool.Port)
}

func TestSQLiteCRUD(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Get(ctx, "jupyter")
	assert.ErrorIs(t, err, ErrToolNotFound)

	require.NoError(t, s.Upsert(ctx, Tool{ID: "jupyter", Name: "Jupyter", Command: "jupyter lab", Port: intPtr(8888), Enabled: true}))
	require.NoError(t, s.Upsert(ctx, Tool{ID: "docs", Name: "Docs", LaunchURL: "https://docs.example.com", Enabled: true}))

	got, err := s.Get(ctx, "jupyter")
	require.NoError(t, err)
	assert.Equal(t, "jupyter lab", got.Command)
	require.NotNil(t, got.Port)
	assert.Equal(t, 8888, *got.Port)

	require.NoError(t, s.Upsert(ctx, Tool{ID: "jupyter", Name: "Jupyter", Command: "jupyter notebook", Enabled: false}))
	got, err = s.Get(ctx, "jupyter")
	require.NoError(t, err)
	assert.Equal(t, "jupyter notebook", got.Command)
	assert.Nil(t, got.Port)
	assert.False(t, got.Enabled)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "docs", list[0].ID)

	removed, err := s.Delete(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Delete(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLiteUpsertValidates(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Error(t, s.Upsert(ctx, Tool{Name: "x"}))
	assert.Error(t, s.Upsert(ctx, Tool{ID: "x"}))
}

func TestSQLiteSeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Upsert(ctx, Tool{ID: "jupyter", Name: "Custom", Command: "custom", Enabled: true}))

	added, err := s.Seed(ctx, sampleDefs())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	got, err := s.Get(ctx, "jupyter")
	require.NoError(t, err)
	assert.Equal(t, "Custom", got.Name)

	old, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, old.Enabled)
}
