package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	p := Pack{System: "answer about {question}", User: "{question} with top {topk}"}
	got := p.Render(map[string]string{"question": "costs", "topk": "3"})
	require.Equal(t, "answer about costs", got.System)
	require.Equal(t, "costs with top 3", got.User)

	require.Equal(t, p, p.Render(nil), "No vars should be a no-op")
	require.Equal(t, "answer about {question}", p.System, "Render should not mutate the template")
}

func TestLoaderEmbeddedDefaults(t *testing.T) {
	l := NewLoader("")
	for _, name := range []string{"planning", "evaluation", "debate"} {
		p, err := l.Load(name)
		require.NoError(t, err, "Embedded pack %q should exist", name)
		require.NotEmpty(t, p.System)
		require.NotEmpty(t, p.User)
	}

	_, err := l.Load("nonexistent")
	require.Error(t, err)
}

func TestLoaderDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planning.system.txt"), []byte("custom system"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planning.user.txt"), []byte("custom user"), 0o644))

	l := NewLoader(dir)

	p, err := l.Load("planning")
	require.NoError(t, err)
	require.Equal(t, "custom system", p.System)

	// names missing from the directory fall back to the embedded pack
	p, err = l.Load("debate")
	require.NoError(t, err)
	require.NotEmpty(t, p.System)
}

func TestLoaderCaches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.system.txt"), []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.user.txt"), []byte("v1"), 0o644))

	l := NewLoader(dir)
	p, err := l.Load("x")
	require.NoError(t, err)
	require.Equal(t, "v1", p.System)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.system.txt"), []byte("v2"), 0o644))
	p, err = l.Load("x")
	require.NoError(t, err)
	require.Equal(t, "v1", p.System, "Loaded packs should be cached")
}
