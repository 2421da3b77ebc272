package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedPrompts(t *testing.T) {
	loader := NewLoader("")

	for _, name := range []string{Solver, Evaluator, ScriptWriter, VideoGenerator, VisualEvaluator} {
		content, err := loader.Load(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, content, name)
	}
}

func TestLoadUnknownPrompt(t *testing.T) {
	_, err := NewLoader("").Load("nonexistent")
	assert.Error(t, err)
}

func TestOverrideDirTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	override := "You are a custom solver."
	require.NoError(t, os.WriteFile(filepath.Join(dir, Solver+".txt"), []byte(override+"\n"), 0o644))

	loader := NewLoader(dir)
	content, err := loader.Load(Solver)
	require.NoError(t, err)
	assert.Equal(t, override, content)

	// Other stages still fall back to the embedded defaults.
	evaluator, err := loader.Load(Evaluator)
	require.NoError(t, err)
	assert.NotEqual(t, override, evaluator)
}

func TestLoadCachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Solver+".txt")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0o644))

	loader := NewLoader(dir)
	first, err := loader.Load(Solver)
	require.NoError(t, err)
	assert.Equal(t, "version one", first)

	require.NoError(t, os.WriteFile(path, []byte("version two"), 0o644))

	cached, err := loader.Load(Solver)
	require.NoError(t, err)
	assert.Equal(t, "version one", cached)

	reloaded, err := loader.Reload(Solver)
	require.NoError(t, err)
	assert.Equal(t, "version two", reloaded)
}
