package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSceneClasses(t *testing.T) {
	code := `from manim import *

class IntroScene(Scene):
    def construct(self):
        pass

class Helper:
    pass

class SolutionScene( Scene ):
    def construct(self):
        pass
`
	path := filepath.Join(t.TempDir(), "viz.py")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))

	scenes, err := ExtractSceneClasses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"IntroScene", "SolutionScene"}, scenes)
}

func TestExtractSceneClassesMissingFile(t *testing.T) {
	_, err := ExtractSceneClasses(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestQualityMapping(t *testing.T) {
	assert.Equal(t, "l", qualityFlags["low"])
	assert.Equal(t, "m", qualityFlags["medium"])
	assert.Equal(t, "h", qualityFlags["high"])
	assert.Equal(t, "k", qualityFlags["4k"])

	assert.Equal(t, "480p15", qualityDirs["l"])
	assert.Equal(t, "720p30", qualityDirs["m"])
	assert.Equal(t, "1080p60", qualityDirs["h"])
	assert.Equal(t, "2160p60", qualityDirs["k"])
}
