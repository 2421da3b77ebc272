package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Stage names accepted by Loader.Load.
const (
	Solver          = "solver"
	Evaluator       = "evaluator"
	ScriptWriter    = "script_writer"
	VideoGenerator  = "video_generator"
	VisualEvaluator = "visual_evaluator"
)

//go:embed templates/*.txt
var templates embed.FS

// Loader resolves system prompts per pipeline stage. An override directory
// (PROMPT_DIR) takes precedence over the embedded defaults, so prompts can
// be tuned without rebuilding. Resolved prompts are cached.
type Loader struct {
	overrideDir string
	cache       *gocache.Cache
}

func NewLoader(overrideDir string) *Loader {
	return &Loader{
		overrideDir: overrideDir,
		cache:       gocache.New(gocache.NoExpiration, 0),
	}
}

// Load returns the system prompt for the named stage.
func (l *Loader) Load(name string) (string, error) {
	if cached, found := l.cache.Get(name); found {
		return cached.(string), nil
	}

	content, err := l.resolve(name)
	if err != nil {
		return "", err
	}

	l.cache.Set(name, content, gocache.NoExpiration)
	return content, nil
}

// Reload drops the cached copy and reads the prompt again.
func (l *Loader) Reload(name string) (string, error) {
	l.cache.Delete(name)
	return l.Load(name)
}

func (l *Loader) resolve(name string) (string, error) {
	if l.overrideDir != "" {
		path := filepath.Join(l.overrideDir, name+".txt")
		if raw, err := os.ReadFile(path); err == nil && len(raw) > 0 {
			return strings.TrimSpace(string(raw)), nil
		}
	}

	raw, err := templates.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q: %w", name, err)
	}
	return strings.TrimSpace(string(raw)), nil
}
