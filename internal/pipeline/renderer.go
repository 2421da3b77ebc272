package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"mathviz-ai/internal/pkg/logger"
)

// Renderer is the animation-rendering capability. Implementations report
// availability so the pipeline can skip rendering when the engine is not
// installed.
type Renderer interface {
	Available() bool
	RenderScene(ctx context.Context, scriptPath, sceneName string) (string, error)
}

// ManimRenderer drives the Manim CLI.
type ManimRenderer struct {
	binary  string
	quality string // l, m, h, k
	logger  logger.ILogger
}

var qualityFlags = map[string]string{
	"low":    "l",
	"medium": "m",
	"high":   "h",
	"4k":     "k",
}

// Manim writes into media/videos/<script>/<quality dir>/<Scene>.mp4.
var qualityDirs = map[string]string{
	"l": "480p15",
	"m": "720p30",
	"h": "1080p60",
	"k": "2160p60",
}

func NewManimRenderer(binary, quality string, log logger.ILogger) *ManimRenderer {
	q, ok := qualityFlags[strings.ToLower(quality)]
	if !ok {
		q = "h"
	}
	return &ManimRenderer{
		binary:  binary,
		quality: q,
		logger:  log,
	}
}

func (r *ManimRenderer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

var sceneClassRe = regexp.MustCompile(`class\s+(\w+)\s*\(\s*Scene\s*\)\s*:`)

// ExtractSceneClasses lists Scene subclasses defined in a Manim script, in
// source order.
func ExtractSceneClasses(scriptPath string) ([]string, error) {
	content, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("read manim script: %w", err)
	}

	matches := sceneClassRe.FindAllStringSubmatch(string(content), -1)
	scenes := make([]string, 0, len(matches))
	for _, m := range matches {
		scenes = append(scenes, m[1])
	}
	return scenes, nil
}

// RenderScene renders one scene and returns the path of the produced video.
func (r *ManimRenderer) RenderScene(ctx context.Context, scriptPath, sceneName string) (string, error) {
	renderCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(renderCtx, r.binary, "-q"+r.quality, scriptPath, sceneName)
	cmd.Dir = filepath.Dir(scriptPath)

	r.logger.Info("renderer", "rendering scene", map[string]interface{}{
		"scene":   sceneName,
		"quality": r.quality,
	})

	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("manim render %s: %w: %s", sceneName, err, truncateOutput(out))
	}

	videoPath := findRenderedVideo(scriptPath, sceneName, r.quality)
	if videoPath == "" {
		return "", fmt.Errorf("manim render %s: completed but output video not found", sceneName)
	}
	return videoPath, nil
}

// RenderAll renders every scene in the script and copies the results into
// outputFolder as scene_<nn>_<Name>.mp4. Scenes that fail are skipped; the
// returned slice preserves scene order for the ones that rendered.
func (r *ManimRenderer) RenderAll(ctx context.Context, scriptPath, outputFolder string) ([]string, error) {
	scenes, err := ExtractSceneClasses(scriptPath)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		r.logger.Warn("renderer", "no scene classes found in script", nil)
		return nil, nil
	}

	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create render output folder: %w", err)
	}

	var rendered []string
	for idx, scene := range scenes {
		videoPath, err := r.RenderScene(ctx, scriptPath, scene)
		if err != nil {
			r.logger.Error("renderer", "scene render failed", map[string]interface{}{
				"scene": scene,
				"error": err.Error(),
			})
			continue
		}

		finalPath := filepath.Join(outputFolder, fmt.Sprintf("scene_%02d_%s.mp4", idx+1, scene))
		if err := copyFile(videoPath, finalPath); err != nil {
			r.logger.Error("renderer", "could not copy rendered video", map[string]interface{}{
				"scene": scene,
				"error": err.Error(),
			})
			rendered = append(rendered, videoPath)
			continue
		}
		rendered = append(rendered, finalPath)
	}

	r.logger.Info("renderer", "rendering finished", map[string]interface{}{
		"scenes":   len(scenes),
		"rendered": len(rendered),
	})

	return rendered, nil
}

// findRenderedVideo locates the scene video inside Manim's media tree.
func findRenderedVideo(scriptPath, sceneName, quality string) string {
	scriptDir := filepath.Dir(scriptPath)
	scriptName := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	qualityDir := qualityDirs[quality]
	if qualityDir == "" {
		qualityDir = "1080p60"
	}

	candidates := []string{
		filepath.Join(scriptDir, "media", "videos", scriptName, qualityDir, sceneName+".mp4"),
		filepath.Join("media", "videos", scriptName, qualityDir, sceneName+".mp4"),
		filepath.Join(scriptDir, sceneName+".mp4"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// Fall back to walking the media tree
	var found string
	mediaDir := filepath.Join(scriptDir, "media")
	_ = filepath.WalkDir(mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" || d.IsDir() {
			return nil
		}
		if d.Name() == sceneName+".mp4" {
			found = path
		}
		return nil
	})
	return found
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
