package pipeline

import (
	"context"
	"fmt"
	"strings"

	"mathviz-ai/internal/config"
	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/session"
	"mathviz-ai/pkg/llm"
	"mathviz-ai/pkg/search"
)

// VideoGenerator turns a narration script into Manim source code with a
// single model call. When a search client is configured, web references are
// appended to the prompt for visual inspiration.
type VideoGenerator struct {
	provider     llm.LLMProvider
	systemPrompt string
	temperature  float64
	maxTokens    int
	video        config.VideoConfig
	searcher     *search.TavilyClient // nil when TAVILY_API_KEY is absent
	logger       logger.ILogger
}

func NewVideoGenerator(provider llm.LLMProvider, systemPrompt string, temperature float64, maxTokens int, video config.VideoConfig, searcher *search.TavilyClient, log logger.ILogger) *VideoGenerator {
	return &VideoGenerator{
		provider:     provider,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
		video:        video,
		searcher:     searcher,
		logger:       log,
	}
}

// Generate produces the Manim visualization source for an audio script and
// writes it, plus manual rendering instructions, to the session.
func (g *VideoGenerator) Generate(ctx context.Context, script *Script, sess *session.Session) (string, error) {
	g.logger.Info("video-generator", "generating visualization source", nil)

	var refs string
	if g.searcher != nil {
		refs = g.visualReferences(ctx, script)
	}

	query := fmt.Sprintf(`Configuration Requirements:
- Resolution: %s
- Quality: %s
- Format: %s
- Background: %s

%sGenerate complete Manim code for the following audio script:

%s`, g.video.Resolution, g.video.ManimQuality, g.video.ManimFormat, g.video.Background, refs, script.Raw)

	code, err := g.provider.Generate(ctx, g.systemPrompt, query,
		llm.WithTemperature(g.temperature),
		llm.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("video generator: %w", err)
	}

	code = CleanCode(code)
	if code == "" {
		return "", fmt.Errorf("video generator: model returned no code")
	}

	if err := sess.SaveText(code, "manim_visualization.py", "video"); err != nil {
		return "", err
	}
	if err := sess.SaveText(g.renderingInstructions(sess), "rendering_instructions.txt", "video"); err != nil {
		return "", err
	}

	return code, nil
}

// visualReferences is best-effort: a failed search only loses enrichment.
func (g *VideoGenerator) visualReferences(ctx context.Context, script *Script) string {
	query := "manim animation ideas"
	if len(script.Segments) > 0 {
		query = "mathematical visualization of: " + firstWords(script.Segments[0].Audio, 12)
	}

	results, err := g.searcher.Search(ctx, query)
	if err != nil {
		g.logger.Warn("video-generator", "web search failed, continuing without references", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}

	formatted := search.FormatResults(results)
	if formatted == "" {
		return ""
	}
	return formatted + "\n"
}

// CleanCode strips markdown fences the model tends to wrap code in.
func CleanCode(code string) string {
	if idx := strings.Index(code, "```python"); idx >= 0 {
		code = code[idx+len("```python"):]
		if end := strings.Index(code, "```"); end >= 0 {
			code = code[:end]
		}
	} else if strings.Contains(code, "```") {
		parts := strings.Split(code, "```")
		if len(parts) >= 2 {
			code = parts[1]
		}
	}
	return strings.TrimSpace(code)
}

func (g *VideoGenerator) renderingInstructions(sess *session.Session) string {
	scriptPath := sess.Path("manim_visualization.py", "video")
	return fmt.Sprintf(`MANIM RENDERING INSTRUCTIONS

Script Location: %s

To render a scene manually, run:

1. High Quality (1080p60):
   manim -qh %s <SceneName>

2. Production Quality (2160p60):
   manim -qk %s <SceneName>

3. Preview Quality (480p15):
   manim -ql %s <SceneName>

Configuration:
- Resolution: %s
- Format: %s
- FPS: %d

Output lands in the media/videos/ directory next to the script.
`, scriptPath, scriptPath, scriptPath, scriptPath, g.video.Resolution, g.video.ManimFormat, g.video.FPS)
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
