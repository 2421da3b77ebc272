package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"mathviz-ai/internal/config"
	"mathviz-ai/internal/history"
	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/prompt"
	"mathviz-ai/internal/session"
	"mathviz-ai/pkg/llm"
	"mathviz-ai/pkg/search"

	"github.com/fatih/color"
)

// Metadata summarizes one finished (or partially finished) pipeline run.
type Metadata struct {
	SessionID      string        `json:"session_id"`
	Query          string        `json:"query"`
	Timestamp      time.Time     `json:"timestamp"`
	ProcessingSecs float64       `json:"processing_time_seconds"`
	SessionFolder  string        `json:"session_folder"`
	SolverAttempts int           `json:"solver_attempts"`
	ApprovalState  LoopState     `json:"approval_state"`
	VisualApproved bool          `json:"visual_approved"`
	TTSAvailable   bool          `json:"tts_available"`
	AudioFiles     int           `json:"audio_files_generated"`
	RenderersFound bool          `json:"video_rendering_available"`
	VideosRendered int           `json:"videos_rendered"`
	SyncAvailable  bool          `json:"sync_available"`
	SegmentsSynced int           `json:"segments_synced"`
	FinalVideo     string        `json:"final_video,omitempty"`
	Outputs        OutputsRecord `json:"outputs"`
}

type OutputsRecord struct {
	Solution       string   `json:"solution"`
	Evaluation     string   `json:"evaluation"`
	AudioScript    string   `json:"audio_script"`
	ManimScript    string   `json:"manim_script"`
	AudioFiles     []string `json:"audio_files"`
	RenderedVideos []string `json:"rendered_videos"`
	SyncedSegments []string `json:"synced_segments"`
	FinalVideo     string   `json:"final_video,omitempty"`
}

// Orchestrator sequences the pipeline stages for one problem at a time.
// Stages run strictly one after the other; rendering, audio and sync are
// each independently skippable when their external tool is missing.
type Orchestrator struct {
	cfg          *config.Config
	logger       logger.ILogger
	solveLoop    *SolveLoop
	scriptWriter *ScriptWriter
	videoGen     *VideoGenerator
	visualEval   *VisualEvaluator
	synth        Synthesizer
	renderer     *ManimRenderer
	sync         *Synchronizer
	branding     *Branding
	history      *history.Store // nil disables run indexing
}

func NewOrchestrator(cfg *config.Config, provider llm.LLMProvider, hist *history.Store, log logger.ILogger) (*Orchestrator, error) {
	prompts := prompt.NewLoader(cfg.App.PromptDir)

	solverPrompt, err := prompts.Load(prompt.Solver)
	if err != nil {
		return nil, err
	}
	evaluatorPrompt, err := prompts.Load(prompt.Evaluator)
	if err != nil {
		return nil, err
	}
	scriptPrompt, err := prompts.Load(prompt.ScriptWriter)
	if err != nil {
		return nil, err
	}
	videoPrompt, err := prompts.Load(prompt.VideoGenerator)
	if err != nil {
		return nil, err
	}
	visualPrompt, err := prompts.Load(prompt.VisualEvaluator)
	if err != nil {
		return nil, err
	}

	var searcher *search.TavilyClient
	if cfg.Keys.Tavily != "" {
		searcher = search.NewTavilyClient(cfg.Keys.Tavily)
	}

	solver := NewSolver(provider, solverPrompt, cfg.Pipeline.TemperatureSolver, cfg.LLM.TopP, cfg.LLM.MaxTokens, log)
	evaluator := NewEvaluator(provider, evaluatorPrompt, cfg.Pipeline.TemperatureEvaluator, cfg.LLM.MaxTokens, log)
	renderer := NewManimRenderer(cfg.Video.ManimBinary, cfg.Video.ManimQuality, log)
	sync := NewSynchronizer(renderer, log)

	return &Orchestrator{
		cfg:          cfg,
		logger:       log,
		solveLoop:    NewSolveLoop(solver, evaluator, cfg.Pipeline.MaxSolverRetries, log),
		scriptWriter: NewScriptWriter(provider, scriptPrompt, cfg.Pipeline.TemperatureScript, cfg.LLM.MaxTokens, log),
		videoGen:     NewVideoGenerator(provider, videoPrompt, cfg.Pipeline.TemperatureVideoGen, cfg.LLM.MaxTokens, cfg.Video, searcher, log),
		visualEval:   NewVisualEvaluator(provider, visualPrompt, cfg.Pipeline.TemperatureVisualEval, cfg.LLM.MaxTokens, log),
		synth:        NewCommandSynthesizer(cfg.Audio.TTSCommand, log),
		renderer:     renderer,
		sync:         sync,
		branding:     NewBranding(cfg.Video.BrandingDir, renderer, sync, log),
		history:      hist,
	}, nil
}

// ProcessQuery runs the full pipeline for one problem. The returned
// metadata describes whatever was produced, even when optional stages were
// skipped; the session directory is always left inspectable.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (*Metadata, error) {
	start := time.Now()

	sess, err := session.New(o.cfg.App.OutputDir, query)
	if err != nil {
		return nil, err
	}
	color.Green("✓ Session folder created: %s", sess.Folder)

	// Per-session log, kept with the artifacts
	sessionLog := logger.NewSessionLogger(filepath.Join(sess.Folder, "pipeline.log"))
	defer sessionLog.Sync()
	sessionLog.Info("orchestrator", "run started", map[string]interface{}{
		"session_id": sess.ID.String(),
		"query":      query,
	})

	// Phase 1: solve-evaluate loop
	banner("SOLVER / EVALUATOR")
	outcome, err := o.solveLoop.Run(ctx, query, sess)
	if err != nil {
		o.recordRun(ctx, sess, start, 0, "Failed", "")
		return nil, err
	}
	if outcome.State == StateAccepted {
		color.Green("✓ Solution approved after %d attempt(s)", outcome.Attempts)
	} else {
		color.Yellow("⚠ Retry ceiling reached, using last solution despite rejection")
	}

	// Phase 2: narration script
	banner("SCRIPT WRITER")
	script, err := o.scriptWriter.WriteScript(ctx, outcome.Solution, sess)
	if err != nil {
		o.recordRun(ctx, sess, start, outcome.Attempts, string(outcome.State), "")
		return nil, err
	}
	color.Green("✓ Parsed %d audio segments", len(script.Segments))

	// Phase 3: visualization source
	banner("VIDEO GENERATOR")
	manimCode, err := o.videoGen.Generate(ctx, script, sess)
	if err != nil {
		o.recordRun(ctx, sess, start, outcome.Attempts, string(outcome.State), "")
		return nil, err
	}
	color.Green("✓ Manim script saved")

	visualApproved, _, err := o.visualEval.Evaluate(ctx, script, manimCode, sess)
	if err != nil {
		// Advisory stage: a failed review call loses the report, not the run
		o.logger.Warn("orchestrator", "visual evaluation unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	} else if visualApproved {
		color.Green("✓ Visualization source approved")
	} else {
		color.Yellow("⚠ Visualization source flagged for revision (continuing)")
	}

	// Phase 4: audio (optional)
	banner("TTS GENERATOR")
	audioFiles := GenerateAudioSegments(ctx, o.synth, script.Segments, sess, o.logger)
	if len(audioFiles) == 0 {
		color.Yellow("⚠ No audio generated (TTS unavailable or disabled)")
	} else {
		color.Green("✓ Generated %d/%d audio files", len(audioFiles), len(script.Segments))
	}

	// Phase 5: rendering (optional)
	banner("VIDEO RENDERING")
	var renderedVideos []string
	if o.renderer.Available() {
		renderedVideos, err = o.renderer.RenderAll(ctx, sess.Path("manim_visualization.py", "video"), filepath.Join(sess.Folder, "video", "rendered"))
		if err != nil {
			o.logger.Error("orchestrator", "rendering stage failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		color.Green("✓ Rendered %d scene video(s)", len(renderedVideos))
	} else {
		color.Yellow("⚠ Manim not available. Skipping video rendering.")
	}

	// Phase 6: synchronization and final assembly (optional)
	banner("VIDEO SYNCHRONIZATION")
	var synced []SyncedSegment
	var finalVideo string
	switch {
	case !o.sync.Available():
		color.Yellow("⚠ FFmpeg not available. Skipping audio-video synchronization.")
	case len(audioFiles) == 0:
		color.Yellow("⚠ No audio files available. Skipping synchronization.")
	case len(renderedVideos) == 0 && !o.renderer.Available():
		color.Yellow("⚠ No rendered videos available. Skipping synchronization.")
	default:
		synced, err = o.sync.SyncSegments(ctx, audioFiles, renderedVideos, script.Segments, filepath.Join(sess.Folder, "final", "synced"))
		if err != nil {
			o.logger.Error("orchestrator", "synchronization failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if len(synced) > 0 {
			segments := synced
			if o.branding.Enabled() {
				segments, err = o.withBranding(ctx, sess, segments)
				if err != nil {
					o.recordRun(ctx, sess, start, outcome.Attempts, string(outcome.State), "")
					return nil, err
				}
			}

			finalVideo, err = o.sync.Concatenate(ctx, segments, sess.Path("final_video.mp4", "final"))
			if err != nil {
				o.logger.Error("orchestrator", "final concatenation failed", map[string]interface{}{
					"error": err.Error(),
				})
				finalVideo = ""
			} else {
				color.Green("✓ Final video created: %s", finalVideo)
			}
		}
	}

	metadata := &Metadata{
		SessionID:      sess.ID.String(),
		Query:          query,
		Timestamp:      start,
		ProcessingSecs: time.Since(start).Seconds(),
		SessionFolder:  sess.Folder,
		SolverAttempts: outcome.Attempts,
		ApprovalState:  outcome.State,
		VisualApproved: visualApproved,
		TTSAvailable:   o.synth.Available(),
		AudioFiles:     len(audioFiles),
		RenderersFound: o.renderer.Available(),
		VideosRendered: len(renderedVideos),
		SyncAvailable:  o.sync.Available(),
		SegmentsSynced: len(synced),
		FinalVideo:     finalVideo,
		Outputs: OutputsRecord{
			Solution:       sess.Path("solution_final.txt", "solver"),
			Evaluation:     sess.Path("evaluation_final.txt", "evaluator"),
			AudioScript:    sess.Path("audio_script.txt", "script"),
			ManimScript:    sess.Path("manim_visualization.py", "video"),
			AudioFiles:     audioFiles,
			RenderedVideos: renderedVideos,
			SyncedSegments: syncedOutputs(synced),
			FinalVideo:     finalVideo,
		},
	}

	if err := sess.SaveMetadata(metadata); err != nil {
		return nil, err
	}

	sessionLog.Info("orchestrator", "run finished", map[string]interface{}{
		"attempts":        outcome.Attempts,
		"state":           string(outcome.State),
		"segments":        len(script.Segments),
		"audio_files":     len(audioFiles),
		"videos_rendered": len(renderedVideos),
		"final_video":     finalVideo,
		"seconds":         metadata.ProcessingSecs,
	})

	o.recordRun(ctx, sess, start, outcome.Attempts, string(outcome.State), finalVideo)
	o.printSummary(metadata)

	return metadata, nil
}

// withBranding prepends the intro clip and appends the outro clip. Branding
// failure is fatal once both fallback tiers are exhausted.
func (o *Orchestrator) withBranding(ctx context.Context, sess *session.Session, synced []SyncedSegment) ([]SyncedSegment, error) {
	intro, err := o.branding.MakeClip(ctx, ClipIntro, sess.Path("intro.mp4", "final"))
	if err != nil {
		return nil, err
	}
	outro, err := o.branding.MakeClip(ctx, ClipOutro, sess.Path("outro.mp4", "final"))
	if err != nil {
		return nil, err
	}

	out := make([]SyncedSegment, 0, len(synced)+2)
	out = append(out, SyncedSegment{Index: 0, VideoFile: "branding", Output: intro})
	out = append(out, synced...)
	out = append(out, SyncedSegment{Index: len(synced) + 1, VideoFile: "branding", Output: outro})
	return out, nil
}

func (o *Orchestrator) recordRun(ctx context.Context, sess *session.Session, start time.Time, attempts int, state, finalVideo string) {
	if o.history == nil {
		return
	}
	err := o.history.Record(ctx, history.Run{
		SessionID:     sess.ID.String(),
		Problem:       sess.Problem,
		Folder:        sess.Folder,
		Attempts:      attempts,
		ApprovalState: state,
		FinalVideo:    finalVideo,
		StartedAt:     start,
		FinishedAt:    time.Now(),
	})
	if err != nil {
		o.logger.Warn("orchestrator", "could not record run in history", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) printSummary(m *Metadata) {
	banner("PROCESSING COMPLETE")
	fmt.Printf("Session Folder: %s\n", m.SessionFolder)
	fmt.Printf("Processing Time: %.2f seconds\n", m.ProcessingSecs)
	fmt.Printf("Solver Attempts: %d (%s)\n", m.SolverAttempts, m.ApprovalState)

	status := func(ok bool) string {
		if ok {
			return color.GreenString("✓ Available")
		}
		return color.YellowString("✗ Not Available")
	}
	fmt.Printf("TTS Status: %s (files: %d)\n", status(m.TTSAvailable), m.AudioFiles)
	fmt.Printf("Manim Status: %s (scenes: %d)\n", status(m.RenderersFound), m.VideosRendered)
	fmt.Printf("FFmpeg Status: %s (synced: %d)\n", status(m.SyncAvailable), m.SegmentsSynced)

	if m.FinalVideo != "" {
		color.Green("\n🎉 Final video ready: %s", m.FinalVideo)
	} else {
		color.Yellow("\nRun is partial: see %s for produced artifacts", m.SessionFolder)
	}
}

func banner(title string) {
	line := "============================================================"
	color.Cyan("\n%s\n%s\n%s", line, title, line)
}

func syncedOutputs(synced []SyncedSegment) []string {
	outputs := make([]string, len(synced))
	for i, seg := range synced {
		outputs[i] = seg.Output
	}
	return outputs
}
