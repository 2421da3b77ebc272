package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mathviz-ai/internal/config"
	"mathviz-ai/internal/history"
	"mathviz-ai/internal/pipeline"
	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/pkg/llm/factory"

	"github.com/fatih/color"
)

func main() {
	query := flag.String("q", "", "process a single problem and exit")
	recent := flag.Int("recent", 0, "list the N most recent runs and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, err := history.NewStore(cfg.App.HistoryDBPath)
	if err != nil {
		log.Warn("main", "run history disabled", map[string]interface{}{
			"error": err.Error(),
		})
		hist = nil
	} else {
		defer hist.Close()
	}

	if *recent > 0 {
		if hist == nil {
			fmt.Fprintln(os.Stderr, "run history is unavailable")
			os.Exit(1)
		}
		if err := printRecent(ctx, hist, *recent); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	provider, err := factory.NewLLMProvider(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "LLM provider error: %v\n", err)
		os.Exit(1)
	}

	orch, err := pipeline.NewOrchestrator(cfg, provider, hist, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialization error: %v\n", err)
		os.Exit(1)
	}

	printBanner(cfg)

	if *query != "" {
		if _, err := orch.ProcessQuery(ctx, *query); err != nil {
			color.Red("\n❌ Error: %v", err)
			log.Error("main", "pipeline run failed", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		return
	}

	runInteractive(ctx, orch, log)
}

func runInteractive(ctx context.Context, orch *pipeline.Orchestrator, log logger.ILogger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			color.Yellow("\nInterrupted. Goodbye!")
			return
		}

		color.Cyan("\nEnter a math problem (or 'quit' to exit):")
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		problem := strings.TrimSpace(scanner.Text())
		switch {
		case problem == "":
			continue
		case strings.EqualFold(problem, "quit"), strings.EqualFold(problem, "exit"):
			color.Cyan("Goodbye!")
			return
		}

		if _, err := orch.ProcessQuery(ctx, problem); err != nil {
			color.Red("\n❌ Error: %v", err)
			log.Error("main", "pipeline run failed", map[string]interface{}{
				"query": problem,
				"error": err.Error(),
			})
		}
	}
}

func printRecent(ctx context.Context, hist *history.Store, limit int) error {
	runs, err := hist.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, run := range runs {
		status := color.GreenString(run.ApprovalState)
		if run.ApprovalState != string(pipeline.StateAccepted) {
			status = color.YellowString(run.ApprovalState)
		}
		fmt.Printf("%s  %s  attempts=%d  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), status, run.Attempts, run.Problem)
		if run.FinalVideo != "" {
			fmt.Printf("    video: %s\n", run.FinalVideo)
		}
	}
	return nil
}

func printBanner(cfg *config.Config) {
	color.Cyan("============================================================")
	color.Cyan("  MathViz AI - Math Visualization Pipeline")
	color.Cyan("============================================================")
	fmt.Printf("Provider: %s  Model: %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("Output Directory: %s\n", cfg.App.OutputDir)
}
