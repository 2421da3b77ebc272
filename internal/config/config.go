package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Video    VideoConfig
	Audio    AudioConfig
	Keys     APIKeys
}

type AppConfig struct {
	OutputDir     string `validate:"required"`
	LogFilePath   string
	HistoryDBPath string
	Environment   string
	PromptDir     string // optional override for embedded system prompts
}

type LLMConfig struct {
	Provider           string `validate:"required,oneof=azure github ollama gemini huggingface"`
	Endpoint           string
	Model              string `validate:"required"`
	Token              string
	OllamaBaseURL      string
	GeminiAPIKey       string
	HuggingFaceAPIKey  string
	HuggingFaceBaseURL string
	MaxTokens          int     `validate:"gt=0"`
	TopP               float64 `validate:"gte=0,lte=1"`
}

type PipelineConfig struct {
	MaxSolverRetries      int     `validate:"gte=1"`
	TemperatureSolver     float64 `validate:"gte=0,lte=1"`
	TemperatureEvaluator  float64 `validate:"gte=0,lte=1"`
	TemperatureScript     float64 `validate:"gte=0,lte=1"`
	TemperatureVideoGen   float64 `validate:"gte=0,lte=1"`
	TemperatureVisualEval float64 `validate:"gte=0,lte=1"`
}

type VideoConfig struct {
	Resolution   string
	FPS          int    `validate:"gt=0"`
	Background   string
	ManimQuality string `validate:"oneof=low medium high 4k"`
	ManimFormat  string
	ManimBinary  string
	BrandingDir  string // intro/outro assets; empty disables branding clips
}

type AudioConfig struct {
	TTSCommand string // external TTS binary; empty disables audio generation
	Format     string
	SampleRate int
}

type APIKeys struct {
	Tavily string // optional; absence disables web search enrichment
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			OutputDir:     getEnv("OUTPUT_DIR", "output"),
			LogFilePath:   getEnv("LOG_FILE_PATH", "mathviz.log"),
			HistoryDBPath: getEnv("HISTORY_DB_PATH", "mathviz_history.db"),
			Environment:   getEnv("GO_ENV", "development"),
			PromptDir:     getEnv("PROMPT_DIR", ""),
		},
		LLM: LLMConfig{
			Provider:           getEnv("LLM_PROVIDER", "azure"),
			Endpoint:           getEnv("LLM_ENDPOINT", "https://models.github.ai/inference"),
			Model:              getEnv("LLM_MODEL", "microsoft/Phi-4-reasoning"),
			Token:              getEnv("GITHUB_TOKEN", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:       getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFaceAPIKey:  getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", ""),
			MaxTokens:          getEnvAsInt("MAX_TOKENS", 4000),
			TopP:               getEnvAsFloat("TOP_P", 1.0),
		},
		Pipeline: PipelineConfig{
			MaxSolverRetries:      getEnvAsInt("MAX_SOLVER_RETRIES", 5),
			TemperatureSolver:     getEnvAsFloat("TEMPERATURE_SOLVER", 0.4),
			TemperatureEvaluator:  getEnvAsFloat("TEMPERATURE_EVALUATOR", 0.0),
			TemperatureScript:     getEnvAsFloat("TEMPERATURE_SCRIPT_WRITER", 0.6),
			TemperatureVideoGen:   getEnvAsFloat("TEMPERATURE_VIDEO_GENERATOR", 0.2),
			TemperatureVisualEval: getEnvAsFloat("TEMPERATURE_VISUAL_EVALUATOR", 0.1),
		},
		Video: VideoConfig{
			Resolution:   getEnv("VIDEO_RESOLUTION", "1080p"),
			FPS:          getEnvAsInt("VIDEO_FPS", 60),
			Background:   getEnv("VIDEO_BACKGROUND", "BLACK"),
			ManimQuality: getEnv("MANIM_QUALITY", "high"),
			ManimFormat:  getEnv("MANIM_FORMAT", "mp4"),
			ManimBinary:  getEnv("MANIM_BINARY", "manim"),
			BrandingDir:  getEnv("BRANDING_DIR", ""),
		},
		Audio: AudioConfig{
			TTSCommand: getEnv("TTS_COMMAND", ""),
			Format:     getEnv("AUDIO_FORMAT", "wav"),
			SampleRate: getEnvAsInt("AUDIO_SAMPLE_RATE", 24000),
		},
		Keys: APIKeys{
			Tavily: getEnv("TAVILY_API_KEY", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
