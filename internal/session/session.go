package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subdirectories created for every session. Each pipeline stage writes
// into its own subdir so a partially failed run stays inspectable.
var subdirs = []string{"solver", "evaluator", "script", "video", "audio", "final"}

// Session owns the artifact directory for one pipeline run.
// Artifacts are append-only: later attempts write new files, nothing is
// edited in place.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Problem   string    `json:"problem"`
	CreatedAt time.Time `json:"created_at"`
	Folder    string    `json:"folder"`
}

// New creates the timestamped session directory under outputDir and all
// stage subdirectories. Two runs on the same problem text never collide
// because the folder name embeds the submission time.
func New(outputDir, problem string) (*Session, error) {
	now := time.Now()
	slug := sanitizeFilename(truncate(problem, 50))
	folder := filepath.Join(outputDir, fmt.Sprintf("%s_%s", now.Format("20060102_150405"), slug))

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create session folder: %w", err)
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(folder, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create session subfolder %s: %w", sub, err)
		}
	}

	s := &Session{
		ID:        uuid.New(),
		Problem:   problem,
		CreatedAt: now,
		Folder:    folder,
	}

	if err := s.SaveText(problem, "original_query.txt", ""); err != nil {
		return nil, err
	}

	return s, nil
}

// SaveText writes content into subfolder/filename and returns the full path.
func (s *Session) SaveText(content, filename, subfolder string) error {
	path := s.Path(filename, subfolder)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	return nil
}

// SaveJSON marshals data with indentation and writes it like SaveText.
func (s *Session) SaveJSON(data interface{}, filename, subfolder string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}
	path := s.Path(filename, subfolder)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	return nil
}

// Path returns the absolute artifact path for filename inside subfolder
// (empty subfolder means the session root).
func (s *Session) Path(filename, subfolder string) string {
	if subfolder != "" {
		return filepath.Join(s.Folder, subfolder, filename)
	}
	return filepath.Join(s.Folder, filename)
}

// SaveMetadata writes the session metadata.json at the session root.
func (s *Session) SaveMetadata(metadata interface{}) error {
	return s.SaveJSON(metadata, "metadata.json", "")
}

func sanitizeFilename(text string) string {
	replacer := strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", "\"", "_",
		"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
		" ", "_", "\n", "_", "\t", "_",
	)
	return strings.Trim(replacer.Replace(text), "_ ")
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
