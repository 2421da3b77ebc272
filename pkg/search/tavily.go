package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.tavily.com/search"

// TavilyClient wraps the Tavily web search API. It is used to pull visual
// references into the video-generator prompt; the integration is optional
// and disabled entirely when no API key is configured.
type TavilyClient struct {
	APIKey     string
	Endpoint   string
	MaxResults int
	Client     *http.Client
}

func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		APIKey:     apiKey,
		Endpoint:   defaultEndpoint,
		MaxResults: 5,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search runs one web search and returns the ranked results.
func (t *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	reqBody := searchRequest{
		APIKey:      t.APIKey,
		Query:       query,
		MaxResults:  t.MaxResults,
		SearchDepth: "basic",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(bodyBytes, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return searchResp.Results, nil
}

// FormatResults renders results as a reference block for an LLM prompt.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("WEB REFERENCES:\n")
	for i, res := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, res.Title, res.URL)
		content := res.Content
		if len(content) > 400 {
			content = content[:400] + "..."
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}
