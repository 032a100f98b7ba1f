package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// DefaultTavilyBaseURL is the Tavily search API endpoint.
const DefaultTavilyBaseURL = "https://api.tavily.com"

// ErrNoSearchAPIKey is returned when no Tavily API key is configured.
var ErrNoSearchAPIKey = errors.New("TAVILY_API_KEY not set")

// TavilyClient implements SearchCapability against the Tavily search API.
type TavilyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTavilyClient creates a Tavily search client. Falls back to the
// TAVILY_API_KEY environment variable when no key option is supplied.
func NewTavilyClient(opts ...Option) (*TavilyClient, error) {
	cfg := applyOpts(opts)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTavilyBaseURL
	}
	slog.Debug("Tavily client config loaded", "APIKey_set", cfg.APIKey != "", "baseURL", cfg.BaseURL)
	if cfg.APIKey == "" {
		return nil, ErrNoSearchAPIKey
	}
	return &TavilyClient{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, client: cfg.Client}, nil
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries the Tavily API and flattens the results into text.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int) (string, error) {
	slog.Debug("TavilyClient.Search invoked", "query", query, "maxResults", maxResults)
	if maxResults < 1 {
		maxResults = 1
	}
	body, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search request failed with status: %s", resp.Status)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	var b strings.Builder
	if decoded.Answer != "" {
		b.WriteString(decoded.Answer)
	}
	for _, r := range decoded.Results {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s: %s (%s)", r.Title, r.Content, r.URL))
	}
	if b.Len() == 0 {
		return "No results found.", nil
	}
	slog.Debug("TavilyClient.Search succeeded", "query", query, "results", len(decoded.Results))
	return b.String(), nil
}
