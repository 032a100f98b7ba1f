// Package tools provides the research capabilities consumed by the itinerary
// drafting stage: web search and weather lookup.
//
// Tool failures are never fatal to a stage. The Observation helper converts
// any failure into text the generation model can react to, mirroring the
// recovery contract at the tool-call boundary.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/packvote/packvote/internal/metrics"
)

// SearchCapability returns textual search results for a query.
type SearchCapability interface {
	Search(ctx context.Context, query string, maxResults int) (string, error)
}

// WeatherCapability returns a textual weather summary for a location.
type WeatherCapability interface {
	Weather(ctx context.Context, location string) (string, error)
}

// DefaultHTTPTimeout bounds every outbound tool call.
const DefaultHTTPTimeout = 10 * time.Second

// Opts holds configuration options for tool clients.
type Opts struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// Option defines a configuration option for tool clients.
type Option func(*Opts)

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.Client = c }
}

func applyOpts(opts []Option) Opts {
	cfg := Opts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return cfg
}

// Observation renders a tool result as text for the generation model. On
// failure it produces an error observation instead of propagating, so a broken
// tool degrades the draft rather than aborting the stage.
func Observation(tool, result string, err error) string {
	if err != nil {
		slog.Warn("Tool call failed, converting to observation", "tool", tool, "error", err)
		metrics.RecordToolError(tool)
		return fmt.Sprintf("[%s] Tool error: please check your input and try again. (%v)", tool, err)
	}
	return fmt.Sprintf("[%s] %s", tool, result)
}
