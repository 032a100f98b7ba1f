package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap API endpoint.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// ErrNoWeatherAPIKey is returned when no OpenWeatherMap API key is configured.
var ErrNoWeatherAPIKey = errors.New("OPENWEATHERMAP_API_KEY not set")

// OpenWeatherClient implements WeatherCapability against the OpenWeatherMap API.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenWeatherClient creates an OpenWeatherMap client. Falls back to the
// OPENWEATHERMAP_API_KEY environment variable when no key option is supplied.
func NewOpenWeatherClient(opts ...Option) (*OpenWeatherClient, error) {
	cfg := applyOpts(opts)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENWEATHERMAP_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenWeatherBaseURL
	}
	slog.Debug("OpenWeather client config loaded", "APIKey_set", cfg.APIKey != "", "baseURL", cfg.BaseURL)
	if cfg.APIKey == "" {
		return nil, ErrNoWeatherAPIKey
	}
	return &OpenWeatherClient{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, client: cfg.Client}, nil
}

type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Weather fetches current conditions for a location and summarizes them as text.
func (w *OpenWeatherClient) Weather(ctx context.Context, location string) (string, error) {
	slog.Debug("OpenWeatherClient.Weather invoked", "location", location)
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather request failed with status: %s", resp.Status)
	}

	var decoded openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	description := "clear"
	if len(decoded.Weather) > 0 {
		description = decoded.Weather[0].Description
	}
	summary := fmt.Sprintf("In %s: %s, %.1f°C, humidity %d%%, wind %.1f m/s",
		decoded.Name, description, decoded.Main.Temp, decoded.Main.Humidity, decoded.Wind.Speed)
	slog.Debug("OpenWeatherClient.Weather succeeded", "location", location)
	return summary, nil
}
