package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestObservation(t *testing.T) {
	if got := Observation("search", "three results", nil); got != "[search] three results" {
		t.Errorf("unexpected observation: %q", got)
	}
	got := Observation("weather", "", errors.New("connection refused"))
	if !strings.Contains(got, "Tool error") || !strings.Contains(got, "connection refused") {
		t.Errorf("failure observation should carry the error, got %q", got)
	}
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Query != "things to do in Tokyo" || req.MaxResults != 3 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(tavilyResponse{
			Answer: "Tokyo highlights",
			Results: []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Content string `json:"content"`
			}{
				{Title: "Senso-ji", URL: "https://example.com", Content: "Historic temple"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewTavilyClient(WithAPIKey("key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := client.Search(context.Background(), "things to do in Tokyo", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Tokyo highlights") || !strings.Contains(out, "Senso-ji") {
		t.Errorf("unexpected search output: %q", out)
	}
}

func TestTavilySearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewTavilyClient(WithAPIKey("key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Search(context.Background(), "q", 1); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestTavilyNoKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	if _, err := NewTavilyClient(); !errors.Is(err, ErrNoSearchAPIKey) {
		t.Errorf("expected ErrNoSearchAPIKey, got %v", err)
	}
}

func TestOpenWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Tokyo" {
			t.Errorf("unexpected location %q", got)
		}
		if got := r.URL.Query().Get("appid"); got != "key" {
			t.Errorf("api key not forwarded, got %q", got)
		}
		w.Write([]byte(`{"name":"Tokyo","weather":[{"description":"light rain"}],"main":{"temp":21.5,"humidity":60},"wind":{"speed":3.2}}`))
	}))
	defer srv.Close()

	client, err := NewOpenWeatherClient(WithAPIKey("key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := client.Weather(context.Background(), "Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Tokyo") || !strings.Contains(out, "light rain") {
		t.Errorf("unexpected weather summary: %q", out)
	}
}

func TestOpenWeatherNoKey(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_API_KEY", "")
	if _, err := NewOpenWeatherClient(); !errors.Is(err, ErrNoWeatherAPIKey) {
		t.Errorf("expected ErrNoWeatherAPIKey, got %v", err)
	}
}
