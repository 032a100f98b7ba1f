package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/packvote/packvote/internal/models"
)

// defaultPhotonBaseURL is the public Photon geocoding endpoint, which is
// designed for autocomplete workloads.
const defaultPhotonBaseURL = "https://photon.komoot.io"

// photonResponse mirrors the subset of the Photon GeoJSON payload we read.
type photonResponse struct {
	Features []struct {
		Properties photonProperties `json:"properties"`
	} `json:"features"`
}

type photonProperties struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	OSMValue    string `json:"osm_value"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	StateCode   string `json:"state_code"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	CountryCode string `json:"countrycode"`
}

// LocationSuggestion is one autocomplete result.
type LocationSuggestion struct {
	DisplayName string `json:"display_name"`
	FullName    string `json:"full_name"`
}

// locationAutocompleteHandler proxies Photon and reduces its results to a
// short list of populated places matching the query
// (GET /api/location/autocomplete?query=...).
func (s *Server) locationAutocompleteHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	slog.Debug("Server.locationAutocompleteHandler: processing request", "query", query)
	if len(query) < 2 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Query must be at least 2 characters"))
		return
	}

	reqURL := fmt.Sprintf("%s/api?q=%s&limit=8&lang=en", s.photonBase, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, reqURL, nil)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build geocoding request"))
		return
	}
	req.Header.Set("User-Agent", "PackVote/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Server.locationAutocompleteHandler: geocoding request failed", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Location service unavailable"))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Server.locationAutocompleteHandler: geocoding returned non-OK status", "status", resp.StatusCode)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Location service unavailable"))
		return
	}

	var payload photonResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Error("Server.locationAutocompleteHandler: failed to decode geocoding payload", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Location service returned invalid data"))
		return
	}

	suggestions := filterSuggestions(query, payload)
	writeJSONResponse(w, http.StatusOK, models.Success(suggestions))
}

// rankedSuggestion carries the match priority used for ordering before the
// list is trimmed.
type rankedSuggestion struct {
	LocationSuggestion
	priority int
}

// filterSuggestions keeps populated places whose name matches the query,
// ranks prefix matches first, deduplicates, and returns at most five results.
func filterSuggestions(query string, payload photonResponse) []LocationSuggestion {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	seen := make(map[string]bool)
	ranked := make([]rankedSuggestion, 0, len(payload.Features))

	for _, feature := range payload.Features {
		props := feature.Properties
		if !isPopulatedPlace(props) {
			continue
		}

		city := firstNonEmpty(props.City, props.Name, props.Town, props.Village)
		if city == "" {
			continue
		}

		displayName := formatDisplayName(city, props)
		key := strings.ToLower(displayName)
		if seen[key] {
			continue
		}

		cityLower := strings.ToLower(strings.TrimSpace(city))
		priority := 0
		switch {
		case strings.HasPrefix(cityLower, queryLower):
			priority = 2
		case len(queryLower) >= 3 && strings.Contains(cityLower, queryLower):
			priority = 1
		default:
			continue
		}

		seen[key] = true
		ranked = append(ranked, rankedSuggestion{
			LocationSuggestion: LocationSuggestion{DisplayName: displayName, FullName: props.Name},
			priority:           priority,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].priority > ranked[j].priority })
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	out := make([]LocationSuggestion, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.LocationSuggestion)
	}
	return out
}

// isPopulatedPlace filters Photon features to city-like results.
func isPopulatedPlace(props photonProperties) bool {
	validTypes := map[string]bool{
		"city": true, "town": true, "village": true,
		"municipality": true, "administrative": true,
	}
	locationType := strings.ToLower(props.Type)
	osmValue := strings.ToLower(props.OSMValue)
	if validTypes[locationType] || validTypes[osmValue] {
		return true
	}
	if props.Name == "" {
		return false
	}
	placeLike := map[string]bool{"place": true, "administrative": true}
	return placeLike[locationType] || placeLike[osmValue]
}

// formatDisplayName renders "City, State" for US results when a short state
// code exists, otherwise "City, State" or "City, Country".
func formatDisplayName(city string, props photonProperties) string {
	state := firstNonEmpty(props.State, props.StateCode, props.Region)
	isUS := props.Country == "United States" || strings.ToUpper(props.CountryCode) == "US"
	switch {
	case state != "" && isUS:
		if len(props.StateCode) == 2 {
			return city + ", " + props.StateCode
		}
		if len(state) <= 2 {
			return city + ", " + strings.ToUpper(state)
		}
		return city + ", " + state
	case state != "":
		return city + ", " + state
	case props.Country != "":
		return city + ", " + props.Country
	default:
		return city
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
