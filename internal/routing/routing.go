// Package routing estimates travel cost between attractions. The primary
// provider is OpenRouteService driving directions; when no API key is set or
// a request fails, great-circle distance at average driving speed is used
// instead so planning always completes.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/geo"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// DefaultBaseURL is the OpenRouteService API root.
const DefaultBaseURL = "https://api.openrouteservice.org/v2"

// ErrNoRoute is returned when the provider responds without any route.
var ErrNoRoute = errors.New("no route found")

// Provider computes the travel cost between two coordinates.
type Provider interface {
	Route(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (core.RouteInfo, error)
}

// HaversineProvider estimates routes from great-circle distance. It never
// fails, which makes it the terminal fallback.
type HaversineProvider struct{}

// Route returns the straight-line estimate between two points.
func (HaversineProvider) Route(_ context.Context, fromLat, fromLng, toLat, toLng float64) (core.RouteInfo, error) {
	km := geo.Haversine(fromLat, fromLng, toLat, toLng)
	return core.RouteInfo{
		DistanceKm:      km,
		DurationMinutes: geo.TravelMinutes(km),
		Fallback:        true,
	}, nil
}

// ORSProvider queries OpenRouteService driving-car directions, falling back
// to haversine per pair when the API is unreachable or errors.
type ORSProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	fallback   HaversineProvider
}

// NewORS builds a provider from the routing configuration.
func NewORS(cfg config.Routing) *ORSProvider {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &ORSProvider{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout(cfg.Timeout, 10*time.Second)},
	}
}

// NewProvider selects the provider for the given configuration: ORS when an
// API key is present, plain haversine otherwise.
func NewProvider(cfg config.Routing) Provider {
	if cfg.APIKey == "" {
		logger.Info("no routing API key configured, using haversine estimates")
		return HaversineProvider{}
	}
	return NewORS(cfg)
}

type orsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type orsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
	} `json:"routes"`
}

// Route queries ORS for a driving route. Any failure degrades to the
// haversine estimate for this pair only.
func (p *ORSProvider) Route(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (core.RouteInfo, error) {
	info, err := p.query(ctx, fromLat, fromLng, toLat, toLng)
	if err != nil {
		logger.Warn("route lookup failed, using haversine estimate", "error", err)
		return p.fallback.Route(ctx, fromLat, fromLng, toLat, toLng)
	}
	return info, nil
}

func (p *ORSProvider) query(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (core.RouteInfo, error) {
	// ORS expects [lng, lat] pairs.
	body, err := json.Marshal(orsRequest{
		Coordinates: [][]float64{{fromLng, fromLat}, {toLng, toLat}},
	})
	if err != nil {
		return core.RouteInfo{}, fmt.Errorf("failed to marshal directions request: %w", err)
	}

	url := p.baseURL + "/directions/driving-car"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return core.RouteInfo{}, fmt.Errorf("failed to create directions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return core.RouteInfo{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.RouteInfo{}, fmt.Errorf("reading directions response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return core.RouteInfo{}, fmt.Errorf("directions returned status %d", resp.StatusCode)
	}

	var parsed orsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return core.RouteInfo{}, fmt.Errorf("invalid directions response: %w", err)
	}
	if len(parsed.Routes) == 0 {
		return core.RouteInfo{}, ErrNoRoute
	}

	summary := parsed.Routes[0].Summary
	return core.RouteInfo{
		DistanceKm:      summary.Distance / 1000.0,
		DurationMinutes: summary.Duration / 60.0,
		Fallback:        false,
	}, nil
}
