// Package googlemaps provides a routing-oracle client backed by the
// Google Maps Directions API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/provider/resilience"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultTimeout bounds a single directions call. The oracle never
	// retries internally, so this is also the worst-case blocking time.
	DefaultTimeout = 30 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Directions API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the Google API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a circuit-broken client with no automatic retries.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Maps Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Maps directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		// Retry policy belongs to the caller of the optimizer, not here.
		clientCfg.DisableRetries = true
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetOptimizedRoute asks the Directions API for an optimized stop ordering
// with per-leg distance and duration.
func (c *Client) GetOptimizedRoute(ctx context.Context, req directions.Request) (*directions.Result, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      directions.ErrInvalidRequest,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      directions.ErrInvalidRequest,
		}
	}
	for _, wp := range req.Waypoints {
		if err := wp.Validate(); err != nil {
			return nil, &directions.Error{
				Provider: ProviderName,
				Code:     "INVALID_WAYPOINT",
				Message:  "invalid waypoint coordinates",
				Err:      directions.ErrInvalidRequest,
			}
		}
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Int("waypoint_count", len(req.Waypoints)).
		Bool("avoid_tolls", req.Preferences.AvoidTolls).
		Bool("avoid_highways", req.Preferences.AvoidHighways).
		Msg("requesting optimized route from Google Maps")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing oracle",
			Err:      directions.ErrUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError(resp.StatusCode)
	}

	var apiResp directionsResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if apiResp.Status != statusOK {
		return nil, c.handleStatusError(&apiResp)
	}
	if len(apiResp.Routes) == 0 {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "EMPTY_ROUTES",
			Message:  "oracle returned no routes",
			Err:      directions.ErrNoRouteFound,
		}
	}

	result, err := c.toResult(&apiResp.Routes[0], len(req.Waypoints))
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("leg_count", len(result.Legs)).
		Int("total_distance_m", result.TotalDistanceMeters()).
		Msg("received optimized route from Google Maps")

	return result, nil
}

// buildRequest assembles the Directions API query. All job stops travel as
// intermediate waypoints with optimize:true; origin and destination are the
// route's explicit endpoints.
func (c *Client) buildRequest(ctx context.Context, req directions.Request) (*http.Request, error) {
	params := url.Values{}
	params.Set("origin", formatPoint(req.Origin))
	params.Set("destination", formatPoint(req.Destination))
	params.Set("mode", "driving")
	params.Set("units", "metric")
	params.Set("key", c.apiKey)

	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		parts = append(parts, "optimize:true")
		for _, wp := range req.Waypoints {
			parts = append(parts, formatPoint(wp))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	var avoid []string
	if req.Preferences.AvoidTolls {
		avoid = append(avoid, "tolls")
	}
	if req.Preferences.AvoidHighways {
		avoid = append(avoid, "highways")
	}
	if len(avoid) > 0 {
		params.Set("avoid", strings.Join(avoid, "|"))
	}

	endpoint := fmt.Sprintf("%s/directions/json?%s", c.baseURL, params.Encode())
	return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
}

// handleHTTPError maps transport-level failures to domain errors.
func (c *Client) handleHTTPError(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &directions.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "oracle rate limit exceeded",
			Err:      directions.ErrUnavailable,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &directions.Error{
			Provider: ProviderName,
			Code:     "AUTH",
			Message:  "oracle rejected credentials",
			Err:      directions.ErrUnavailable,
		}
	case statusCode >= 500:
		return &directions.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing oracle is temporarily unavailable",
			Err:      directions.ErrUnavailable,
		}
	default:
		return &directions.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("oracle returned status %d", statusCode),
			Err:      directions.ErrUnavailable,
		}
	}
}

// handleStatusError maps Directions API status codes to domain errors.
func (c *Client) handleStatusError(resp *directionsResponse) error {
	switch resp.Status {
	case statusZeroResults, statusNotFound:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "no route found between the given stops",
			Err:      directions.ErrNoRouteFound,
		}
	case statusInvalidRequest, statusMaxWaypointsExceeded:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  messageOrDefault(resp.ErrorMessage, "oracle rejected the request"),
			Err:      directions.ErrInvalidRequest,
		}
	case statusOverQueryLimit, statusRequestDenied:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  messageOrDefault(resp.ErrorMessage, "oracle quota or access problem"),
			Err:      directions.ErrUnavailable,
		}
	default:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  messageOrDefault(resp.ErrorMessage, "oracle returned an unexpected status"),
			Err:      directions.ErrUnavailable,
		}
	}
}

// toResult converts an API route into the domain result shape.
func (c *Client) toResult(route *apiRoute, waypointCount int) (*directions.Result, error) {
	legs := make([]directions.Leg, 0, len(route.Legs))
	for _, l := range route.Legs {
		legs = append(legs, directions.Leg{
			DistanceMeters:  l.Distance.Value,
			DurationSeconds: l.Duration.Value,
		})
	}

	order := route.WaypointOrder
	if len(order) == 0 && waypointCount > 0 {
		// Some responses omit waypoint_order; that means input order.
		order = identityOrder(waypointCount)
	}
	if len(order) != waypointCount {
		// A truncated order would silently drop stops downstream.
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "MALFORMED_ORDER",
			Message: fmt.Sprintf("oracle returned %d ordered stops for %d waypoints",
				len(order), waypointCount),
			Err: directions.ErrUnavailable,
		}
	}

	return &directions.Result{
		Legs:           legs,
		OptimizedOrder: order,
		EncodedPath:    route.OverviewPolyline.Points,
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}, nil
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func formatPoint(p geo.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lon)
}

func messageOrDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
