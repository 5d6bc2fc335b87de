// Package geoloc acquires device location from the platform geolocation
// collaborator. Every acquisition requests a fresh high-accuracy sample;
// nothing is cached across calls. Concurrent acquisitions coalesce onto one
// in-flight request: the second caller awaits the first caller's result
// rather than issuing a parallel platform call.
package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
)

// Provider yields one coordinate sample per acquisition attempt, or a typed
// *domain.LocationError.
type Provider interface {
	Acquire(ctx context.Context) (domain.Coordinate, error)
}

// Client acquires location over HTTP from a geolocation endpoint. The
// timeout bounds each attempt (5s in the reference configuration).
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	group      singleflight.Group
}

// NewClient creates a location provider against the given endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Acquire requests one fresh location sample. Calls that overlap an
// in-flight acquisition share its result.
func (c *Client) Acquire(ctx context.Context) (domain.Coordinate, error) {
	v, err, _ := c.group.Do("acquire", func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return domain.Coordinate{}, err
	}
	return v.(domain.Coordinate), nil
}

func (c *Client) fetch(ctx context.Context) (domain.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Mirrors the platform contract: high accuracy, no cached sample.
	u := c.endpoint + "?high_accuracy=true&max_age=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationUnavailable}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationTimeout}
		}
		c.logger.Debug("location request failed", "error", err)
		return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationUnavailable}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationPermissionDenied}
	case resp.StatusCode != http.StatusOK:
		return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationUnavailable}
	}

	var coord domain.Coordinate
	if err := json.NewDecoder(resp.Body).Decode(&coord); err != nil {
		return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationUnavailable}
	}
	return coord, nil
}

// Unsupported is the provider used when no geolocation endpoint is
// configured. Every acquisition fails immediately with the unsupported kind,
// which still advances the session out of its awaiting-location state.
type Unsupported struct{}

func (Unsupported) Acquire(context.Context) (domain.Coordinate, error) {
	return domain.Coordinate{}, &domain.LocationError{Kind: domain.LocationUnsupported}
}
