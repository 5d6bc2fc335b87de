// Package upstream is the HTTP client for the occupancy/action service.
// The service is an external collaborator; this adapter converts its wire
// responses into domain updates and its failures into the domain error
// taxonomy. Responses may be partially populated: numeric fields default to
// zero and departures to an empty list, never a decode failure.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
)

// Client calls the upstream occupancy service. All requests share one
// timeout-bearing http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an occupancy service client for the given base URL,
// e.g. "http://localhost:5001/api".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchLot retrieves the current occupancy of a standard lot.
func (c *Client) FetchLot(ctx context.Context, path, lotName string) (domain.LotUpdate, error) {
	u := fmt.Sprintf("%s/lot/%s?lot_name=%s", c.baseURL, url.PathEscape(path), url.QueryEscape(lotName))

	var resp lotResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return domain.LotUpdate{}, err
	}
	return resp.toUpdate(), nil
}

// FetchLiveCV retrieves the live detector counts.
func (c *Client) FetchLiveCV(ctx context.Context) (domain.LiveCVUpdate, error) {
	var resp liveCVResponse
	if err := c.get(ctx, c.baseURL+"/lot/live-cv-data", &resp); err != nil {
		return domain.LiveCVUpdate{}, err
	}
	return domain.LiveCVUpdate{
		Free:        resp.Free,
		Occupied:    resp.Occupied,
		Total:       resp.Total,
		LastUpdated: resp.LastUpdated,
	}, nil
}

// SubmitSchedule posts a planned departure time for a lot. Location is
// best-effort and may be nil.
func (c *Client) SubmitSchedule(ctx context.Context, lotName, departureTime string, loc *domain.Coordinate) error {
	body := scheduleRequest{
		LotName:       lotName,
		DepartureTime: departureTime,
		Location:      loc,
	}
	return c.post(ctx, c.baseURL+"/submit-schedule", body, nil)
}

// LeavingSoon reports that the user is vacating a spot. The response may
// echo refreshed occupancy fields and departures.
func (c *Client) LeavingSoon(ctx context.Context, lotName string, loc domain.Coordinate) (domain.ActionUpdate, error) {
	body := leavingSoonRequest{
		LotName:       lotName,
		UserLatitude:  loc.Latitude,
		UserLongitude: loc.Longitude,
	}
	var resp lotResponse
	if err := c.post(ctx, c.baseURL+"/leaving-soon", body, &resp); err != nil {
		return domain.ActionUpdate{}, err
	}
	return domain.ActionUpdate(resp.toUpdate()), nil
}

func (c *Client) get(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, fullURL string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(resp.Body)
		c.logger.Debug("upstream request failed", "url", req.URL.Path, "status", resp.StatusCode, "message", msg)
		return &domain.UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// errorMessage pulls the upstream {message} field out of an error body,
// falling back to the raw text.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

// Wire types.

type lotResponse struct {
	AvailableSpots *int                    `json:"available_spots"`
	LeavingSoon    int                     `json:"leaving_soon"`
	TotalSpots     int                     `json:"total_spots"`
	Departures     []domain.DepartureEntry `json:"departures"`
}

func (r lotResponse) toUpdate() domain.LotUpdate {
	return domain.LotUpdate{
		AvailableSpots: r.AvailableSpots,
		LeavingSoon:    r.LeavingSoon,
		TotalSpots:     r.TotalSpots,
		Departures:     r.Departures,
	}
}

type liveCVResponse struct {
	Free        int    `json:"free"`
	Occupied    int    `json:"occupied"`
	Total       int    `json:"total"`
	LastUpdated string `json:"last_updated"`
}

type scheduleRequest struct {
	LotName       string             `json:"lot_name"`
	DepartureTime string             `json:"departure_time"`
	Location      *domain.Coordinate `json:"location"`
}

type leavingSoonRequest struct {
	LotName       string  `json:"lot_name"`
	UserLatitude  float64 `json:"user_latitude"`
	UserLongitude float64 `json:"user_longitude"`
}
