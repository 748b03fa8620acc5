package api

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

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("backend unreachable")
	// ErrDecode wraps response bodies that are not the expected JSON.
	ErrDecode = errors.New("invalid backend response")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	// Message is the server's "error" field, empty when absent.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// MessageOr returns the backend's error message for err, or fallback when
// err carries none.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// TokenSource mints the bearer token attached to every request.
type TokenSource func() (string, error)

// Client talks to the fleet backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	token   TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.token = ts
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Vehicles fetches GET /api/vehicles.
func (c *Client) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	var out []models.Vehicle
	if err := c.do(ctx, http.MethodGet, "/api/vehicles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FleetStats fetches GET /api/fleet-stats.
func (c *Client) FleetStats(ctx context.Context) (models.FleetStats, error) {
	var out models.FleetStats
	err := c.do(ctx, http.MethodGet, "/api/fleet-stats", nil, &out)
	return out, err
}

// Checkouts fetches GET /api/reports/checkouts.
func (c *Client) Checkouts(ctx context.Context) ([]models.Checkout, error) {
	var out []models.Checkout
	if err := c.do(ctx, http.MethodGet, "/api/reports/checkouts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaintenanceRecords fetches GET /api/reports/maintenance.
func (c *Client) MaintenanceRecords(ctx context.Context) ([]models.Maintenance, error) {
	var out []models.Maintenance
	if err := c.do(ctx, http.MethodGet, "/api/reports/maintenance", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Checkout posts a vehicle checkout.
func (c *Client) Checkout(ctx context.Context, req models.CheckoutRequest) error {
	return c.do(ctx, http.MethodPost, "/api/checkout", req, nil)
}

// Return posts a vehicle return.
func (c *Client) Return(ctx context.Context, req models.ReturnRequest) error {
	return c.do(ctx, http.MethodPost, "/api/return", req, nil)
}

// ScheduleMaintenance posts a new maintenance record.
func (c *Client) ScheduleMaintenance(ctx context.Context, req models.MaintenanceRequest) error {
	return c.do(ctx, http.MethodPost, "/api/maintenance", req, nil)
}

// CompleteMaintenance marks a maintenance record complete.
func (c *Client) CompleteMaintenance(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/maintenance/%d/complete", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return fmt.Errorf("failed to mint service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}

	log.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		// a non-JSON error body still yields an APIError, just without a message
		_ = json.Unmarshal(data, &payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecode, method, path, err)
	}
	return nil
}
