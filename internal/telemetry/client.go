// Package telemetry reports fingerprints to the telemetry service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
)

// ErrRejected is returned when the service answers with an unexpected status.
var ErrRejected = errors.New("telemetry request rejected")

// Identity is the client id/token pair issued by the service.
type Identity struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Valid reports whether both halves are present.
func (i Identity) Valid() bool {
	return i.ID != "" && i.Token != ""
}

// Passport is the body of a check-in.
type Passport struct {
	ClientID      string `json:"client_id"`
	ClientToken   string `json:"client_token"`
	ClientVersion string `json:"version"`
	FPVersion     int    `json:"fpv"`
	Fingerprint   string `json:"fp"`
	UserAgent     string `json:"ua"`
	UserAgentData string `json:"uad"`
}

// statusRequest carries the identity under both the field names the
// in-page client sends and the ones the service decodes.
type statusRequest struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	ClientID    string `json:"client_id"`
	ClientToken string `json:"client_token"`
}

// Client speaks the telemetry service's client API.
type Client struct {
	http *req.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetCommonContentType("application/json")
	return &Client{http: c}
}

func (c *Client) request(ctx context.Context) *req.Request {
	id := uuid.NewString()
	slog.DebugContext(ctx, "telemetry request", "request_id", id)
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", id)
}

// Register obtains a new client identity.
func (c *Client) Register(ctx context.Context) (Identity, error) {
	var identity Identity
	resp, err := c.request(ctx).
		SetSuccessResult(&identity).
		Post("/client/register")
	if err != nil {
		return Identity{}, fmt.Errorf("registering client: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return Identity{}, fmt.Errorf("registering client: %w: status %d: %s", ErrRejected, resp.StatusCode, resp.String())
	}
	if !identity.Valid() {
		return Identity{}, fmt.Errorf("registering client: incomplete identity in response")
	}
	return identity, nil
}

// Status reports whether the service recognizes the identity.
func (c *Client) Status(ctx context.Context, id Identity) (bool, error) {
	resp, err := c.request(ctx).
		SetBody(statusRequest{ID: id.ID, Token: id.Token, ClientID: id.ID, ClientToken: id.Token}).
		Post("/client/status")
	if err != nil {
		return false, fmt.Errorf("checking client status: %w", err)
	}
	return resp.StatusCode == http.StatusOK, nil
}

// Checkin submits a fingerprint for the identity.
func (c *Client) Checkin(ctx context.Context, p Passport) error {
	resp, err := c.request(ctx).
		SetBody(p).
		Post("/client/checkin")
	if err != nil {
		return fmt.Errorf("checking in: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checking in: %w: status %d: %s", ErrRejected, resp.StatusCode, resp.String())
	}
	return nil
}
