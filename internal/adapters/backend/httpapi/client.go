// Package httpapi implements the coordination backend's
// request/response endpoints: pairing, device registration, session
// recovery, unpairing, and snapshot pushes. These ride plain HTTP, not
// the duplex connection.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// Compile-time check that Client implements BackendPort.
var _ ports.BackendPort = (*Client)(nil)

// Config holds backend client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client handles HTTP communication with the coordination backend.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new backend API client.
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

type pairRequest struct {
	Code string `json:"code"`
}

type pairResponse struct {
	SessionToken string    `json:"session_token"`
	DeviceID     string    `json:"device_id"`
	RemoteUserID string    `json:"remote_user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Pair exchanges a pairing code for a session. A rejected code yields
// ErrInvalidCode; everything else is a transport error.
func (c *Client) Pair(ctx context.Context, code string) (*ports.PairResult, error) {
	if code == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "pairing code is required", nil)
	}

	body, err := json.Marshal(pairRequest{Code: code})
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeTransport, "failed to marshal request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/pair", body, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized, http.StatusGone:
		drain(resp.Body)
		return nil, domainErrors.NewError(domainErrors.CodeAuth,
			"pairing code rejected", domainErrors.ErrInvalidCode)
	default:
		return nil, c.unexpectedStatus(resp)
	}

	var result pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeTransport, "failed to decode pair response", err)
	}

	return &ports.PairResult{
		SessionToken: result.SessionToken,
		DeviceID:     result.DeviceID,
		RemoteUserID: result.RemoteUserID,
		ExpiresAt:    result.ExpiresAt,
	}, nil
}

type registerRequest struct {
	DeviceID string `json:"device_id"`
	Label    string `json:"label"`
}

// RegisterDevice associates a human-readable label with the device.
func (c *Client) RegisterDevice(ctx context.Context, deviceID, label string) error {
	body, err := json.Marshal(registerRequest{DeviceID: deviceID, Label: label})
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeTransport, "failed to marshal request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/devices/register", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return c.unexpectedStatus(resp)
	}
	return nil
}

type recoverRequest struct {
	DeviceID     string `json:"device_id"`
	RemoteUserID string `json:"remote_user_id"`
}

type recoverResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Recover exchanges the stable identity pair for a fresh session token.
// A backend rejection yields a RECOVERY-coded error; transport trouble
// stays TRANSPORT so the caller can distinguish "said no" from
// "unreachable".
func (c *Client) Recover(ctx context.Context, deviceID, remoteUserID string) (*ports.RecoverResult, error) {
	body, err := json.Marshal(recoverRequest{DeviceID: deviceID, RemoteUserID: remoteUserID})
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeTransport, "failed to marshal request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/sessions/recover", body, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		drain(resp.Body)
		return nil, domainErrors.NewError(domainErrors.CodeRecovery,
			"backend rejected session recovery", domainErrors.ErrSessionExpired)
	default:
		return nil, c.unexpectedStatus(resp)
	}

	var result recoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeTransport, "failed to decode recover response", err)
	}

	return &ports.RecoverResult{
		SessionToken: result.SessionToken,
		ExpiresAt:    result.ExpiresAt,
	}, nil
}

// Unpair invalidates the session on the backend.
func (c *Client) Unpair(ctx context.Context, sessionToken string) error {
	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/sessions/unpair", nil, sessionToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.unexpectedStatus(resp)
	}
	return nil
}

// PushSnapshot transmits a full local state snapshot.
func (c *Client) PushSnapshot(ctx context.Context, token string, snap *dsync.OutboundSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeTransport, "failed to marshal snapshot", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPut, "/snapshot", body, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		drain(resp.Body)
		return domainErrors.NewError(domainErrors.CodeAuth, "snapshot push rejected", nil)
	default:
		return c.unexpectedStatus(resp)
	}
}

// doRequestWithRetry performs an HTTP request, retrying transient
// failures (connection errors, 429, 5xx) with exponential backoff.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var lastErr error

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, domainErrors.NewError(domainErrors.CodeTransport, "request cancelled", ctx.Err())
			case <-time.After(bo.NextBackOff()):
			}
		}

		req, err := c.newRequest(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Retry on rate limit (429) or server errors (5xx)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, domainErrors.NewError(domainErrors.CodeTransport,
		fmt.Sprintf("request failed after %d attempts", c.config.MaxRetries+1), lastErr)
}

// newRequest creates a new HTTP request with required headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, token string) (*http.Request, error) {
	url := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeTransport, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (c *Client) unexpectedStatus(resp *http.Response) error {
	drain(resp.Body)
	return domainErrors.NewError(domainErrors.CodeTransport,
		fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL.Path), nil)
}

func drain(r io.Reader) {
	io.Copy(io.Discard, io.LimitReader(r, 4096))
}
