// Package remote is the HTTP client for the hospital API that owns the
// authoritative patient records.
package remote

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

	"github.com/heartmarshall/wardsync/internal/config"
	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/pkg/ctxutil"
)

// maxBodyBytes caps how much of a response body is kept.
const maxBodyBytes = 1 << 20

// tokenSource yields the bearer token at call time. An empty token means the
// request is sent without an Authorization header.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Response is a 2xx reply from the remote API.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client sends JSON requests to the remote API.
type Client struct {
	baseURL          *url.URL
	patientsEndpoint string
	httpClient       *http.Client
	tokens           tokenSource
	log              *slog.Logger
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg config.RemoteConfig, tokens tokenSource, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}

	return &Client{
		baseURL:          base,
		patientsEndpoint: cfg.PatientsEndpoint,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		tokens:           tokens,
		log:              logger.With("adapter", "remote"),
	}, nil
}

// PatientsEndpoint is the endpoint new patients are posted to.
func (c *Client) PatientsEndpoint() string {
	return c.patientsEndpoint
}

// Send issues method against endpoint with body as the JSON payload.
// Any transport failure or non-2xx status is returned as a
// *domain.RemoteWriteError.
func (c *Client) Send(ctx context.Context, method, endpoint string, body json.RawMessage) (*Response, error) {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, &domain.RemoteWriteError{Method: method, Endpoint: endpoint, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "remote request failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, &domain.RemoteWriteError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.RemoteWriteError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WarnContext(ctx, "remote request rejected",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &domain.RemoteWriteError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	c.log.DebugContext(ctx, "remote request ok",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// CreatePatient posts a new patient and returns the server-assigned id.
func (c *Client) CreatePatient(ctx context.Context, payload json.RawMessage) (string, error) {
	resp, err := c.Send(ctx, http.MethodPost, c.patientsEndpoint, payload)
	if err != nil {
		return "", err
	}

	var out struct {
		ID any `json:"id"`
	}
	if len(resp.Body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return "", fmt.Errorf("remote: decode create response: %w", err)
		}
	}

	// The API returns the id as a string, older versions as a number.
	switch id := out.ID.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("remote: create response id has unexpected type %T", id)
	}
}

// Probe performs an unauthenticated GET on path and reports whether the API
// answered with a non-5xx status.
func (c *Client) Probe(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("remote: create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= 500 {
		return fmt.Errorf("remote: probe: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body json.RawMessage) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 && string(body) != "null" {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id, ok := ctxutil.SubmissionIDFromCtx(ctx); ok {
		req.Header.Set("X-Submission-Id", id.String())
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "read auth token failed, sending unauthenticated", slog.String("error", err.Error()))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// resolve joins a relative endpoint onto the base URL. Absolute URLs are
// used as they are.
func (c *Client) resolve(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.IsAbs() {
		return endpoint
	}
	base := strings.TrimRight(c.baseURL.String(), "/")
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
