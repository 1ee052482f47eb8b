// Package schwab provides a typed client for the Schwab Trader and Market
// Data REST APIs: quotes, price history, option chains, accounts and
// positions, and order placement. Higher-level helpers derive values the
// API does not return directly, such as the risk-free rate and
// reconstructed put credit spreads.
package schwab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://api.schwabapi.com"

	traderPath     = "/trader/v1"
	marketDataPath = "/marketdata/v1"
)

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Client is a typed HTTP client for the brokerage REST API. The zero value
// is not usable; construct with New or NewWithBaseURL.
type Client struct {
	client      *http.Client
	accessToken string
	baseURL     string
	timeout     time.Duration // configurable timeout for HTTP requests
}

// New creates a new Client with default settings. accessToken is the OAuth
// bearer token obtained out of band; token acquisition and refresh are the
// caller's responsibility.
func New(accessToken string) *Client {
	return NewWithBaseURL(accessToken, "")
}

// NewWithBaseURL creates a new Client with an optional custom baseURL
// (tests, proxies). An empty baseURL selects the production endpoint.
func NewWithBaseURL(accessToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	// Normalize once
	baseURL = strings.TrimRight(baseURL, "/")

	const defaultTimeout = 10 * time.Second
	return &Client{
		client:      &http.Client{Timeout: defaultTimeout},
		accessToken: accessToken,
		baseURL:     baseURL,
		timeout:     defaultTimeout,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.client = h
	}
	return c
}

// WithTimeout sets the HTTP client timeout duration.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	if c.client != nil {
		c.client.Timeout = timeout
	}
	return c
}

func (c *Client) trader(format string, args ...interface{}) string {
	return c.baseURL + traderPath + fmt.Sprintf(format, args...)
}

func (c *Client) marketData(format string, args ...interface{}) string {
	return c.baseURL + marketDataPath + fmt.Sprintf(format, args...)
}

// doCtx builds and executes one request. body, when non-nil, is sent as a
// JSON document. On a non-success status the capped response body is
// surfaced inside an *APIError. On success the response body is left open
// for the caller to consume and close.
func (c *Client) doCtx(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var req *http.Request
	var err error

	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("encoding request body: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Add("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Add("Authorization", "Bearer "+c.accessToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "putspread/1.0 (+schwab)")
	// Correlation id for support tickets; the API echoes it back.
	req.Header.Add("Schwab-Client-CorrelId", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return resp, nil
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Failed to close response body: %v", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
	}
	ct := resp.Header.Get("Content-Type")
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		return nil, &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s (retry-after: %s)", method, endpoint, ct, string(raw), ra)}
	}
	return nil, &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s", method, endpoint, ct, string(raw))}
}

// makeRequestCtx executes a request and decodes the JSON response into
// response when it is non-nil.
func (c *Client) makeRequestCtx(ctx context.Context, method, endpoint string, body, response interface{}) error {
	resp, err := c.doCtx(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Failed to close response body: %v", cerr)
		}
	}()

	if resp.StatusCode == http.StatusNoContent || response == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
