// Package services is a thin REST client for the serving cluster components.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrDecode           = errors.New("decode response")
)

const userAgent = "servdash/1.0"

// Client talks to one cluster component.
type Client struct {
	name string
	base *url.URL
	http *http.Client
}

// NewClient builds a client for the component reachable at baseURL. A zero
// timeout leaves deadlines to the caller's context.
func NewClient(name, baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s url %q: missing scheme or host", name, baseURL)
	}
	return &Client{
		name: name,
		base: u,
		http: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string { return c.name }
func (c *Client) URL() string  { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do issues a request and returns the body of a 200 response.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %w: %d", method, path, ErrUnexpectedStatus, resp.StatusCode)
	}
	return body, nil
}

// GetJSON decodes the body of GET path into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.Do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}
	return nil
}

// Raw fetches path and checks that the body is valid JSON without decoding it.
func (c *Client) Raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	body, err := c.Do(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w %s: invalid json", ErrDecode, path)
	}
	return json.RawMessage(body), nil
}

// Status returns the component's self-reported status.
func (c *Client) Status(ctx context.Context) (string, error) {
	var out struct {
		Status json.RawMessage `json:"status"`
	}
	if err := c.GetJSON(ctx, "/", nil, &out); err != nil {
		return "", err
	}
	return rawText(out.Status), nil
}

// Configuration returns the "configuration" member of path.
func (c *Client) Configuration(ctx context.Context, path string) (json.RawMessage, error) {
	var out struct {
		Configuration json.RawMessage `json:"configuration"`
	}
	if err := c.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Configuration) == 0 {
		return nil, fmt.Errorf("%w %s: no configuration member", ErrDecode, path)
	}
	return out.Configuration, nil
}

// rawText unquotes a JSON string and returns any other value verbatim.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Reason classifies a fetch error for metrics labels.
func Reason(err error) string {
	var netErr interface{ Timeout() bool }
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "transport"
	}
}
