// Package webhook is a client for the phone-resolution webhook. The endpoint
// is treated as opaque: the client posts a lookup payload and hands back the
// raw response for the caller to interpret.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/phone-finder/internal/resilience"
)

const (
	// DefaultURL is the production phone finder webhook.
	DefaultURL = "https://eliasse-n8n.onrender.com/webhook/phonefinder"

	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 10 << 20
)

// DefaultUserAgents returns the client identities tried in order for every
// lookup.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Apify-Phone-Finder/1.0",
		"n8n-webhook-caller/1.0",
	}
}

// Client posts lookup payloads to the webhook.
type Client interface {
	// Lookup sends one attempt using userAgent as the client identity. Any
	// HTTP response, whatever its status, is returned without error. An
	// error means no response was received and is always transient.
	Lookup(ctx context.Context, payload Payload, userAgent string) (*Response, error)
}

// Payload is the request body of a single lookup.
type Payload struct {
	CompanyName string   `json:"companyName"`
	Country     *string  `json:"country"`
	PhoneTypes  []string `json:"phoneTypes"`
	MaxResults  int      `json:"maxResults"`
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	Version     string   `json:"version"`
}

// Response is the raw webhook answer.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the webhook answered 200.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Option configures the client.
type Option func(*httpClient)

// WithURL overrides the default webhook URL.
func WithURL(url string) Option {
	return func(c *httpClient) {
		c.url = url
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests at rps per second. Zero or negative
// disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a webhook client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		url:  DefaultURL,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, payload Payload, userAgent string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "webhook: marshal payload")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "webhook: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "webhook: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "webhook: read response"), resp.StatusCode)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}
