// Package fetch implements the HTTP transport for the StakingRewards
// GraphQL API: request serialization, authentication, rate limiting and the
// error taxonomy callers dispatch retry decisions on.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/yourorg/stake-concentration/internal/otel"
	"github.com/yourorg/stake-concentration/internal/query"
)

const (
	// DefaultEndpoint is the public StakingRewards GraphQL endpoint
	DefaultEndpoint = "https://api.stakingrewards.com/public/query"

	// DefaultBillingURL is the billing status endpoint
	DefaultBillingURL = "https://api.stakingrewards.com/public/billing/status"
)

// Cache stores raw API responses keyed by a query digest. A cache hit is
// treated identically to a live transport result.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, body []byte)
}

// Client executes query specs against the API. Calls are synchronous and
// blocking; concurrent fan-out across assets is the caller's concern.
type Client struct {
	endpoint   string
	billingURL string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	timeout    time.Duration
	retryMax   int
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithBillingURL overrides the billing status endpoint.
func WithBillingURL(url string) Option {
	return func(c *Client) { c.billingURL = url }
}

// WithCache attaches a response cache consulted before the wire.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithRateLimit throttles outgoing requests client-side.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries enables transport-level retries for callers that want them.
// The default is zero: retry policy belongs to the caller.
func WithRetries(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithHTTPClient replaces the underlying HTTP client entirely, mainly for
// tests. It disables the retryablehttp wrapper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an API client for the given key. The credential is passed
// explicitly; reading it from the environment is the entrypoint's job.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &AuthError{Body: "API key must not be empty"}
	}
	c := &Client{
		endpoint:   DefaultEndpoint,
		billingURL: DefaultBillingURL,
		apiKey:     apiKey,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newRetryClient(c.retryMax, c.timeout)
	}
	return c, nil
}

// newRetryClient builds the underlying HTTP client. retryMax 0 keeps the
// retryablehttp wrapper as plain transport plumbing without retries.
func newRetryClient(retryMax int, timeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	if retryMax == 0 {
		// Hand every response back untouched so status handling stays here
		rc.CheckRetry = func(_ context.Context, _ *http.Response, err error) (bool, error) {
			return false, err
		}
	}
	return rc.StandardClient()
}

// graphqlEnvelope mirrors the response body shape {"data": ..., "errors": [...]}.
type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Execute runs a query spec, consulting and populating the cache when one is
// attached. It returns the full decoded response body including the data
// envelope.
func (c *Client) Execute(ctx context.Context, spec query.Spec) (json.RawMessage, error) {
	if c.cache != nil {
		key := spec.CacheKey()
		if body, ok := c.cache.Get(key); ok {
			cacheHits.Inc()
			logrus.WithField("key", key).Debug("Query served from cache")
			return body, nil
		}
		body, err := c.ExecuteFresh(ctx, spec)
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, body)
		return body, nil
	}
	return c.ExecuteFresh(ctx, spec)
}

// ExecuteFresh runs a query spec against the live API, bypassing the cache
// in both directions.
func (c *Client) ExecuteFresh(ctx context.Context, spec query.Spec) (json.RawMessage, error) {
	ctx, span := otel.Tracer().Start(ctx, "stakingrewards.query")
	defer span.End()

	start := time.Now()
	body, err := c.post(ctx, spec)
	status := "success"
	if err != nil {
		status = errorLabel(err)
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("stakingrewards.status", status))
	requestCounter.WithLabelValues(status).Inc()
	requestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return body, err
}

func (c *Client) post(ctx context.Context, spec query.Spec) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, &TransportError{Op: "rate wait", Err: err}
	}

	payload := map[string]any{"query": spec.Query}
	if len(spec.Variables) > 0 {
		payload["variables"] = spec.Variables
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logrus.WithField("endpoint", c.endpoint).Debug("Executing GraphQL query")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "http post", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &TransportError{Op: "decode response", Err: err}
	}
	// The endpoint reports query-level failures as 200 with an errors array.
	if len(envelope.Errors) > 0 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Errors: envelope.Errors}
	}

	return respBody, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// statusError maps a non-2xx HTTP status to the error taxonomy.
func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{StatusCode: code, Body: string(body)}
	case code == http.StatusTooManyRequests:
		return &RateLimitError{StatusCode: code, Body: string(body)}
	default:
		return &UpstreamError{StatusCode: code, Body: string(body)}
	}
}

// errorLabel buckets an error for metric labels.
func errorLabel(err error) string {
	switch err.(type) {
	case *AuthError:
		return "auth_error"
	case *RateLimitError:
		return "rate_limited"
	case *UpstreamError:
		return "upstream_error"
	default:
		return "transport_error"
	}
}
