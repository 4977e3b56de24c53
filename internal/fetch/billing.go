package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// BillingStatus fetches the caller's remaining credits and plan information.
// The response is a pure passthrough of the upstream body; it is never
// cached.
func (c *Client) BillingStatus(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.billingURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logrus.WithField("endpoint", c.billingURL).Debug("Fetching billing status")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "http get", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
