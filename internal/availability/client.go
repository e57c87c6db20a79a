package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FetchError reports a busy-interval fetch that failed after the request
// was sent, either a non-2xx status or a body that did not decode.
type FetchError struct {
	Status int
	Reason string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("availability fetch: status %d", e.Status)
	}
	return "availability fetch: " + e.Reason
}

// Client fetches a user's busy intervals from the availability endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Busy returns the user's busy intervals between from and to. The endpoint
// responds with a JSON array of intervals. A non-2xx response or malformed
// body yields a *FetchError; the caller must treat that as unknown
// availability, not as a free day.
func (c *Client) Busy(ctx context.Context, username string, from, to time.Time) ([]Interval, error) {
	u := fmt.Sprintf("%s/api/availability/%s?dateFrom=%s&dateTo=%s",
		c.BaseURL,
		url.PathEscape(username),
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.Format(time.RFC3339)),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Status: resp.StatusCode}
	}
	var busy []Interval
	if err := json.NewDecoder(resp.Body).Decode(&busy); err != nil {
		return nil, &FetchError{Reason: "decode: " + err.Error()}
	}
	return busy, nil
}
