package audioscrobbler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 1 << 20

// Response is the raw result of a successful exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do sends r once and returns the raw body.
//
// There is no retry here: a failed request surfaces immediately as a
// *TransportError, or as an *Error when the service answered with an
// error document, and the caller decides whether to try again.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	var body io.Reader
	if b := r.Body(); b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Verb, r.FullURL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.Verb == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logDebugf("audioscrobbler: calling %s on %s", r.Method, c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// Error documents are sent with both 200 and 4xx statuses.
	if apiErr := decodeError(data); apiErr != nil {
		c.logDebugf("audioscrobbler: %s failed: %v", r.Method, apiErr)
		return nil, apiErr
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	c.logDebugf("audioscrobbler: %s succeeded", r.Method)
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
