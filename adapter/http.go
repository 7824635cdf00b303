package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// httpBodyLimit bounds how much of a response body is read. Tool
// endpoints returning more than this are misconfigured, not streamed.
const httpBodyLimit = 8 << 20

// HTTPAdapter invokes tools exposed as HTTP endpoints. Parameters are
// POSTed as a JSON body; the response body is decoded as JSON.
//
// Endpoint keys: "url" (required), "method" (default POST), and
// "headers" (optional map of extra request headers).
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter creates an HTTP adapter. A nil client uses a dedicated
// default client; the per-attempt timeout is applied via context either way.
func NewHTTPAdapter(client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPAdapter{client: client}
}

// Invoke performs one HTTP call. Status handling:
//   - 2xx decodes the body as the raw result
//   - 408 and 504 report CategoryTimeout
//   - 429 reports CategoryUnknown with StatusCode 429, which the
//     engine's classifier maps to rate_limit
//   - other non-2xx statuses report CategoryTransport
func (a *HTTPAdapter) Invoke(ctx context.Context, endpoint map[string]any, params map[string]any, timeout time.Duration) (any, error) {
	url, _ := endpoint["url"].(string)
	if url == "" {
		return nil, &Error{Category: CategoryUnknown, Message: "endpoint.url is required"}
	}

	method, _ := endpoint["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: "failed to encode parameters", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := endpoint["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, categorizeTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, httpBodyLimit))
	if err != nil {
		return nil, categorizeTransport(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to decode.
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &Error{Category: CategoryTimeout, StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("endpoint returned status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Category: CategoryUnknown, StatusCode: resp.StatusCode,
			Message: "endpoint rate limited the request"}
	default:
		return nil, &Error{Category: CategoryTransport, StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("endpoint returned status %d", resp.StatusCode)}
	}

	if len(data) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: "failed to decode response body", Cause: err}
	}
	return result, nil
}

// categorizeTransport maps Go-level HTTP failures onto adapter categories.
func categorizeTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryTimeout, Message: "request exceeded timeout", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Category: CategoryTimeout, Message: "network timeout", Cause: err}
	}
	return &Error{Category: CategoryTransport, Message: "request failed", Cause: err}
}
