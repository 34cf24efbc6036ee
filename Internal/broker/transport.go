package broker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every outbound broker call.
const DefaultTimeout = 15 * time.Second

// Response is the raw outcome of one transport attempt.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport executes one HTTP exchange against the broker API. The
// gateway holds an ordered list of transports and walks it on
// network-level failure; all transports speak the identical wire
// contract.
type Transport interface {
	Name() string
	Do(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (*Response, error)
}

// HTTPTransport is a Transport over net/http with a fixed base URL.
type HTTPTransport struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(name, baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Name() string { return t.name }

func (t *HTTPTransport) Do(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (*Response, error) {
	endpoint := t.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
