package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/checkout/internal/domain/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IdempotencyKeyHeader lets collaborators deduplicate retried calls
const IdempotencyKeyHeader = "Idempotency-Key"

const maxResponseBody = 1 << 20

// ErrUnavailable marks transport failures and 5xx/429 answers
var ErrUnavailable = shared.ErrServiceUnavailable

// StatusError is a non-2xx answer from a collaborator
type StatusError struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: HTTP %d %s: %s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Service, e.Status)
}

// Temporary reports whether retrying later may succeed
func (e *StatusError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Is lets callers match a 404 with shared.ErrNotFound and temporary answers with ErrUnavailable
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Temporary()
	case shared.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// envelope is the response shape shared by the ERP services
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ClientOption configures a collaborator client
type ClientOption func(*httpClient)

// WithTransport replaces the traced default transport
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *httpClient) {
		c.client.Transport = rt
	}
}

// WithHeader adds a static header to every request, e.g. a service token
func WithHeader(key, value string) ClientOption {
	return func(c *httpClient) {
		c.headers.Set(key, value)
	}
}

type httpClient struct {
	service string
	baseURL string
	client  *http.Client
	headers http.Header
}

func newHTTPClient(service, baseURL string, timeout time.Duration, opts ...ClientOption) *httpClient {
	c := &httpClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends in as JSON and decodes the envelope's data into out. Either may be nil.
func (c *httpClient) do(ctx context.Context, method, path, idempotencyKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.service, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.service, err)
	}
	for k, vs := range c.headers {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", c.service, ctxErr)
		}
		return fmt.Errorf("%s: %w: %v", c.service, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: %w: read response: %v", c.service, ErrUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Service: c.service, Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			se.Code, se.Message = env.Error.Code, env.Error.Message
		}
		return se
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: response has no data", c.service)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode response data: %w", c.service, err)
	}
	return nil
}
