package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithLogger routes resty's own warnings through the given printf-style logger.
func WithLogger(l resty.Logger) Option {
	return func(c *resty.Client) {
		if l != nil {
			c.SetLogger(l)
		}
	}
}

// WithTransport replaces the round tripper, mostly useful in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) {
		if rt != nil {
			c.SetTransport(rt)
		}
	}
}

// NewRestyClient creates a new RestyClient with the specified timeout. A zero timeout disables it.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	c := newRestyBaseClient(timeout)
	for _, opt := range opts {
		opt(c)
	}
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing the full API.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
// Retries stay disabled: one call is one request.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	c.SetAllowGetMethodPayload(true)
	return c
}

// Do performs the request with the specified context.
func (r *RestyClient) Do(ctx context.Context, in Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if method == "" {
		method = http.MethodGet
	}

	req := r.client.R().SetContext(ctx)
	if len(in.Headers) > 0 {
		req.SetHeaders(in.Headers)
	}
	if in.Body != nil {
		req.SetBody(in.Body)
	}

	resp, err := req.Execute(method, in.URL)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte       { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int    { return r.resp.StatusCode() }
func (r *restyResponseAdapter) StatusText() string { return ReasonPhrase(r.resp.Status(), r.resp.StatusCode()) }

// ReasonPhrase strips the numeric code from a status line such as "404 Not Found".
func ReasonPhrase(status string, code int) string {
	status = strings.TrimSpace(status)
	prefix := strconv.Itoa(code)
	if strings.HasPrefix(status, prefix) {
		status = strings.TrimSpace(strings.TrimPrefix(status, prefix))
	}
	return status
}
