// Package apiclient performs authenticated JSON calls against a fixed backend
// origin and normalizes every outcome into a decoded payload or an *Error.
//
// Two modes exist. Stored-credential mode reads a bearer token from a
// CredentialProvider on every call and sends it as an Authorization header.
// Explicit-token mode takes the token from the caller and appends it to the
// request path as the "token" query parameter.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-ops-client/pkg/httpclient"
)

// CredentialProvider yields the bearer token for stored-credential mode.
// An empty token means no credential is available.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) { return f(ctx) }

// StaticCredential always returns the same token.
func StaticCredential(token string) CredentialProvider {
	return CredentialFunc(func(context.Context) (string, error) { return token, nil })
}

// Validator is checked after decoding in strict mode.
type Validator interface {
	Validate() error
}

// Options describes a single request. A nil Body sends no payload.
type Options struct {
	Method string
	Body   any
	// Strict overrides the client's decoding mode for this call.
	Strict *bool
}

// Client is safe for concurrent use. Calls share no mutable state.
type Client struct {
	name     string
	baseURL  string
	http     httpclient.Client
	creds    CredentialProvider
	headers  map[string]string
	log      Logger
	recorder Recorder
	strict   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Defaults to a resty client without timeout.
func WithHTTPClient(h httpclient.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithCredentials sets the provider consulted in stored-credential mode.
func WithCredentials(p CredentialProvider) Option {
	return func(c *Client) { c.creds = p }
}

// WithHeaders adds static headers to every request. Names are matched
// case-insensitively. Content-Type and Authorization are always controlled by
// the client, so entries for them are ignored.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			key := http.CanonicalHeaderKey(strings.TrimSpace(k))
			if key == "" || reservedHeaders[key] {
				continue
			}
			c.headers[key] = v
		}
	}
}

var reservedHeaders = map[string]bool{
	"Authorization": true,
	"Content-Type":  true,
}

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.log = ensureLogger(l) }
}

// WithRecorder registers a hook that observes every call outcome.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithStrictDecoding turns unparseable or mismatched success bodies into
// KindInvalidResponse errors instead of substituting an empty object.
func WithStrictDecoding(strict bool) Option {
	return func(c *Client) { c.strict = strict }
}

// WithName labels the client in logs and recorded outcomes.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// New builds a client for the given backend origin, e.g. "https://api.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		headers: make(map[string]string),
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(0)
	}
	return c
}

// BaseURL returns the origin every path is appended to.
func (c *Client) BaseURL() string { return c.baseURL }

// Do performs a stored-credential call and decodes a successful body into out.
// out may be nil to discard the payload.
func (c *Client) Do(ctx context.Context, path string, opts Options, out any) error {
	return c.execute(ctx, call{path: path, mode: ModeStored, opts: opts}, out)
}

// DoWithToken performs an explicit-token call and decodes a successful body into out.
func (c *Client) DoWithToken(ctx context.Context, path, token string, opts Options, out any) error {
	return c.execute(ctx, call{path: path, token: token, mode: ModeToken, opts: opts}, out)
}

// Fetch performs a stored-credential call and returns the payload as T.
func Fetch[T any](ctx context.Context, c *Client, path string, opts Options) (T, error) {
	var out T
	if err := c.Do(ctx, path, opts, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// FetchWithToken performs an explicit-token call and returns the payload as T.
func FetchWithToken[T any](ctx context.Context, c *Client, path, token string, opts Options) (T, error) {
	var out T
	if err := c.DoWithToken(ctx, path, token, opts, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Mode is the way a call attaches its credential.
type Mode string

const (
	ModeStored Mode = "stored"
	ModeToken  Mode = "token"
)

type call struct {
	path  string
	token string
	mode  Mode
	opts  Options
}

func (c *Client) execute(ctx context.Context, in call, out any) error {
	start := time.Now()
	method := normalizeMethod(in.opts.Method)

	status, err := c.roundTrip(ctx, method, in, out)
	c.record(ctx, Outcome{
		Client:   c.name,
		Mode:     in.mode,
		Method:   method,
		Path:     in.path,
		Status:   status,
		Duration: time.Since(start),
	}, err)
	if err != nil {
		return err
	}
	return nil
}

// roundTrip returns the response status (0 when none was received) and a nil
// error or an *Error.
func (c *Client) roundTrip(ctx context.Context, method string, in call, out any) (int, error) {
	headers := make(map[string]string, len(c.headers)+2)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"

	target := c.baseURL + in.path
	switch in.mode {
	case ModeToken:
		target = c.baseURL + TokenPath(in.path, in.token)
	default:
		token, err := c.credential(ctx)
		if token == "" {
			return 0, unauthenticated(err)
		}
		headers["Authorization"] = "Bearer " + token
	}

	if !strings.HasPrefix(in.path, "/") {
		return 0, invalidRequest(fmt.Sprintf("path must be server-relative (start with '/'), got %q", in.path), nil)
	}

	var body []byte
	if in.opts.Body != nil {
		raw, err := json.Marshal(in.opts.Body)
		if err != nil {
			return 0, invalidRequest("encode request body", err)
		}
		// a typed nil (e.g. a nil pointer) means "no body", same as a nil interface
		if string(raw) != "null" {
			body = raw
		}
	}

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return 0, transportError(err)
	}

	strict := c.strict
	if in.opts.Strict != nil {
		strict = *in.opts.Strict
	}
	if apiErr := normalize(resp, strict, out); apiErr != nil {
		return resp.StatusCode(), apiErr
	}
	return resp.StatusCode(), nil
}

func (c *Client) credential(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", nil
	}
	token, err := c.creds.Credential(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", nil
	}
	return token, nil
}

// TokenPath appends token as a URL-encoded "token" query parameter, keeping
// any query string already present on path.
func TokenPath(path, token string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "token=" + url.QueryEscape(token)
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return http.MethodGet
	}
	return m
}
