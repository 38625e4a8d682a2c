package httpclient

import "context"

// Request describes a single outbound call. A nil Body means no payload is sent.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	// StatusText is the reason phrase only ("Not Found"), empty when the server sent none.
	StatusText() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}
