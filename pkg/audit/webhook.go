package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-ops-client/pkg/httpclient"
)

const webhookSnippetLimit = 512

// webhookSink posts each event as JSON to an HTTP endpoint.
type webhookSink struct {
	id     string
	method string
	url    string
	client *resty.Client
}

func openWebhookSink(_ context.Context, cfg SinkConfig, _ Logger) (Sink, error) {
	hc := cfg.HTTP
	if hc == nil {
		return nil, fmt.Errorf("sink %q has no http block", cfg.ID)
	}
	method := hc.Method
	if method == "" {
		method = httpDefaultMethod
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(hc.TimeoutSeconds) * time.Second).
		SetHeaders(hc.Headers).
		SetHeader("Content-Type", "application/json")

	return &webhookSink{id: cfg.ID, method: method, url: hc.URL, client: client}, nil
}

func (w *webhookSink) ID() string   { return w.id }
func (w *webhookSink) Type() string { return TypeHTTP }

func (w *webhookSink) Deliver(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > webhookSnippetLimit {
		body = body[:webhookSnippetLimit]
	}
	return strings.TrimSpace(string(body))
}
