package audit

import (
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
)

const (
	// OutcomeOK marks a call that returned a payload.
	OutcomeOK = "ok"

	redacted = "REDACTED"
)

// sensitiveParams never leave the process in clear text.
var sensitiveParams = []string{"token", "access_token", "api_key"}

// Event represents the payload published downstream for one API call.
type Event struct {
	Profile    string    `json:"profile"`
	Mode       string    `json:"mode"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event from a client call outcome.
func NewEvent(o apiclient.Outcome, at time.Time) Event {
	outcome := OutcomeOK
	if o.Failed() {
		outcome = string(o.Kind)
	}
	return Event{
		Profile:    o.Client,
		Mode:       string(o.Mode),
		Method:     o.Method,
		Path:       RedactPath(o.Path),
		Status:     o.Status,
		Outcome:    outcome,
		Message:    o.Message,
		DurationMs: o.Duration.Milliseconds(),
		OccurredAt: at.UTC(),
	}
}

// RedactPath masks credential-like query parameters in path.
func RedactPath(path string) string {
	i := strings.IndexByte(path, '?')
	if i < 0 {
		return path
	}
	query, err := url.ParseQuery(path[i+1:])
	if err != nil {
		return path[:i] + "?" + redacted
	}
	changed := false
	for _, name := range sensitiveParams {
		if _, ok := query[name]; ok {
			query.Set(name, redacted)
			changed = true
		}
	}
	if !changed {
		return path
	}
	return path[:i] + "?" + query.Encode()
}
