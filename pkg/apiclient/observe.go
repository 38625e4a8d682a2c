package apiclient

import (
	"context"
	"time"
)

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// Outcome summarizes one call. Path is the caller's path; an explicit token is
// never part of it.
type Outcome struct {
	Client   string
	Mode     Mode
	Method   string
	Path     string
	Status   int
	Kind     Kind
	Message  string
	Duration time.Duration
}

// Failed reports whether the call ended in an error.
func (o Outcome) Failed() bool { return o.Kind != "" }

// Recorder observes call outcomes. It must not block for long; it runs on the caller's goroutine.
type Recorder interface {
	Record(ctx context.Context, o Outcome)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, o Outcome)

func (f RecorderFunc) Record(ctx context.Context, o Outcome) { f(ctx, o) }

func (c *Client) record(ctx context.Context, o Outcome, err error) {
	if apiErr, ok := AsError(err); ok {
		o.Kind = apiErr.Kind
		o.Message = apiErr.Message
		if o.Status == 0 {
			o.Status = apiErr.Status
		}
	}

	c.log.DebugObj("api request completed", "api_request", map[string]any{
		"client":     o.Client,
		"mode":       string(o.Mode),
		"method":     o.Method,
		"path":       o.Path,
		"status":     o.Status,
		"kind":       string(o.Kind),
		"elapsed_ms": o.Duration.Milliseconds(),
	})

	if c.recorder != nil {
		c.recorder.Record(ctx, o)
	}
}
