package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sink delivers audit events to a single destination.
type Sink interface {
	ID() string
	Type() string
	Deliver(ctx context.Context, evt Event) error
}

// Logger is the structured logging surface sinks write to.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type quietLogger struct{}

func (quietLogger) InfoObj(string, string, interface{})  {}
func (quietLogger) DebugObj(string, string, interface{}) {}
func (quietLogger) WarnObj(string, string, interface{})  {}
func (quietLogger) ErrorObj(string, string, interface{}) {}

func orQuiet(log Logger) Logger {
	if log == nil {
		return quietLogger{}
	}
	return log
}

// Opener constructs a Sink from its config entry.
type Opener func(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error)

var openers = map[string]Opener{
	TypeLog:    openLogSink,
	TypeHTTP:   openWebhookSink,
	TypeSQS:    openSQSSink,
	TypeSNS:    openSNSSink,
	TypePubSub: openPubSubSink,
}

// OpenAll opens one sink per config entry, in order. If any entry fails, the
// sinks opened so far are closed and the error is returned.
func OpenAll(ctx context.Context, cfgs []SinkConfig, log Logger) ([]Sink, error) {
	return openWith(ctx, openers, cfgs, log)
}

func openWith(ctx context.Context, table map[string]Opener, cfgs []SinkConfig, log Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for _, cfg := range cfgs {
		open := table[strings.ToLower(strings.TrimSpace(cfg.Type))]
		if open == nil {
			_ = closeSinks(sinks)
			return nil, fmt.Errorf("sink %q: no opener for type %q", cfg.ID, cfg.Type)
		}
		s, err := open(ctx, cfg, log)
		if err != nil {
			_ = closeSinks(sinks)
			return nil, fmt.Errorf("open sink %q: %w", cfg.ID, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s sink %q: %w", s.Type(), s.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// encodeEvent renders evt as the JSON message body shared by the queue sinks,
// together with the attributes used for routing.
func encodeEvent(evt Event) ([]byte, map[string]string, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, fmt.Errorf("encode audit event: %w", err)
	}
	return body, map[string]string{
		"profile": evt.Profile,
		"outcome": evt.Outcome,
	}, nil
}
