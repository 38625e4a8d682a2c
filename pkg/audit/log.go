package audit

import "context"

// logSink writes events through the process logger. Failed calls are logged
// at warn level.
type logSink struct {
	id  string
	log Logger
}

func openLogSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	return &logSink{id: cfg.ID, log: orQuiet(log)}, nil
}

func (l *logSink) ID() string   { return l.id }
func (l *logSink) Type() string { return TypeLog }

func (l *logSink) Deliver(_ context.Context, evt Event) error {
	if evt.Outcome == OutcomeOK {
		l.log.InfoObj("api call completed", "audit_event", evt)
	} else {
		l.log.WarnObj("api call failed", "audit_event", evt)
	}
	return nil
}
