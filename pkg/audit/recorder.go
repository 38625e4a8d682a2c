package audit

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
)

const defaultDeliveryTimeout = 5 * time.Second

// Recorder turns client call outcomes into audit events. Delivery failures are
// logged and never surface to the caller of the API.
type Recorder struct {
	sinks   *Dispatcher
	log     Logger
	timeout time.Duration
	now     func() time.Time
}

var _ apiclient.Recorder = (*Recorder)(nil)

// NewRecorder wraps sinks as an apiclient.Recorder.
func NewRecorder(sinks *Dispatcher, log Logger) *Recorder {
	return &Recorder{
		sinks:   sinks,
		log:     orQuiet(log),
		timeout: defaultDeliveryTimeout,
		now:     time.Now,
	}
}

// Record delivers the outcome to every sink. The caller's cancellation does
// not abort delivery; a fixed timeout bounds it instead.
func (r *Recorder) Record(ctx context.Context, o apiclient.Outcome) {
	if r == nil || r.sinks.Len() == 0 {
		return
	}

	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	evt := NewEvent(o, r.now())
	delivered, err := r.sinks.Dispatch(deliverCtx, evt)
	if err != nil {
		r.log.WarnObj("audit delivery incomplete", "audit_delivery_error", map[string]any{
			"profile":   evt.Profile,
			"delivered": delivered,
			"sinks":     r.sinks.Len(),
			"error":     err.Error(),
		})
	}
}
