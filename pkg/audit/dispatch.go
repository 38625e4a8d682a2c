package audit

import (
	"context"
	"errors"
	"fmt"
)

// Dispatcher hands every event to each configured sink in turn.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher keeps the non-nil entries of sinks.
func NewDispatcher(sinks []Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Dispatch delivers evt to every sink, even after one fails, and reports how
// many accepted it. Failures are joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) (int, error) {
	if d == nil {
		return 0, nil
	}
	delivered := 0
	var errs []error
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s sink %q: %w", s.Type(), s.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Len reports the number of sinks.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.sinks)
}

// Close releases sinks that hold network clients.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return closeSinks(d.sinks)
}
