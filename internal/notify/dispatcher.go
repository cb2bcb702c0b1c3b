// Package notify delivers transition events to interested parties on a
// best-effort basis. Delivery is fully decoupled from the workflow transaction:
// a failed or dropped notification is logged and counted, never surfaced to the
// caller and never able to roll a transition back.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"casetrack/internal/events"
	"casetrack/internal/observability/metrics"
)

// Notifier performs one delivery attempt.
type Notifier interface {
	Send(ctx context.Context, evt events.TransitionEvent) error
}

// Dispatcher fans events to a Notifier from a single worker goroutine.
type Dispatcher struct {
	notifier Notifier
	ch       chan events.TransitionEvent
	timeout  time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(n Notifier, buffer int, timeout time.Duration) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		notifier: n,
		ch:       make(chan events.TransitionEvent, buffer),
		timeout:  timeout,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch hands an event to the worker without blocking. When the buffer is
// full the event is dropped; delivery is best effort.
func (d *Dispatcher) Dispatch(evt events.TransitionEvent) {
	select {
	case d.ch <- evt:
	default:
		metrics.NotificationsDispatchedTotal.WithLabelValues("dropped").Inc()
		slog.Warn("notification buffer full, event dropped",
			"case_id", evt.CaseID, "action", evt.Action)
	}
}

// Close stops accepting events, drains the buffer and waits for the worker.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.ch)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.notifier.Send(ctx, evt)
		cancel()
		if err != nil {
			metrics.NotificationsDispatchedTotal.WithLabelValues("failure").Inc()
			slog.Warn("notification delivery failed",
				"case_id", evt.CaseID, "action", evt.Action, "recipients", len(evt.Recipients), "error", err)
			continue
		}
		metrics.NotificationsDispatchedTotal.WithLabelValues("success").Inc()
		slog.Debug("notification delivered",
			"case_id", evt.CaseID, "action", evt.Action, "recipients", len(evt.Recipients))
	}
}
