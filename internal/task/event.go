package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type Kind string

const (
	KindTranscription Kind = "transcription"
	KindDownload      Kind = "download"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type EventType string

const (
	// EventStatus carries a human-readable status line.
	EventStatus EventType = "status"
	// EventPercent carries a progress percentage in [0,100].
	EventPercent EventType = "percent"
	// EventRemaining carries an estimated time-remaining readout.
	EventRemaining EventType = "remaining"
	// EventMode switches the progress display between indeterminate and
	// determinate. Within one run the switch is one-directional:
	// indeterminate first, determinate at most once, never back.
	EventMode EventType = "mode"
	// EventSuccess is the single terminal success event; Message holds
	// the result payload (transcript or completion message).
	EventSuccess EventType = "success"
	// EventError is the single terminal failure event.
	EventError EventType = "error"
)

// Event is one message emitted by a running task. Events of a single run
// are delivered in emission order.
type Event struct {
	RunID       string
	Kind        Kind
	Type        EventType
	Message     string
	Percent     int
	Remaining   time.Duration
	Determinate bool
}

// Handle is the caller-facing view of one task run. The run goroutine is
// the only writer of status and progress; callers may read state, consume
// events, and request cooperative cancellation.
type Handle struct {
	id   string
	kind Kind

	events chan Event
	done   chan struct{}

	status atomic.Value

	cancelOnce sync.Once
	cancelCh   chan struct{}
	cancelled  atomic.Bool

	terminate context.CancelFunc

	lastPercent atomic.Int64
}

func newHandle(id string, kind Kind, terminate context.CancelFunc) *Handle {
	h := &Handle{
		id:        id,
		kind:      kind,
		events:    make(chan Event, 128),
		done:      make(chan struct{}),
		cancelCh:  make(chan struct{}),
		terminate: terminate,
	}
	h.status.Store(StatusPending)
	return h
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) Kind() Kind {
	return h.kind
}

// Events returns the run's event stream. The channel is closed after the
// terminal event has been emitted.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Done is closed once the run goroutine has fully stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Status() Status {
	return h.status.Load().(Status)
}

// Cancel requests cooperative cancellation. The progress loop and the
// download transfer observe it; a transcription inference call in flight
// is not interrupted and only stops at a forced shutdown.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		h.cancelled.Store(true)
		close(h.cancelCh)
	})
}

func (h *Handle) CancelRequested() bool {
	return h.cancelled.Load()
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) setStatus(status Status) {
	h.status.Store(status)
}

// emit delivers one event, giving up when the run context is torn down so
// an abandoned run can never wedge on a full channel.
func (h *Handle) emit(ctx context.Context, ev Event) bool {
	ev.RunID = h.id
	ev.Kind = h.kind

	select {
	case h.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Handle) emitStatus(ctx context.Context, message string) {
	h.emit(ctx, Event{Type: EventStatus, Message: message})
}

// emitPercent forwards a percentage only when it advances past the last
// emitted value, keeping the stream strictly increasing within one run.
func (h *Handle) emitPercent(ctx context.Context, percent int) bool {
	for {
		last := h.lastPercent.Load()
		if int64(percent) <= last {
			return false
		}
		if h.lastPercent.CompareAndSwap(last, int64(percent)) {
			break
		}
	}
	return h.emit(ctx, Event{Type: EventPercent, Percent: percent})
}

func (h *Handle) emitMode(ctx context.Context, determinate bool) {
	h.emit(ctx, Event{Type: EventMode, Determinate: determinate})
}

func (h *Handle) succeed(ctx context.Context, payload string) {
	h.setStatus(StatusSucceeded)
	h.emit(ctx, Event{Type: EventSuccess, Message: payload})
}

func (h *Handle) fail(ctx context.Context, message string) {
	h.setStatus(StatusFailed)
	h.emit(ctx, Event{Type: EventError, Message: message})
}

func (h *Handle) cancelledTerminal(ctx context.Context, message string) {
	h.setStatus(StatusCancelled)
	h.emit(ctx, Event{Type: EventError, Message: message})
}
