package task

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/natsho/whisperViolins/internal/download"
	"github.com/natsho/whisperViolins/internal/modelstore"
	"github.com/natsho/whisperViolins/internal/whisper"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	transcript string
	err        error
	block      chan struct{}
	calls      atomic.Int32
}

func (e *fakeEngine) Transcribe(ctx context.Context, req whisper.TranscriptionRequest) (string, error) {
	e.calls.Add(1)
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if e.err != nil {
		return "", e.err
	}
	return e.transcript, nil
}

type fakeProber struct {
	duration time.Duration
	err      error
}

func (p *fakeProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.duration, nil
}

func newTestSupervisor(t *testing.T, engine whisper.Engine, prober *fakeProber) (*Supervisor, string) {
	t.Helper()

	dir := t.TempDir()
	return NewSupervisor(Options{
		Engine:          engine,
		Prober:          prober,
		Store:           modelstore.New(dir),
		ProgressTick:    10 * time.Millisecond,
		DefaultDuration: time.Second,
		ShutdownGrace:   200 * time.Millisecond,
	}), dir
}

func seedModel(t *testing.T, dir, fileName string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("weights"), 0o644))
}

// drain collects every event of a run on a separate goroutine so slow
// consumers never stall the task under test.
func drain(h *Handle) <-chan []Event {
	out := make(chan []Event, 1)
	go func() {
		var events []Event
		for ev := range h.Events() {
			events = append(events, ev)
		}
		out <- events
	}()
	return out
}

func terminalEvents(events []Event) []Event {
	var terminal []Event
	for _, ev := range events {
		if ev.Type == EventSuccess || ev.Type == EventError {
			terminal = append(terminal, ev)
		}
	}
	return terminal
}

func TestStartTranscriptionRejectsSecondRun(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{transcript: "hello", block: make(chan struct{})}
	sup, dir := newTestSupervisor(t, engine, &fakeProber{duration: time.Second})
	seedModel(t, dir, "base.pt")

	h, err := sup.StartTranscription(TranscriptionRequest{AudioPath: "talk.mp3", Model: "base"})
	require.NoError(t, err)
	events := drain(h)

	_, err = sup.StartTranscription(TranscriptionRequest{AudioPath: "talk.mp3", Model: "base"})
	require.ErrorIs(t, err, ErrTranscriptionRunning)

	close(engine.block)
	<-h.Done()
	<-events

	require.Equal(t, int32(1), engine.calls.Load())

	// A finished run frees the slot.
	h2, err := sup.StartTranscription(TranscriptionRequest{AudioPath: "talk.mp3", Model: "base"})
	require.NoError(t, err)
	<-drain(h2)
}

func TestStartDownloadRejectsSecondRun(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	block := make(chan struct{})
	sup.fetch = func(ctx context.Context, opts download.Options) error {
		<-block
		return nil
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := drain(h)

	_, err = sup.StartDownload(DownloadRequest{Model: "base"})
	require.ErrorIs(t, err, ErrDownloadRunning)

	close(block)
	<-h.Done()
	<-events
}

func TestShutdownWithNoActiveTasks(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})
	require.NoError(t, sup.Shutdown(context.Background()))
}

func TestShutdownTerminatesBlockedTranscription(t *testing.T) {
	t.Parallel()

	// The engine only returns when its context is killed, standing in
	// for a non-preemptible inference call.
	engine := &fakeEngine{transcript: "never", block: make(chan struct{})}
	sup, dir := newTestSupervisor(t, engine, &fakeProber{duration: time.Second})
	seedModel(t, dir, "base.pt")

	h, err := sup.StartTranscription(TranscriptionRequest{AudioPath: "talk.mp3", Model: "base"})
	require.NoError(t, err)
	events := drain(h)

	// Wait until the engine call is in flight.
	require.Eventually(t, func() bool { return engine.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, sup.Shutdown(context.Background()))
	require.Less(t, time.Since(start), 2*time.Second)

	<-h.Done()
	<-events
	require.Equal(t, StatusCancelled, h.Status())
}

func TestShutdownGracefulWhenTaskFinishesInTime(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	released := make(chan struct{})
	sup.fetch = func(ctx context.Context, opts download.Options) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-released:
			return nil
		}
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := drain(h)

	require.NoError(t, sup.Shutdown(context.Background()))
	<-h.Done()
	<-events
	require.Equal(t, StatusCancelled, h.Status())
}
