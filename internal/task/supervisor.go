package task

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/natsho/whisperViolins/internal/download"
	"github.com/natsho/whisperViolins/internal/modelstore"
	"github.com/natsho/whisperViolins/internal/probe"
	"github.com/natsho/whisperViolins/internal/whisper"
	"go.uber.org/zap"
)

// ErrTranscriptionRunning is returned when a transcription task is
// started while another one is still active.
var ErrTranscriptionRunning = errors.New("a transcription is already running")

// ErrDownloadRunning is returned when a model download is started while
// another one is still active.
var ErrDownloadRunning = errors.New("a model download is already running")

// DefaultShutdownGrace is how long Shutdown waits for runs to stop
// cooperatively before terminating them.
const DefaultShutdownGrace = time.Second

const (
	defaultProgressTick = 500 * time.Millisecond
	defaultJoinTimeout  = time.Second
)

// Supervisor owns at most one transcription task and one download task at
// a time. It hands out per-run event streams and enforces cooperative
// shutdown with a bounded grace window.
type Supervisor struct {
	logger *zap.Logger
	engine whisper.Engine
	prober probe.Prober
	store  *modelstore.Store

	progressTick    time.Duration
	defaultDuration time.Duration
	shutdownGrace   time.Duration
	downloadRetries int
	httpClient      *http.Client

	fetch func(ctx context.Context, opts download.Options) error

	mu            sync.Mutex
	transcription *Handle
	download      *Handle
}

type Options struct {
	Logger          *zap.Logger
	Engine          whisper.Engine
	Prober          probe.Prober
	Store           *modelstore.Store
	ProgressTick    time.Duration
	DefaultDuration time.Duration
	ShutdownGrace   time.Duration
	DownloadRetries int
	HTTPClient      *http.Client
}

func NewSupervisor(opts Options) *Supervisor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProgressTick <= 0 {
		opts.ProgressTick = defaultProgressTick
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = probe.DefaultDuration
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}

	return &Supervisor{
		logger:          opts.Logger,
		engine:          opts.Engine,
		prober:          opts.Prober,
		store:           opts.Store,
		progressTick:    opts.ProgressTick,
		defaultDuration: opts.DefaultDuration,
		shutdownGrace:   opts.ShutdownGrace,
		downloadRetries: opts.DownloadRetries,
		httpClient:      opts.HTTPClient,
		fetch:           download.DownloadFile,
	}
}

// StartTranscription launches a transcription run on its own goroutine.
// At most one transcription may be active; a second trigger is rejected
// without starting anything.
func (s *Supervisor) StartTranscription(req TranscriptionRequest) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transcription != nil && !s.transcription.finished() {
		return nil, ErrTranscriptionRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(shortuuid.New(), KindTranscription, cancel)
	s.transcription = h

	go s.runTranscription(ctx, h, req)
	return h, nil
}

// StartDownload launches a model download run on its own goroutine, with
// the same one-active-at-a-time rule as transcription. The rule also
// keeps the transfer progress path exclusive for the duration of a run.
func (s *Supervisor) StartDownload(req DownloadRequest) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.download != nil && !s.download.finished() {
		return nil, ErrDownloadRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(shortuuid.New(), KindDownload, cancel)
	s.download = h

	go s.runDownload(ctx, h, req)
	return h, nil
}

// Active reports the currently running task handles, if any.
func (s *Supervisor) Active() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*Handle
	for _, h := range []*Handle{s.transcription, s.download} {
		if h != nil && !h.finished() {
			active = append(active, h)
		}
	}
	return active
}

// Shutdown requests cooperative cancellation on all active tasks, waits
// the grace window, then forcibly tears down whatever is still running.
// Forced teardown kills the inference subprocess mid-call; it is the
// last resort for the one primitive that cannot check a token.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	active := s.Active()
	if len(active) == 0 {
		return nil
	}

	for _, h := range active {
		h.Cancel()
	}

	graceful := s.waitAll(ctx, active, s.shutdownGrace)
	if graceful {
		return nil
	}

	for _, h := range active {
		if !h.finished() {
			s.logger.Warn("task did not stop in time; terminating", zap.String("run_id", h.ID()), zap.String("kind", string(h.Kind())))
			h.terminate()
		}
	}

	if !s.waitAll(ctx, active, s.shutdownGrace) {
		return errors.New("tasks still running after forced termination")
	}
	return nil
}

func (s *Supervisor) waitAll(ctx context.Context, handles []*Handle, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, h := range handles {
		select {
		case <-h.Done():
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}
