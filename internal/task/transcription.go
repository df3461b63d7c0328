package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/natsho/whisperViolins/internal/whisper"
	"go.uber.org/zap"
)

// TranscriptionRequest names the audio file, the model, and an optional
// language code ("auto" or empty lets the model detect it).
type TranscriptionRequest struct {
	AudioPath string
	Model     string
	Language  string
}

// runTranscription drives one run through LoadingModel, Probing,
// Transcribing and Finalizing, emitting exactly one terminal event.
func (s *Supervisor) runTranscription(ctx context.Context, h *Handle, req TranscriptionRequest) {
	defer close(h.done)
	defer close(h.events)
	defer h.terminate()

	h.setStatus(StatusRunning)

	h.emitStatus(ctx, "Loading whisper model...")
	h.emitPercent(ctx, 5)

	resolved, err := whisper.ResolveModel(req.Model, s.store.Dir())
	if err == nil && resolved.NeedsDownload {
		err = fmt.Errorf("model %q is not downloaded", resolved.Name)
	}
	if err != nil {
		s.logger.Warn("model load failed", zap.String("model", req.Model), zap.Error(err))
		h.fail(ctx, fmt.Sprintf("Error during transcription: %v", err))
		return
	}
	h.emitPercent(ctx, 10)

	audioDuration := s.defaultDuration
	if probed, probeErr := s.prober.Duration(ctx, req.AudioPath); probeErr != nil {
		// Probe failures are advisory only; fall back to the default.
		s.logger.Warn("duration probe failed; using default estimate",
			zap.String("audio", req.AudioPath),
			zap.Duration("default", s.defaultDuration),
			zap.Error(probeErr))
	} else {
		audioDuration = probed
	}
	estimatedTotal := EstimatedTotal(audioDuration, resolved.Speed)

	h.emitStatus(ctx, "Transcribing audio...")
	h.emitPercent(ctx, progressFloor)

	stopProgress := s.startProgressLoop(ctx, h, estimatedTotal)

	text, err := s.engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath: req.AudioPath,
		ModelPath: resolved.Path,
		Language:  req.Language,
	})

	stopProgress()

	if h.CancelRequested() {
		s.logger.Info("transcription cancelled", zap.String("run_id", h.ID()))
		h.cancelledTerminal(ctx, "Transcription cancelled")
		return
	}
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("run_id", h.ID()), zap.Error(err))
		h.fail(ctx, fmt.Sprintf("Error during transcription: %v", err))
		return
	}

	h.emitStatus(ctx, "Finalizing transcription...")
	h.emitPercent(ctx, 95)
	h.emit(ctx, Event{Type: EventRemaining, Remaining: 0, Message: "Almost done..."})

	h.emitPercent(ctx, 100)
	h.emit(ctx, Event{Type: EventRemaining, Remaining: 0, Message: "Complete!"})
	h.succeed(ctx, text)
}

// startProgressLoop emits simulated progress while the opaque inference
// call runs: the engine exposes no callback, so percentage is derived
// from wall-clock elapsed time against the estimate. The returned stop
// function joins the loop with a bounded wait.
func (s *Supervisor) startProgressLoop(ctx context.Context, h *Handle, estimatedTotal time.Duration) func() {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	started := time.Now()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(s.progressTick)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-h.cancelCh:
				return
			case <-ticker.C:
				percent, remaining := Estimate(time.Since(started), estimatedTotal)
				h.emitPercent(ctx, percent)
				h.emit(ctx, Event{
					Type:      EventRemaining,
					Remaining: remaining,
					Message:   "Est. time remaining: " + FormatRemaining(remaining),
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			select {
			case <-doneCh:
			case <-time.After(defaultJoinTimeout):
				s.logger.Warn("progress loop did not stop in time", zap.String("run_id", h.ID()))
			}
		})
	}
}
