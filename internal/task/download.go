package task

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/natsho/whisperViolins/internal/download"
	"github.com/natsho/whisperViolins/internal/whisper"
	"go.uber.org/zap"
)

// DownloadRequest names the model whose weights should be fetched into
// the cache.
type DownloadRequest struct {
	Model string
}

// runDownload drives one run through CheckingCache and Downloading.
// Progress starts indeterminate and switches to determinate percentages
// only once the transfer reports a genuine total size; the switch happens
// at most once per run and never reverses. Percentages are real byte
// measurements, never simulated.
func (s *Supervisor) runDownload(ctx context.Context, h *Handle, req DownloadRequest) {
	defer close(h.done)
	defer close(h.events)
	defer h.terminate()

	h.setStatus(StatusRunning)
	h.emitStatus(ctx, fmt.Sprintf("Preparing download: %s", req.Model))

	resolved, err := whisper.ResolveModel(req.Model, s.store.Dir())
	if err != nil {
		h.fail(ctx, fmt.Sprintf("Error downloading model: %v", err))
		return
	}

	if !resolved.NeedsDownload {
		h.emitStatus(ctx, "Model already cached, loading...")
		h.emitMode(ctx, false)
		h.emitPercent(ctx, 100)
		h.succeed(ctx, fmt.Sprintf("Model %s loaded from cache", resolved.Name))
		return
	}

	h.emitMode(ctx, false)
	h.emitStatus(ctx, fmt.Sprintf("Downloading %s model...", resolved.Name))

	// The transfer observes cooperative cancellation through its own
	// context; the underlying HTTP request aborts at the next read.
	fetchCtx, cancelFetch := context.WithCancel(ctx)
	defer cancelFetch()
	go func() {
		select {
		case <-h.cancelCh:
			cancelFetch()
		case <-fetchCtx.Done():
		}
	}()

	determinate := false
	err = s.fetch(fetchCtx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		Retries:        s.downloadRetries,
		HTTPClient:     s.httpClient,
		Logger:         s.logger,
		OnProgress: func(done, total int64) {
			if total <= 0 {
				return
			}

			if !determinate {
				determinate = true
				h.emitMode(ctx, true)
			}

			percent := int(done * 100 / total)
			if percent > 99 {
				percent = 99
			}
			if h.emitPercent(ctx, percent) {
				h.emitStatus(ctx, fmt.Sprintf("Downloading: %s / %s (%d%%)",
					humanize.IBytes(uint64(done)), humanize.IBytes(uint64(total)), percent))
			}
		},
	})

	if h.CancelRequested() {
		s.logger.Info("download cancelled", zap.String("run_id", h.ID()), zap.String("model", resolved.Name))
		h.cancelledTerminal(ctx, "Download cancelled")
		return
	}
	if err != nil {
		s.logger.Warn("download failed", zap.String("run_id", h.ID()), zap.String("model", resolved.Name), zap.Error(err))
		h.fail(ctx, fmt.Sprintf("Error downloading model: %v", err))
		return
	}

	h.emitPercent(ctx, 100)
	h.emitStatus(ctx, "Download complete!")
	h.succeed(ctx, fmt.Sprintf("Successfully downloaded %s model", resolved.Name))
}
