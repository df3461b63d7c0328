package cli

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/natsho/whisperViolins/internal/task"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type stopFunc func()

// startSpinner renders an indeterminate spinner on stderr until the
// returned stop function is called.
func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

func newPercentBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// renderRun consumes a run's event stream until the terminal event, driving
// a spinner while the run is indeterminate and a percent bar once it turns
// determinate. It returns the success payload.
func renderRun(h *task.Handle, enabled bool, logger *zap.Logger) (string, error) {
	var (
		bar         *progressbar.ProgressBar
		stopSpinner stopFunc = func() {}
		determinate bool
		result      string
		runErr      error
	)

	if h.Kind() == task.KindTranscription {
		determinate = true
	} else {
		stopSpinner = startSpinner(enabled, "Preparing...")
	}

	describe := func(message string) {
		if !enabled {
			logger.Info(message)
			return
		}
		if !determinate {
			return
		}
		if bar == nil {
			bar = newPercentBar(message)
			return
		}
		bar.Describe(message)
	}

	for ev := range h.Events() {
		switch ev.Type {
		case task.EventMode:
			if ev.Determinate && !determinate {
				determinate = true
				stopSpinner()
			}
		case task.EventPercent:
			if !enabled || !determinate {
				continue
			}
			if bar == nil {
				bar = newPercentBar("Working...")
			}
			_ = bar.Set(ev.Percent)
		case task.EventStatus:
			describe(ev.Message)
		case task.EventRemaining:
			describe(ev.Message)
		case task.EventSuccess:
			result = ev.Message
		case task.EventError:
			runErr = errors.New(ev.Message)
		}
	}

	stopSpinner()
	if bar != nil {
		_ = bar.Finish()
	}

	return result, runErr
}
