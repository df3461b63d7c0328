package task

import (
	"fmt"
	"time"
)

// The transcribing stage owns the 15-85% band of the progress bar: the
// first 15% is reserved for model loading, the last 15% for finalization,
// so the bar never looks complete while inference is still running.
const (
	progressFloor = 15
	progressCap   = 85
	progressSpan  = progressCap - progressFloor
)

// Estimate maps wall-clock elapsed time onto a display percentage and a
// time-remaining figure. It is pure; elapsed time past the estimate pins
// the percentage at the cap and remaining at zero.
func Estimate(elapsed, estimatedTotal time.Duration) (int, time.Duration) {
	if estimatedTotal <= 0 {
		return progressCap, 0
	}

	fraction := float64(elapsed) / float64(estimatedTotal)
	percent := progressFloor + int(fraction*progressSpan)
	if percent > progressCap {
		percent = progressCap
	}
	if percent < progressFloor {
		percent = progressFloor
	}

	remaining := estimatedTotal - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return percent, remaining
}

// EstimatedTotal predicts processing time from the audio duration and the
// model's speed coefficient.
func EstimatedTotal(audioDuration time.Duration, speedCoefficient float64) time.Duration {
	return time.Duration(float64(audioDuration) * speedCoefficient)
}

// FormatRemaining renders a duration as H:MM:SS with sub-second
// truncation.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
