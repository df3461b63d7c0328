package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimateBounds(t *testing.T) {
	t.Parallel()

	total := 100 * time.Second

	percent, remaining := Estimate(0, total)
	require.Equal(t, 15, percent)
	require.Equal(t, total, remaining)

	percent, remaining = Estimate(50*time.Second, total)
	require.Equal(t, 50, percent)
	require.Equal(t, 50*time.Second, remaining)

	percent, remaining = Estimate(total, total)
	require.Equal(t, 85, percent)
	require.Equal(t, time.Duration(0), remaining)
}

func TestEstimatePinsPastTotal(t *testing.T) {
	t.Parallel()

	percent, remaining := Estimate(500*time.Second, 100*time.Second)
	require.Equal(t, 85, percent)
	require.Equal(t, time.Duration(0), remaining)
}

func TestEstimateMonotonic(t *testing.T) {
	t.Parallel()

	total := 90 * time.Second
	last := -1
	for elapsed := time.Duration(0); elapsed <= total; elapsed += time.Second {
		percent, _ := Estimate(elapsed, total)
		require.GreaterOrEqual(t, percent, last)
		require.GreaterOrEqual(t, percent, 15)
		require.LessOrEqual(t, percent, 85)
		last = percent
	}
}

func TestEstimateZeroTotal(t *testing.T) {
	t.Parallel()

	percent, remaining := Estimate(10*time.Second, 0)
	require.Equal(t, 85, percent)
	require.Equal(t, time.Duration(0), remaining)
}

func TestEstimatedTotal(t *testing.T) {
	t.Parallel()

	require.Equal(t, 12*time.Second, EstimatedTotal(60*time.Second, 0.2))
	require.Equal(t, 2*time.Minute, EstimatedTotal(time.Minute, 2.0))
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0:00:00", FormatRemaining(0))
	require.Equal(t, "0:00:59", FormatRemaining(59*time.Second+900*time.Millisecond))
	require.Equal(t, "0:01:05", FormatRemaining(65*time.Second))
	require.Equal(t, "2:03:04", FormatRemaining(2*time.Hour+3*time.Minute+4*time.Second))
	require.Equal(t, "0:00:00", FormatRemaining(-5*time.Second))
}
