package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/natsho/whisperViolins/internal/download"
	"github.com/stretchr/testify/require"
)

func TestDownloadCacheHitSkipsNetwork(t *testing.T) {
	t.Parallel()

	sup, dir := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})
	seedModel(t, dir, "base.pt")

	fetched := false
	sup.fetch = func(ctx context.Context, opts download.Options) error {
		fetched = true
		return nil
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "base"})
	require.NoError(t, err)
	events := <-drain(h)

	require.False(t, fetched)
	require.Equal(t, StatusSucceeded, h.Status())

	terminal := terminalEvents(events)
	require.Len(t, terminal, 1)
	require.Equal(t, "Model base loaded from cache", terminal[0].Message)

	var percents []int
	for _, ev := range events {
		if ev.Type == EventPercent {
			percents = append(percents, ev.Percent)
		}
	}
	require.Equal(t, []int{100}, percents)
}

func TestDownloadSwitchesToDeterminateOnce(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	sup.fetch = func(ctx context.Context, opts download.Options) error {
		opts.OnProgress(0, 1000)
		opts.OnProgress(100, 1000)
		opts.OnProgress(100, 1000) // repeat: must not re-emit
		opts.OnProgress(400, 1000)
		opts.OnProgress(1000, 1000)
		return nil
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := <-drain(h)

	require.Equal(t, StatusSucceeded, h.Status())

	var modes []bool
	var percents []int
	for _, ev := range events {
		switch ev.Type {
		case EventMode:
			modes = append(modes, ev.Determinate)
		case EventPercent:
			percents = append(percents, ev.Percent)
		}
	}

	// Indeterminate first, determinate exactly once, never back.
	require.Equal(t, []bool{false, true}, modes)

	// Strictly increasing, capped at 99 until the terminal 100.
	require.Equal(t, []int{10, 40, 99, 100}, percents)
}

func TestDownloadUnknownTotalStaysIndeterminate(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	sup.fetch = func(ctx context.Context, opts download.Options) error {
		opts.OnProgress(0, -1)
		opts.OnProgress(4096, -1)
		opts.OnProgress(8192, 0)
		return nil
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := <-drain(h)

	require.Equal(t, StatusSucceeded, h.Status())

	var modes []bool
	var percents []int
	for _, ev := range events {
		switch ev.Type {
		case EventMode:
			modes = append(modes, ev.Determinate)
		case EventPercent:
			percents = append(percents, ev.Percent)
		}
	}

	// Never fabricates a percentage from a transfer with unknown size.
	require.Equal(t, []bool{false}, modes)
	require.Equal(t, []int{100}, percents)
}

func TestDownloadPercentNeverExceeds99BeforeCompletion(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	sup.fetch = func(ctx context.Context, opts download.Options) error {
		for done := int64(0); done <= 1000; done += 37 {
			opts.OnProgress(done, 1000)
		}
		opts.OnProgress(1000, 1000)
		return nil
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := <-drain(h)

	var percents []int
	for _, ev := range events {
		if ev.Type == EventPercent {
			percents = append(percents, ev.Percent)
		}
	}

	require.NotEmpty(t, percents)
	require.Equal(t, 100, percents[len(percents)-1])
	for i, percent := range percents[:len(percents)-1] {
		require.LessOrEqual(t, percent, 99)
		if i > 0 {
			require.Greater(t, percent, percents[i-1])
		}
	}
}

func TestDownloadFailure(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	sup.fetch = func(ctx context.Context, opts download.Options) error {
		return errors.New("connection reset")
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	events := <-drain(h)

	require.Equal(t, StatusFailed, h.Status())
	terminal := terminalEvents(events)
	require.Len(t, terminal, 1)
	require.Equal(t, EventError, terminal[0].Type)
	require.Contains(t, terminal[0].Message, "connection reset")
}

func TestDownloadUnknownModelFails(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	h, err := sup.StartDownload(DownloadRequest{Model: "gigantic"})
	require.NoError(t, err)
	events := <-drain(h)

	require.Equal(t, StatusFailed, h.Status())
	require.Len(t, terminalEvents(events), 1)
}

func TestDownloadCancelAbortsTransfer(t *testing.T) {
	t.Parallel()

	sup, _ := newTestSupervisor(t, &fakeEngine{}, &fakeProber{duration: time.Second})

	started := make(chan struct{})
	sup.fetch = func(ctx context.Context, opts download.Options) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	h, err := sup.StartDownload(DownloadRequest{Model: "tiny"})
	require.NoError(t, err)
	eventsCh := drain(h)

	<-started
	h.Cancel()
	<-h.Done()
	events := <-eventsCh

	require.Equal(t, StatusCancelled, h.Status())
	terminal := terminalEvents(events)
	require.Len(t, terminal, 1)
	require.Equal(t, "Download cancelled", terminal[0].Message)
}
