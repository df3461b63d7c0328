package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultDuration substitutes when the audio duration cannot be probed.
// Duration estimation is advisory only; probe failures never fail a task.
const DefaultDuration = 60 * time.Second

const DefaultTimeout = 5 * time.Second

// Prober reports the playback duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &bytes.Buffer{}

	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// FFProbe shells out to ffprobe with a short timeout.
type FFProbe struct {
	binary  string
	timeout time.Duration
	runner  commandRunner
	logger  *zap.Logger
}

func NewFFProbe(binary string, timeout time.Duration, logger *zap.Logger) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FFProbe{binary: binary, timeout: timeout, runner: execRunner{}, logger: logger}
}

func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	output, err := p.runner.Run(probeCtx, p.binary, args...)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, fmt.Errorf("parse probed duration %q: %w", strings.TrimSpace(output), err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("probed non-positive duration: %f", seconds)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// NewFFProbeForTests injects a fake command runner.
func NewFFProbeForTests(binary string, timeout time.Duration, runner commandRunner) *FFProbe {
	p := NewFFProbe(binary, timeout, nil)
	p.runner = runner
	return p
}
