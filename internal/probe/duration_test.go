package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output string
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.name = name
	f.args = args
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func TestDurationParsesSeconds(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: "123.456000\n"}
	p := NewFFProbeForTests("ffprobe", time.Second, runner)

	d, err := p.Duration(context.Background(), "/audio/talk.mp3")
	require.NoError(t, err)
	require.InDelta(t, 123.456, d.Seconds(), 0.001)

	require.Equal(t, "ffprobe", runner.name)
	require.Equal(t, "/audio/talk.mp3", runner.args[len(runner.args)-1])
}

func TestDurationCommandFailure(t *testing.T) {
	t.Parallel()

	p := NewFFProbeForTests("ffprobe", time.Second, &fakeRunner{err: errors.New("exit 1")})

	_, err := p.Duration(context.Background(), "/audio/talk.mp3")
	require.Error(t, err)
}

func TestDurationGarbageOutput(t *testing.T) {
	t.Parallel()

	p := NewFFProbeForTests("ffprobe", time.Second, &fakeRunner{output: "N/A"})

	_, err := p.Duration(context.Background(), "/audio/talk.mp3")
	require.Error(t, err)
}

func TestDurationNonPositive(t *testing.T) {
	t.Parallel()

	p := NewFFProbeForTests("ffprobe", time.Second, &fakeRunner{output: "0.0"})

	_, err := p.Duration(context.Background(), "/audio/talk.mp3")
	require.Error(t, err)
}

func TestDurationMissingBinary(t *testing.T) {
	t.Parallel()

	p := NewFFProbe("ffprobe-definitely-not-installed", 500*time.Millisecond, nil)

	_, err := p.Duration(context.Background(), "/audio/talk.mp3")
	require.Error(t, err)
}
