package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

// tool describes the platform clipboard command. xclip keeps serving the
// selection after our process exits, so it has to be started detached
// instead of awaited.
type tool struct {
	name   string
	args   []string
	detach bool
}

// CopyText places value on the system clipboard using whichever clipboard
// command the platform provides.
func CopyText(ctx context.Context, value string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	clip, err := lookupTool()
	if err != nil {
		return err
	}

	if clip.detach {
		return runDetached(clip, value)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, clip.name, clip.args...)
	cmd.Stdin = strings.NewReader(value)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy to clipboard timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy to clipboard: %w", runErr)
	}

	return nil
}

func lookupTool() (tool, error) {
	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("pbcopy"); err == nil {
			return tool{name: "pbcopy"}, nil
		}
		return tool{}, ErrUnavailable
	}

	if _, err := exec.LookPath("wl-copy"); err == nil {
		return tool{name: "wl-copy"}, nil
	}

	if _, err := exec.LookPath("xclip"); err == nil {
		return tool{name: "xclip", args: []string{"-selection", "clipboard", "-in", "-silent"}, detach: true}, nil
	}

	return tool{}, ErrUnavailable
}

func runDetached(clip tool, value string) error {
	cmd := exec.Command(clip.name, clip.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, value); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write clipboard data: %w", err)
	}

	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = cmd.Process.Release()
	return nil
}
