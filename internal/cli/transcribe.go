package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/natsho/whisperViolins/internal/clipboard"
	"github.com/natsho/whisperViolins/internal/task"
	"github.com/natsho/whisperViolins/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withInstanceLock(func() error {
				return runTranscribe(cmd, app, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&app.model, "model", app.model, "Whisper model to use")
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language of the audio, or 'auto'")
	cmd.Flags().StringVarP(&app.outputPath, "output", "o", app.outputPath, "Write the transcript to a file")
	cmd.Flags().BoolVar(&app.copyText, "copy", app.copyText, "Copy the transcript to the clipboard")

	return cmd
}

func runTranscribe(cmd *cobra.Command, app *appState, audioPath string) error {
	ctx := cmd.Context()
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file %q is not readable: %w", audioPath, err)
	}

	language, err := whisper.NormalizeLanguage(app.language)
	if err != nil {
		return err
	}

	engine, err := whisper.NewExternalEngine(app.log())
	if err != nil {
		return err
	}

	store, err := app.modelStore()
	if err != nil {
		return err
	}

	sup := app.supervisor(engine, store)
	defer shutdownSupervisor(sup, app.log())

	handle, err := sup.StartTranscription(task.TranscriptionRequest{
		AudioPath: audioPath,
		Model:     app.model,
		Language:  language,
	})
	if err != nil {
		return err
	}
	cancelOnInterrupt(ctx, handle)

	transcript, err := renderRun(handle, app.progressEnabled(), app.log())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), transcript)

	if app.outputPath != "" {
		if err := os.WriteFile(app.outputPath, []byte(transcript+"\n"), 0o644); err != nil {
			return fmt.Errorf("write transcript to %q: %w", app.outputPath, err)
		}
		app.log().Info("transcript saved", zap.String("path", app.outputPath))
	}

	if app.copyText {
		if err := clipboard.CopyText(ctx, transcript); err != nil {
			app.log().Warn("clipboard copy failed", zap.Error(err))
		}
	}

	return nil
}

// cancelOnInterrupt requests cooperative cancellation of the run when the
// command context is interrupted, e.g. by Ctrl-C.
func cancelOnInterrupt(ctx context.Context, handle *task.Handle) {
	go func() {
		select {
		case <-ctx.Done():
			handle.Cancel()
		case <-handle.Done():
		}
	}()
}

// shutdownSupervisor bounds the wait for straggling runs before the
// process exits.
func shutdownSupervisor(sup *task.Supervisor, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*task.DefaultShutdownGrace)
	defer cancel()

	if err := sup.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
