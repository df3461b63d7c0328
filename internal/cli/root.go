package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/natsho/whisperViolins/internal/config"
	"github.com/natsho/whisperViolins/internal/logging"
	"github.com/natsho/whisperViolins/internal/modelstore"
	"github.com/natsho/whisperViolins/internal/platform"
	"github.com/natsho/whisperViolins/internal/probe"
	"github.com/natsho/whisperViolins/internal/singleinstance"
	"github.com/natsho/whisperViolins/internal/task"
	"github.com/natsho/whisperViolins/internal/version"
	"github.com/natsho/whisperViolins/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configFile string
	model      string
	language   string
	cacheDir   string
	copyText   bool
	outputPath string

	logger *zap.Logger
	cfg    *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		model:    whisper.DefaultModel,
		language: whisper.LanguageAuto,
	}

	cmd := &cobra.Command{
		Use:           "whisperviolins",
		Short:         "Transcribe audio files and manage whisper model weights",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			cfg, err := config.Load(app.configFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			app.cfg = cfg
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	cmd.PersistentFlags().StringVar(&app.configFile, "config", app.configFile, "Path to a config file")
	cmd.PersistentFlags().StringVar(&app.cacheDir, "cache-dir", app.cacheDir, "Directory where model weights are cached")

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) modelStore() (*modelstore.Store, error) {
	override := a.cacheDir
	if override == "" {
		override = a.cfg.CacheDir
	}

	dir, err := platform.ResolveCacheDir(override)
	if err != nil {
		return nil, err
	}
	return modelstore.New(dir), nil
}

func (a *appState) supervisor(engine whisper.Engine, store *modelstore.Store) *task.Supervisor {
	return task.NewSupervisor(task.Options{
		Logger:          a.log(),
		Engine:          engine,
		Prober:          probe.NewFFProbe(a.cfg.ProbeBin, a.cfg.ProbeTimeout, a.log()),
		Store:           store,
		ProgressTick:    a.cfg.ProgressTick,
		ShutdownGrace:   a.cfg.ShutdownGrace,
		DownloadRetries: a.cfg.DownloadRetries,
		HTTPClient:      &http.Client{Timeout: a.cfg.DownloadTimeout},
	})
}

func (a *appState) lockPath() string {
	if a.cfg != nil && a.cfg.LockPath != "" {
		return a.cfg.LockPath
	}
	return platform.DefaultLockPath()
}

// withInstanceLock runs fn while holding the process-wide instance lock.
// A second concurrent invocation exits immediately without starting any
// task.
func (a *appState) withInstanceLock(fn func() error) error {
	guard, err := singleinstance.Acquire(a.lockPath())
	if err != nil {
		return err
	}
	defer guard.Release()

	return fn()
}
