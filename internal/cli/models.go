package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/natsho/whisperViolins/internal/task"
	"github.com/natsho/whisperViolins/internal/whisper"
	"github.com/spf13/cobra"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage cached whisper model weights",
	}

	cmd.AddCommand(newModelsListCmd(app))
	cmd.AddCommand(newModelsDownloadCmd(app))
	cmd.AddCommand(newModelsDeleteCmd(app))

	return cmd
}

func newModelsListCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloaded models and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No models downloaded to %s\n", store.Dir())
				fmt.Fprintf(out, "Available: %v\n", whisper.ModelNames())
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			var total int64
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\n", entry.Name, humanize.IBytes(uint64(entry.SizeBytes)))
				total += entry.SizeBytes
			}
			fmt.Fprintf(w, "total\t%s\n", humanize.IBytes(uint64(total)))
			return w.Flush()
		},
	}
}

func newModelsDownloadCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a whisper model into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withInstanceLock(func() error {
				store, err := app.modelStore()
				if err != nil {
					return err
				}

				sup := app.supervisor(nil, store)
				defer shutdownSupervisor(sup, app.log())

				handle, err := sup.StartDownload(task.DownloadRequest{Model: args[0]})
				if err != nil {
					return err
				}
				cancelOnInterrupt(cmd.Context(), handle)

				message, err := renderRun(handle, app.progressEnabled(), app.log())
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}

func newModelsDeleteCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model>",
		Short: "Delete a downloaded model from the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withInstanceLock(func() error {
				store, err := app.modelStore()
				if err != nil {
					return err
				}

				entries, err := store.List()
				if err != nil {
					return err
				}

				for _, entry := range entries {
					if entry.Name != args[0] {
						continue
					}
					if err := store.Delete(entry); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", entry.Name, humanize.IBytes(uint64(entry.SizeBytes)))
					return nil
				}

				return fmt.Errorf("model %q is not downloaded", args[0])
			})
		},
	}
}
