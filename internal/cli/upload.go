package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"evidence-explorer/internal/explorer"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/upload"
)

func newUploadCmd(opts *globalOptions) *cobra.Command {
	var (
		destination string
		overwrite   string
	)

	cmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload local files into a container folder",
		Long: `Upload files one at a time into the destination folder. When a file already
exists, --overwrite decides: ask prompts for each conflict, always replaces
and never skips it.

Example:
  evidencectl upload -c case-17 --to photos/ IMG_001.jpg IMG_002.jpg
  evidencectl upload -c case-17 --overwrite never ./export/*.eml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := parseOverwritePolicy(overwrite)
			if err != nil {
				return err
			}

			sources := make([]upload.Source, 0, len(args))
			for _, path := range args {
				src, err := upload.NewFileSource(path)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}

			batch, err := upload.NewBatch(uuid.NewString(), opts.container, explorer.NormalizeFolder(destination), sources)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			bar := progressbar.NewOptions(batch.Len(),
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionSetDescription(fmt.Sprintf("uploading %s", humanBytes(totalSize(sources)))),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			confirmer := &promptConfirmer{
				policy:       policy,
				interactive:  term.IsTerminal(int(os.Stdin.Fd())),
				stdin:        os.Stdin,
				stdout:       os.Stdout,
				beforePrompt: func() { _ = bar.Clear() },
			}

			engine := upload.NewEngine(opts.client, opts.transport, confirmer, upload.Hooks{
				OnTaskChange: func(_ *upload.Batch, task model.UploadTaskView) {
					if task.Status.Terminal() {
						_ = bar.Add(1)
					}
				},
			})

			summary := engine.Run(opts.callContext(cmd), batch)
			_ = bar.Finish()

			renderSummary(cmd.OutOrStdout(), summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d upload(s) failed", summary.Failed, len(summary.Tasks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&destination, "to", "", "Destination folder inside the container")
	cmd.Flags().StringVar(&overwrite, "overwrite", overwriteAsk, "Existing files: ask, always or never")

	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
