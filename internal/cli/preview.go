package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/preview"
)

func newPreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		thumbnail string
		size      int
		maxBytes  int64
	)

	cmd := &cobra.Command{
		Use:   "preview <path>",
		Short: "Describe how an object would be previewed",
		Long: `Print the preview kind and a time-limited read URL of an object. Message
exports show their subject. Images can be saved as a JPEG thumbnail.

Example:
  evidencectl preview -c case-17 mail/0001.eml
  evidencectl preview -c case-17 photos/IMG_001.jpg --thumbnail thumb.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := opts.callContext(cmd)
			svc := preview.NewService(opts.client, opts.transport, size, maxBytes)

			data, err := svc.Describe(ctx, opts.container, args[0])
			if err != nil {
				return err
			}
			renderPreview(cmd, data)

			if thumbnail == "" {
				return nil
			}

			f, err := os.Create(thumbnail)
			if err != nil {
				return err
			}
			if err := svc.Thumbnail(ctx, opts.container, args[0], size, f); err != nil {
				f.Close()
				_ = os.Remove(thumbnail)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "thumbnail  %s\n", thumbnail)
			return nil
		},
	}

	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "Write a JPEG thumbnail of an image to this file")
	cmd.Flags().IntVar(&size, "size", 256, "Longest side of the thumbnail in pixels")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 100<<20, "Largest image downloaded for a thumbnail")

	return cmd
}

func renderPreview(cmd *cobra.Command, data model.PreviewData) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "path       %s\nkind       %s\n", data.Path, data.Kind)
	if data.ReadURL != "" {
		fmt.Fprintf(out, "read url   %s\n", data.ReadURL)
	}
	if data.Message != nil {
		fmt.Fprintf(out, "subject    %s\n", data.Message.Subject)
	}
}
