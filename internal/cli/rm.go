package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"evidence-explorer/pkg/apierror"
)

const deleteConcurrency = 4

type deleteResult struct {
	path string
	err  error
}

func newRmCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <paths...>",
		Short: "Delete objects from a container",
		Long: `Delete the named objects. Every path is attempted even when some fail, and
each result is reported.

Example:
  evidencectl rm -c case-17 photos/IMG_001.jpg photos/IMG_002.jpg --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("refusing to delete without --yes when not attached to a terminal")
				}
				ok, err := confirm(fmt.Sprintf("Delete %d object(s) from %s", len(args), opts.container), os.Stdin, os.Stdout)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ctx := opts.callContext(cmd)
			results := make([]deleteResult, len(args))

			var g errgroup.Group
			g.SetLimit(deleteConcurrency)
			for i, path := range args {
				g.Go(func() error {
					results[i] = deleteResult{path: path, err: opts.client.DeleteObject(ctx, opts.container, path)}
					return nil
				})
			}
			_ = g.Wait()

			failed := 0
			out := cmd.OutOrStdout()
			for _, result := range results {
				if result.err != nil {
					failed++
					fmt.Fprintf(out, "failed   %s: %s\n", result.path, apierror.Message(result.err))
					continue
				}
				fmt.Fprintf(out, "deleted  %s\n", result.path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d delete(s) failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
