package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/properties"
)

func newMetaCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Show or edit object metadata",
	}

	cmd.AddCommand(newMetaGetCmd(opts))
	cmd.AddCommand(newMetaSetCmd(opts))

	return cmd
}

func newMetaGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the checksum and metadata of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := findEntry(opts.callContext(cmd), opts.client, opts.container, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\nchecksum  %s\n\n", entry.Name, dash(entry.Checksum))
			return renderMetadata(out, entry.Metadata)
		},
	}
}

func newMetaSetCmd(opts *globalOptions) *cobra.Command {
	var (
		remove  []string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "set <path> [key=value...]",
		Short: "Change the metadata of an object",
		Long: `Set, add or remove metadata keys of one object and save the result. New keys
are stored lower-case. With --replace the existing keys are dropped first.

Example:
  evidencectl meta set -c case-17 photos/IMG_001.jpg exhibit=A7 officer=kline
  evidencectl meta set -c case-17 photos/IMG_001.jpg --remove draft`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(args[1:])
			if err != nil {
				return err
			}

			ctx := opts.callContext(cmd)
			entry, err := findEntry(ctx, opts.client, opts.container, args[0])
			if err != nil {
				return err
			}

			draft := properties.NewDraft(entry)
			if err := applyEdits(draft, pairs, remove, replace); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !draft.Dirty() {
				fmt.Fprintln(out, "No changes.")
				return nil
			}

			if err := opts.client.UpdateMetadata(ctx, opts.container, draft.Path(), draft.Metadata()); err != nil {
				return fmt.Errorf("save metadata of %s: %w", draft.Path(), err)
			}
			draft.MarkSaved()

			fmt.Fprintf(out, "Saved %s\n\n", draft.Path())
			return renderMetadata(out, draft.Metadata())
		},
	}

	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Keys to remove")
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop every existing key before applying the new ones")

	return cmd
}

// applyEdits updates existing keys in place and adds the rest.
func applyEdits(draft *properties.Draft, pairs []model.MetadataPair, remove []string, replace bool) error {
	if replace {
		for key := range draft.Metadata() {
			draft.Remove(key)
		}
	}

	for _, key := range remove {
		if !draft.Remove(key) {
			return fmt.Errorf("%s: no such metadata key", key)
		}
	}

	current := draft.Metadata()
	for _, pair := range pairs {
		if hasKey(current, pair.Key) {
			if err := draft.Set(pair.Key, pair.Value); err != nil {
				return err
			}
			continue
		}
		if err := draft.Add(pair.Key, pair.Value); err != nil {
			return fmt.Errorf("%s: %w", pair.Key, err)
		}
		current = draft.Metadata()
	}

	return nil
}

func parsePairs(args []string) ([]model.MetadataPair, error) {
	pairs := make([]model.MetadataPair, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		pairs = append(pairs, model.MetadataPair{Key: strings.TrimSpace(key), Value: value})
	}

	if _, err := properties.ValidatePairs(pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func hasKey(metadata map[string]string, key string) bool {
	for k := range metadata {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
