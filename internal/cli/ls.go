package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"evidence-explorer/internal/explorer"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/pagination"
)

func newLsCmd(opts *globalOptions) *cobra.Command {
	var (
		sortColumn string
		desc       bool
		tree       bool
		page       int
	)

	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List one page of a container",
		Long: `List the folders and files of one page of the container. Folders are
derived from "/" in object names; --tree shows the parent/child hierarchy
reported by the evidence service instead.

Example:
  evidencectl ls -c case-17 photos/ --sort modifiedDate --desc
  evidencectl ls -c case-17 --tree --page 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}

			direction := explorer.DirectionAsc
			if desc {
				direction = explorer.DirectionDesc
			}
			spec := explorer.NormalizeSort(model.SortSpec{Column: sortColumn, Direction: direction})

			current, err := loadPage(opts.callContext(cmd), opts.client, opts.container, page)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if tree {
				err = renderTree(out, explorer.BuildTree(current.Items, spec, expandAll(current.Items)))
			} else {
				fmt.Fprintf(out, "%s\n", breadcrumbPath(explorer.Breadcrumbs(opts.container, folder)))
				err = renderListing(out, explorer.BuildListing(current.Items, folder, spec))
			}
			if err != nil {
				return err
			}

			renderPageFooter(out, current)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortColumn, "sort", explorer.ColumnName, "Sort column: name, checksum, documentId, createdDate, modifiedDate, modifiedBy")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&tree, "tree", false, "Show the parent/child hierarchy, fully expanded")
	cmd.Flags().IntVar(&page, "page", 1, "Page number to show")

	return cmd
}

// loadPage walks continuation tokens forward to page number.
func loadPage(ctx context.Context, lister pagination.Lister, container string, number int) (model.Page, error) {
	pager := pagination.NewController(lister)

	current, err := pager.LoadFirstPage(ctx, container)
	if err != nil {
		return model.Page{}, err
	}

	for current.Number < number {
		current, err = pager.Next(ctx)
		if errors.Is(err, model.ErrNoNextPage) {
			return model.Page{}, fmt.Errorf("container %s has only %d page(s)", container, pager.Page().Number)
		}
		if err != nil {
			return model.Page{}, err
		}
	}

	return current, nil
}

// findEntry scans the container page by page for the object named path.
func findEntry(ctx context.Context, lister pagination.Lister, container string, path string) (model.RemoteEntry, error) {
	pager := pagination.NewController(lister)

	current, err := pager.LoadFirstPage(ctx, container)
	for {
		if err != nil {
			return model.RemoteEntry{}, err
		}

		for _, entry := range current.Items {
			if entry.Name == path {
				return entry, nil
			}
		}

		if !pager.CanNext() {
			return model.RemoteEntry{}, fmt.Errorf("%s: %w", path, model.ErrEntryNotFound)
		}
		current, err = pager.Next(ctx)
	}
}

func expandAll(entries []model.RemoteEntry) map[string]bool {
	expanded := make(map[string]bool, len(entries))
	for _, entry := range entries {
		expanded[entry.NodeID()] = true
	}
	return expanded
}
