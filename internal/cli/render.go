package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/upload"
)

func renderListing(w io.Writer, items []model.VirtualItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDOCUMENT ID\tMODIFIED\tMODIFIED BY\tCHECKSUM")

	for _, item := range items {
		if item.IsFolder() {
			fmt.Fprintf(tw, "%s/\t\t\t\t%d object(s)\n", item.Name, item.EntryCount)
			continue
		}
		entry := item.Entry
		modified, _ := entry.MetadataValue("modifiedDate")
		modifiedBy, _ := entry.MetadataValue("modifiedBy")
		docID := entry.DocumentID
		if docID == "" {
			docID, _ = entry.MetadataValue("documentId")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Name, dash(docID), dash(modified), dash(modifiedBy), dash(entry.Checksum))
	}

	return tw.Flush()
}

func renderTree(w io.Writer, rows []model.TreeRow) error {
	for _, row := range rows {
		marker := "  "
		if row.HasChildren {
			marker = "▾ "
		}
		name := row.Item.Name
		if row.Item.IsFolder() {
			name += "/"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", row.Level), marker, name); err != nil {
			return err
		}
	}
	return nil
}

func renderPageFooter(w io.Writer, page model.Page) {
	more := ""
	if page.HasNext {
		more = fmt.Sprintf(" (more: --page %d)", page.Number+1)
	}
	fmt.Fprintf(w, "\npage %d, %d object(s)%s\n", page.Number, len(page.Items), more)
}

func renderMetadata(w io.Writer, metadata map[string]string) error {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", key, metadata[key])
	}
	return tw.Flush()
}

func renderSummary(w io.Writer, summary model.UploadSummary) {
	for _, task := range summary.Tasks {
		line := fmt.Sprintf("%-8s %s", task.Status, task.Destination)
		if task.Overwrite && task.Status == model.UploadSuccess {
			line += " (overwritten)"
		}
		if task.ErrorMessage != "" {
			line += ": " + task.ErrorMessage
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%d uploaded, %d skipped, %d failed\n", summary.Succeeded, summary.Skipped, summary.Failed)
}

func breadcrumbPath(crumbs []model.Breadcrumb) string {
	names := make([]string, 0, len(crumbs))
	for _, crumb := range crumbs {
		names = append(names, crumb.Name)
	}
	return strings.Join(names, " / ")
}

func totalSize(sources []upload.Source) int64 {
	var total int64
	for _, src := range sources {
		total += src.Size()
	}
	return total
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
