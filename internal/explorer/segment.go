// Package explorer derives the virtual directory listing shown to the user
// from the flat list of blob names returned by the backend.
package explorer

import (
	"strings"

	"evidence-explorer/internal/model"
)

// PathDelimiter separates virtual folder segments inside blob names.
const PathDelimiter = "/"

// Segment partitions entries into the immediate child folders and files of
// prefix. Folder ids are the full prefix path including the trailing
// delimiter, so they never collide with a file id. Output order is the order
// in which each id is first seen.
func Segment(entries []model.RemoteEntry, prefix string) []model.VirtualItem {
	items := make([]model.VirtualItem, 0, len(entries))
	folderIndex := make(map[string]int)

	for i := range entries {
		entry := &entries[i]
		if !strings.HasPrefix(entry.Name, prefix) {
			continue
		}

		rel := strings.TrimPrefix(entry.Name, prefix)
		if rel == "" {
			// The folder marker of prefix itself.
			continue
		}

		first, _, nested := strings.Cut(rel, PathDelimiter)
		if !nested {
			items = append(items, model.VirtualItem{
				ID:    entry.Name,
				Name:  rel,
				Kind:  model.ItemFile,
				Entry: entry,
			})
			continue
		}

		id := prefix + first + PathDelimiter
		if idx, ok := folderIndex[id]; ok {
			items[idx].EntryCount++
			continue
		}

		folderIndex[id] = len(items)
		items = append(items, model.VirtualItem{
			ID:         id,
			Name:       first,
			Kind:       model.ItemFolder,
			EntryCount: 1,
		})
	}

	return items
}

// NormalizeFolder turns user input into a folder prefix: no leading
// delimiter, exactly one trailing delimiter, "" for the root.
func NormalizeFolder(folder string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(folder), `\`, PathDelimiter)
	cleaned = strings.Trim(cleaned, PathDelimiter)
	if cleaned == "" {
		return ""
	}

	return cleaned + PathDelimiter
}

// JoinPath joins a destination folder and a file name into a blob name.
func JoinPath(folder string, name string) string {
	return NormalizeFolder(folder) + strings.TrimLeft(name, PathDelimiter)
}

// Breadcrumbs maps every segment of folder to the prefix path that navigates
// back to it. The first crumb is the container root.
func Breadcrumbs(container string, folder string) []model.Breadcrumb {
	crumbs := []model.Breadcrumb{{Name: container, Path: ""}}

	prefix := ""
	for _, segment := range strings.Split(strings.Trim(NormalizeFolder(folder), PathDelimiter), PathDelimiter) {
		if segment == "" {
			continue
		}
		prefix += segment + PathDelimiter
		crumbs = append(crumbs, model.Breadcrumb{Name: segment, Path: prefix})
	}

	return crumbs
}
