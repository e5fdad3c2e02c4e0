package explorer

import (
	"path"
	"strings"

	"evidence-explorer/internal/model"
)

// BuildListing returns the sorted immediate children of folder.
func BuildListing(entries []model.RemoteEntry, folder string, spec model.SortSpec) []model.VirtualItem {
	items := Segment(entries, NormalizeFolder(folder))
	NewSorter(spec).Sort(items)
	return items
}

// VisibleFiles returns the ids of the file rows of items in display order.
// Folder rows are never selectable.
func VisibleFiles(items []model.VirtualItem) []string {
	files := make([]string, 0, len(items))
	for _, item := range items {
		if !item.IsFolder() {
			files = append(files, item.ID)
		}
	}

	return files
}

// VisibleTreeFiles returns the blob paths of the file rows of flattened tree
// rows. Tree rows are keyed by node id, so the path comes from the entry.
func VisibleTreeFiles(rows []model.TreeRow) []string {
	files := make([]string, 0, len(rows))
	for _, row := range rows {
		if !row.Item.IsFolder() && row.Item.Entry != nil {
			files = append(files, row.Item.Entry.Name)
		}
	}

	return files
}

// BuildTree links entries through their parentId into a hierarchy, sorts
// every sibling group and flattens it depth-first. Children of folders that
// are not in expanded are left out of the rows but still count towards
// HasChildren. A parentId that does not resolve places the entry at the root;
// entries caught in a parent cycle are emitted at the root once.
func BuildTree(entries []model.RemoteEntry, spec model.SortSpec, expanded map[string]bool) []model.TreeRow {
	nodes := make([]model.VirtualItem, 0, len(entries))
	index := make(map[string]int, len(entries))

	for i := range entries {
		entry := &entries[i]
		id := entry.NodeID()
		if _, dup := index[id]; dup {
			continue
		}

		kind := model.ItemFile
		if entry.IsFolder {
			kind = model.ItemFolder
		}

		index[id] = len(nodes)
		nodes = append(nodes, model.VirtualItem{
			ID:    id,
			Name:  displayName(entry.Name),
			Kind:  kind,
			Entry: entry,
		})
	}

	children := make(map[string][]model.VirtualItem, len(nodes))
	var roots []model.VirtualItem
	for _, node := range nodes {
		parent := node.Entry.ParentID
		if _, ok := index[parent]; parent == "" || parent == node.ID || !ok {
			roots = append(roots, node)
			continue
		}
		children[parent] = append(children[parent], node)
	}

	countChildren(roots, children)
	for _, group := range children {
		countChildren(group, children)
	}

	sorter := NewSorter(spec)

	b := treeFlattener{
		children: children,
		expanded: expanded,
		sorter:   sorter,
		visited:  make(map[string]bool, len(nodes)),
		rows:     make([]model.TreeRow, 0, len(nodes)),
	}
	b.emit(roots, 0)

	// Nodes only reachable through a parent cycle.
	var orphans []model.VirtualItem
	for _, node := range nodes {
		if !b.reachable(node.ID) {
			orphans = append(orphans, node)
		}
	}
	if len(orphans) > 0 {
		b.emit(orphans, 0)
	}

	return b.rows
}

type treeFlattener struct {
	children map[string][]model.VirtualItem
	expanded map[string]bool
	sorter   *Sorter
	visited  map[string]bool
	rows     []model.TreeRow
}

func (f *treeFlattener) emit(group []model.VirtualItem, level int) {
	f.sorter.Sort(group)

	for _, item := range group {
		if f.visited[item.ID] {
			continue
		}
		f.visited[item.ID] = true

		kids := f.children[item.ID]
		open := f.expanded[item.ID]
		f.rows = append(f.rows, model.TreeRow{
			Item:        item,
			Level:       level,
			HasChildren: len(kids) > 0,
			IsExpanded:  open && len(kids) > 0,
		})

		if open {
			f.emit(kids, level+1)
		} else {
			f.markHidden(kids)
		}
	}
}

// markHidden records collapsed descendants as reachable without emitting them.
func (f *treeFlattener) markHidden(group []model.VirtualItem) {
	for _, item := range group {
		if f.visited[item.ID] {
			continue
		}
		f.visited[item.ID] = true
		f.markHidden(f.children[item.ID])
	}
}

func (f *treeFlattener) reachable(id string) bool {
	return f.visited[id]
}

func countChildren(group []model.VirtualItem, children map[string][]model.VirtualItem) {
	for i := range group {
		if group[i].IsFolder() {
			group[i].EntryCount = len(children[group[i].ID])
		}
	}
}

func displayName(name string) string {
	trimmed := strings.TrimRight(name, PathDelimiter)
	if trimmed == "" {
		return name
	}

	return path.Base(trimmed)
}
