package model

type ItemKind string

const (
	ItemFolder ItemKind = "folder"
	ItemFile   ItemKind = "file"
)

// VirtualItem is a node of the displayed listing. Folder nodes are synthesized
// from a shared path prefix and carry no entry; file nodes project exactly one
// RemoteEntry.
type VirtualItem struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       ItemKind     `json:"kind"`
	Entry      *RemoteEntry `json:"entry,omitempty"`
	EntryCount int          `json:"entry_count,omitempty"`
}

func (v VirtualItem) IsFolder() bool {
	return v.Kind == ItemFolder
}

// TreeRow is one row of the depth-first flattened hierarchical listing.
type TreeRow struct {
	Item        VirtualItem `json:"item"`
	Level       int         `json:"level"`
	HasChildren bool        `json:"has_children"`
	IsExpanded  bool        `json:"is_expanded"`
}

type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type SortSpec struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Page is a snapshot of the pagination controller after a successful list.
type Page struct {
	Container   string        `json:"container"`
	Number      int           `json:"number"`
	Items       []RemoteEntry `json:"-"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}

type ViewData struct {
	Container   string        `json:"container"`
	Folder      string        `json:"folder"`
	Mode        string        `json:"mode"`
	Pagination  Page          `json:"pagination"`
	Breadcrumbs []Breadcrumb  `json:"breadcrumbs"`
	Sort        SortSpec      `json:"sort"`
	Items       []VirtualItem `json:"items,omitempty"`
	Rows        []TreeRow     `json:"rows,omitempty"`
	Selected    []string      `json:"selected"`
}
