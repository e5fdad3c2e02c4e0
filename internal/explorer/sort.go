package explorer

import (
	"cmp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"evidence-explorer/internal/model"
)

const (
	ColumnName         = "name"
	ColumnChecksum     = "checksum"
	ColumnDocumentID   = "documentId"
	ColumnCreatedDate  = "createdDate"
	ColumnModifiedDate = "modifiedDate"
	ColumnModifiedBy   = "modifiedBy"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

var columnAliases = map[string]string{
	"name":          ColumnName,
	"checksum":      ColumnChecksum,
	"documentid":    ColumnDocumentID,
	"document_id":   ColumnDocumentID,
	"createddate":   ColumnCreatedDate,
	"created_date":  ColumnCreatedDate,
	"modifieddate":  ColumnModifiedDate,
	"modified_date": ColumnModifiedDate,
	"modifiedby":    ColumnModifiedBy,
	"modified_by":   ColumnModifiedBy,
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeSort maps user input onto a known column and direction, falling
// back to name ascending.
func NormalizeSort(spec model.SortSpec) model.SortSpec {
	column, ok := columnAliases[strings.ToLower(strings.TrimSpace(spec.Column))]
	if !ok {
		column = ColumnName
	}

	direction := DirectionAsc
	if strings.EqualFold(strings.TrimSpace(spec.Direction), DirectionDesc) {
		direction = DirectionDesc
	}

	return model.SortSpec{Column: column, Direction: direction}
}

// Sorter orders virtual items by one column. A Sorter owns a collator and is
// not safe for concurrent use.
type Sorter struct {
	spec     model.SortSpec
	collator *collate.Collator
}

func NewSorter(spec model.SortSpec) *Sorter {
	return &Sorter{
		spec:     NormalizeSort(spec),
		collator: collate.New(language.Und),
	}
}

// Compare returns a negative number when a sorts before b. Folders precede
// files whatever the column or direction; the direction only reverses the
// order within one kind.
func (s *Sorter) Compare(a model.VirtualItem, b model.VirtualItem) int {
	if a.IsFolder() != b.IsFolder() {
		if a.IsFolder() {
			return -1
		}
		return 1
	}

	result := s.compareKeys(keyFor(a, s.spec.Column), keyFor(b, s.spec.Column))
	if s.spec.Direction == DirectionDesc {
		return -result
	}

	return result
}

// Sort orders items in place, keeping input order for equal keys.
func (s *Sorter) Sort(items []model.VirtualItem) {
	sort.SliceStable(items, func(i int, j int) bool {
		return s.Compare(items[i], items[j]) < 0
	})
}

// Compare is the one-shot form of Sorter.Compare.
func Compare(a model.VirtualItem, b model.VirtualItem, spec model.SortSpec) int {
	return NewSorter(spec).Compare(a, b)
}

type sortKey struct {
	numeric bool
	num     float64
	str     string
}

func (s *Sorter) compareKeys(a sortKey, b sortKey) int {
	if a.numeric && b.numeric {
		return cmp.Compare(a.num, b.num)
	}

	return s.collator.CompareString(a.text(), b.text())
}

func (k sortKey) text() string {
	if k.numeric {
		return strconv.FormatFloat(k.num, 'f', -1, 64)
	}

	return k.str
}

func keyFor(item model.VirtualItem, column string) sortKey {
	switch column {
	case ColumnChecksum:
		if item.Entry != nil && item.Entry.Checksum != "" {
			return sortKey{str: item.Entry.Checksum}
		}
		return sortKey{str: lookup(item, ColumnChecksum)}
	case ColumnDocumentID:
		raw := lookup(item, ColumnDocumentID)
		if item.Entry != nil && item.Entry.DocumentID != "" {
			raw = item.Entry.DocumentID
		}
		if strings.TrimSpace(raw) == "" {
			return sortKey{numeric: true}
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return sortKey{numeric: true, num: n}
		}
		return sortKey{str: raw}
	case ColumnCreatedDate, ColumnModifiedDate:
		return sortKey{numeric: true, num: float64(parseTimestamp(lookup(item, column)))}
	case ColumnModifiedBy:
		return sortKey{str: lookup(item, ColumnModifiedBy)}
	default:
		return sortKey{str: item.Name}
	}
}

func lookup(item model.VirtualItem, key string) string {
	if item.Entry == nil {
		return ""
	}

	v, _ := item.Entry.MetadataValue(key)
	return v
}

// parseTimestamp returns unix milliseconds, or zero for absent or
// unrecognized values.
func parseTimestamp(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli()
		}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}

	return 0
}
