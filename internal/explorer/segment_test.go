package explorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/model"
)

func entries(names ...string) []model.RemoteEntry {
	out := make([]model.RemoteEntry, 0, len(names))
	for _, name := range names {
		out = append(out, model.RemoteEntry{Name: name, Checksum: "md5-" + name})
	}
	return out
}

func TestSegment(t *testing.T) {
	t.Parallel()

	t.Run("root groups nested names into one folder", func(t *testing.T) {
		items := BuildListing(entries("a/b.txt", "a/c.txt", "d.txt"), "", model.SortSpec{})

		require.Len(t, items, 2)
		require.Equal(t, model.ItemFolder, items[0].Kind)
		require.Equal(t, "a", items[0].Name)
		require.Equal(t, "a/", items[0].ID)
		require.Equal(t, 2, items[0].EntryCount)
		require.Nil(t, items[0].Entry)
		require.Equal(t, model.ItemFile, items[1].Kind)
		require.Equal(t, "d.txt", items[1].ID)
	})

	t.Run("navigating into a folder lists its files", func(t *testing.T) {
		items := BuildListing(entries("a/b.txt", "a/c.txt", "d.txt"), "a/", model.SortSpec{})

		require.Len(t, items, 2)
		require.Equal(t, "b.txt", items[0].Name)
		require.Equal(t, "a/b.txt", items[0].ID)
		require.Equal(t, "c.txt", items[1].Name)
		require.Equal(t, "md5-a/c.txt", items[1].Entry.Checksum)
	})

	t.Run("folder marker of the current prefix is ignored", func(t *testing.T) {
		items := Segment(entries("a/", "a/x.txt"), "a/")

		require.Len(t, items, 1)
		require.Equal(t, "x.txt", items[0].Name)
	})

	t.Run("file and folder with the same segment keep distinct ids", func(t *testing.T) {
		items := Segment(entries("case", "case/1.pdf"), "")

		require.Len(t, items, 2)
		assert.NotEqual(t, items[0].ID, items[1].ID)
	})

	t.Run("ids are unique and folders cover every prefixed entry", func(t *testing.T) {
		all := entries(
			"evidence/2024/a.jpg", "evidence/2024/b.jpg", "evidence/2023/c.pdf",
			"evidence/readme.txt", "evidence/", "other/x.txt", "evidence/2024/deep/d.eml",
		)

		for _, prefix := range []string{"", "evidence/", "evidence/2024/", "missing/"} {
			items := Segment(all, prefix)

			seen := make(map[string]bool)
			covered := 0
			for _, item := range items {
				require.False(t, seen[item.ID], "duplicate id %q", item.ID)
				seen[item.ID] = true
				if item.IsFolder() {
					covered += item.EntryCount
				} else {
					covered++
				}
			}

			expected := 0
			for _, e := range all {
				if strings.HasPrefix(e.Name, prefix) && e.Name != prefix {
					expected++
				}
			}
			require.Equal(t, expected, covered, "prefix %q", prefix)
		}
	})

	t.Run("output is deterministic", func(t *testing.T) {
		all := entries("z/1", "a/1", "m.txt", "a/2", "z/2")

		require.Equal(t, Segment(all, ""), Segment(all, ""))
	})
}

func TestNormalizeFolder(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", NormalizeFolder(""))
	require.Equal(t, "", NormalizeFolder("/"))
	require.Equal(t, "evidence/", NormalizeFolder("evidence"))
	require.Equal(t, "evidence/2024/", NormalizeFolder("/evidence/2024/"))
	require.Equal(t, "evidence/2024/", NormalizeFolder(`evidence\2024`))
	require.Equal(t, "evidence/report.pdf", JoinPath("evidence", "report.pdf"))
	require.Equal(t, "report.pdf", JoinPath("", "report.pdf"))
}

func TestBreadcrumbs(t *testing.T) {
	t.Parallel()

	crumbs := Breadcrumbs("case-42", "evidence/2024/")

	require.Equal(t, []model.Breadcrumb{
		{Name: "case-42", Path: ""},
		{Name: "evidence", Path: "evidence/"},
		{Name: "2024", Path: "evidence/2024/"},
	}, crumbs)
	require.Len(t, Breadcrumbs("case-42", ""), 1)
}
