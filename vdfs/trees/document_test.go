package trees

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Load(t *testing.T) {
	idx, _ := buildIndex(t, map[string]string{
		"intro.md": "# Intro\n\nWelcome aboard.\n",
	})
	doc, ok := idx.FindDocument("/Documentation/intro")
	require.True(t, ok)

	t.Run("content is loaded lazily", func(t *testing.T) {
		assert.False(t, doc.IsLoaded())
		require.NoError(t, doc.EnsureLoaded())
		text, loaded := doc.Content()
		assert.True(t, loaded)
		assert.Equal(t, "# Intro\n\nWelcome aboard.\n", text)
	})

	t.Run("missing file yields no content", func(t *testing.T) {
		missing := &Document{RelativePath: "/gone.md", DiskPath: filepath.Join(t.TempDir(), "gone.md")}
		err := missing.EnsureLoaded()
		assert.ErrorIs(t, err, ErrNoContent)
		_, loaded := missing.Content()
		assert.False(t, loaded)
	})
}

func TestDocument_MarkChanged(t *testing.T) {
	t.Run("persists eagerly and notifies once", func(t *testing.T) {
		idx, root := buildIndex(t, map[string]string{"guide/setup.md": "old"})
		doc, ok := idx.FindDocument("/Documentation/guide/setup")
		require.True(t, ok)

		calls := 0
		doc.SetOnChanged(func(d *Document) {
			calls++
			assert.True(t, d.IsDirty())
		})

		require.NoError(t, doc.MarkChanged("new text"))
		assert.Equal(t, 1, calls)
		assert.False(t, doc.IsDirty())

		data, err := os.ReadFile(filepath.Join(root, "guide", "setup.md"))
		require.NoError(t, err)
		assert.Equal(t, "new text", string(data))
	})

	t.Run("failed write keeps the dirty flag", func(t *testing.T) {
		doc := &Document{
			RelativePath: "/nowhere/doc.md",
			DiskPath:     filepath.Join(t.TempDir(), "nowhere", "doc.md"),
		}
		err := doc.MarkChanged("text")
		assert.Error(t, err)
		assert.True(t, doc.IsDirty())

		text, loaded := doc.Content()
		assert.True(t, loaded)
		assert.Equal(t, "text", text)
	})

	t.Run("persist without content fails", func(t *testing.T) {
		doc := &Document{RelativePath: "/x.md", DiskPath: filepath.Join(t.TempDir(), "x.md")}
		assert.ErrorIs(t, doc.PersistToDisk(), ErrNoContent)
	})

	t.Run("rebuild releases content and hooks", func(t *testing.T) {
		idx, root := buildIndex(t, map[string]string{"a.md": "a"})
		doc, ok := idx.FindDocument("/Documentation/a")
		require.True(t, ok)
		require.NoError(t, doc.EnsureLoaded())
		doc.SetOnChanged(func(*Document) {})

		idx.Build(root)
		assert.False(t, doc.IsLoaded())
		assert.Nil(t, doc.onChanged)
	})
}

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		fields map[string]string
		body   string
		err    bool
	}{
		{
			name: "no front matter",
			text: "# Title\nbody",
			body: "# Title\nbody",
		},
		{
			name:   "scalar and list fields",
			text:   "---\ntitle: Setup\nweight: 3\ntags: [install, linux]\n---\n# Setup\n",
			fields: map[string]string{"title": "Setup", "weight": "3", "tags": "install, linux"},
			body:   "# Setup\n",
		},
		{
			name:   "empty block",
			text:   "---\n---\nbody",
			fields: map[string]string{},
			body:   "body",
		},
		{
			name: "unterminated block is plain text",
			text: "---\ntitle: x\nbody",
			body: "---\ntitle: x\nbody",
		},
		{
			name: "invalid yaml",
			text: "---\ntitle: [unclosed\n---\nbody",
			body: "---\ntitle: [unclosed\n---\nbody",
			err:  true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields, body, err := ParseFrontMatter(tc.text)
			if tc.err {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.fields, fields)
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestDocument_TagsAndDescription(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	doc := &Document{
		FileName: "setup.md",
		Size:     2048,
		ModTime:  now.Add(-2 * time.Hour),
	}

	tags := doc.Tags(now)
	assert.Equal(t, map[string]string{"size": "medium", "extension": "md", "age": "recent"}, tags)
	assert.Empty(t, doc.Description())

	doc.content = "---\nauthor: Ada\nsize: custom\n---\n# Setup\n\nInstall the toolchain.\n"
	doc.loaded = true

	tags = doc.Tags(now)
	assert.Equal(t, "Ada", tags["author"])
	assert.Equal(t, "custom", tags["size"])
	assert.Equal(t, []string{"age", "author", "extension", "size"}, SortedTagKeys(tags))
	assert.Equal(t, "Install the toolchain.", doc.Description())

	doc.content = "---\ndescription: Explicit summary\n---\nBody"
	assert.Equal(t, "Explicit summary", doc.Description())
}
