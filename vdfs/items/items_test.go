package items

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator(t *testing.T, internalRoot, virtualPrefix string) *paths.Translator {
	t.Helper()
	roots := paths.NewStaticContentRoots([]string{"Engine"}, []string{"Game"},
		map[string]paths.PluginSource{"Paper2D": paths.PluginFromEngine})
	tr, err := paths.NewTranslator(internalRoot, virtualPrefix, paths.WithContentRoots(roots))
	require.NoError(t, err)
	return tr
}

func buildIndex(t *testing.T, internalRoot string, files map[string]string) *trees.HierarchyIndex {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	idx := trees.NewHierarchyIndex(internalRoot)
	idx.Build(root)
	return idx
}

func TestFactory_FolderItems(t *testing.T) {
	owner := uuid.New()
	f := NewFactory(owner, newTranslator(t, "/Documentation", "/All/Documentation"))

	tests := []struct {
		name     string
		path     string
		item     string
		override string
		display  string
		virtual  string
	}{
		{"project root", "/Documentation", "Documentation", "Documentation", "Documentation", "/All/Documentation"},
		{"engine root", "/Documentation_Engine", "Documentation_Engine", "Engine Documentation", "Engine Documentation", ""},
		{"plain folder", "/Documentation/guide", "guide", "", "guide", "/All/Documentation/guide"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := f.CreateFolderItem(tc.path)
			assert.Equal(t, owner, item.Owner)
			assert.True(t, item.IsFolder())
			assert.False(t, item.IsVirtual())
			assert.Equal(t, tc.item, item.Name)
			assert.Equal(t, tc.override, item.DisplayNameOverride)
			assert.Equal(t, tc.display, item.DisplayName())
			assert.Equal(t, tc.virtual, item.VirtualPath)

			payload, ok := item.FolderPayload(owner)
			require.True(t, ok)
			assert.Equal(t, tc.path, payload.Path)

			_, ok = item.FolderPayload(uuid.New())
			assert.False(t, ok, "foreign owner")
			_, ok = item.FilePayload(owner)
			assert.False(t, ok, "wrong kind")
		})
	}
}

func TestFactory_Rules(t *testing.T) {
	f := NewFactory(uuid.New(), newTranslator(t, "/Documentation", "/All/Documentation"),
		WithDisplayOverride("/Documentation/api", "API Reference"),
		WithDisplayNameRule(TitleCaseRule))

	assert.Equal(t, "API Reference", f.CreateFolderItem("/Documentation/API").DisplayName())
	assert.Equal(t, "Getting Started", f.CreateFolderItem("/Documentation/getting_started").DisplayName())
	assert.Equal(t, "", f.CreateFolderItem("/Documentation/Plain").DisplayNameOverride)
	assert.Equal(t, "Documentation", f.CreateFolderItem("/Documentation").DisplayName())
}

func TestFactory_VirtualAndFileItems(t *testing.T) {
	owner := uuid.New()
	tr := newTranslator(t, "/Documentation", "/All/Documentation")
	f := NewFactory(owner, tr)

	virtual := f.CreateVirtualFolderItem("/All")
	assert.True(t, virtual.IsVirtual())
	assert.Equal(t, "All", virtual.Name)
	assert.Equal(t, "/All", virtual.VirtualPath)
	assert.Equal(t, "", virtual.InternalPath())

	idx := buildIndex(t, "/Documentation", map[string]string{"guide/setup.md": "# Setup"})
	doc, ok := idx.FindDocument("/Documentation/guide/setup")
	require.True(t, ok)

	file := f.CreateFileItem(doc)
	assert.True(t, file.IsFile())
	assert.Equal(t, "setup", file.Name)
	assert.Equal(t, "/All/Documentation/guide/setup", file.VirtualPath)
	payload, ok := file.FilePayload(owner)
	require.True(t, ok)
	assert.Equal(t, doc.Ref(), payload.Document)
	assert.Equal(t, "/Documentation/guide/setup", payload.Path)
}

func TestNameToDisplayString(t *testing.T) {
	tests := map[string]string{
		"guide":           "Guide",
		"getting_started": "Getting Started",
		"gettingStarted":  "Getting Started",
		"release-notes":   "Release Notes",
		"wordCount":       "Word Count",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NameToDisplayString(in), in)
	}
}

func TestAttributeSource(t *testing.T) {
	now := time.Now()
	owner := uuid.New()
	tr := newTranslator(t, "/Documentation_Engine", "/All/Engine/Documentation")
	idx := buildIndex(t, "/Documentation_Engine", map[string]string{
		"guide/setup.md": "---\nauthor: Ada\n_internal: secret\n---\n# Setup\n\nInstall things.\n",
		"empty.md":       "",
	})
	f := NewFactory(owner, tr)
	src := NewAttributeSource(idx, tr, WithClock(func() time.Time { return now }))

	setup, ok := idx.FindDocument("/Documentation_Engine/guide/setup")
	require.True(t, ok)
	file := f.CreateFileItem(setup)
	folder := f.CreateFolderItem("/Documentation_Engine/guide")

	t.Run("folders answer origin flags only", func(t *testing.T) {
		v, ok := src.GetItemAttribute(folder, false, AttrIsEngineContent)
		require.True(t, ok)
		assert.Equal(t, true, v.Value)

		v, ok = src.GetItemAttribute(folder, false, AttrIsProjectContent)
		require.True(t, ok)
		assert.Equal(t, false, v.Value)

		_, ok = src.GetItemAttribute(folder, false, AttrTypeName)
		assert.False(t, ok)

		_, ok = src.GetItemAttributes(folder, false)
		assert.False(t, ok)
	})

	t.Run("fixed vocabulary on files", func(t *testing.T) {
		v, ok := src.GetItemAttribute(file, true, AttrTypeName)
		require.True(t, ok)
		assert.Equal(t, "Documentation", v.String())
		require.NotNil(t, v.MetaData)
		assert.Equal(t, "Type", v.MetaData.DisplayName)

		v, ok = src.GetItemAttribute(file, false, "Class")
		require.True(t, ok)
		assert.Equal(t, "Documentation", v.String())

		v, ok = src.GetItemAttribute(file, false, AttrDescription)
		require.True(t, ok)
		assert.Equal(t, "Install things.", v.String())

		v, ok = src.GetItemAttribute(file, false, AttrIsPluginContent)
		require.True(t, ok)
		assert.Equal(t, "false", v.String())

		v, ok = src.GetItemAttribute(file, false, AttrColor)
		require.True(t, ok)
		assert.NotEmpty(t, v.String())
	})

	t.Run("generic tags", func(t *testing.T) {
		v, ok := src.GetItemAttribute(file, true, "author")
		require.True(t, ok)
		assert.Equal(t, "Ada", v.String())
		assert.Equal(t, "Author", v.MetaData.DisplayName)
		assert.False(t, v.MetaData.Hidden)

		v, ok = src.GetItemAttribute(file, true, "_internal")
		require.True(t, ok)
		assert.True(t, v.MetaData.Hidden)

		v, ok = src.GetItemAttribute(file, false, "age")
		require.True(t, ok)
		assert.Equal(t, "recent", v.String())

		_, ok = src.GetItemAttribute(file, false, "nonexistent")
		assert.False(t, ok)
	})

	t.Run("empty document has no description", func(t *testing.T) {
		empty, ok := idx.FindDocument("/Documentation_Engine/empty")
		require.True(t, ok)
		_, ok = src.GetItemAttribute(f.CreateFileItem(empty), false, AttrDescription)
		assert.False(t, ok)
	})

	t.Run("bulk attributes", func(t *testing.T) {
		attrs, ok := src.GetItemAttributes(file, false)
		require.True(t, ok)
		assert.Equal(t, "Documentation", attrs["Class"].String())
		assert.Equal(t, "Ada", attrs["author"].String())
		assert.Contains(t, attrs, AttributeKey("size"))
	})

	t.Run("stale items answer nothing", func(t *testing.T) {
		idx.Teardown()
		for _, key := range []AttributeKey{"author", AttrTypeName, AttrTypeDisplayName, AttrColor, AttrIsEngineContent, AttrDescription} {
			_, ok := src.GetItemAttribute(file, false, key)
			assert.False(t, ok, key)
		}
		_, ok = src.GetItemAttributes(file, false)
		assert.False(t, ok)
	})
}

func TestAttributeSource_RebuildInvalidatesFileItems(t *testing.T) {
	tr := newTranslator(t, "/Documentation", "/All/Documentation")
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.md"), []byte("# Intro"), 0o644))
	idx := trees.NewHierarchyIndex("/Documentation")
	idx.Build(root)

	f := NewFactory(uuid.New(), tr)
	src := NewAttributeSource(idx, tr, WithColor("(R=1,G=0,B=0,A=1)"))
	doc, ok := idx.FindDocument("/Documentation/intro")
	require.True(t, ok)
	old := f.CreateFileItem(doc)

	v, ok := src.GetItemAttribute(old, false, AttrColor)
	require.True(t, ok)
	assert.Equal(t, "(R=1,G=0,B=0,A=1)", v.String())

	idx.Build(root)
	_, ok = src.GetItemAttribute(old, false, AttrTypeName)
	assert.False(t, ok)

	doc, ok = idx.FindDocument("/Documentation/intro")
	require.True(t, ok)
	v, ok = src.GetItemAttribute(f.CreateFileItem(doc), false, AttrTypeName)
	require.True(t, ok)
	assert.Equal(t, "Documentation", v.String())
}

func TestAttributeSource_LoadFailureIsLogged(t *testing.T) {
	tr := newTranslator(t, "/Documentation", "/All/Documentation")
	idx := buildIndex(t, "/Documentation", map[string]string{
		"gone.md": "---\nauthor: Ada\n---\nBody text.\n",
	})
	var logs bytes.Buffer
	src := NewAttributeSource(idx, tr, WithLogger(zerolog.New(&logs)))

	doc, ok := idx.FindDocument("/Documentation/gone")
	require.True(t, ok)
	require.NoError(t, os.Remove(doc.DiskPath))
	file := NewFactory(uuid.New(), tr).CreateFileItem(doc)

	_, ok = src.GetItemAttribute(file, false, AttrDescription)
	assert.False(t, ok)
	_, ok = src.GetItemAttribute(file, false, "author")
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "failed to load document attributes")
	assert.Contains(t, logs.String(), "gone.md")

	v, ok := src.GetItemAttribute(file, false, "size")
	require.True(t, ok, "stat tags do not need the content")
	assert.Equal(t, trees.TagSizeSmall, v.String())

	attrs, ok := src.GetItemAttributes(file, false)
	require.True(t, ok)
	assert.NotContains(t, attrs, AttrDescription)
}
