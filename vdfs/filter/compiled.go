package filter

import (
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
)

// CompiledFilter is the resolved result of a Query against one mount. It is
// only meaningful for the build generation it was compiled in.
type CompiledFilter struct {
	owner          uuid.UUID
	generation     uint32
	includeFolders bool
	includeFiles   bool

	folders   []string
	folderSet map[string]struct{}

	documents   []trees.DocumentRef
	documentSet *roaring.Bitmap

	virtualFolders []items.Item
	virtualCache   map[string]items.Item
}

func newCompiledFilter(owner uuid.UUID, generation uint32, types ItemTypeFlags) *CompiledFilter {
	return &CompiledFilter{
		owner:          owner,
		generation:     generation,
		includeFolders: types.Has(IncludeFolders),
		includeFiles:   types.Has(IncludeFiles),
		folderSet:      make(map[string]struct{}),
		documentSet:    roaring.New(),
		virtualCache:   make(map[string]items.Item),
	}
}

// Owner returns the id of the mount the filter was compiled for.
func (f *CompiledFilter) Owner() uuid.UUID { return f.owner }

// Generation returns the index generation the filter was compiled against.
func (f *CompiledFilter) Generation() uint32 { return f.generation }

// Folders returns the matching internal folder paths in compile order.
func (f *CompiledFilter) Folders() []string {
	return append([]string(nil), f.folders...)
}

// Documents returns the matching document handles in compile order.
func (f *CompiledFilter) Documents() []trees.DocumentRef {
	return append([]trees.DocumentRef(nil), f.documents...)
}

// VirtualFolders returns the cached virtual folder items.
func (f *CompiledFilter) VirtualFolders() []items.Item {
	return append([]items.Item(nil), f.virtualFolders...)
}

// CachedVirtualFolder returns the cached item for a virtual sub-path.
func (f *CompiledFilter) CachedVirtualFolder(virtualPath string) (items.Item, bool) {
	item, ok := f.virtualCache[paths.Key(virtualPath)]
	return item, ok
}

// Len returns the number of items the filter enumerates.
func (f *CompiledFilter) Len() int {
	return len(f.virtualFolders) + len(f.folders) + len(f.documents)
}

// IsEmpty reports whether the filter matches nothing.
func (f *CompiledFilter) IsEmpty() bool { return f.Len() == 0 }

// HasFolder reports whether internalPath is in the folder set.
func (f *CompiledFilter) HasFolder(internalPath string) bool {
	_, ok := f.folderSet[paths.Key(internalPath)]
	return ok
}

// HasDocument reports whether ref is in the document set of this generation.
func (f *CompiledFilter) HasDocument(ref trees.DocumentRef) bool {
	return ref.Generation() == f.generation && f.documentSet.Contains(ref.Slot())
}

func (f *CompiledFilter) addFolder(internalPath string) {
	key := paths.Key(internalPath)
	if _, ok := f.folderSet[key]; ok {
		return
	}
	f.folderSet[key] = struct{}{}
	f.folders = append(f.folders, internalPath)
}

func (f *CompiledFilter) addDocument(ref trees.DocumentRef) {
	if f.documentSet.Contains(ref.Slot()) {
		return
	}
	f.documentSet.Add(ref.Slot())
	f.documents = append(f.documents, ref)
}

func (f *CompiledFilter) cacheVirtualFolder(item items.Item) {
	key := paths.Key(item.VirtualPath)
	if _, ok := f.virtualCache[key]; ok {
		return
	}
	f.virtualCache[key] = item
	f.virtualFolders = append(f.virtualFolders, item)
}
