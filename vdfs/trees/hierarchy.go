package trees

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	"github.com/rs/zerolog"
)

// HierarchyNode is one folder level of the index. Children and documents are
// kept in insertion order and looked up case-insensitively by name.
type HierarchyNode struct {
	Name string // last path component, empty for the root
	Path string // internal path of the folder

	parent     *HierarchyNode
	children   map[string]*HierarchyNode
	childOrder []*HierarchyNode
	docNames   map[string]DocumentRef
	documents  []DocumentRef
}

func newHierarchyNode(name, internalPath string, parent *HierarchyNode) *HierarchyNode {
	return &HierarchyNode{
		Name:     name,
		Path:     internalPath,
		parent:   parent,
		children: make(map[string]*HierarchyNode),
		docNames: make(map[string]DocumentRef),
	}
}

// Parent returns the enclosing folder, nil for the root.
func (n *HierarchyNode) Parent() *HierarchyNode { return n.parent }

// Child returns the direct child with the given name.
func (n *HierarchyNode) Child(name string) (*HierarchyNode, bool) {
	child, ok := n.children[strings.ToLower(name)]
	return child, ok
}

// Children returns the direct children in insertion order.
func (n *HierarchyNode) Children() []*HierarchyNode {
	out := make([]*HierarchyNode, len(n.childOrder))
	copy(out, n.childOrder)
	return out
}

// Documents returns the handles of the documents located directly in n.
func (n *HierarchyNode) Documents() []DocumentRef {
	out := make([]DocumentRef, len(n.documents))
	copy(out, n.documents)
	return out
}

// DocumentNamed returns the handle of the document with the given base name.
func (n *HierarchyNode) DocumentNamed(name string) (DocumentRef, bool) {
	ref, ok := n.docNames[strings.ToLower(name)]
	return ref, ok
}

func (n *HierarchyNode) childOrCreate(name string) *HierarchyNode {
	key := strings.ToLower(name)
	if child, ok := n.children[key]; ok {
		return child
	}
	child := newHierarchyNode(name, paths.Join(n.Path, name), n)
	n.children[key] = child
	n.childOrder = append(n.childOrder, child)
	return child
}

// Stats summarizes the last build.
type Stats struct {
	Folders        int
	Documents      int
	Skipped        int
	MaxDepth       int
	RootAccessible bool
	BuildTime      time.Duration
	LastBuilt      time.Time
}

// HierarchyIndex is the folder tree of one mount. It is not safe for
// concurrent use; a mount owns exactly one index.
type HierarchyIndex struct {
	internalRoot string
	extension    string
	ignoreFile   string
	root         *HierarchyNode
	arena        documentArena
	stats        Stats
	logger       zerolog.Logger
}

// IndexOption allows for customization of a HierarchyIndex
type IndexOption func(*HierarchyIndex)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) IndexOption {
	return func(h *HierarchyIndex) {
		h.logger = logger
	}
}

// WithExtension sets the document extension the scanner matches.
func WithExtension(ext string) IndexOption {
	return func(h *HierarchyIndex) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		h.extension = ext
	}
}

// WithIgnoreFile sets the name of the gitignore-style file read from the
// mount root. An empty name disables ignore rules.
func WithIgnoreFile(name string) IndexOption {
	return func(h *HierarchyIndex) {
		h.ignoreFile = name
	}
}

// NewHierarchyIndex creates an empty index rooted at internalRoot.
func NewHierarchyIndex(internalRoot string, opts ...IndexOption) *HierarchyIndex {
	h := &HierarchyIndex{
		internalRoot: paths.Normalize(internalRoot),
		extension:    ".md",
		arena:        newDocumentArena(),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.root = newHierarchyNode("", h.internalRoot, nil)
	return h
}

// InternalRoot returns the internal path of the root node.
func (h *HierarchyIndex) InternalRoot() string { return h.internalRoot }

// Extension returns the document extension the scanner matches.
func (h *HierarchyIndex) Extension() string { return h.extension }

// Root returns the root node.
func (h *HierarchyIndex) Root() *HierarchyNode { return h.root }

// Generation returns the current build generation. Handles issued in an
// earlier generation no longer resolve.
func (h *HierarchyIndex) Generation() uint32 { return h.arena.gen }

// Stats returns the statistics of the last build.
func (h *HierarchyIndex) Stats() Stats { return h.stats }

// Len returns the number of indexed documents.
func (h *HierarchyIndex) Len() int { return h.arena.count() }

// Teardown releases every document and resets the tree to an empty root.
func (h *HierarchyIndex) Teardown() {
	h.arena.reset()
	h.root = newHierarchyNode("", h.internalRoot, nil)
	h.stats = Stats{}
}

// Build tears the current tree down and rescans diskRoot. An inaccessible
// root leaves the index empty; individual bad entries are skipped.
func (h *HierarchyIndex) Build(diskRoot string) Stats {
	start := time.Now()
	h.Teardown()

	scanned := h.scan(diskRoot)
	stats := computeStats(h.root)
	stats.Skipped = scanned.skipped
	stats.RootAccessible = scanned.accessible
	stats.BuildTime = time.Since(start)
	stats.LastBuilt = time.Now()
	h.stats = stats

	h.logger.Debug().
		Str("root", diskRoot).
		Int("folders", stats.Folders).
		Int("documents", stats.Documents).
		Int("skipped", stats.Skipped).
		Dur("took", stats.BuildTime).
		Msg("hierarchy index built")
	return stats
}

// insertDocument files doc under the folder described by relFolder,
// creating any missing intermediate nodes. Duplicate names within a folder
// are rejected.
func (h *HierarchyIndex) insertDocument(relFolder string, doc *Document) bool {
	node := h.root
	for _, segment := range paths.Split(relFolder) {
		node = node.childOrCreate(segment)
	}
	key := strings.ToLower(doc.Name)
	if _, exists := node.docNames[key]; exists {
		return false
	}
	doc.FolderPath = node.Path
	doc.InternalPath = paths.Join(node.Path, doc.Name)
	ref := h.arena.add(doc)
	node.docNames[key] = ref
	node.documents = append(node.documents, ref)
	return true
}

// FindNode returns the node at internalPath. The internal root maps to the
// root node without a walk.
func (h *HierarchyIndex) FindNode(internalPath string) (*HierarchyNode, bool) {
	rest, ok := paths.TrimRoot(internalPath, h.internalRoot)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return h.root, true
	}
	node := h.root
	for _, segment := range paths.Split(rest) {
		child, found := node.Child(segment)
		if !found {
			return nil, false
		}
		node = child
	}
	return node, true
}

// GetMatchingFolders returns the internal paths of the folders below
// internalPath, direct children only unless recursive. Recursive results are
// pre-order with siblings in insertion order.
func (h *HierarchyIndex) GetMatchingFolders(internalPath string, recursive bool) []string {
	node, ok := h.FindNode(internalPath)
	if !ok {
		return nil
	}
	var out []string
	for _, child := range node.childOrder {
		out = append(out, child.Path)
		if recursive {
			out = collectFolders(child, out)
		}
	}
	return out
}

func collectFolders(node *HierarchyNode, out []string) []string {
	for _, child := range node.childOrder {
		out = append(out, child.Path)
		out = collectFolders(child, out)
	}
	return out
}

// GetMatchingDocuments returns the documents located in internalPath, and in
// every folder below it when recursive, flattened in the same pre-order as
// GetMatchingFolders.
func (h *HierarchyIndex) GetMatchingDocuments(internalPath string, recursive bool) []DocumentRef {
	node, ok := h.FindNode(internalPath)
	if !ok {
		return nil
	}
	out := append([]DocumentRef(nil), node.documents...)
	if recursive {
		out = collectDocuments(node, out)
	}
	return out
}

func collectDocuments(node *HierarchyNode, out []DocumentRef) []DocumentRef {
	for _, child := range node.childOrder {
		out = append(out, child.documents...)
		out = collectDocuments(child, out)
	}
	return out
}

// Resolve returns the document a handle points at. Handles from an earlier
// build fail with ErrStaleReference.
func (h *HierarchyIndex) Resolve(ref DocumentRef) (*Document, error) {
	return h.arena.get(ref)
}

// FindDocument returns the document at the given internal document path.
func (h *HierarchyIndex) FindDocument(internalPath string) (*Document, bool) {
	internalPath = paths.Normalize(internalPath)
	node, ok := h.FindNode(paths.Parent(internalPath))
	if !ok {
		return nil, false
	}
	ref, ok := node.DocumentNamed(paths.Base(internalPath))
	if !ok {
		return nil, false
	}
	doc, err := h.arena.get(ref)
	if err != nil {
		return nil, false
	}
	return doc, true
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's subtree.
func (h *HierarchyIndex) Walk(fn func(node *HierarchyNode) bool) {
	walkNode(h.root, fn)
}

func walkNode(node *HierarchyNode, fn func(*HierarchyNode) bool) {
	if !fn(node) {
		return
	}
	for _, child := range node.childOrder {
		walkNode(child, fn)
	}
}

// computeStats recursively counts folders and documents below node.
func computeStats(root *HierarchyNode) Stats {
	var stats Stats
	var visit func(node *HierarchyNode, depth int)
	visit = func(node *HierarchyNode, depth int) {
		if node != root {
			stats.Folders++
		}
		stats.Documents += len(node.documents)
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		for _, child := range node.childOrder {
			visit(child, depth+1)
		}
	}
	visit(root, 0)
	return stats
}
