// Package mount ties one documentation folder to the host namespace. A Mount
// owns the hierarchy index, the path translator, the item factory and the
// filter compiler of one virtual root and is the object hosts query,
// enumerate and edit through.
package mount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/collections"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/config"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/filter"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/metrics"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownMount     = errors.New("unknown mount")
	ErrForeignItem      = errors.New("item belongs to another mount")
	ErrDuplicateMount   = errors.New("mount already registered")
	ErrNotAFile         = errors.New("item is not a document")
	ErrNoEditor         = errors.New("no editor configured")
	ErrRootInaccessible = errors.New("mount root is not accessible")
	ErrInvalidName      = errors.New("invalid document name")
)

// Editor is the external surface documents are opened in. Edit returns the
// document text as the editor left it; the mount persists it when it differs
// from the cached content.
type Editor interface {
	Edit(ctx context.Context, doc *trees.Document) (string, error)
}

// EditorFunc adapts a function to the Editor interface.
type EditorFunc func(ctx context.Context, doc *trees.Document) (string, error)

// Edit calls f(ctx, doc).
func (f EditorFunc) Edit(ctx context.Context, doc *trees.Document) (string, error) {
	return f(ctx, doc)
}

// Mount is the context object of one documentation root. It is not safe for
// concurrent use: rebuilds must not overlap with queries on the same mount.
type Mount struct {
	ID       uuid.UUID
	name     string
	diskRoot string

	index       *trees.HierarchyIndex
	translator  *paths.Translator
	factory     *items.Factory
	compiler    *filter.Compiler
	attributes  *items.AttributeSource
	collections collections.Service
	editor      Editor
	events      broadcaster
	logger      zerolog.Logger

	// construction-only settings
	tree          *paths.VirtualTree
	roots         paths.ContentRoots
	marker        string
	typeName      string
	factoryOpts   []items.FactoryOption
	skipInitBuild bool
}

// Option allows for customization of a Mount
type Option func(*Mount)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mount) {
		m.logger = logger
	}
}

// WithCollections sets the collection service filters resolve against.
func WithCollections(svc collections.Service) Option {
	return func(m *Mount) {
		m.collections = svc
	}
}

// WithVirtualTree grafts the mount into a shared host namespace.
func WithVirtualTree(tree *paths.VirtualTree) Option {
	return func(m *Mount) {
		m.tree = tree
	}
}

// WithContentRoots sets the content roots used for origin classification.
func WithContentRoots(roots paths.ContentRoots) Option {
	return func(m *Mount) {
		m.roots = roots
	}
}

// WithOriginMarker overrides the structural marker of origin classification.
func WithOriginMarker(marker string) Option {
	return func(m *Mount) {
		m.marker = marker
	}
}

// WithEditor sets the surface Edit opens documents in.
func WithEditor(editor Editor) Option {
	return func(m *Mount) {
		m.editor = editor
	}
}

// WithTypeName sets the class name document items report.
func WithTypeName(name string) Option {
	return func(m *Mount) {
		m.typeName = name
	}
}

// WithDisplayNameRule appends a folder display name rule.
func WithDisplayNameRule(rule items.DisplayNameRule) Option {
	return func(m *Mount) {
		m.factoryOpts = append(m.factoryOpts, items.WithDisplayNameRule(rule))
	}
}

// WithoutInitialBuild defers the first scan until Refresh is called.
func WithoutInitialBuild() Option {
	return func(m *Mount) {
		m.skipInitBuild = true
	}
}

// New creates the mount described by cfg, grafts it into the namespace and
// scans it. Relative mount folders resolve against projectDir.
func New(cfg config.MountConfig, projectDir string, opts ...Option) (*Mount, error) {
	if cfg.Folder == "" {
		return nil, fmt.Errorf("mount %q: folder is required", cfg.Name)
	}
	if cfg.InternalRoot == "" {
		cfg.InternalRoot = paths.Separator + filepath.Base(cfg.Folder)
	}
	if cfg.VirtualPrefix == "" {
		cfg.VirtualPrefix = "/All" + paths.Normalize(cfg.InternalRoot)
	}
	if cfg.Extension == "" {
		cfg.Extension = vdfs.DefaultDocExtension
	}
	if cfg.Name == "" {
		cfg.Name = strings.ToLower(paths.Base(cfg.InternalRoot))
	}

	m := &Mount{
		ID:       uuid.New(),
		name:     cfg.Name,
		diskRoot: cfg.DiskPath(projectDir),
		marker:   vdfs.DefaultOriginMarker,
		typeName: vdfs.DefaultTypeName,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("mount", m.name).Logger()

	origin, ok := paths.ParseOrigin(cfg.Origin)
	if !ok {
		return nil, fmt.Errorf("mount %q: unknown origin %q", m.name, cfg.Origin)
	}
	translatorOpts := []paths.TranslatorOption{paths.WithOriginMarker(m.marker), paths.WithMountOrigin(origin)}
	if m.tree != nil {
		translatorOpts = append(translatorOpts, paths.WithVirtualTree(m.tree))
	}
	if m.roots != nil {
		translatorOpts = append(translatorOpts, paths.WithContentRoots(m.roots))
	}
	translator, err := paths.NewTranslator(cfg.InternalRoot, cfg.VirtualPrefix, translatorOpts...)
	if err != nil {
		return nil, fmt.Errorf("mount %q: %w", m.name, err)
	}
	m.translator = translator

	m.index = trees.NewHierarchyIndex(cfg.InternalRoot,
		trees.WithLogger(m.logger),
		trees.WithExtension(cfg.Extension),
		trees.WithIgnoreFile(cfg.IgnoreFile),
	)
	m.factory = items.NewFactory(m.ID, translator, m.factoryOpts...)
	attributeOpts := []items.AttributeOption{items.WithTypeName(m.typeName), items.WithLogger(m.logger)}
	if cfg.Color != "" {
		attributeOpts = append(attributeOpts, items.WithColor(cfg.Color))
	}
	m.attributes = items.NewAttributeSource(m.index, translator, attributeOpts...)

	compilerOpts := []filter.CompilerOption{filter.WithLogger(m.logger)}
	if m.collections != nil {
		compilerOpts = append(compilerOpts, filter.WithCollections(m.collections))
	}
	m.compiler = filter.NewCompiler(m.index, translator, m.factory, compilerOpts...)

	if !m.skipInitBuild {
		m.Refresh()
	}
	return m, nil
}

// Name returns the configured mount name.
func (m *Mount) Name() string { return m.name }

// DiskRoot returns the folder the mount scans.
func (m *Mount) DiskRoot() string { return m.diskRoot }

// InternalRoot returns the internal path of the mount root.
func (m *Mount) InternalRoot() string { return m.translator.InternalRoot() }

// VirtualPrefix returns the virtual path the mount is grafted at.
func (m *Mount) VirtualPrefix() string { return m.translator.VirtualPrefix() }

// Index exposes the hierarchy index for read-only inspection.
func (m *Mount) Index() *trees.HierarchyIndex { return m.index }

// Translator returns the mount's path translator.
func (m *Mount) Translator() *paths.Translator { return m.translator }

// Stats returns the statistics of the last rebuild.
func (m *Mount) Stats() trees.Stats { return m.index.Stats() }

// Subscribe registers fn for change notifications and returns a function
// that removes it. Events of one mount are delivered one at a time on the
// goroutine that caused them, but Registry.RebuildAll refreshes mounts in
// parallel: a listener shared by several mounts must synchronize itself.
func (m *Mount) Subscribe(fn Listener) func() {
	return m.events.subscribe(fn)
}

// Refresh rebuilds the index from disk and emits ItemAdded for every
// document, then every folder. Items issued before the call go stale.
func (m *Mount) Refresh() trees.Stats {
	stats := m.index.Build(m.diskRoot)
	if !stats.RootAccessible {
		m.logger.Warn().Str("root", m.diskRoot).Msg("documentation root is not accessible")
	}
	metrics.RecordRebuild(m.name, stats.BuildTime, stats.Documents, stats.Folders)

	var docs []*trees.Document
	var folders []string
	m.index.Walk(func(node *trees.HierarchyNode) bool {
		if node.Parent() != nil {
			folders = append(folders, node.Path)
		}
		for _, ref := range node.Documents() {
			doc, err := m.index.Resolve(ref)
			if err != nil {
				continue
			}
			doc.SetOnChanged(m.documentChanged)
			docs = append(docs, doc)
		}
		return true
	})

	for _, doc := range docs {
		m.events.emit(Event{Kind: ItemAdded, Item: m.factory.CreateFileItem(doc)})
	}
	for _, folder := range folders {
		m.events.emit(Event{Kind: ItemAdded, Item: m.factory.CreateFolderItem(folder)})
	}

	m.logger.Info().
		Int("folders", stats.Folders).
		Int("documents", stats.Documents).
		Dur("took", stats.BuildTime).
		Msg("mount refreshed")
	return stats
}

func (m *Mount) documentChanged(doc *trees.Document) {
	m.events.emit(Event{Kind: ItemModified, Item: m.factory.CreateFileItem(doc)})
}

// CompileFilter resolves q against the current build.
func (m *Mount) CompileFilter(ctx context.Context, q filter.Query) *filter.CompiledFilter {
	metrics.RecordFilterCompilation(m.name)
	return m.compiler.Compile(ctx, q)
}

// EnumerateItemsMatchingFilter calls fn for every item of f until fn
// returns false.
func (m *Mount) EnumerateItemsMatchingFilter(f *filter.CompiledFilter, fn func(items.Item) bool) {
	m.compiler.Enumerate(f, fn)
}

// DoesItemPassFilter re-checks item against f.
func (m *Mount) DoesItemPassFilter(item items.Item, f *filter.CompiledFilter) bool {
	return m.compiler.DoesItemPassFilter(item, f)
}

// EnumerateItemsAtPath calls fn with the item at virtualPath and, for
// folders, the documents directly inside it. Virtual folders leading to
// this mount yield a single virtual folder item. A path ending in the
// document extension addresses the document file.
func (m *Mount) EnumerateItemsAtPath(virtualPath string, types filter.ItemTypeFlags, fn func(items.Item) bool) {
	kind, internal := m.translator.Resolve(virtualPath)
	switch kind {
	case paths.PathVirtual:
		if types.Has(filter.IncludeFolders) && m.leadsHere(virtualPath) {
			fn(m.factory.CreateVirtualFolderItem(virtualPath))
		}
	case paths.PathInternal:
		// "guide.md" names the document even when a "guide" folder sits next to it
		if doc, ok := m.documentByFileName(internal); ok {
			if types.Has(filter.IncludeFiles) {
				fn(m.factory.CreateFileItem(doc))
			}
			return
		}
		node, ok := m.index.FindNode(internal)
		if !ok {
			if doc, found := m.index.FindDocument(internal); found && types.Has(filter.IncludeFiles) {
				fn(m.factory.CreateFileItem(doc))
			}
			return
		}
		if types.Has(filter.IncludeFolders) && !fn(m.factory.CreateFolderItem(node.Path)) {
			return
		}
		if !types.Has(filter.IncludeFiles) {
			return
		}
		for _, ref := range node.Documents() {
			doc, err := m.index.Resolve(ref)
			if err != nil {
				continue
			}
			if !fn(m.factory.CreateFileItem(doc)) {
				return
			}
		}
	}
}

func (m *Mount) documentByFileName(internalPath string) (*trees.Document, bool) {
	ext := m.index.Extension()
	if ext == "" || len(internalPath) <= len(ext) || !strings.EqualFold(internalPath[len(internalPath)-len(ext):], ext) {
		return nil, false
	}
	return m.index.FindDocument(internalPath[:len(internalPath)-len(ext)])
}

func (m *Mount) leadsHere(virtualPath string) bool {
	found := false
	m.translator.Tree().EnumerateSubPaths(virtualPath, true, func(_, internal string) bool {
		found = internal != "" && m.translator.IsUnderMount(internal)
		return !found
	})
	return found
}

// GetItemAttribute answers one attribute of an item of this mount.
func (m *Mount) GetItemAttribute(item items.Item, includeMetaData bool, key items.AttributeKey) (items.AttributeValue, bool) {
	if item.Owner != m.ID {
		return items.AttributeValue{}, false
	}
	return m.attributes.GetItemAttribute(item, includeMetaData, key)
}

// GetItemAttributes answers every attribute of a document item.
func (m *Mount) GetItemAttributes(item items.Item, includeMetaData bool) (map[items.AttributeKey]items.AttributeValue, bool) {
	if item.Owner != m.ID {
		return nil, false
	}
	return m.attributes.GetItemAttributes(item, includeMetaData)
}

// Document resolves a file item to its document.
func (m *Mount) Document(item items.Item) (*trees.Document, error) {
	if item.Owner != m.ID {
		return nil, ErrForeignItem
	}
	payload, ok := item.FilePayload(m.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, item.VirtualPath)
	}
	return m.index.Resolve(payload.Document)
}

// Load resolves a file item and materializes its content.
func (m *Mount) Load(item items.Item) (*trees.Document, error) {
	doc, err := m.Document(item)
	if err != nil {
		return nil, err
	}
	if err := doc.EnsureLoaded(); err != nil {
		return doc, err
	}
	return doc, nil
}

// Write replaces a document's content and persists it immediately. A failed
// write is logged and leaves the document dirty so Persist can retry it.
func (m *Mount) Write(item items.Item, text string) error {
	doc, err := m.Document(item)
	if err != nil {
		return err
	}
	return m.write(doc, text)
}

func (m *Mount) write(doc *trees.Document, text string) error {
	err := doc.MarkChanged(text)
	m.recordPersist(doc, err)
	return err
}

// Persist writes a document's cached content back to disk.
func (m *Mount) Persist(item items.Item) error {
	doc, err := m.Document(item)
	if err != nil {
		return err
	}
	if !doc.IsDirty() {
		return nil
	}
	err = doc.PersistToDisk()
	m.recordPersist(doc, err)
	return err
}

func (m *Mount) recordPersist(doc *trees.Document, err error) {
	metrics.RecordPersist(m.name, err == nil)
	if err != nil {
		m.logger.Warn().Err(err).Str("document", doc.RelativePath).Msg("failed to persist document")
	}
}

// Edit opens every file item in the configured editor and persists what the
// editor saved like Write does. Folder items are ignored.
func (m *Mount) Edit(ctx context.Context, list ...items.Item) error {
	if m.editor == nil {
		return ErrNoEditor
	}
	for _, item := range list {
		if !item.IsFile() {
			continue
		}
		doc, err := m.Load(item)
		if err != nil && !errors.Is(err, trees.ErrNoContent) {
			return err
		}
		before, _ := doc.Content()
		text, err := m.editor.Edit(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to edit %s: %w", item.VirtualPath, err)
		}
		if text == before {
			continue
		}
		if err := m.write(doc, text); err != nil {
			return err
		}
	}
	return nil
}

// CreateDocument creates an empty document named name in the folder at
// folderInternalPath, rebuilds the mount and returns the new file item.
func (m *Mount) CreateDocument(folderInternalPath, name string) (items.Item, error) {
	node, ok := m.index.FindNode(folderInternalPath)
	if !ok {
		return items.Item{}, fmt.Errorf("%w: folder %s", trees.ErrNotFound, folderInternalPath)
	}
	name = strings.TrimSpace(name)
	ext := m.index.Extension()
	if strings.EqualFold(filepath.Ext(name), ext) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return items.Item{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, exists := node.DocumentNamed(name); exists {
		return items.Item{}, fmt.Errorf("%s: %w", paths.Join(node.Path, name), os.ErrExist)
	}

	rest, _ := paths.TrimRoot(node.Path, m.InternalRoot())
	dir := filepath.Join(m.diskRoot, filepath.FromSlash(rest))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return items.Item{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	file, err := os.OpenFile(filepath.Join(dir, name+ext), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return items.Item{}, fmt.Errorf("failed to create document: %w", err)
	}
	if err := file.Close(); err != nil {
		return items.Item{}, fmt.Errorf("failed to create document: %w", err)
	}

	m.Refresh()
	doc, ok := m.index.FindDocument(paths.Join(node.Path, name))
	if !ok {
		return items.Item{}, fmt.Errorf("%w: %s was not indexed", trees.ErrNotFound, name)
	}
	return m.factory.CreateFileItem(doc), nil
}

// PhysicalPath returns the disk location of a folder or file item.
func (m *Mount) PhysicalPath(item items.Item) (string, error) {
	if item.Owner != m.ID {
		return "", ErrForeignItem
	}
	switch payload := item.Payload.(type) {
	case items.FilePayload:
		doc, err := m.index.Resolve(payload.Document)
		if err != nil {
			return "", err
		}
		return doc.DiskPath, nil
	case items.FolderPayload:
		rest, ok := paths.TrimRoot(payload.Path, m.InternalRoot())
		if !ok {
			return "", fmt.Errorf("%w: %s", paths.ErrNotUnderMount, item.VirtualPath)
		}
		return filepath.Join(m.diskRoot, filepath.FromSlash(rest)), nil
	}
	return "", fmt.Errorf("%w: %s", trees.ErrNotFound, item.VirtualPath)
}

// AppendItemReference appends the identity of item to buf, separated from
// earlier references by a newline.
func (m *Mount) AppendItemReference(item items.Item, buf *strings.Builder) bool {
	if item.Owner != m.ID {
		return false
	}
	identity := item.InternalPath()
	if identity == "" {
		return false
	}
	if buf.Len() > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString(identity)
	return true
}

// Close ungrafts the mount, releases its documents and drops listeners.
func (m *Mount) Close() error {
	m.translator.Detach()
	m.index.Teardown()
	m.events.reset()
	metrics.Forget(m.name)
	m.logger.Debug().Msg("mount closed")
	return nil
}
