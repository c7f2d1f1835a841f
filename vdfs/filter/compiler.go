package filter

import (
	"context"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/collections"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/rs/zerolog"
)

// Compiler turns queries into compiled filters for one mount and evaluates
// items against them.
type Compiler struct {
	index       *trees.HierarchyIndex
	translator  *paths.Translator
	factory     *items.Factory
	collections collections.Service
	logger      zerolog.Logger
}

// CompilerOption allows for customization of a Compiler
type CompilerOption func(*Compiler)

// WithCollections sets the service collection constraints are resolved by.
func WithCollections(svc collections.Service) CompilerOption {
	return func(c *Compiler) {
		c.collections = svc
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler creates a compiler over the mount's index, translator and item
// factory.
func NewCompiler(index *trees.HierarchyIndex, translator *paths.Translator, factory *items.Factory, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		index:      index,
		translator: translator,
		factory:    factory,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile resolves q into the folders and documents it matches. Requests
// that cannot match anything compile to an empty filter; Compile never fails.
func (c *Compiler) Compile(ctx context.Context, q Query) *CompiledFilter {
	f := newCompiledFilter(c.factory.Owner(), c.index.Generation(), q.Types)
	includeFolders, includeFiles := q.Types.Has(IncludeFolders), q.Types.Has(IncludeFiles)
	if !q.Categories.Has(CategoryDocumentation) || (!includeFolders && !includeFiles) {
		return f
	}

	kind, scope := c.resolveScope(q)
	var candidates []string
	switch kind {
	case paths.PathInternal:
		candidates = []string{scope}
	case paths.PathVirtual:
		if !q.Recursive {
			// a virtual folder holds no documents of its own
			if includeFolders {
				c.compileVirtualLevel(q.Path, f)
			}
			return f
		}
		candidates = c.flattenVirtual(q.Path)
	default:
		return f
	}
	if len(candidates) == 0 {
		return f
	}

	allowed, ok := c.allowedMembers(ctx, q.Collections)
	if !ok {
		return newCompiledFilter(f.owner, f.generation, q.Types)
	}
	permissions := q.Permissions
	if !permissions.HasFiltering() {
		permissions = nil
	}

	for _, candidate := range candidates {
		if includeFolders {
			if kind == paths.PathVirtual {
				f.addFolder(candidate)
			}
			for _, folder := range c.index.GetMatchingFolders(candidate, q.Recursive) {
				f.addFolder(folder)
			}
		}
		if includeFiles {
			for _, ref := range c.index.GetMatchingDocuments(candidate, q.Recursive) {
				doc, err := c.index.Resolve(ref)
				if err != nil {
					continue
				}
				identity := doc.Identity()
				if allowed != nil {
					if _, member := allowed[collections.IdentityKey(identity)]; !member {
						continue
					}
				}
				if permissions != nil && !permissions.PassesFilter(identity) {
					continue
				}
				f.addDocument(ref)
			}
		}
	}

	c.logger.Debug().
		Str("path", q.Path).
		Str("scope", kind.String()).
		Bool("recursive", q.Recursive).
		Int("folders", len(f.folders)).
		Int("documents", len(f.documents)).
		Msg("filter compiled")
	return f
}

// resolveScope classifies the query path. Internal scopes outside the mount
// resolve to nothing.
func (c *Compiler) resolveScope(q Query) (paths.PathKind, string) {
	if q.Internal {
		if !c.translator.IsUnderMount(q.Path) {
			return paths.PathNone, ""
		}
		return paths.PathInternal, paths.Normalize(q.Path)
	}
	return c.translator.Resolve(q.Path)
}

// compileVirtualLevel fills f with the direct children of a virtual folder:
// this mount's grafts become folders and virtual-only children that lead to
// one of them become cached virtual folder items.
func (c *Compiler) compileVirtualLevel(virtualPath string, f *CompiledFilter) {
	tree := c.translator.Tree()
	tree.EnumerateSubPaths(virtualPath, false, func(virtualSub, internalSub string) bool {
		if internalSub != "" {
			if c.translator.IsUnderMount(internalSub) {
				f.addFolder(internalSub)
			}
			return true
		}
		if _, cached := f.CachedVirtualFolder(virtualSub); cached {
			return true
		}
		if c.leadsToMount(virtualSub) {
			f.cacheVirtualFolder(c.factory.CreateVirtualFolderItem(virtualSub))
		}
		return true
	})
}

// leadsToMount reports whether a graft of this mount lies below virtualPath.
func (c *Compiler) leadsToMount(virtualPath string) bool {
	found := false
	c.translator.Tree().EnumerateSubPaths(virtualPath, true, func(_, internalSub string) bool {
		found = internalSub != "" && c.translator.IsUnderMount(internalSub)
		return !found
	})
	return found
}

// flattenVirtual returns the internal paths of this mount's grafts below
// virtualPath.
func (c *Compiler) flattenVirtual(virtualPath string) []string {
	var out []string
	c.translator.Tree().EnumerateSubPaths(virtualPath, true, func(_, internalSub string) bool {
		if internalSub != "" && c.translator.IsUnderMount(internalSub) {
			out = append(out, internalSub)
		}
		return true
	})
	return out
}

// allowedMembers resolves an active collection constraint. It returns a nil
// set when no constraint applies and false when the constraint admits
// nothing, including when the service is missing or fails.
func (c *Compiler) allowedMembers(ctx context.Context, cf *CollectionFilter) (map[string]struct{}, bool) {
	if !cf.Active() {
		return nil, true
	}
	if c.collections == nil {
		c.logger.Warn().Strs("collections", cf.Names).Msg("collection filter without a collection service")
		return nil, false
	}
	members, err := c.collections.Members(ctx, cf.Names, cf.IncludeChildren)
	if err != nil {
		c.logger.Warn().Err(err).Strs("collections", cf.Names).Msg("collection lookup failed")
		return nil, false
	}
	if len(members) == 0 {
		return nil, false
	}
	allowed := make(map[string]struct{}, len(members))
	for _, id := range members {
		allowed[collections.IdentityKey(id)] = struct{}{}
	}
	return allowed, true
}

// DoesItemPassFilter re-checks one item against the compiled sets without
// recompiling.
func (c *Compiler) DoesItemPassFilter(item items.Item, f *CompiledFilter) bool {
	if !c.isCurrent(f) || item.Owner != f.owner {
		return false
	}
	switch payload := item.Payload.(type) {
	case items.FolderPayload:
		if !f.includeFolders {
			return false
		}
		if payload.Path == "" {
			_, ok := f.CachedVirtualFolder(item.VirtualPath)
			return ok
		}
		return f.HasFolder(payload.Path)
	case items.FilePayload:
		return f.includeFiles && f.HasDocument(payload.Document)
	}
	return false
}

// isCurrent reports whether f belongs to this mount and to the live build.
// Filters compiled before a rebuild match nothing.
func (c *Compiler) isCurrent(f *CompiledFilter) bool {
	return f != nil && f.owner == c.factory.Owner() && f.generation == c.index.Generation()
}

// Enumerate calls fn for every item of f: cached virtual folders first, then
// folders, then files. Documents that no longer resolve are skipped.
// Enumeration stops when fn returns false.
func (c *Compiler) Enumerate(f *CompiledFilter, fn func(items.Item) bool) {
	if !c.isCurrent(f) {
		return
	}
	for _, item := range f.virtualFolders {
		if !fn(item) {
			return
		}
	}
	for _, folder := range f.folders {
		if !fn(c.factory.CreateFolderItem(folder)) {
			return
		}
	}
	for _, ref := range f.documents {
		doc, err := c.index.Resolve(ref)
		if err != nil {
			continue
		}
		if !fn(c.factory.CreateFileItem(doc)) {
			return
		}
	}
}
