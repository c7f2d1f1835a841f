package paths

import (
	"fmt"
)

// PathKind is the result of resolving a scope path against one mount.
type PathKind int

const (
	// PathNone means the path is neither under the mount nor a virtual folder.
	PathNone PathKind = iota
	// PathVirtual means the path is a virtual-only folder of the shared tree.
	PathVirtual
	// PathInternal means the path lies under the mount's virtual prefix.
	PathInternal
)

func (k PathKind) String() string {
	switch k {
	case PathVirtual:
		return "virtual"
	case PathInternal:
		return "internal"
	default:
		return "none"
	}
}

// Translator maps between one mount's internal paths and the virtual paths
// the host displays, and classifies the origin of internal paths.
type Translator struct {
	internalRoot  string
	virtualPrefix string
	marker        string
	roots         ContentRoots
	mountOrigin   Origin
	tree          *VirtualTree
}

// TranslatorOption allows for customization of a Translator
type TranslatorOption func(*Translator)

// WithContentRoots sets the table origin classification consults.
func WithContentRoots(roots ContentRoots) TranslatorOption {
	return func(t *Translator) {
		t.roots = roots
	}
}

// WithOriginMarker sets the structural prefix that precedes the content root
// name in documentation paths.
func WithOriginMarker(marker string) TranslatorOption {
	return func(t *Translator) {
		t.marker = marker
	}
}

// WithMountOrigin sets the origin of paths under the mount that carry no
// marker-prefixed content root, such as the plain project "/Documentation".
func WithMountOrigin(origin Origin) TranslatorOption {
	return func(t *Translator) {
		t.mountOrigin = origin
	}
}

// WithVirtualTree grafts the mount into a shared virtual tree instead of a
// private one.
func WithVirtualTree(tree *VirtualTree) TranslatorOption {
	return func(t *Translator) {
		t.tree = tree
	}
}

// NewTranslator creates a translator for the mount rooted at internalRoot
// and displayed under virtualPrefix, and grafts it into the virtual tree.
func NewTranslator(internalRoot, virtualPrefix string, opts ...TranslatorOption) (*Translator, error) {
	t := &Translator{
		internalRoot:  Normalize(internalRoot),
		virtualPrefix: Normalize(virtualPrefix),
		marker:        "/Documentation_",
		roots:         NewStaticContentRoots(nil, nil, nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.internalRoot == "" || t.internalRoot == Separator {
		return nil, fmt.Errorf("%w: internal root %q", ErrInvalidPath, internalRoot)
	}
	if t.virtualPrefix == "" || t.virtualPrefix == Separator {
		return nil, fmt.Errorf("%w: virtual prefix %q", ErrInvalidPath, virtualPrefix)
	}
	if t.tree == nil {
		t.tree = NewVirtualTree()
	}
	if err := t.tree.Graft(t.virtualPrefix, t.internalRoot); err != nil {
		return nil, err
	}
	return t, nil
}

// Detach removes the mount's graft from the virtual tree.
func (t *Translator) Detach() {
	t.tree.Ungraft(t.virtualPrefix)
}

// InternalRoot returns the internal mount root, e.g. "/Documentation".
func (t *Translator) InternalRoot() string { return t.internalRoot }

// VirtualPrefix returns the virtual path the mount is grafted at.
func (t *Translator) VirtualPrefix() string { return t.virtualPrefix }

// Tree returns the virtual tree the mount is grafted into.
func (t *Translator) Tree() *VirtualTree { return t.tree }

// ToInternal maps a virtual path under the mount's prefix to its internal
// path. The prefix itself maps to the internal root.
func (t *Translator) ToInternal(virtualPath string) (string, error) {
	rest, ok := TrimRoot(virtualPath, t.virtualPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotUnderMount, virtualPath)
	}
	return t.internalRoot + rest, nil
}

// ToVirtual maps an internal path of this mount to its virtual path. Paths
// outside the internal root have no virtual form and yield "".
func (t *Translator) ToVirtual(internalPath string) string {
	rest, ok := TrimRoot(internalPath, t.internalRoot)
	if !ok {
		return ""
	}
	return t.virtualPrefix + rest
}

// IsUnderMount reports whether internalPath is the internal root or below it.
func (t *Translator) IsUnderMount(internalPath string) bool {
	return IsUnder(internalPath, t.internalRoot)
}

// Resolve classifies a scope path. Paths under the virtual prefix resolve to
// their internal path. Virtual-only nodes of the tree are virtual folders,
// and grafts owned by other mounts resolve to nothing.
func (t *Translator) Resolve(virtualPath string) (PathKind, string) {
	if internal, err := t.ToInternal(virtualPath); err == nil {
		return PathInternal, internal
	}
	if internal, exists := t.tree.Lookup(virtualPath); exists && internal == "" {
		return PathVirtual, ""
	}
	return PathNone, ""
}

// ClassifyOrigin tests the content root embedded in internalPath against the
// engine, project and plugin roots in that order. Paths of this mount without
// a content root report the mount's own origin.
func (t *Translator) ClassifyOrigin(internalPath string) Origin {
	name, ok := ContentRootName(internalPath, t.marker)
	if !ok {
		return t.ownOrigin(internalPath)
	}
	switch {
	case t.roots.IsEngineRoot(name):
		return OriginEngine
	case t.roots.IsProjectRoot(name):
		return OriginProject
	case t.roots.IsPluginRoot(name):
		return OriginPlugin
	}
	return OriginNone
}

func (t *Translator) ownOrigin(internalPath string) Origin {
	if t.IsUnderMount(internalPath) {
		return t.mountOrigin
	}
	return OriginNone
}

// IsEngineContent reports whether internalPath belongs to engine content,
// including plugins shipped with the engine.
func (t *Translator) IsEngineContent(internalPath string) bool {
	name, ok := ContentRootName(internalPath, t.marker)
	if !ok {
		return t.ownOrigin(internalPath) == OriginEngine
	}
	return t.roots.IsEngineRoot(name)
}

// IsProjectContent reports whether internalPath belongs to project content,
// including plugins shipped with the project.
func (t *Translator) IsProjectContent(internalPath string) bool {
	name, ok := ContentRootName(internalPath, t.marker)
	if !ok {
		return t.ownOrigin(internalPath) == OriginProject
	}
	return t.roots.IsProjectRoot(name)
}

// IsPluginContent reports whether internalPath belongs to any plugin.
func (t *Translator) IsPluginContent(internalPath string) bool {
	name, ok := ContentRootName(internalPath, t.marker)
	if !ok {
		return t.ownOrigin(internalPath) == OriginPlugin
	}
	return t.roots.IsPluginRoot(name)
}
