package filter

import (
	"strings"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
)

// ItemTypeFlags selects folders and/or files.
type ItemTypeFlags uint8

const (
	IncludeFolders ItemTypeFlags = 1 << iota
	IncludeFiles

	IncludeAllTypes = IncludeFolders | IncludeFiles
)

// Has reports whether every bit of flag is set.
func (f ItemTypeFlags) Has(flag ItemTypeFlags) bool { return f&flag == flag }

// CategoryFlags selects item categories. Documentation is the category every
// item of a mount belongs to.
type CategoryFlags uint8

const (
	CategoryAssets CategoryFlags = 1 << iota
	CategoryClasses
	CategoryCollections
	CategoryDocumentation
	CategoryMisc

	CategoryAll = CategoryAssets | CategoryClasses | CategoryCollections | CategoryDocumentation | CategoryMisc
)

// Has reports whether every bit of flag is set.
func (f CategoryFlags) Has(flag CategoryFlags) bool { return f&flag == flag }

// CollectionFilter restricts files to the members of named collections.
type CollectionFilter struct {
	Names           []string
	IncludeChildren bool
}

// Active reports whether any collection is named.
func (c *CollectionFilter) Active() bool { return c != nil && len(c.Names) > 0 }

// Query is the declarative filter a host compiles against a mount.
type Query struct {
	// Path is the scope. It is a virtual path unless Internal is set.
	Path        string
	Internal    bool
	Types       ItemTypeFlags
	Categories  CategoryFlags
	Recursive   bool
	Permissions *PermissionList
	Collections *CollectionFilter
}

// NewQuery returns a query over path that includes every type and category.
func NewQuery(path string) Query {
	return Query{
		Path:       path,
		Types:      IncludeAllTypes,
		Categories: CategoryAll,
	}
}

// PermissionList is an allow/deny list over document identities. An empty
// allow list allows everything not denied.
type PermissionList struct {
	allow   map[string]struct{}
	deny    map[string]struct{}
	denyAll bool
}

// NewPermissionList creates a list with no filtering.
func NewPermissionList() *PermissionList {
	return &PermissionList{
		allow: make(map[string]struct{}),
		deny:  make(map[string]struct{}),
	}
}

// Allow adds identities to the allow list.
func (p *PermissionList) Allow(identities ...string) *PermissionList {
	for _, id := range identities {
		p.allow[permissionKey(id)] = struct{}{}
	}
	return p
}

// Deny adds identities to the deny list.
func (p *PermissionList) Deny(identities ...string) *PermissionList {
	for _, id := range identities {
		p.deny[permissionKey(id)] = struct{}{}
	}
	return p
}

// DenyAll makes the list reject every identity.
func (p *PermissionList) DenyAll() *PermissionList {
	p.denyAll = true
	return p
}

// HasFiltering reports whether the list can reject anything.
func (p *PermissionList) HasFiltering() bool {
	return p != nil && (p.denyAll || len(p.allow) > 0 || len(p.deny) > 0)
}

// PassesFilter reports whether identity survives the list.
func (p *PermissionList) PassesFilter(identity string) bool {
	if p == nil {
		return true
	}
	if p.denyAll {
		return false
	}
	key := permissionKey(identity)
	if _, denied := p.deny[key]; denied {
		return false
	}
	if len(p.allow) == 0 {
		return true
	}
	_, allowed := p.allow[key]
	return allowed
}

func permissionKey(identity string) string {
	return strings.ToLower(paths.Normalize(identity))
}
