package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/filter"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/mount"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"
)

// mountsFor returns the mounts a virtual path reaches: the owning mount for
// paths under a prefix and every mount for virtual-only folders above them.
func (a *app) mountsFor(virtualPath string) ([]*mount.Mount, error) {
	registry, err := a.mounts()
	if err != nil {
		return nil, err
	}
	if m, err := registry.Route(virtualPath); err == nil {
		return []*mount.Mount{m}, nil
	}
	if internal, exists := registry.Tree().Lookup(virtualPath); exists && internal == "" {
		return registry.Mounts(), nil
	}
	return nil, fmt.Errorf("%w: %s", paths.ErrNotUnderMount, virtualPath)
}

// itemAt returns the item at a virtual path under a mount prefix.
func (a *app) itemAt(virtualPath string) (*mount.Mount, items.Item, error) {
	registry, err := a.mounts()
	if err != nil {
		return nil, items.Item{}, err
	}
	m, err := registry.Route(virtualPath)
	if err != nil {
		return nil, items.Item{}, err
	}
	var found items.Item
	ok := false
	m.EnumerateItemsAtPath(virtualPath, filter.IncludeAllTypes, func(item items.Item) bool {
		found, ok = item, true
		return false
	})
	if !ok {
		return nil, items.Item{}, fmt.Errorf("%w: %s", trees.ErrNotFound, virtualPath)
	}
	return m, found, nil
}

// documentAt returns the file item at a virtual path.
func (a *app) documentAt(virtualPath string) (*mount.Mount, items.Item, error) {
	m, item, err := a.itemAt(virtualPath)
	if err != nil {
		return nil, items.Item{}, err
	}
	if !item.IsFile() {
		return nil, items.Item{}, fmt.Errorf("%w: %s", mount.ErrNotAFile, virtualPath)
	}
	return m, item, nil
}
