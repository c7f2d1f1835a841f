package paths

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/armon/go-radix"
)

var (
	ErrNotUnderMount = errors.New("path is not under the mount")
	ErrInvalidPath   = errors.New("invalid path")
	ErrGraftConflict = errors.New("virtual path is already grafted")
)

// virtualEntry is one node of the virtual tree. Internal is empty for
// virtual-only folders that exist to hold grafts further down.
type virtualEntry struct {
	Path     string
	Internal string
}

// VirtualTree is the host-level namespace mounts graft into. It is keyed by
// case-folded virtual path in a patricia tree so prefix walks stay O(k).
type VirtualTree struct {
	mu   sync.RWMutex
	tree *radix.Tree
}

// NewVirtualTree creates a tree holding only the root "/".
func NewVirtualTree() *VirtualTree {
	vt := &VirtualTree{tree: radix.New()}
	vt.tree.Insert(Separator, &virtualEntry{Path: Separator})
	return vt
}

// Graft maps virtualPath onto internalPath, creating virtual-only ancestors.
func (vt *VirtualTree) Graft(virtualPath, internalPath string) error {
	virtualPath = Normalize(virtualPath)
	internalPath = Normalize(internalPath)
	if virtualPath == "" || virtualPath == Separator || internalPath == "" || internalPath == Separator {
		return fmt.Errorf("%w: cannot graft %q onto %q", ErrInvalidPath, internalPath, virtualPath)
	}

	vt.mu.Lock()
	defer vt.mu.Unlock()

	key := strings.ToLower(virtualPath)
	if existing, ok := vt.tree.Get(key); ok {
		entry := existing.(*virtualEntry)
		if entry.Internal != "" {
			return fmt.Errorf("%w: %s -> %s", ErrGraftConflict, virtualPath, entry.Internal)
		}
	}
	if hasGraftBelow(vt.tree, key) {
		return fmt.Errorf("%w: %s already has grafts beneath it", ErrGraftConflict, virtualPath)
	}
	for ancestor := Parent(virtualPath); ancestor != Separator; ancestor = Parent(ancestor) {
		ancestorKey := strings.ToLower(ancestor)
		if existing, ok := vt.tree.Get(ancestorKey); ok {
			if existing.(*virtualEntry).Internal != "" {
				return fmt.Errorf("%w: %s is inside graft %s", ErrGraftConflict, virtualPath, ancestor)
			}
			continue
		}
		vt.tree.Insert(ancestorKey, &virtualEntry{Path: ancestor})
	}
	vt.tree.Insert(key, &virtualEntry{Path: virtualPath, Internal: internalPath})
	return nil
}

func hasGraftBelow(tree *radix.Tree, key string) bool {
	found := false
	tree.WalkPrefix(key+Separator, func(_ string, v interface{}) bool {
		found = v.(*virtualEntry).Internal != ""
		return found
	})
	return found
}

// Ungraft removes the graft at virtualPath and prunes virtual-only ancestors
// left without grafts.
func (vt *VirtualTree) Ungraft(virtualPath string) bool {
	virtualPath = Normalize(virtualPath)
	vt.mu.Lock()
	defer vt.mu.Unlock()

	if _, ok := vt.tree.Delete(strings.ToLower(virtualPath)); !ok {
		return false
	}
	for ancestor := Parent(virtualPath); ancestor != Separator; ancestor = Parent(ancestor) {
		key := strings.ToLower(ancestor)
		if hasGraftBelow(vt.tree, key) {
			break
		}
		vt.tree.Delete(key)
	}
	return true
}

// Lookup reports whether virtualPath is a node of the tree and, for grafts,
// the internal path it maps to.
func (vt *VirtualTree) Lookup(virtualPath string) (internal string, exists bool) {
	vt.mu.RLock()
	defer vt.mu.RUnlock()

	v, ok := vt.tree.Get(Key(virtualPath))
	if !ok {
		if Normalize(virtualPath) == "" {
			return "", true
		}
		return "", false
	}
	return v.(*virtualEntry).Internal, true
}

// LongestGraft returns the deepest graft that is virtualPath itself or one
// of its ancestors.
func (vt *VirtualTree) LongestGraft(virtualPath string) (graftVirtual, graftInternal string, ok bool) {
	vt.mu.RLock()
	defer vt.mu.RUnlock()

	key := Key(virtualPath)
	for key != "" {
		prefix, v, found := vt.tree.LongestPrefix(key)
		if !found {
			return "", "", false
		}
		entry := v.(*virtualEntry)
		boundary := len(prefix) == len(key) || key[len(prefix)] == '/' || prefix == Separator
		if entry.Internal != "" && boundary {
			return entry.Path, entry.Internal, true
		}
		if prefix == Separator || len(prefix) == 0 {
			return "", "", false
		}
		key = prefix[:len(prefix)-1]
	}
	return "", "", false
}

// EnumerateSubPaths calls fn for every node below virtualPath: direct
// children only unless recursive. internal is empty for virtual-only nodes.
// Iteration is in case-folded lexical order and stops when fn returns false.
func (vt *VirtualTree) EnumerateSubPaths(virtualPath string, recursive bool, fn func(virtual, internal string) bool) {
	base := Key(virtualPath)
	prefix := base + Separator
	if base == "" || base == Separator {
		base, prefix = Separator, Separator
	}
	depth := len(Split(base)) + 1

	vt.mu.RLock()
	var entries []virtualEntry
	vt.tree.WalkPrefix(prefix, func(key string, v interface{}) bool {
		if key == base {
			return false
		}
		if !recursive && len(Split(key)) != depth {
			return false
		}
		entries = append(entries, *v.(*virtualEntry))
		return false
	})
	vt.mu.RUnlock()

	for _, entry := range entries {
		if !fn(entry.Path, entry.Internal) {
			return
		}
	}
}
