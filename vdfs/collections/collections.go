package collections

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrCollectionExists  = errors.New("collection already exists")
)

// Service answers collection membership for filter compilation. Members
// returns the case-folded identities of the documents held by the named
// collections, and by their child collections when includeChildren is set.
type Service interface {
	Members(ctx context.Context, names []string, includeChildren bool) ([]string, error)
}

// Store is a Service that can also be edited.
type Store interface {
	Service
	Create(ctx context.Context, name, parent string) error
	Delete(ctx context.Context, name string) error
	Add(ctx context.Context, name string, identities ...string) error
	Remove(ctx context.Context, name string, identities ...string) error
	List(ctx context.Context) ([]Collection, error)
	Close() error
}

// Collection is a named set of document identities. Parent is empty for top
// level collections.
type Collection struct {
	Name   string
	Parent string
	Size   int
}

type memoryCollection struct {
	name   string
	parent string
	items  map[string]struct{}
}

// MemoryStore is a Store held in memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func collectionKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// IdentityKey is the form identities are stored and compared in.
func IdentityKey(identity string) string { return paths.Key(identity) }

func (s *MemoryStore) Create(_ context.Context, name, parent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := collectionKey(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownCollection)
	}
	if _, exists := s.collections[key]; exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	if parent != "" {
		if _, ok := s.collections[collectionKey(parent)]; !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownCollection, parent)
		}
	}
	s.collections[key] = &memoryCollection{name: name, parent: collectionKey(parent), items: make(map[string]struct{})}
	return nil
}

// Delete removes a collection. Its children become top level collections.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := collectionKey(name)
	if _, ok := s.collections[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	delete(s.collections, key)
	for _, c := range s.collections {
		if c.parent == key {
			c.parent = ""
		}
	}
	return nil
}

func (s *MemoryStore) Add(_ context.Context, name string, identities ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collectionKey(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	for _, id := range identities {
		c.items[IdentityKey(id)] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, name string, identities ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collectionKey(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	for _, id := range identities {
		delete(c.items, IdentityKey(id))
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Collection, 0, len(s.collections))
	for _, c := range s.collections {
		parent := ""
		if p, ok := s.collections[c.parent]; ok {
			parent = p.name
		}
		out = append(out, Collection{Name: c.name, Parent: parent, Size: len(c.items)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Members returns the union of the named collections. Unknown names
// contribute nothing.
func (s *MemoryStore) Members(_ context.Context, names []string, includeChildren bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := make(map[string]struct{})
	queue := make([]string, 0, len(names))
	for _, name := range names {
		queue = append(queue, collectionKey(name))
	}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if _, seen := selected[key]; seen {
			continue
		}
		if _, ok := s.collections[key]; !ok {
			continue
		}
		selected[key] = struct{}{}
		if includeChildren {
			for childKey, c := range s.collections {
				if c.parent == key {
					queue = append(queue, childKey)
				}
			}
		}
	}

	members := make(map[string]struct{})
	for key := range selected {
		for id := range s.collections[key].items {
			members[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
