package mount

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/config"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Registry holds the mounts of one host namespace and routes virtual paths
// and items to the mount that owns them.
type Registry struct {
	mu       sync.RWMutex
	tree     *paths.VirtualTree
	byName   map[string]*Mount
	byID     map[uuid.UUID]*Mount
	byPrefix map[string]*Mount
	logger   zerolog.Logger
	workers  int
}

// RegistryOption allows for customization of a Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger
func WithRegistryLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMaxRebuildWorkers bounds how many mounts RebuildAll scans at once.
func WithMaxRebuildWorkers(n int) RegistryOption {
	return func(r *Registry) {
		r.workers = n
	}
}

// NewRegistry creates an empty registry with its own virtual tree.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tree:     paths.NewVirtualTree(),
		byName:   make(map[string]*Mount),
		byID:     make(map[uuid.UUID]*Mount),
		byPrefix: make(map[string]*Mount),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tree returns the namespace mounts are grafted into.
func (r *Registry) Tree() *paths.VirtualTree { return r.tree }

// Add creates a mount from cfg inside the registry's namespace.
func (r *Registry) Add(cfg config.MountConfig, projectDir string, opts ...Option) (*Mount, error) {
	r.mu.RLock()
	_, exists := r.byName[strings.ToLower(cfg.Name)]
	r.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMount, cfg.Name)
	}

	opts = append([]Option{WithLogger(r.logger)}, opts...)
	opts = append(opts, WithVirtualTree(r.tree))
	m, err := New(cfg, projectDir, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(m.Name())
	if _, exists := r.byName[key]; exists {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMount, m.Name())
	}
	r.byName[key] = m
	r.byID[m.ID] = m
	r.byPrefix[paths.Key(m.VirtualPrefix())] = m
	r.logger.Debug().Str("mount", m.Name()).Str("prefix", m.VirtualPrefix()).Msg("mount registered")
	return m, nil
}

// Remove closes and unregisters the named mount.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	m, ok := r.byName[strings.ToLower(name)]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMount, name)
	}
	delete(r.byName, strings.ToLower(name))
	delete(r.byID, m.ID)
	delete(r.byPrefix, paths.Key(m.VirtualPrefix()))
	r.mu.Unlock()
	return m.Close()
}

// Get returns the named mount.
func (r *Registry) Get(name string) (*Mount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[strings.ToLower(name)]
	return m, ok
}

// Mounts returns every mount ordered by virtual prefix.
func (r *Registry) Mounts() []*Mount {
	r.mu.RLock()
	out := make([]*Mount, 0, len(r.byName))
	for _, m := range r.byName {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return paths.Key(out[i].VirtualPrefix()) < paths.Key(out[j].VirtualPrefix())
	})
	return out
}

// Route returns the mount whose graft is virtualPath or its closest
// grafted ancestor.
func (r *Registry) Route(virtualPath string) (*Mount, error) {
	graft, _, ok := r.tree.LongestGraft(virtualPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMount, virtualPath)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byPrefix[paths.Key(graft)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMount, virtualPath)
	}
	return m, nil
}

// ForItem returns the mount that issued item.
func (r *Registry) ForItem(item items.Item) (*Mount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[item.Owner]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMount, item.Owner)
	}
	return m, nil
}

// RebuildAll refreshes every mount. Mounts own disjoint indexes, so they
// are rebuilt in parallel; each mount is still rebuilt by one goroutine.
// Listeners subscribed to several mounts may therefore be called
// concurrently. Mounts whose root is inaccessible are reported in the
// returned error.
func (r *Registry) RebuildAll(ctx context.Context) error {
	mounts := r.Mounts()
	base := pool.New()
	if r.workers > 0 {
		base = base.WithMaxGoroutines(r.workers)
	}
	p := base.WithErrors().WithContext(ctx)
	for _, m := range mounts {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats := m.Refresh()
			if !stats.RootAccessible {
				return fmt.Errorf("mount %s: %w: %s", m.Name(), ErrRootInaccessible, m.DiskRoot())
			}
			return nil
		})
	}
	return p.Wait()
}

// Close closes every mount and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	mounts := make([]*Mount, 0, len(r.byName))
	for _, m := range r.byName {
		mounts = append(mounts, m)
	}
	r.byName = make(map[string]*Mount)
	r.byID = make(map[uuid.UUID]*Mount)
	r.byPrefix = make(map[string]*Mount)
	r.mu.Unlock()

	for _, m := range mounts {
		if err := m.Close(); err != nil {
			r.logger.Warn().Err(err).Str("mount", m.Name()).Msg("failed to close mount")
		}
	}
	return nil
}
