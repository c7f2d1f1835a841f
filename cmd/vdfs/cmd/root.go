package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/collections"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/config"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/mount"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what the commands of one invocation share.
type app struct {
	cfgFile    string
	projectDir string
	logLevel   string

	cfg      *config.Config
	logger   zerolog.Logger
	store    collections.Store
	registry *mount.Registry
}

// NewRootCmd builds the vdfs command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   vdfs.DefaultAppCMDShortCut,
		Short: "Browse a documentation folder through a virtual namespace",
		Long: `vdfs indexes the documentation folders of a project and exposes them
under virtual paths such as /All/Documentation.

It lists, filters, reads and writes documents, manages collections and
can watch the folders to rebuild the index when files change.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip initialization for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default searches ., .., etc/vdfs and ~/.config/vdfs)")
	root.PersistentFlags().StringVarP(&a.projectDir, "project", "p", "", "project directory holding the documentation folders")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLsCmd(a),
		newTreeCmd(a),
		newCatCmd(a),
		newWriteCmd(a),
		newNewCmd(a),
		newAttrsCmd(a),
		newEditCmd(a),
		newRefreshCmd(a),
		newWatchCmd(a),
		newCollectionsCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.projectDir != "" {
		cfg.Project.Dir = a.projectDir
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = vdfs.GetLoggerWithLevel(cfg.Log.Level)
	return nil
}

func (a *app) close() error {
	var firstErr error
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			firstErr = err
		}
		a.registry = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.store = nil
	}
	return firstErr
}

// collectionStore opens the configured collection store. An empty DSN keeps
// collections in memory for the lifetime of the command.
func (a *app) collectionStore() (collections.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	dsn := a.cfg.Collections.DSN
	if dsn == "" || dsn == ":memory:" {
		a.store = collections.NewMemoryStore()
		return a.store, nil
	}
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create collections directory: %w", err)
		}
	}
	store, err := collections.OpenSQLStore(dsn)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) contentRoots() paths.ContentRoots {
	plugins := make(map[string]paths.PluginSource, len(a.cfg.ContentRoots.Plugins))
	for name, source := range a.cfg.ContentRoots.Plugins {
		parsed, ok := paths.ParsePluginSource(source)
		if !ok {
			a.logger.Warn().Str("plugin", name).Str("source", source).Msg("unknown plugin source, assuming project")
			parsed = paths.PluginFromProject
		}
		plugins[name] = parsed
	}
	return paths.NewStaticContentRoots(a.cfg.ContentRoots.Engine, a.cfg.ContentRoots.Project, plugins)
}

// mounts builds the registry with every configured mount scanned.
func (a *app) mounts(opts ...mount.Option) (*mount.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	store, err := a.collectionStore()
	if err != nil {
		return nil, err
	}

	registry := mount.NewRegistry(mount.WithRegistryLogger(a.logger))
	base := []mount.Option{
		mount.WithCollections(store),
		mount.WithContentRoots(a.contentRoots()),
		mount.WithOriginMarker(a.cfg.Origin.Marker),
	}
	for _, mc := range a.cfg.Mounts {
		if _, err := registry.Add(mc, a.cfg.Project.Dir, append(base, opts...)...); err != nil {
			_ = registry.Close()
			return nil, err
		}
	}
	a.registry = registry
	return registry, nil
}
