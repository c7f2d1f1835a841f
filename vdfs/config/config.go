package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Project      ProjectConfig      `mapstructure:"project"`
	Mounts       []MountConfig      `mapstructure:"mounts"`
	ContentRoots ContentRootsConfig `mapstructure:"contentRoots"`
	Origin       OriginConfig       `mapstructure:"origin"`
	Collections  CollectionsConfig  `mapstructure:"collections"`
	Watcher      WatcherConfig      `mapstructure:"watcher"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
}

// ProjectConfig locates the project whose documentation is mounted.
type ProjectConfig struct {
	Dir string `mapstructure:"dir"`
}

// MountConfig describes one documentation mount.
type MountConfig struct {
	Name          string `mapstructure:"name"`
	Folder        string `mapstructure:"folder"`
	InternalRoot  string `mapstructure:"internalRoot"`
	VirtualPrefix string `mapstructure:"virtualPrefix"`
	Extension     string `mapstructure:"extension"`
	IgnoreFile    string `mapstructure:"ignoreFile"`
	// Origin is the origin of documents outside any marker-prefixed content
	// root: "engine", "project", "plugin" or empty.
	Origin string `mapstructure:"origin"`
	// Color overrides the type color document items report.
	Color string `mapstructure:"color"`
}

// DiskPath resolves the mount folder against the project directory.
// Absolute folders are returned as is.
func (m MountConfig) DiskPath(projectDir string) string {
	if filepath.IsAbs(m.Folder) {
		return filepath.Clean(m.Folder)
	}
	return filepath.Join(projectDir, m.Folder)
}

// ContentRootsConfig lists the content root names the host owns.
// Plugins map a plugin root name to the origin it was loaded from ("engine" or "project").
type ContentRootsConfig struct {
	Engine  []string          `mapstructure:"engine"`
	Project []string          `mapstructure:"project"`
	Plugins map[string]string `mapstructure:"plugins"`
}

// OriginConfig stores the structural marker used by origin classification.
type OriginConfig struct {
	Marker string `mapstructure:"marker"`
}

// CollectionsConfig stores the collection store location.
type CollectionsConfig struct {
	DSN string `mapstructure:"dsn"`
}

// WatcherConfig stores the rebuild watcher settings.
type WatcherConfig struct {
	DebounceDelay    time.Duration `mapstructure:"debounceDelay"`
	MaxDebounceDelay time.Duration `mapstructure:"maxDebounceDelay"`
}

// MetricsConfig stores the prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// DefaultMount returns the conventional project documentation mount.
func DefaultMount() MountConfig {
	return MountConfig{
		Name:          vdfs.DefaultMountName,
		Folder:        vdfs.DefaultMountFolder,
		InternalRoot:  vdfs.DefaultInternalRoot,
		VirtualPrefix: vdfs.DefaultVirtualPrefix,
		Extension:     vdfs.DefaultDocExtension,
		IgnoreFile:    vdfs.DefaultIgnoreFileName,
		Origin:        "project",
	}
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", vdfs.DefaultAppName))
		v.AddConfigPath(vdfs.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("project.dir", ".")
	v.SetDefault("contentRoots.engine", []string{"Engine"})
	v.SetDefault("contentRoots.project", []string{"Game"})
	v.SetDefault("origin.marker", vdfs.DefaultOriginMarker)
	v.SetDefault("collections.dsn", vdfs.DefaultCollectionsDB)
	v.SetDefault("watcher.debounceDelay", 250*time.Millisecond)
	v.SetDefault("watcher.maxDebounceDelay", 2*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // project.dir becomes PROJECT_DIR

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.applyMountDefaults()

	AppConfig = cfg
	return &cfg, nil
}

// applyMountDefaults fills the conventional mount when none is configured and
// completes partially specified mounts.
func (c *Config) applyMountDefaults() {
	if len(c.Mounts) == 0 {
		c.Mounts = []MountConfig{DefaultMount()}
		return
	}
	def := DefaultMount()
	for i := range c.Mounts {
		m := &c.Mounts[i]
		if m.Name == "" {
			m.Name = fmt.Sprintf("mount%d", i)
		}
		if m.Folder == "" {
			m.Folder = def.Folder
		}
		if m.InternalRoot == "" {
			m.InternalRoot = "/" + filepath.Base(m.Folder)
		}
		if m.VirtualPrefix == "" {
			m.VirtualPrefix = "/All" + m.InternalRoot
		}
		if m.Extension == "" {
			m.Extension = def.Extension
		}
		if m.IgnoreFile == "" {
			m.IgnoreFile = def.IgnoreFile
		}
		if m.Origin == "" {
			m.Origin = wellKnownOrigin(m.InternalRoot)
		}
	}
}

// wellKnownOrigin returns the origin of the conventional project and engine
// documentation roots.
func wellKnownOrigin(internalRoot string) string {
	switch {
	case strings.EqualFold(internalRoot, vdfs.DefaultInternalRoot):
		return "project"
	case strings.EqualFold(internalRoot, vdfs.DefaultEngineRoot):
		return "engine"
	}
	return ""
}
