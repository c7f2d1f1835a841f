package vdfs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is the name used for config directories and env prefixes
	DefaultAppName        = "vdfs"
	DefaultAppCMDShortCut = "vdfs"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCollectionsDB  = filepath.Join(DefaultConfigPath, "collections.db")

	// Default mount layout
	DefaultMountName      = "project"
	DefaultMountFolder    = "Documentation"
	DefaultInternalRoot   = "/Documentation"
	DefaultVirtualPrefix  = "/All/Documentation"
	DefaultEngineRoot     = "/Documentation_Engine"
	DefaultDocExtension   = ".md"
	DefaultIgnoreFileName = ".docignore"
	DefaultOriginMarker   = "/Documentation_"

	// DefaultTypeName is the class name every document item reports
	DefaultTypeName = "Documentation"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// GetLoggerWithLevel returns the default logger filtered at the named level.
// Unknown level names fall back to info.
func GetLoggerWithLevel(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return GetLogger().Level(lvl)
}
