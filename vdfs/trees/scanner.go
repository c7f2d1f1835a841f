package trees

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"

	ignore "github.com/sabhiram/go-gitignore"
)

type scanResult struct {
	accessible bool
	skipped    int
}

// scan walks diskRoot and inserts every file carrying the document
// extension. Unreadable entries and names that do not split into a folder
// and a base name are skipped.
func (h *HierarchyIndex) scan(diskRoot string) scanResult {
	var result scanResult

	info, err := os.Stat(diskRoot)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", diskRoot)
		}
		h.logger.Warn().Err(err).Str("root", diskRoot).Msg("documentation root is not accessible, index left empty")
		return result
	}
	result.accessible = true

	ignored, err := h.loadIgnoreRules(diskRoot)
	if err != nil {
		h.logger.Warn().Err(err).Str("root", diskRoot).Msg("ignore rules could not be read, scanning everything")
	}

	_ = filepath.WalkDir(diskRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			h.logger.Debug().Err(walkErr).Str("path", p).Msg("skipping unreadable entry")
			result.skipped++
			if d != nil && d.IsDir() && p != diskRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if p == diskRoot {
			return nil
		}

		rel, err := filepath.Rel(diskRoot, p)
		if err != nil {
			result.skipped++
			return nil
		}
		rel = filepath.ToSlash(rel)

		if ignored != nil && ignored.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !h.matchesExtension(d.Name()) {
			return nil
		}

		doc, ok := h.newDocument(p, rel, d)
		if !ok {
			h.logger.Debug().Str("path", p).Msg("skipping entry without a usable name")
			result.skipped++
			return nil
		}
		if !h.insertDocument(paths.Parent("/"+rel), doc) {
			h.logger.Warn().Str("path", p).Msg("duplicate document name in folder, skipping")
			result.skipped++
		}
		return nil
	})

	return result
}

// newDocument splits rel into folder and base name and captures the file's
// stat data. It fails when the base name is empty.
func (h *HierarchyIndex) newDocument(diskPath, rel string, d fs.DirEntry) (*Document, bool) {
	fileName := paths.Base(rel)
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if name == "" || strings.TrimSpace(name) == "" {
		return nil, false
	}
	doc := &Document{
		Name:         name,
		FileName:     fileName,
		RelativePath: paths.Normalize(rel),
		DiskPath:     diskPath,
	}
	if info, err := d.Info(); err == nil {
		doc.Size = info.Size()
		doc.ModTime = info.ModTime()
		doc.Mode = info.Mode()
	}
	return doc, true
}

func (h *HierarchyIndex) matchesExtension(name string) bool {
	if h.extension == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), h.extension)
}

// loadIgnoreRules compiles the ignore file at the mount root, if any.
func (h *HierarchyIndex) loadIgnoreRules(diskRoot string) (*ignore.GitIgnore, error) {
	if h.ignoreFile == "" {
		return nil, nil
	}
	ignorePath := filepath.Join(diskRoot, h.ignoreFile)
	if _, err := os.Stat(ignorePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking for %s: %w", h.ignoreFile, err)
	}
	ignored, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", h.ignoreFile, err)
	}
	return ignored, nil
}
