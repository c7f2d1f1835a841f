package trees

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStaleReference = errors.New("document reference is stale")
	ErrNoContent      = errors.New("document has no content")
)

// DocumentRef is a generation-checked handle into the document arena of a
// HierarchyIndex. The zero value never resolves.
type DocumentRef struct {
	slot uint32
	gen  uint32
}

// Slot returns the arena slot the reference points at.
func (r DocumentRef) Slot() uint32 { return r.slot }

// Generation returns the build generation the reference was issued in.
func (r DocumentRef) Generation() uint32 { return r.gen }

// IsZero reports whether r is the zero reference.
func (r DocumentRef) IsZero() bool { return r.gen == 0 }

func (r DocumentRef) String() string {
	return fmt.Sprintf("doc#%d@%d", r.slot, r.gen)
}

// Document is one indexed text file. Documents are owned by the index that
// scanned them and are released when it is rebuilt or torn down.
type Document struct {
	Name         string    // base name without extension, unique within its folder
	FileName     string    // name on disk including extension
	RelativePath string    // "/guide/setup.md", relative to the mount root
	FolderPath   string    // internal path of the containing folder
	InternalPath string    // internal path of the document itself
	DiskPath     string    // absolute location on disk
	Size         int64     // size at scan time
	ModTime      time.Time // modification time at scan time
	Mode         fs.FileMode

	ref       DocumentRef
	content   string
	loaded    bool
	dirty     bool
	onChanged func(*Document)
}

// Ref returns the arena handle of the document.
func (d *Document) Ref() DocumentRef { return d.ref }

// Identity returns the string permission lists and collections key documents by.
func (d *Document) Identity() string { return d.InternalPath }

// IsLoaded reports whether the content has been materialized.
func (d *Document) IsLoaded() bool { return d.loaded }

// IsDirty reports whether the cached content differs from what is on disk.
func (d *Document) IsDirty() bool { return d.dirty }

// Content returns the cached text and whether it has been loaded.
func (d *Document) Content() (string, bool) { return d.content, d.loaded }

// SetOnChanged registers the hook MarkChanged invokes. A nil hook clears it.
func (d *Document) SetOnChanged(fn func(*Document)) { d.onChanged = fn }

// EnsureLoaded reads the file into the content cache if it is not cached yet.
// A missing or unreadable file yields ErrNoContent and leaves the cache empty.
func (d *Document) EnsureLoaded() error {
	if d.loaded {
		return nil
	}
	data, err := os.ReadFile(d.DiskPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoContent, d.RelativePath, err)
	}
	d.content = string(data)
	d.loaded = true
	return nil
}

// MarkChanged replaces the cached content, flags the document dirty, invokes
// the change hook once and writes the text back to disk. When the write fails
// the document stays dirty and the error is returned.
func (d *Document) MarkChanged(text string) error {
	d.content = text
	d.loaded = true
	d.dirty = true
	if d.onChanged != nil {
		d.onChanged(d)
	}
	return d.PersistToDisk()
}

// PersistToDisk overwrites the file with the cached content and clears the
// dirty flag on success.
func (d *Document) PersistToDisk() error {
	if !d.loaded {
		return fmt.Errorf("%w: %s: nothing to persist", ErrNoContent, d.RelativePath)
	}
	mode := d.Mode.Perm()
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(d.DiskPath, []byte(d.content), mode); err != nil {
		return fmt.Errorf("failed to persist %s: %w", d.RelativePath, err)
	}
	d.dirty = false
	return nil
}

// release drops the cached content and detaches the hook.
func (d *Document) release() {
	d.content = ""
	d.loaded = false
	d.dirty = false
	d.onChanged = nil
}

// documentArena stores the documents of one build. Resetting it bumps the
// generation so every previously issued DocumentRef stops resolving.
type documentArena struct {
	gen  uint32
	docs []*Document
}

func newDocumentArena() documentArena {
	return documentArena{gen: 1}
}

func (a *documentArena) add(doc *Document) DocumentRef {
	ref := DocumentRef{slot: uint32(len(a.docs)), gen: a.gen}
	doc.ref = ref
	a.docs = append(a.docs, doc)
	return ref
}

func (a *documentArena) get(ref DocumentRef) (*Document, error) {
	if ref.IsZero() || ref.gen != a.gen {
		return nil, ErrStaleReference
	}
	if int(ref.slot) >= len(a.docs) {
		return nil, ErrNotFound
	}
	return a.docs[ref.slot], nil
}

func (a *documentArena) reset() {
	for _, doc := range a.docs {
		doc.release()
	}
	a.docs = nil
	a.gen++
	if a.gen == 0 {
		a.gen = 1
	}
}

func (a *documentArena) count() int { return len(a.docs) }
