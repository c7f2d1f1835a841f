package items

import (
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/google/uuid"
)

// Kind discriminates folder items from file items.
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "folder"
}

// Payload is the data an item carries back into the mount that created it.
// It is either a FolderPayload or a FilePayload.
type Payload interface {
	InternalPath() string
	isPayload()
}

// FolderPayload identifies a folder. An empty Path marks a virtual-only
// folder that has no node in any index.
type FolderPayload struct {
	Path string
}

func (p FolderPayload) InternalPath() string { return p.Path }
func (FolderPayload) isPayload()             {}

// FilePayload identifies a document. Document is only valid until the
// owning index is rebuilt.
type FilePayload struct {
	Path     string
	Document trees.DocumentRef
}

func (p FilePayload) InternalPath() string { return p.Path }
func (FilePayload) isPayload()             {}

// Item is the opaque handle handed to hosts. Items are values and never own
// the documents they point at.
type Item struct {
	Owner               uuid.UUID
	Kind                Kind
	VirtualPath         string
	Name                string
	DisplayNameOverride string
	Payload             Payload
}

// DisplayName returns the override when set, otherwise the name.
func (i Item) DisplayName() string {
	if i.DisplayNameOverride != "" {
		return i.DisplayNameOverride
	}
	return i.Name
}

// IsFolder reports whether the item is a folder.
func (i Item) IsFolder() bool { return i.Kind == KindFolder }

// IsFile reports whether the item is a file.
func (i Item) IsFile() bool { return i.Kind == KindFile }

// IsVirtual reports whether the item is a virtual-only folder.
func (i Item) IsVirtual() bool {
	p, ok := i.Payload.(FolderPayload)
	return ok && p.Path == ""
}

// InternalPath returns the internal path carried by the payload.
func (i Item) InternalPath() string {
	if i.Payload == nil {
		return ""
	}
	return i.Payload.InternalPath()
}

// FolderPayload returns the folder payload of a folder item owned by owner.
func (i Item) FolderPayload(owner uuid.UUID) (FolderPayload, bool) {
	if i.Owner != owner || i.Kind != KindFolder {
		return FolderPayload{}, false
	}
	p, ok := i.Payload.(FolderPayload)
	return p, ok
}

// FilePayload returns the file payload of a file item owned by owner.
func (i Item) FilePayload(owner uuid.UUID) (FilePayload, bool) {
	if i.Owner != owner || i.Kind != KindFile {
		return FilePayload{}, false
	}
	p, ok := i.Payload.(FilePayload)
	return p, ok
}
