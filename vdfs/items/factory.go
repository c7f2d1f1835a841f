package items

import (
	"strings"
	"unicode"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/paths"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/google/uuid"
)

// DisplayNameRule returns a display override for a folder, or false to defer
// to the next rule.
type DisplayNameRule func(path, name string) (string, bool)

// Factory builds the items of one mount.
type Factory struct {
	owner      uuid.UUID
	translator *paths.Translator
	overrides  map[string]string
	rules      []DisplayNameRule
}

// FactoryOption allows for customization of a Factory
type FactoryOption func(*Factory)

// WithDisplayOverride gives the folder at internalPath a fixed display name.
func WithDisplayOverride(internalPath, displayName string) FactoryOption {
	return func(f *Factory) {
		f.overrides[paths.Key(internalPath)] = displayName
	}
}

// WithDisplayNameRule appends a host supplied override rule.
func WithDisplayNameRule(rule DisplayNameRule) FactoryOption {
	return func(f *Factory) {
		f.rules = append(f.rules, rule)
	}
}

// NewFactory creates a factory whose items are owned by owner. The project
// and engine documentation roots get their well-known display names.
func NewFactory(owner uuid.UUID, translator *paths.Translator, opts ...FactoryOption) *Factory {
	f := &Factory{
		owner:      owner,
		translator: translator,
		overrides: map[string]string{
			paths.Key(vdfs.DefaultInternalRoot): "Documentation",
			paths.Key(vdfs.DefaultEngineRoot):   "Engine Documentation",
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Owner returns the id stamped on every item.
func (f *Factory) Owner() uuid.UUID { return f.owner }

// CreateFolderItem builds the item for an internal folder path.
func (f *Factory) CreateFolderItem(internalPath string) Item {
	internalPath = paths.Normalize(internalPath)
	name := paths.Base(internalPath)
	return Item{
		Owner:               f.owner,
		Kind:                KindFolder,
		VirtualPath:         f.translator.ToVirtual(internalPath),
		Name:                name,
		DisplayNameOverride: f.displayOverride(internalPath, name),
		Payload:             FolderPayload{Path: internalPath},
	}
}

// CreateFileItem builds the item for a document.
func (f *Factory) CreateFileItem(doc *trees.Document) Item {
	return Item{
		Owner:       f.owner,
		Kind:        KindFile,
		VirtualPath: f.translator.ToVirtual(doc.InternalPath),
		Name:        doc.Name,
		Payload:     FilePayload{Path: doc.InternalPath, Document: doc.Ref()},
	}
}

// CreateVirtualFolderItem builds the item for a virtual-only folder.
func (f *Factory) CreateVirtualFolderItem(virtualPath string) Item {
	virtualPath = paths.Normalize(virtualPath)
	name := paths.Base(virtualPath)
	return Item{
		Owner:               f.owner,
		Kind:                KindFolder,
		VirtualPath:         virtualPath,
		Name:                name,
		DisplayNameOverride: f.displayOverride(virtualPath, name),
		Payload:             FolderPayload{},
	}
}

func (f *Factory) displayOverride(path, name string) string {
	if override, ok := f.overrides[paths.Key(path)]; ok {
		return override
	}
	for _, rule := range f.rules {
		if override, ok := rule(path, name); ok {
			return override
		}
	}
	return ""
}

// TitleCaseRule derives display names by replacing dashes and underscores
// with spaces and capitalizing each word.
func TitleCaseRule(_ string, name string) (string, bool) {
	display := NameToDisplayString(name)
	if display == name {
		return "", false
	}
	return display, true
}

// NameToDisplayString turns identifiers such as "getting_started" or
// "gettingStarted" into "Getting Started".
func NameToDisplayString(name string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			continue
		case i > 0 && isUpper(r) && !isUpper(runes[i-1]) && runes[i-1] != '_' && runes[i-1] != '-' && runes[i-1] != ' ':
			flush()
		}
		current = append(current, r)
	}
	flush()

	for i, word := range words {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func isUpper(r rune) bool { return unicode.IsUpper(r) }
