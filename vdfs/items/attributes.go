package items

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"

	"github.com/rs/zerolog"
)

// AttributeKey names an item attribute. The fixed vocabulary is declared
// below; any other key is looked up among the document's tags.
type AttributeKey string

const (
	AttrTypeName         AttributeKey = "ItemTypeName"
	AttrTypeDisplayName  AttributeKey = "ItemTypeDisplayName"
	AttrDescription      AttributeKey = "ItemDescription"
	AttrIsEngineContent  AttributeKey = "ItemIsEngineContent"
	AttrIsProjectContent AttributeKey = "ItemIsProjectContent"
	AttrIsPluginContent  AttributeKey = "ItemIsPluginContent"
	AttrColor            AttributeKey = "ItemColor"

	// aliases hosts use for the type name
	attrClass AttributeKey = "Class"
	attrType  AttributeKey = "Type"
)

// AttributeMetaData tells the UI how to render an attribute.
type AttributeMetaData struct {
	DisplayName string
	Hidden      bool
}

// AttributeValue is a typed attribute value with optional render metadata.
type AttributeValue struct {
	Value    any
	MetaData *AttributeMetaData
}

// String renders the value for display.
func (v AttributeValue) String() string {
	switch val := v.Value.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

// DocumentResolver resolves file payload handles.
type DocumentResolver interface {
	Resolve(ref trees.DocumentRef) (*trees.Document, error)
}

// OriginClassifier answers the origin attributes of an internal path.
type OriginClassifier interface {
	IsEngineContent(internalPath string) bool
	IsProjectContent(internalPath string) bool
	IsPluginContent(internalPath string) bool
}

// AttributeSource answers attribute queries for the items of one mount.
type AttributeSource struct {
	docs     DocumentResolver
	origin   OriginClassifier
	typeName string
	color    string
	now      func() time.Time
	logger   zerolog.Logger
}

// AttributeOption allows for customization of an AttributeSource
type AttributeOption func(*AttributeSource)

// WithTypeName sets the class name file items report.
func WithTypeName(name string) AttributeOption {
	return func(s *AttributeSource) {
		s.typeName = name
	}
}

// WithColor sets the type color file items report.
func WithColor(color string) AttributeOption {
	return func(s *AttributeSource) {
		s.color = color
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) AttributeOption {
	return func(s *AttributeSource) {
		s.logger = logger
	}
}

// WithClock replaces the clock used for age tags.
func WithClock(now func() time.Time) AttributeOption {
	return func(s *AttributeSource) {
		s.now = now
	}
}

// NewAttributeSource creates an AttributeSource.
func NewAttributeSource(docs DocumentResolver, origin OriginClassifier, opts ...AttributeOption) *AttributeSource {
	s := &AttributeSource{
		docs:     docs,
		origin:   origin,
		typeName: "Documentation",
		color:    "(R=0.258,G=0.537,B=0.960,A=1.000)",
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetItemAttribute answers one attribute. Folders only answer the origin
// flags. File items answer the fixed vocabulary and their tags.
func (s *AttributeSource) GetItemAttribute(item Item, includeMetaData bool, key AttributeKey) (AttributeValue, bool) {
	switch payload := item.Payload.(type) {
	case FolderPayload:
		return s.originAttribute(payload.Path, key)
	case FilePayload:
		return s.fileAttribute(payload, includeMetaData, key)
	}
	return AttributeValue{}, false
}

func (s *AttributeSource) originAttribute(internalPath string, key AttributeKey) (AttributeValue, bool) {
	switch key {
	case AttrIsEngineContent:
		return AttributeValue{Value: s.origin.IsEngineContent(internalPath)}, true
	case AttrIsProjectContent:
		return AttributeValue{Value: s.origin.IsProjectContent(internalPath)}, true
	case AttrIsPluginContent:
		return AttributeValue{Value: s.origin.IsPluginContent(internalPath)}, true
	}
	return AttributeValue{}, false
}

// fileAttribute answers nothing for stale items, whose document went away
// with a rebuild.
func (s *AttributeSource) fileAttribute(payload FilePayload, includeMetaData bool, key AttributeKey) (AttributeValue, bool) {
	doc, err := s.docs.Resolve(payload.Document)
	if err != nil {
		return AttributeValue{}, false
	}
	return s.documentAttribute(doc, payload, includeMetaData, key)
}

func (s *AttributeSource) documentAttribute(doc *trees.Document, payload FilePayload, includeMetaData bool, key AttributeKey) (AttributeValue, bool) {
	switch key {
	case AttrTypeName, attrClass, attrType:
		return s.typeNameAttribute(includeMetaData), true
	case AttrTypeDisplayName:
		return AttributeValue{Value: s.typeName}, true
	case AttrColor:
		return AttributeValue{Value: s.color}, true
	case AttrIsEngineContent, AttrIsProjectContent, AttrIsPluginContent:
		return s.originAttribute(payload.Path, key)
	}

	loaded := s.load(doc)
	if key == AttrDescription {
		if !loaded {
			return AttributeValue{}, false
		}
		desc := doc.Description()
		if desc == "" {
			return AttributeValue{}, false
		}
		return AttributeValue{Value: desc}, true
	}

	// stat-derived tags survive a failed load; front matter tags do not
	for tag, value := range doc.Tags(s.now()) {
		if strings.EqualFold(tag, string(key)) {
			return genericAttribute(tag, value, includeMetaData), true
		}
	}
	return AttributeValue{}, false
}

// load materializes doc for description and front matter lookups.
func (s *AttributeSource) load(doc *trees.Document) bool {
	if err := doc.EnsureLoaded(); err != nil {
		s.logger.Warn().Err(err).Str("document", doc.RelativePath).Msg("failed to load document attributes")
		return false
	}
	return true
}

// GetItemAttributes returns the type name and every tag of a file item.
// Folder items have no bulk attributes.
func (s *AttributeSource) GetItemAttributes(item Item, includeMetaData bool) (map[AttributeKey]AttributeValue, bool) {
	payload, ok := item.Payload.(FilePayload)
	if !ok {
		return nil, false
	}
	doc, err := s.docs.Resolve(payload.Document)
	if err != nil {
		return nil, false
	}
	loaded := s.load(doc)

	tags := doc.Tags(s.now())
	out := make(map[AttributeKey]AttributeValue, len(tags)+8)
	for tag, value := range tags {
		out[AttributeKey(tag)] = genericAttribute(tag, value, includeMetaData)
	}
	for _, key := range []AttributeKey{AttrTypeDisplayName, AttrColor, AttrIsEngineContent, AttrIsProjectContent, AttrIsPluginContent} {
		if v, ok := s.documentAttribute(doc, payload, includeMetaData, key); ok {
			out[key] = v
		}
	}
	if desc := doc.Description(); loaded && desc != "" {
		out[AttrDescription] = AttributeValue{Value: desc}
	}
	out[attrClass] = s.typeNameAttribute(includeMetaData)
	return out, true
}

func (s *AttributeSource) typeNameAttribute(includeMetaData bool) AttributeValue {
	value := AttributeValue{Value: s.typeName}
	if includeMetaData {
		value.MetaData = &AttributeMetaData{DisplayName: "Type"}
	}
	return value
}

// genericAttribute wraps a tag. Tags prefixed with "_" are hidden.
func genericAttribute(tag, value string, includeMetaData bool) AttributeValue {
	attr := AttributeValue{Value: value}
	if includeMetaData {
		attr.MetaData = &AttributeMetaData{
			DisplayName: NameToDisplayString(strings.TrimPrefix(tag, "_")),
			Hidden:      strings.HasPrefix(tag, "_"),
		}
	}
	return attr
}
