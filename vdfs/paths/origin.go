package paths

import (
	"strings"
)

// Origin classifies where a documentation path's content root comes from.
type Origin int

const (
	OriginNone Origin = iota
	OriginEngine
	OriginProject
	OriginPlugin
)

func (o Origin) String() string {
	switch o {
	case OriginEngine:
		return "engine"
	case OriginProject:
		return "project"
	case OriginPlugin:
		return "plugin"
	default:
		return "none"
	}
}

// ParseOrigin maps "engine", "project" and "plugin" to an Origin. The empty
// string is OriginNone.
func ParseOrigin(s string) (Origin, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OriginNone, true
	case "engine":
		return OriginEngine, true
	case "project":
		return OriginProject, true
	case "plugin":
		return OriginPlugin, true
	}
	return OriginNone, false
}

// ContentRoots answers whether a content root name belongs to the engine,
// the project or a plugin. Names are compared case-insensitively.
type ContentRoots interface {
	IsEngineRoot(name string) bool
	IsProjectRoot(name string) bool
	IsPluginRoot(name string) bool
}

// PluginSource records where a plugin was loaded from.
type PluginSource int

const (
	PluginFromEngine PluginSource = iota
	PluginFromProject
)

// ParsePluginSource maps "engine" and "project" to a PluginSource.
func ParsePluginSource(s string) (PluginSource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "engine":
		return PluginFromEngine, true
	case "project":
		return PluginFromProject, true
	}
	return PluginFromEngine, false
}

// StaticContentRoots is a fixed ContentRoots table. Plugins count as engine or
// project content according to their source, and always as plugin content.
type StaticContentRoots struct {
	engine  map[string]struct{}
	project map[string]struct{}
	plugins map[string]PluginSource
}

// NewStaticContentRoots builds a ContentRoots table from name lists.
func NewStaticContentRoots(engine, project []string, plugins map[string]PluginSource) *StaticContentRoots {
	r := &StaticContentRoots{
		engine:  make(map[string]struct{}, len(engine)),
		project: make(map[string]struct{}, len(project)),
		plugins: make(map[string]PluginSource, len(plugins)),
	}
	for _, name := range engine {
		r.engine[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range project {
		r.project[strings.ToLower(name)] = struct{}{}
	}
	for name, src := range plugins {
		r.plugins[strings.ToLower(name)] = src
	}
	return r
}

func (r *StaticContentRoots) IsEngineRoot(name string) bool {
	key := strings.ToLower(name)
	if _, ok := r.engine[key]; ok {
		return true
	}
	src, ok := r.plugins[key]
	return ok && src == PluginFromEngine
}

func (r *StaticContentRoots) IsProjectRoot(name string) bool {
	key := strings.ToLower(name)
	if _, ok := r.project[key]; ok {
		return true
	}
	src, ok := r.plugins[key]
	return ok && src == PluginFromProject
}

func (r *StaticContentRoots) IsPluginRoot(name string) bool {
	_, ok := r.plugins[strings.ToLower(name)]
	return ok
}

// ContentRootName recovers the content root embedded after marker in an
// internal path: "/Documentation_Engine/guide" with marker "/Documentation_"
// yields "Engine". It fails when the path does not start with the marker.
func ContentRootName(internalPath, marker string) (string, bool) {
	if marker == "" || len(internalPath) < len(marker) ||
		!strings.EqualFold(internalPath[:len(marker)], marker) {
		return "", false
	}
	name := internalPath[len(marker):]
	if idx := strings.Index(name, Separator); idx >= 0 {
		name = name[:idx]
	}
	return name, true
}
