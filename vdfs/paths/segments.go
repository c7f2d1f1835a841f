package paths

import (
	"path"
	"strings"
)

// Separator is the delimiter of both internal and virtual paths.
const Separator = "/"

// Split splits a path into its ordered components.
// Empty, "." and separator-only inputs yield no components.
func Split(p string) []string {
	p = strings.ReplaceAll(p, "\\", Separator)
	parts := strings.Split(p, Separator)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

// Normalize returns the canonical form of p: forward slashes, a leading
// slash, no trailing slash and no "." or ".." elements. The empty path
// stays empty and the bare separator stays "/".
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", Separator)
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}
	return path.Clean(p)
}

// Join appends name to parent. An empty or root parent yields "/name".
func Join(parent, name string) string {
	if parent == "" || parent == Separator {
		return Separator + name
	}
	return parent + Separator + name
}

// Base returns the last component of p, or "" for the root.
func Base(p string) string {
	segments := Split(p)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Parent returns p without its last component. The parent of a top-level
// path is "/".
func Parent(p string) string {
	p = Normalize(p)
	idx := strings.LastIndex(p, Separator)
	if idx <= 0 {
		return Separator
	}
	return p[:idx]
}

// Equal compares two paths case-insensitively after normalization.
func Equal(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// Key returns the case-folded form used for map keys and set membership.
func Key(p string) string {
	return strings.ToLower(Normalize(p))
}

// TrimRoot strips root from p when p equals root or lies beneath it,
// comparing case-insensitively on component boundaries. The remainder keeps
// its leading slash, or is empty when p is root itself.
func TrimRoot(p, root string) (string, bool) {
	p = Normalize(p)
	root = Normalize(root)
	if root == "" || root == Separator {
		if p == Separator {
			return "", true
		}
		return p, true
	}
	if len(p) < len(root) || !strings.EqualFold(p[:len(root)], root) {
		return "", false
	}
	rest := p[len(root):]
	if rest == "" {
		return "", true
	}
	if !strings.HasPrefix(rest, Separator) {
		return "", false
	}
	return rest, true
}

// IsUnder reports whether p equals root or lies beneath it.
func IsUnder(p, root string) bool {
	_, ok := TrimRoot(p, root)
	return ok
}
