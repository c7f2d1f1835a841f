package trees

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tag keys derived from stat data
const (
	TagKeySize      = "size"
	TagKeyAge       = "age"
	TagKeyExtension = "extension"

	TagSizeEmpty  = "empty"
	TagSizeSmall  = "small"
	TagSizeMedium = "medium"
	TagSizeLarge  = "large"

	sizeThresholdSmall  = 1e3
	sizeThresholdMedium = 1e6

	frontMatterDelimiter = "---"
)

// GenerateTags derives the stat based tags of a document.
func GenerateTags(doc *Document, now time.Time) map[string]string {
	tags := make(map[string]string, 3)

	switch {
	case doc.Size == 0:
		tags[TagKeySize] = TagSizeEmpty
	case doc.Size > sizeThresholdMedium:
		tags[TagKeySize] = TagSizeLarge
	case doc.Size > sizeThresholdSmall:
		tags[TagKeySize] = TagSizeMedium
	default:
		tags[TagKeySize] = TagSizeSmall
	}

	if ext := strings.ToLower(filepath.Ext(doc.FileName)); ext != "" {
		tags[TagKeyExtension] = ext[1:]
	}

	if !doc.ModTime.IsZero() {
		modAge := now.Sub(doc.ModTime)
		switch {
		case modAge < 24*time.Hour:
			tags[TagKeyAge] = "recent"
		case modAge < 7*24*time.Hour:
			tags[TagKeyAge] = "thisweek"
		case modAge < 30*24*time.Hour:
			tags[TagKeyAge] = "thismonth"
		case modAge < 365*24*time.Hour:
			tags[TagKeyAge] = "thisyear"
		default:
			tags[TagKeyAge] = "old"
		}
	}

	return tags
}

// ParseFrontMatter splits a leading YAML block delimited by "---" lines from
// the markdown body. Scalar values are rendered with fmt, sequences are
// joined with ", ". Text without front matter is returned unchanged.
func ParseFrontMatter(text string) (map[string]string, string, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterDelimiter+"\n") {
		return nil, text, nil
	}
	rest := normalized[len(frontMatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	var block, body string
	switch {
	case strings.HasPrefix(rest, frontMatterDelimiter):
		block, body = "", rest[len(frontMatterDelimiter):]
	case end >= 0:
		block, body = rest[:end], rest[end+len(frontMatterDelimiter)+1:]
	default:
		return nil, text, nil
	}
	body = strings.TrimPrefix(body, "\n")

	raw := make(map[string]any)
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, text, fmt.Errorf("invalid front matter: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		fields[key] = renderTagValue(value)
	}
	return fields, body, nil
}

func renderTagValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderTagValue(item))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Tags returns the generic tag vocabulary of the document: stat derived tags
// overlaid by front matter fields once the content is loaded.
func (d *Document) Tags(now time.Time) map[string]string {
	tags := GenerateTags(d, now)
	if !d.loaded {
		return tags
	}
	fields, _, err := ParseFrontMatter(d.content)
	if err != nil {
		return tags
	}
	for key, value := range fields {
		tags[key] = value
	}
	return tags
}

// Description returns the front matter "description" field, or else the first
// paragraph line of the body that is not a heading. It is empty until the
// content is loaded.
func (d *Document) Description() string {
	if !d.loaded {
		return ""
	}
	fields, body, err := ParseFrontMatter(d.content)
	if err == nil {
		if desc, ok := fields["description"]; ok && desc != "" {
			return desc
		}
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// SortedTagKeys returns the keys of tags in lexical order.
func SortedTagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
