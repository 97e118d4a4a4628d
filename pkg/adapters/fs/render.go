package fs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	// PreviewLength is the maximum number of characters kept from the memo text in a filename.
	PreviewLength = 50

	fileTimeLayout    = "2006-01-02 15-04"
	displayTimeLayout = "2006-01-02 15:04:05"

	// MarkerPrefix starts the line that records the memo id in a document.
	MarkerPrefix  = "> - ID: "
	updatedPrefix = "> - Updated: "
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

var (
	calloutLine  = regexp.MustCompile(`(?m)^>\s*\[!.*?\].*$`)
	quoteLine    = regexp.MustCompile(`(?m)^>\s.*$`)
	headingMark  = regexp.MustCompile(`(?m)^\s*#{1,6}\s+`)
	emphasisMark = regexp.MustCompile("[_*~`]")
	imageMarkup  = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkMarkup   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	whitespace   = regexp.MustCompile(`\s+`)

	unsafeLeading = regexp.MustCompile(`^[\\/:*?"<>|#\s]+`)
	unsafeChars   = regexp.MustCompile(`[\\/:*?"<>|#]`)

	closedTag = regexp.MustCompile(`#([^#\s]+)#`)
	inlineTag = regexp.MustCompile(`(?:^|\s)#([^#\s]+)`)
)

// Preview returns a short human-readable excerpt of memo text, suitable for a filename.
func Preview(text string) string {
	p := calloutLine.ReplaceAllString(text, "")
	p = quoteLine.ReplaceAllString(p, "")
	p = headingMark.ReplaceAllString(p, "")
	p = emphasisMark.ReplaceAllString(p, "")
	p = imageMarkup.ReplaceAllString(p, "")
	p = linkMarkup.ReplaceAllString(p, "$1")
	p = strings.TrimSpace(whitespace.ReplaceAllString(p, " "))

	if p == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(p) > PreviewLength {
		p = string([]rune(p)[:PreviewLength]) + "..."
	}
	return p
}

// SanitizeFileName removes characters that are illegal on common filesystems, as well as '#'.
func SanitizeFileName(name string) string {
	s := unsafeLeading.ReplaceAllString(name, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(unsafeChars.ReplaceAllString(s, ""))
	if s == "" {
		return "untitled"
	}
	return s
}

// RelativePath returns the slash-separated path that leads from the directory of
// the file at from to the file at to. Both paths use '/' separators.
func RelativePath(from, to string) string {
	fromParts := strings.Split(from, "/")
	toParts := strings.Split(to, "/")
	fromParts = fromParts[:len(fromParts)-1]

	i := 0
	for i < len(fromParts) && i < len(toParts) && fromParts[i] == toParts[i] {
		i++
	}

	parts := make([]string, 0, len(fromParts)-i+len(toParts)-i)
	for range fromParts[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[i:]...)
	return strings.Join(parts, "/")
}

// NormalizeInlineTags rewrites "#tag#" markers to "#tag".
func NormalizeInlineTags(text string) string {
	return closedTag.ReplaceAllString(text, "#${1}")
}

// ExtractTags returns the bare inline tags of text in order of appearance, without duplicates.
func ExtractTags(text string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range inlineTag.FindAllStringSubmatch(text, -1) {
		tag := m[1]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// IsImage classifies an attachment by its file extension.
func IsImage(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// DocumentName returns the file name of a memo document.
func DocumentName(m core.Memo, loc *time.Location) string {
	preview := Preview(m.Content)
	if strings.TrimSpace(m.Content) == "" {
		preview = SanitizeFileName(strings.TrimPrefix(m.Name, "memos/"))
	}
	return SanitizeFileName(fmt.Sprintf("%s (%s).md", preview, m.CreateTime.In(loc).Format(fileTimeLayout)))
}

// properties renders the trailing callout that carries the memo id marker.
func properties(m core.Memo, tags []string, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("\n\n---\n")
	b.WriteString("> [!note]- Memo Properties\n")
	fmt.Fprintf(&b, "> - Created: %s\n", m.CreateTime.In(loc).Format(displayTimeLayout))
	fmt.Fprintf(&b, "%s%s\n", updatedPrefix, m.UpdateTime.In(loc).Format(displayTimeLayout))
	b.WriteString("> - Type: memo\n")
	if len(tags) > 0 {
		fmt.Fprintf(&b, "> - Tags: [%s]\n", strings.Join(tags, ", "))
	}
	fmt.Fprintf(&b, "%s%s\n", MarkerPrefix, m.Name)
	fmt.Fprintf(&b, "> - Visibility: %s\n", strings.ToLower(string(m.Visibility)))
	return b.String()
}

// markdownTarget wraps link targets that contain spaces or parentheses.
func markdownTarget(p string) string {
	if strings.ContainsAny(p, " ()") {
		return "<" + p + ">"
	}
	return p
}
