// Package imageref finds and rewrites image://<id> references in note
// content and in the HTML rendered from it.
package imageref

import (
	"regexp"
	"strings"
)

const (
	// Scheme prefixes every image reference stored in note content.
	Scheme = "image://"
	// Version identifies the reference format recognised by this package.
	// Bump it together with the patterns when the format changes.
	Version = 1
)

var (
	markdownRe = regexp.MustCompile(`!\[[^\]]*\]\(image://([A-Za-z0-9_-]+)\)`)
	htmlRe     = regexp.MustCompile(`<img src="image://([A-Za-z0-9_-]+)"([^>]*)>`)
)

// Extract returns the distinct image ids referenced by markdown image syntax
// in content, in order of first appearance.
func Extract(content string) []string {
	matches := markdownRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Reference builds the markdown snippet inserted into a note for an uploaded
// image. Brackets in the alt text are dropped so the reference stays
// parseable.
func Reference(alt, id string) string {
	alt = strings.NewReplacer("[", "", "]", "").Replace(alt)
	return "![" + alt + "](" + Scheme + id + ")"
}

// ReplaceHTML rewrites every <img src="image://id" ...> tag in html using
// replace, which receives the id and the remaining attributes (with their
// leading whitespace) and returns the full replacement tag.
func ReplaceHTML(html string, replace func(id, attrs string) string) string {
	return htmlRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := htmlRe.FindStringSubmatch(tag)
		return replace(m[1], m[2])
	})
}

// HTMLIDs returns the distinct ids of image:// img tags in html, in order of
// first appearance.
func HTMLIDs(html string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, m := range htmlRe.FindAllStringSubmatch(html, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}
