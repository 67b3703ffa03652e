package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Note content has accumulated several ways of pointing at the same
// embedded file over the years. Each matcher extracts candidate references
// for one historical form; results are normalized to a relative path under
// the files root, unioned and sorted so reference resolution is
// deterministic regardless of which form the content uses.
type fileRefMatcher struct {
	name string
	re   *regexp.Regexp
}

var fileRefMatchers = []fileRefMatcher{
	// current canonical form: files/<shard>/<name>
	{name: "canonical", re: regexp.MustCompile(`files/([^"'<>\s)]+)`)},
	// app-scheme form written by older releases
	{name: "inkwell-file", re: regexp.MustCompile(`inkwell-file://([^"'<>\s)]+)`)},
	// oldest form, absolute-ish local-file scheme
	{name: "local-file", re: regexp.MustCompile(`local-file://([^"'<>\s)]+)`)},
}

var attachmentMatchers = []fileRefMatcher{
	{name: "attach-scheme", re: regexp.MustCompile(`inkwell-attach://([0-9a-fA-F-]{36})`)},
	{name: "attach-path", re: regexp.MustCompile(`attachments/([0-9a-fA-F-]{36})/`)},
}

var legacyFileSchemes = []*regexp.Regexp{
	regexp.MustCompile(`inkwell-file://([^"'<>\s)]+)`),
	regexp.MustCompile(`local-file://([^"'<>\s)]+)`),
}

// ExtractFileRefs returns the deduplicated, sorted set of embedded-file
// relative paths referenced by the content.
func ExtractFileRefs(content string) []string {
	set := make(map[string]struct{})
	for _, m := range fileRefMatchers {
		for _, match := range m.re.FindAllStringSubmatch(content, -1) {
			if rel, ok := normalizeFileRef(match[1]); ok {
				set[rel] = struct{}{}
			}
		}
	}

	refs := make([]string, 0, len(set))
	for rel := range set {
		refs = append(refs, rel)
	}
	sort.Strings(refs)
	return refs
}

// ExtractAttachmentIDs returns the set of attachment ids the content still
// refers to. Saving a note diffs this set against its attachment rows.
func ExtractAttachmentIDs(content string) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{})
	for _, m := range attachmentMatchers {
		for _, match := range m.re.FindAllStringSubmatch(content, -1) {
			if id, err := uuid.Parse(match[1]); err == nil {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

// CanonicalizeFileURLs rewrites every legacy embedded-file URL scheme in
// the content to the canonical files/<relpath> form. Canonical references
// pass through unchanged, so the rewrite is idempotent.
func CanonicalizeFileURLs(content string) string {
	out := content
	for _, re := range legacyFileSchemes {
		out = re.ReplaceAllString(out, "files/$1")
	}
	return out
}

// HasLegacyFileURLs reports whether the content still carries any legacy
// embedded-file URL scheme.
func HasLegacyFileURLs(content string) bool {
	for _, re := range legacyFileSchemes {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func normalizeFileRef(raw string) (string, bool) {
	rel := raw
	if decoded, err := url.PathUnescape(raw); err == nil {
		rel = decoded
	}
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return rel, true
}
