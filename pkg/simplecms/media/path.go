package media

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Asset tree layout, relative to the asset root.
const (
	StaticPrefix = "static/"
	UploadsDir   = "static/uploads"
	LegacyDir    = "static/img"
)

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// IsExternal reports whether ref points outside the asset tree: an absolute
// URL, a protocol-relative URL or a data URI.
func IsExternal(ref string) bool {
	if strings.HasPrefix(ref, "//") {
		return true
	}
	if len(ref) >= 5 && strings.EqualFold(ref[:5], "data:") {
		return true
	}
	return schemePattern.MatchString(ref)
}

// Canonicalize turns separators into slashes and strips every leading
// "./", "../" and "/" segment, so the result is relative to the asset root.
func Canonicalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = stripLeading(p)
	if p == "" {
		return ""
	}
	p = stripLeading(path.Clean(p))
	if p == "." {
		return ""
	}
	return p
}

func stripLeading(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		case p == ".." || p == ".":
			return ""
		default:
			return p
		}
	}
}

// Candidates lists the asset paths probed for p, in order: p itself when it
// already lies under the static prefix, then its basename under the category
// uploads, the legacy category directory and the generic roots.
func Candidates(p string, category simplecms.MediaCategory) []string {
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	switch {
	case strings.HasPrefix(p, StaticPrefix):
		add(p)
	case strings.HasPrefix(p, "uploads/"), strings.HasPrefix(p, "img/"):
		add(StaticPrefix + p)
	}
	add(path.Join(UploadsDir, string(category), base))
	add(path.Join(LegacyDir, string(category), base))
	add(path.Join(UploadsDir, base))
	add(path.Join(LegacyDir, base))
	return out
}

// FuzzyDirs lists the directories scanned by the fuzzy fallback, in order.
func FuzzyDirs(category simplecms.MediaCategory) []string {
	return []string{
		path.Join(UploadsDir, string(category)),
		path.Join(LegacyDir, string(category)),
	}
}

// FuzzyKey returns the comparison key of a file name: its stem reduced to
// lowercase letters and digits, and its lowercased extension.
func FuzzyKey(name string) (stem, ext string) {
	ext = path.Ext(name)
	raw := strings.TrimSuffix(name, ext)
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String(), strings.ToLower(ext)
}

// FuzzyMatch returns the first name in names (scanned in order) whose
// sanitized stem equals that of target. The extension must match only when
// target has one.
func FuzzyMatch(target string, names []string) (string, bool) {
	wantStem, wantExt := FuzzyKey(target)
	if wantStem == "" {
		return "", false
	}
	for _, name := range names {
		stem, ext := FuzzyKey(name)
		if stem == wantStem && (wantExt == "" || ext == wantExt) {
			return name, true
		}
	}
	return "", false
}
