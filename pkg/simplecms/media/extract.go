package media

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// maxDepth bounds container unwrapping. Stored references nest at most a
// JSON string holding a map holding a list holding a path.
const maxDepth = 4

// pathKeys are the map keys a path is taken from, in order.
var pathKeys = []string{"url", "path", "src", "image", "cover"}

type refKind int

const (
	kindNone refKind = iota
	kindString
	kindBytes
	kindList
	kindMap
)

// variant is a stored reference classified by shape.
type variant struct {
	kind  refKind
	str   string
	bytes []byte
	list  []any
	dict  map[string]any
}

func classify(v any) variant {
	switch x := v.(type) {
	case simplecms.MediaRef:
		return classify(x.Raw)
	case *simplecms.MediaRef:
		if x == nil {
			return variant{}
		}
		return classify(x.Raw)
	case string:
		return variant{kind: kindString, str: x}
	case json.RawMessage:
		return variant{kind: kindBytes, bytes: x}
	case []byte:
		return variant{kind: kindBytes, bytes: x}
	case []any:
		return variant{kind: kindList, list: x}
	case []string:
		list := make([]any, len(x))
		for i, s := range x {
			list[i] = s
		}
		return variant{kind: kindList, list: list}
	case map[string]any:
		return variant{kind: kindMap, dict: x}
	case map[string]string:
		dict := make(map[string]any, len(x))
		for k, s := range x {
			dict[k] = s
		}
		return variant{kind: kindMap, dict: dict}
	default:
		return variant{}
	}
}

// ExtractPath pulls a single path out of a stored media reference of any
// supported shape. It returns "" when nothing usable is found.
func ExtractPath(raw any) string {
	return extract(raw, 0)
}

func extract(raw any, depth int) string {
	if depth > maxDepth {
		return ""
	}
	v := classify(raw)
	switch v.kind {
	case kindString:
		return extractString(v.str, depth)
	case kindBytes:
		return extractString(decodeBytes(v.bytes), depth)
	case kindList:
		for _, item := range v.list {
			if p := extract(item, depth+1); p != "" {
				return p
			}
		}
	case kindMap:
		for _, key := range pathKeys {
			if item, ok := v.dict[key]; ok {
				if p := extract(item, depth+1); p != "" {
					return p
				}
			}
		}
	}
	return ""
}

func extractString(s string, depth int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var decoded string
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return extract(decoded, depth+1)
		}
	}
	if unquoted, ok := stripQuotes(s); ok {
		return extract(unquoted, depth+1)
	}

	if s[0] == '{' || s[0] == '[' {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return extract(decoded, depth+1)
		}
	}
	return s
}

func stripQuotes(s string) (string, bool) {
	if len(s) < 2 {
		return s, false
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// decodeBytes returns b as text. Bytes that are not UTF-8 are taken as
// Windows-1256, the legacy Arabic code page.
func decodeBytes(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.Windows1256.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "")
	}
	return string(decoded)
}
