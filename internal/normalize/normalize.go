// Package normalize cleans free-form notebook values and configured file
// extensions before they reach the catalog.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DimensionName converts a notebook value into a dimension table name.
// Strings are NFC-normalized, stripped of control characters and have
// runs of whitespace collapsed. Numbers and booleans are formatted.
// Anything else (nil, lists, mappings) yields "", meaning "no dimension".
func DimensionName(v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case bool:
		s = strconv.FormatBool(val)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
	return Text(s)
}

// Text NFC-normalizes s, drops control characters (including NUL) and
// collapses whitespace runs into single spaces.
func Text(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Extension lowercases ext and ensures a leading dot. Empty stays empty.
func Extension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// ExtensionSet normalizes exts into a lookup set, dropping blanks.
func ExtensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		if e = Extension(e); e != "" {
			set[e] = true
		}
	}
	return set
}
