package util

import (
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collators are not safe for concurrent use.
var collators = sync.Pool{
	New: func() any { return collate.New(language.Spanish, collate.IgnoreCase) },
}

// CompareText orders strings the way a Spanish reader expects, ignoring
// case and treating accented letters next to their base letter.
func CompareText(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}

// SanitizeFilename reduces a client supplied file name to its base name
// without control characters.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
