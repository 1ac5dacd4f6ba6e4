package pathcache

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RootPath is the cache key of the library root folder.
const RootPath = "/"

// NormalizePath converts a logical folder path to its cache key: NFC, no
// leading slash, empty segments dropped, one trailing slash. The library
// root ("", "/", ".") maps to RootPath.
func NormalizePath(p string) string {
	p = norm.NFC.String(p)

	parts := make([]string, 0, strings.Count(p, "/")+1)

	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." {
			continue
		}

		parts = append(parts, seg)
	}

	if len(parts) == 0 {
		return RootPath
	}

	return strings.Join(parts, "/") + "/"
}

// Segments splits a normalized path into its folder names. RootPath has none.
func Segments(key string) []string {
	if key == RootPath {
		return nil
	}

	return strings.Split(strings.TrimSuffix(key, "/"), "/")
}
