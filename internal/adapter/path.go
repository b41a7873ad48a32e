package adapter

import "strings"

// NormalizePath canonicalizes a USS path for z/OSMF, which rejects a
// trailing slash on anything but the root and doubled separators.
//
// NormalizePath is idempotent.
func NormalizePath(p string) string {
	p = trimTrailingSlash(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	// "/a//" only shows its trailing slash after collapsing
	p = trimTrailingSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func trimTrailingSlash(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// JoinPath joins a directory and an entry name and normalizes the result.
func JoinPath(dir, name string) string {
	return NormalizePath(dir + "/" + name)
}
