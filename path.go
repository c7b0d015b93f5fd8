package zipfile

import "strings"

// NormalizePath converts a user-provided path to the archive-relative form
// used as an index key.
//
// It performs the following transformations:
//   - Strips leading slashes: "/etc/nginx.conf" → "etc/nginx.conf"
//   - Collapses consecutive slashes: "etc//nginx.conf" → "etc/nginx.conf"
//   - Preserves one trailing slash, the directory marker convention:
//     "assets//" → "assets/"
//
// Archive methods never call this implicitly: keys are stored exactly as
// given, and validating them is the caller's concern. Paths containing "."
// or ".." elements are preserved untouched.
func NormalizePath(p string) string {
	dir := strings.HasSuffix(p, "/")

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}

	out := strings.Join(result, "/")
	if dir && out != "" {
		out += "/"
	}
	return out
}
