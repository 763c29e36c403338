package fingerprint

import "strings"

// NormalizePath converts a path to the canonical form used for all
// digest records: lowercase, forward slashes, no leading or trailing
// separators, no repeated separators, surrounding whitespace removed.
// Baseline construction and comparison apply the same normalization,
// so the same logical asset never diverges on spelling alone.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.ToLower(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.Trim(p, "/")
}
