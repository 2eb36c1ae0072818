package sortkey

import "strings"

// CanonicalVersion implements the transform of spec.md §4.7: strip
// whitespace, lowercase, strip a leading "v"/"V", remove "."s, strip
// trailing "0"s (keeping at least "0").
func CanonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.ToLower(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.ReplaceAll(v, ".", "")
	trimmed := strings.TrimRight(v, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// CompatibleModVersion reports whether a mod version and a game version
// are compatible: their canonicalisations are equal (spec.md §4.7/§8).
func CompatibleModVersion(modVersion, gameVersion string) bool {
	return CanonicalVersion(modVersion) == CanonicalVersion(gameVersion)
}
