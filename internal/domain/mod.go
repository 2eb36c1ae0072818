package domain

import "strings"

// ModTypeTag classifies a mod directory's purpose from its trailing
// "[X]" marker (before any installed-marker "$").
type ModTypeTag int

const (
	ModTypeNone ModTypeTag = iota
	ModTypeFps             // "[F]"
	ModTypeHd              // "[G]"
	ModTypeCheat           // "[C]"
	ModTypePlay            // "[P]"
	ModTypeBeauty          // "[B]"
)

// modTypeMarkers maps the bracketed on-disk marker to its tag.
var modTypeMarkers = map[string]ModTypeTag{
	"[F]": ModTypeFps,
	"[G]": ModTypeHd,
	"[C]": ModTypeCheat,
	"[P]": ModTypePlay,
	"[B]": ModTypeBeauty,
}

// modTypeOrder fixes the sort order typed tags compare by (§4.2: "sort
// by the bracketed tag string"), which is just lexicographic on the
// marker text: "[B]" < "[C]" < "[F]" < "[G]" < "[P]".
var modTypeOrder = []string{"[B]", "[C]", "[F]", "[G]", "[P]"}

// String returns the bracketed marker for the tag, or "" for ModTypeNone.
func (t ModTypeTag) String() string {
	for marker, tag := range modTypeMarkers {
		if tag == t {
			return marker
		}
	}
	return ""
}

// SortRank returns the tag's position for ordering within the typed
// group; ModTypeNone has no position and returns -1 (the caller orders
// untyped mods after typed ones separately).
func (t ModTypeTag) SortRank() int {
	marker := t.String()
	for i, m := range modTypeOrder {
		if m == marker {
			return i
		}
	}
	return -1
}

// ParseModDirName splits a raw on-disk mod directory name into its
// installed-marker, type tag, and bare mod name per spec.md §3/§4.2.
//
//	"ModA"        -> name="ModA"  tag=None     installed=false
//	"ModA$"       -> name="ModA"  tag=None     installed=true
//	"ModA[F]"     -> name="ModA"  tag=Fps      installed=false
//	"ModA[F]$"    -> name="ModA"  tag=Fps      installed=true
func ParseModDirName(raw string) (name string, tag ModTypeTag, installed bool) {
	stripped := raw
	if strings.HasSuffix(stripped, "$") {
		installed = true
		stripped = strings.TrimSuffix(stripped, "$")
	}

	for marker, t := range modTypeMarkers {
		if strings.HasSuffix(stripped, marker) {
			return strings.TrimSuffix(stripped, marker), t, installed
		}
	}

	return stripped, ModTypeNone, installed
}

// ModRecord is one mod belonging to a title (spec.md §3).
type ModRecord struct {
	ModName     string // directory name, stripped of type marker and "$"
	DisplayName string // override from mod_name.json; default = ModName
	TypeTag     ModTypeTag
	Installed   bool
	Path        string // absolute path
	Description string // override from mod_name.json
}

// JSONKey returns the key used to look this mod up in mod_name.json:
// "mod_name" or "mod_name[X]" when the mod carries a type tag.
func (m *ModRecord) JSONKey() string {
	if m.TypeTag == ModTypeNone {
		return m.ModName
	}
	return m.ModName + m.TypeTag.String()
}

// DirName returns the on-disk directory name for the record's current
// state (type tag plus "$" when installed).
func (m *ModRecord) DirName() string {
	name := m.ModName + m.TypeTag.String()
	if m.Installed {
		name += "$"
	}
	return name
}
