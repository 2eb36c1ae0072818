// Package domain holds the shared types of the mod manager: titles, mods,
// language resolution tables, and the stable error kinds every other
// package reports through.
package domain

import (
	"fmt"
)

// TitleID is the 64-bit identifier the platform title registry uses.
// A TitleID is treated as a game only when the top byte of the high
// 32 bits equals 0x01.
type TitleID uint64

// IsGame reports whether id's high byte marks it as a game title.
func (id TitleID) IsGame() bool {
	return byte(id>>56) == 0x01
}

// Hex16 renders the id as the lowercase 16 hex-digit directory name used
// under /mods2/<slot>/<hex16 id>/.
func (id TitleID) Hex16() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseTitleID parses a 16 hex-digit directory name back into a TitleID.
func ParseTitleID(hex16 string) (TitleID, error) {
	if len(hex16) != 16 {
		return 0, fmt.Errorf("title id %q: want 16 hex digits", hex16)
	}
	var v uint64
	if _, err := fmt.Sscanf(hex16, "%016x", &v); err != nil {
		return 0, fmt.Errorf("title id %q: %w", hex16, err)
	}
	return TitleID(v), nil
}

// NoneGameText is substituted for DisplayVersion when a title is absent
// or its NACP could not be resolved; the record is then treated as
// "uninstalled, orphan mods present".
const NoneGameText = "NONE_GAME_TEXT"

// NACPMaxIconSize is the hard cap on icon_jpeg bytes kept in a TitleRecord.
const NACPMaxIconSize = 128 * 1024

// SetLanguage mirrors the platform's system language enum.
type SetLanguage uint8

const (
	LangJA       SetLanguage = 0
	LangENUS     SetLanguage = 1
	LangFR       SetLanguage = 2
	LangDE       SetLanguage = 3
	LangIT       SetLanguage = 4
	LangES       SetLanguage = 5
	LangZHCN     SetLanguage = 6
	LangKO       SetLanguage = 7
	LangNL       SetLanguage = 8
	LangPT       SetLanguage = 9
	LangRU       SetLanguage = 10
	LangZHTW     SetLanguage = 11
	LangENGB     SetLanguage = 12
	LangFRCA     SetLanguage = 13
	LangES419    SetLanguage = 14
	LangZHHans   SetLanguage = 15
	LangZHHant   SetLanguage = 16
	LangPTBR     SetLanguage = 17
)

// nacpSlotByLanguage is the required SetLanguage -> NACP language slot
// mapping from spec.md §4.1. Unknown languages fall back to LangENUS.
var nacpSlotByLanguage = map[SetLanguage]int{
	LangJA:     2,
	LangENUS:   0,
	LangFR:     3,
	LangDE:     4,
	LangIT:     7,
	LangES:     6,
	LangZHCN:   14,
	LangKO:     12,
	LangNL:     8,
	LangPT:     10,
	LangRU:     11,
	LangZHTW:   13,
	LangENGB:   1,
	LangFRCA:   9,
	LangES419:  5,
	LangZHHans: 14,
	LangZHHant: 13,
	LangPTBR:   15,
}

// NACPSlot returns the NACP language slot (0-15) for a SetLanguage value,
// falling back to the EN-US slot for unknown values.
func NACPSlot(lang SetLanguage) int {
	if slot, ok := nacpSlotByLanguage[lang]; ok {
		return slot
	}
	return nacpSlotByLanguage[LangENUS]
}

// NACPLanguageSlots is the number of name/author slots in a platform NACP.
const NACPLanguageSlots = 16

// NACPEntry is one name/author pair from a platform NACP language table.
type NACPEntry struct {
	Name   string
	Author string
}

// NACP is the subset of the platform's control-data struct the catalogue
// needs: 16 language slots plus the display version string.
type NACP struct {
	Entries        [NACPLanguageSlots]NACPEntry
	DisplayVersion string
}

// TitleRecord is one installed title, resolved for UI display.
type TitleRecord struct {
	ID             TitleID
	DisplayName    string
	Publisher      string
	DisplayVersion string // NoneGameText if absent/corrupted
	IconJPEG       []byte // at most NACPMaxIconSize bytes
	ModSlotDirname string // directory under /mods2/ grouping this title's mods
	ModSlotVersion string // optional "[version]" suffix parsed from the slot name
	ModCount       string // decimal count of non-hidden subdirectories

	// OwnImage tracks whether IconJPEG was replaced by a user-supplied
	// custom image; releasing it frees the previous custom image (§4.4).
	OwnImage bool
}

// IsOrphan reports whether the record has no resolved NACP (title absent
// or corrupted) and therefore only has mods, no live install.
func (t *TitleRecord) IsOrphan() bool {
	return t.DisplayVersion == NoneGameText
}

// JPEGValid reports whether b looks like a well-formed JPEG within the
// NACPMaxIconSize bound: starts with SOI (FFD8) and ends with EOI (FFD9).
func JPEGValid(b []byte) bool {
	if len(b) < 4 || len(b) > NACPMaxIconSize {
		return false
	}
	return b[0] == 0xFF && b[1] == 0xD8 && b[len(b)-2] == 0xFF && b[len(b)-1] == 0xD9
}
