// Package modcatalog scans a title's mod root (/mods2/<slot>/<hex id>/)
// into the in-memory []domain.ModRecord model (spec.md §4.2).
package modcatalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nxmodmgr/internal/domain"
	"nxmodmgr/internal/jsonstore"
	"nxmodmgr/internal/sortkey"
)

// Scan enumerates the immediate subdirectories of modRoot and returns
// the mods found, in the order fixed by spec.md §4.2: installed first,
// then typed before untyped, then by tag string, then by pinyin key of
// the display name.
//
// Entries named ".", "..", or containing "." anywhere are skipped
// (spec.md §4.2). Overrides are looked up in modRoot/mod_name.json.
func Scan(modRoot string) ([]domain.ModRecord, error) {
	entries, err := os.ReadDir(modRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewError(domain.ErrIoOpen, modRoot, err)
	}

	overrides := jsonstore.NewModOverrides(filepath.Join(modRoot, "mod_name.json"))

	var mods []domain.ModRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "." || name == ".." || strings.Contains(name, ".") {
			continue
		}

		modName, tag, installed := domain.ParseModDirName(name)
		rec := domain.ModRecord{
			ModName:   modName,
			TypeTag:   tag,
			Installed: installed,
			Path:      filepath.Join(modRoot, name),
		}
		rec.DisplayName = modName
		if override, ok := overrides.Lookup(rec.JSONKey()); ok {
			if override.DisplayName != "" {
				rec.DisplayName = override.DisplayName
			}
			rec.Description = override.Description
		}

		mods = append(mods, rec)
	}

	sort.SliceStable(mods, func(i, j int) bool { return less(mods[i], mods[j]) })
	return mods, nil
}

// less implements the ordering rule of spec.md §4.2.
func less(a, b domain.ModRecord) bool {
	if a.Installed != b.Installed {
		return a.Installed // installed sorts first
	}
	aTyped, bTyped := a.TypeTag != domain.ModTypeNone, b.TypeTag != domain.ModTypeNone
	if aTyped != bTyped {
		return aTyped // typed sorts before untyped
	}
	if aTyped && bTyped && a.TypeTag != b.TypeTag {
		return a.TypeTag.SortRank() < b.TypeTag.SortRank()
	}
	return sortkey.Less(a.DisplayName, b.DisplayName)
}
