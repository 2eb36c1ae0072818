package modcatalog

import (
	"os"
	"path/filepath"
	"testing"

	"nxmodmgr/internal/domain"
	"nxmodmgr/internal/jsonstore"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", n, err)
		}
	}
}

func TestScanEmptyRootReturnsNil(t *testing.T) {
	mods, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if mods != nil {
		t.Fatalf("Scan of missing root = %v, want nil", mods)
	}
}

func TestScanOrdersInstalledTypedThenName(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Zebra",
		"Apple[F]",
		"Banana$",
		"Cherry[G]$",
		"Delta[C]",
	)

	mods, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(mods) != 5 {
		t.Fatalf("Scan returned %d mods, want 5", len(mods))
	}

	var order []string
	for _, m := range mods {
		order = append(order, m.DirName())
	}

	// installed first, typed before untyped (Cherry[G]$, Banana$), then
	// typed-uninstalled (Delta[C], Apple[F]), then untyped (Zebra).
	if mods[0].ModName != "Cherry" || !mods[0].Installed {
		t.Fatalf("mods[0] = %+v, want installed Cherry", mods[0])
	}
	if mods[1].ModName != "Banana" || !mods[1].Installed {
		t.Fatalf("mods[1] = %+v, want installed Banana", mods[1])
	}
	if mods[4].ModName != "Zebra" || mods[4].TypeTag != domain.ModTypeNone {
		t.Fatalf("mods[4] = %+v, want untyped Zebra last", mods[4])
	}
}

func TestScanSkipsDottedNames(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "mod_name.json.bak", "GoodMod")
	// mod_name.json.bak is a directory here purely to exercise the dot
	// filter; real installs never have a directory with a dot in it.

	mods, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(mods) != 1 || mods[0].ModName != "GoodMod" {
		t.Fatalf("Scan = %+v, want only GoodMod", mods)
	}
}

func TestScanAppliesOverrides(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "RawMod[F]")

	overrides := jsonstore.NewModOverrides(filepath.Join(root, "mod_name.json"))
	if err := overrides.Set("RawMod[F]", jsonstore.ModOverride{
		DisplayName: "Pretty Mod",
		Description: "a nicer name",
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mods, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("Scan returned %d mods, want 1", len(mods))
	}
	if mods[0].DisplayName != "Pretty Mod" {
		t.Fatalf("DisplayName = %q, want %q", mods[0].DisplayName, "Pretty Mod")
	}
	if mods[0].Description != "a nicer name" {
		t.Fatalf("Description = %q, want %q", mods[0].Description, "a nicer name")
	}
}
