package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nxmodmgr/internal/domain"
	"nxmodmgr/internal/jsonstore"
)

func TestNewServiceBootstrapsModsRoot(t *testing.T) {
	root := t.TempDir()
	modsRoot := filepath.Join(root, "mods2")

	svc, err := NewService(ServiceConfig{
		ModsRoot:       modsRoot,
		AtmosphereRoot: filepath.Join(root, "atmosphere"),
		TitleCachePath: filepath.Join(root, "switch", "nxtc_version.bin"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc == nil {
		t.Fatal("NewService returned nil")
	}

	if info, err := os.Stat(filepath.Join(modsRoot, addModSlotName)); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be bootstrapped: %v", addModSlotName, err)
	}
}

func TestServiceScanAndModsForTitle(t *testing.T) {
	root := t.TempDir()
	modsRoot := filepath.Join(root, "mods2")
	titleDir := filepath.Join(modsRoot, "Game1", "0100000000001000")
	if err := os.MkdirAll(filepath.Join(titleDir, "ModA"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	svc, err := NewService(ServiceConfig{
		ModsRoot:       modsRoot,
		AtmosphereRoot: filepath.Join(root, "atmosphere"),
		TitleCachePath: filepath.Join(root, "switch", "nxtc_version.bin"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Scan(context.Background(), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	titles := svc.Titles()
	if len(titles) != 1 {
		t.Fatalf("Titles() = %d, want 1", len(titles))
	}

	mods, err := svc.ModsForTitle(titles[0])
	if err != nil {
		t.Fatalf("ModsForTitle: %v", err)
	}
	if len(mods) != 1 || mods[0].ModName != "ModA" {
		t.Fatalf("ModsForTitle = %+v, want [ModA]", mods)
	}
}

func TestInstallAndUninstallModFlipsInstalledMarker(t *testing.T) {
	root := t.TempDir()
	modsRoot := filepath.Join(root, "mods2")
	titleDir := filepath.Join(modsRoot, "Game1", "0100000000001000")
	modDir := filepath.Join(titleDir, "ModA")

	if err := os.MkdirAll(filepath.Join(modDir, "contents", "romfs"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modDir, "contents", "romfs", "a.bin"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	svc, err := NewService(ServiceConfig{
		ModsRoot:       modsRoot,
		AtmosphereRoot: filepath.Join(root, "atmosphere"),
		TitleCachePath: filepath.Join(root, "switch", "nxtc_version.bin"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.InstallMod(context.Background(), modDir, nil); err != nil {
		t.Fatalf("InstallMod: %v", err)
	}
	installedDir := filepath.Join(titleDir, "ModA$")
	if _, err := os.Stat(installedDir); err != nil {
		t.Fatalf("expected %s after install: %v", installedDir, err)
	}

	if err := svc.UninstallMod(context.Background(), installedDir, nil); err != nil {
		t.Fatalf("UninstallMod: %v", err)
	}
	if _, err := os.Stat(modDir); err != nil {
		t.Fatalf("expected %s after uninstall: %v", modDir, err)
	}
}

func TestModOverridesRoundTrip(t *testing.T) {
	root := t.TempDir()
	svc, err := NewService(ServiceConfig{
		ModsRoot:       filepath.Join(root, "mods2"),
		AtmosphereRoot: filepath.Join(root, "atmosphere"),
		TitleCachePath: filepath.Join(root, "switch", "nxtc_version.bin"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rec := domain.TitleRecord{ID: 0x0100000000001000, ModSlotDirname: "Game1"}
	overrides := svc.ModOverrides(rec)
	if err := overrides.Set("ModA", jsonstore.ModOverride{DisplayName: "Pretty Mod", Description: "desc"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := overrides.Lookup("ModA")
	if !ok || got.DisplayName != "Pretty Mod" {
		t.Fatalf("Lookup = %+v, ok=%v", got, ok)
	}
}
