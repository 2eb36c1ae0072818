package transfer

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nxmodmgr/internal/domain"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return data
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// S1 — fresh folder install.
func TestInstallFolderModeFreshInstall(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "mods2", "Game1[1.0.0]", "0100000000001000", "ModA")
	atmosphere := filepath.Join(root, "atmosphere")

	payload := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	writeFile(t, filepath.Join(modDir, "contents", "0100000000001000", "romfs", "a.bin"), payload)

	engine := New(atmosphere)
	if err := engine.Install(context.Background(), modDir, nil); err != nil {
		t.Fatalf("Install: %v", err)
	}

	got := readFile(t, filepath.Join(atmosphere, "contents", "0100000000001000", "romfs", "a.bin"))
	if len(got) != len(payload) {
		t.Fatalf("copied file len = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], payload[i])
		}
	}
}

// S2 — zip install.
func TestInstallZipModeTwoEntries(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "mods2", "Game1", "0100000000001000", "ModB")
	atmosphere := filepath.Join(root, "atmosphere")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	zipPath := filepath.Join(modDir, "mod.zip")
	writeTestZip(t, zipPath, map[string][]byte{
		"contents/abc/1.bin":           {1, 2, 3, 4, 5},
		"exefs_patches/p/patch.bin":    {9, 8, 7},
	})

	engine := New(atmosphere)
	if err := engine.Install(context.Background(), modDir, nil); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if got := readFile(t, filepath.Join(atmosphere, "contents", "abc", "1.bin")); len(got) != 5 {
		t.Fatalf("contents/abc/1.bin len = %d, want 5", len(got))
	}
	if got := readFile(t, filepath.Join(atmosphere, "exefs_patches", "p", "patch.bin")); len(got) != 3 {
		t.Fatalf("exefs_patches/p/patch.bin len = %d, want 3", len(got))
	}
}

// S3 — uninstall after install, then a second (no-op) uninstall.
func TestUninstallFolderModePrunesEmptyDirs(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "mods2", "Game1", "0100000000001000", "ModA")
	atmosphere := filepath.Join(root, "atmosphere")

	writeFile(t, filepath.Join(modDir, "contents", "0100000000001000", "romfs", "a.bin"), []byte{1, 2, 3})

	engine := New(atmosphere)
	if err := engine.Install(context.Background(), modDir, nil); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := engine.Uninstall(context.Background(), modDir, nil); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if exists(filepath.Join(atmosphere, "contents", "0100000000001000", "romfs", "a.bin")) {
		t.Fatal("file still present after uninstall")
	}
	if exists(filepath.Join(atmosphere, "contents", "0100000000001000")) {
		t.Fatal("empty romfs/title dir not pruned")
	}
	if !exists(filepath.Join(atmosphere, "contents")) {
		t.Fatal("atmosphere/contents root should survive pruning")
	}

	// second uninstall: idempotent no-op, no error.
	if err := engine.Uninstall(context.Background(), modDir, nil); err != nil {
		t.Fatalf("second Uninstall: %v", err)
	}
}

// S4 — cancelled install leaves no partial writes or empty dirs behind.
func TestInstallCancelledRollsBack(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "mods2", "Game1", "0100000000001000", "ModA")
	atmosphere := filepath.Join(root, "atmosphere")

	const fileCount = 10
	block := make([]byte, 64*1024)
	for i := range block {
		block[i] = byte(i)
	}
	for i := 0; i < fileCount; i++ {
		writeFile(t, filepath.Join(modDir, "contents", "romfs", filePartName(i)), block)
	}

	ctx, cancel := context.WithCancel(context.Background())
	copied := 0
	engine := New(atmosphere)
	err := engine.Install(ctx, modDir, func(filesDone, totalFiles int, currentFilename string, isFileLevel bool, percent int) {
		if !isFileLevel {
			copied = filesDone
			if copied >= 1 {
				cancel()
			}
		}
	})
	if !domain.IsCancelled(err) {
		t.Fatalf("Install err = %v, want Cancelled", err)
	}
	if copied == 0 {
		t.Fatal("expected at least one file copied before cancellation")
	}

	if exists(filepath.Join(atmosphere, "contents")) {
		entries, _ := os.ReadDir(filepath.Join(atmosphere, "contents"))
		if len(entries) != 0 {
			t.Fatalf("rollback left entries under atmosphere/contents: %v", entries)
		}
	}
}

func filePartName(i int) string {
	return string(rune('a'+i)) + ".bin"
}

// S6 — structure rejection: zip entries outside contents/exefs_patches.
func TestInstallZipStructureInvalid(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "mods2", "Game1", "0100000000001000", "ModC")
	atmosphere := filepath.Join(root, "atmosphere")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	zipPath := filepath.Join(modDir, "mod.zip")
	writeTestZip(t, zipPath, map[string][]byte{
		"contents/x": {1},
		"extras/y":   {2},
	})

	engine := New(atmosphere)
	err := engine.Install(context.Background(), modDir, nil)
	var derr *domain.Error
	if err == nil {
		t.Fatal("expected StructureInvalid error")
	}
	if !errors.As(err, &derr) || derr.Kind != domain.ErrStructureInvalid {
		t.Fatalf("err = %v, want StructureInvalid", err)
	}
	if exists(filepath.Join(atmosphere, "contents")) {
		t.Fatal("atmosphere should be untouched after a structure-invalid zip")
	}
}

// Boundary: mod-dir with a zip plus an extra file -> StructureInvalid.
func TestDispatchZipWithExtraFileIsInvalid(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "ModD")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeTestZip(t, filepath.Join(modDir, "mod.zip"), map[string][]byte{"contents/a": {1}})
	writeFile(t, filepath.Join(modDir, "readme.txt"), []byte("hi"))

	engine := New(filepath.Join(root, "atmosphere"))
	if _, err := engine.Dispatch(modDir); err == nil {
		t.Fatal("expected StructureInvalid for zip + extra file")
	}
}

// Boundary: mod-dir with contents/ and an extra file -> StructureInvalid.
func TestDispatchFolderWithExtraFileIsInvalid(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "ModE")
	writeFile(t, filepath.Join(modDir, "contents", "a.bin"), []byte{1})
	writeFile(t, filepath.Join(modDir, "readme.txt"), []byte("hi"))

	engine := New(filepath.Join(root, "atmosphere"))
	if _, err := engine.Dispatch(modDir); err == nil {
		t.Fatal("expected StructureInvalid for folder + extra file")
	}
}

func writeTestZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, data := range entries {
		ew, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s): %v", name, err)
		}
		if _, err := ew.Write(data); err != nil {
			t.Fatalf("zip Write(%s): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
}
