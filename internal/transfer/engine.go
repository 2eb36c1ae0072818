package transfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Install runs the install operation against modDir, dispatching to
// folder or zip mode (spec.md §4.3). On success the caller is
// responsible for flipping the mod-dir's trailing "$" marker — the
// engine only owns file movement, never the directory rename.
func (e *Engine) Install(ctx context.Context, modDir string, progress ProgressFunc) error {
	mode, err := e.Dispatch(modDir)
	if err != nil {
		return err
	}
	switch mode {
	case ModeFolder:
		return e.installFolder(ctx, modDir, progress)
	case ModeZip:
		zipPath, err := soleZipPath(modDir)
		if err != nil {
			return err
		}
		return e.installZip(ctx, zipPath, progress)
	default:
		return nil
	}
}

// Uninstall runs the uninstall operation against modDir, dispatching to
// folder or zip mode (spec.md §4.3). ENOENT on any target file is
// treated as already-uninstalled, not an error.
func (e *Engine) Uninstall(ctx context.Context, modDir string, progress ProgressFunc) error {
	mode, err := e.Dispatch(modDir)
	if err != nil {
		return err
	}
	switch mode {
	case ModeFolder:
		return e.uninstallFolder(ctx, modDir, progress)
	case ModeZip:
		zipPath, err := soleZipPath(modDir)
		if err != nil {
			return err
		}
		return e.uninstallZip(ctx, zipPath, progress)
	default:
		return nil
	}
}

// soleZipPath returns the single .zip/.ZIP file directly inside modDir.
func soleZipPath(modDir string) (string, error) {
	entries, err := os.ReadDir(modDir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".zip") {
			return filepath.Join(modDir, entry.Name()), nil
		}
	}
	return "", os.ErrNotExist
}
