package transfer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nxmodmgr/internal/domain"
)

// installFolder implements spec.md §4.3 "Install — folder mode".
func (e *Engine) installFolder(ctx context.Context, modDir string, progress ProgressFunc) (err error) {
	files, dirs, err := collectPayloadFiles(modDir, e.AtmosphereRoot, progress)
	if err != nil {
		return err
	}

	if cerr := checkCancel(ctx); cerr != nil {
		return cerr
	}

	if err := createDirs(dirs); err != nil {
		return err
	}

	var written []string
	defer func() {
		if err != nil {
			rollbackInstall(written, dirs, e.AtmosphereRoot)
		}
	}()

	total := len(files)
	for i, f := range files {
		if cerr := checkCancel(ctx); cerr != nil {
			err = cerr
			return err
		}

		name := filepath.Base(f.src)
		copyErr := copyFile(ctx, f.src, f.dst, f.size, func(percent int) {
			if progress != nil {
				progress(i, total, name, true, percent)
			}
		})
		if copyErr != nil {
			err = copyErr
			return err
		}
		written = append(written, f.dst)

		if progress != nil {
			progress(i+1, total, name, false, 100)
		}
	}

	return nil
}

// rollbackInstall deletes every file this install wrote and prunes
// every directory it created, in reverse depth order, as long as the
// directory is empty and strictly below the two atmosphere roots
// (spec.md §4.3 install step 4).
func rollbackInstall(written []string, createdDirs []string, atmosphereRoot string) {
	for _, f := range written {
		os.Remove(f)
	}

	reversed := append([]string(nil), createdDirs...)
	sort.Slice(reversed, func(i, j int) bool {
		di := strings.Count(reversed[i], string(filepath.Separator))
		dj := strings.Count(reversed[j], string(filepath.Separator))
		return di > dj
	})
	for _, d := range reversed {
		if !isUnderAtmosphereRoots(d, atmosphereRoot) {
			continue
		}
		os.Remove(d) // no-op (ENOTEMPTY/ENOENT) if non-empty or already gone
	}
}

// uninstallFolder implements spec.md §4.3 "Uninstall — folder mode".
func (e *Engine) uninstallFolder(ctx context.Context, modDir string, progress ProgressFunc) error {
	files, _, err := collectPayloadFiles(modDir, e.AtmosphereRoot, progress)
	if err != nil {
		return err
	}

	if progress != nil {
		progress(0, len(files), CalculatingFilesLabel, false, 0)
	}

	return e.deleteTargets(ctx, targetsOf(files), progress)
}

func targetsOf(files []filePair) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.dst
	}
	return out
}

// deleteTargets deletes each target in encounter order, pruning empty
// parent directories upward each time the containing directory changes
// (spec.md §4.3 uninstall step 2-3, shared by folder and zip mode).
func (e *Engine) deleteTargets(ctx context.Context, targets []string, progress ProgressFunc) error {
	total := len(targets)
	var prevDir string

	for i, target := range targets {
		if cerr := checkCancel(ctx); cerr != nil {
			return cerr
		}

		dir := filepath.Dir(target)
		if prevDir != "" && dir != prevDir {
			pruneUpward(prevDir, e.AtmosphereRoot)
		}
		prevDir = dir

		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return domain.NewError(domain.ErrIoDelete, target, err)
		}

		if progress != nil {
			progress(i+1, total, filepath.Base(target), false, 100)
		}
	}

	if prevDir != "" {
		pruneUpward(prevDir, e.AtmosphereRoot)
	}

	return nil
}

// pruneUpward walks upward from dir removing empty directories, until
// the directory is non-empty, equals one of the two atmosphere roots,
// or its path is no longer longer than atmosphereRoot (spec.md §4.3
// uninstall step 3).
func pruneUpward(dir, atmosphereRoot string) {
	contents := filepath.Join(atmosphereRoot, contentsDir)
	patches := filepath.Join(atmosphereRoot, exefsPatchesDir)

	for {
		if dir == contents || dir == patches || len(dir) <= len(atmosphereRoot) {
			return
		}
		if err := os.Remove(dir); err != nil {
			// ENOTEMPTY, EEXIST (non-empty on some platforms), or the
			// directory is already gone: stop the upward walk either way.
			return
		}
		dir = filepath.Dir(dir)
	}
}
