package transfer

import (
	"archive/zip"
	"bufio"
	"context"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nxmodmgr/internal/domain"
)

// firstLevelName returns the first path component of a zip entry name.
func firstLevelName(entryName string) string {
	entryName = strings.TrimPrefix(entryName, "/")
	if i := strings.IndexByte(entryName, '/'); i >= 0 {
		return entryName[:i]
	}
	return entryName
}

// validateZipEntries enforces spec.md §4.3 step 2: reject an archive
// with more than two distinct first-level names, or any first-level
// name other than contents/exefs_patches.
func validateZipEntries(files []*zip.File, path string) error {
	seen := map[string]struct{}{}
	for _, f := range files {
		top := firstLevelName(f.Name)
		if top == "" {
			continue
		}
		if top != contentsDir && top != exefsPatchesDir {
			return domain.NewStructureInvalid(path, "zip entry outside contents/exefs_patches: "+f.Name)
		}
		seen[top] = struct{}{}
	}
	if len(seen) > 2 {
		return domain.NewStructureInvalid(path, "zip has more than two first-level directories")
	}
	return nil
}

// installZip implements spec.md §4.3 "Install — zip mode".
func (e *Engine) installZip(ctx context.Context, zipPath string, progress ProgressFunc) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return domain.NewError(domain.ErrZipOpen, zipPath, err)
	}
	defer r.Close()

	if err := validateZipEntries(r.File, zipPath); err != nil {
		return err
	}

	dirSet := map[string]struct{}{}
	var entries []*zip.File
	for _, f := range r.File {
		target := filepath.Join(e.AtmosphereRoot, f.Name)
		if f.FileInfo().IsDir() {
			dirSet[target] = struct{}{}
			continue
		}
		dirSet[filepath.Dir(target)] = struct{}{}
		entries = append(entries, f)

		if progress != nil && len(entries)%countingProgressEvery == 0 {
			progress(len(entries), 0, filepath.Base(f.Name), false, 0)
		}
	}

	var dirs []string
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sortDirsShortestFirst(dirs)
	if err := createDirs(dirs); err != nil {
		return err
	}

	total := len(entries)
	for i, f := range entries {
		if cerr := checkCancel(ctx); cerr != nil {
			return cerr
		}

		target := filepath.Join(e.AtmosphereRoot, f.Name)
		skip, err := zipEntryIsNonConflict(target, f.CRC32)
		if err != nil {
			return err
		}
		if !skip {
			name := filepath.Base(f.Name)
			onIntraFile := func(percent int) {
				if progress != nil {
					progress(i, total, name, true, percent)
				}
			}
			if err := extractZipEntry(ctx, f, target, onIntraFile); err != nil {
				return err
			}
		}

		if progress != nil {
			progress(i+1, total, filepath.Base(f.Name), false, 100)
		}
	}

	return nil
}

// zipEntryIsNonConflict reports whether target already exists on disk
// with a CRC32 matching the archive's stored value for the entry
// (spec.md §4.3 install step 4: treat as non-conflict and skip).
func zipEntryIsNonConflict(target string, wantCRC uint32) (bool, error) {
	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, domain.NewError(domain.ErrIoOpen, target, err)
	}
	defer f.Close()

	h := crc32.New(crcTable)
	if _, err := io.Copy(h, f); err != nil {
		return false, domain.NewError(domain.ErrIoRead, target, err)
	}
	return h.Sum32() == wantCRC, nil
}

// extractZipEntry streams one archive entry to target using the shared
// 8 MiB buffer, a 1 MiB stdio buffer on both the decompressing reader
// and the target file, and intra-file progress every 5% for entries
// above intraFileThresholdBytes — the same Fixed numeric policy
// copyFile applies to folder-mode copies (spec.md §4.3/§186).
func extractZipEntry(ctx context.Context, f *zip.File, target string, onIntraFile func(percent int)) (err error) {
	if cerr := checkCancel(ctx); cerr != nil {
		return cerr
	}

	rc, err := f.Open()
	if err != nil {
		return domain.NewError(domain.ErrZipEntryRead, f.Name, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return domain.NewError(domain.ErrIoCreate, filepath.Dir(target), err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return domain.NewError(domain.ErrIoCreate, target, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = domain.NewError(domain.ErrIoWrite, target, cerr)
		}
	}()

	reader := bufio.NewReaderSize(rc, stdioBufferSize)
	writer := bufio.NewWriterSize(out, stdioBufferSize)

	size := int64(f.UncompressedSize64)
	reportIntraFile := size > intraFileThresholdBytes
	buf := make([]byte, bulkBufferSize)
	var written int64
	lastPercent := -1

	for {
		if cerr := checkCancel(ctx); cerr != nil {
			return cerr
		}

		n, rerr := reader.Read(buf)
		if n > 0 {
			wn, werr := writer.Write(buf[:n])
			if werr == nil && wn != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return domain.NewError(domain.ErrIoWrite, target, werr)
			}
			written += int64(wn)

			if reportIntraFile && onIntraFile != nil && size > 0 {
				percent := int(written * 100 / size)
				percent -= percent % intraFileProgressStep
				if percent != lastPercent {
					lastPercent = percent
					onIntraFile(percent)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return domain.NewError(domain.ErrZipEntryRead, f.Name, rerr)
		}
	}

	if err := writer.Flush(); err != nil {
		return domain.NewError(domain.ErrIoWrite, target, err)
	}

	return nil
}

// uninstallZip implements spec.md §4.3 "Uninstall — zip mode".
func (e *Engine) uninstallZip(ctx context.Context, zipPath string, progress ProgressFunc) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return domain.NewError(domain.ErrZipOpen, zipPath, err)
	}
	defer r.Close()

	var targets []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		targets = append(targets, filepath.Join(e.AtmosphereRoot, f.Name))
	}

	sort.Slice(targets, func(i, j int) bool {
		di := strings.Count(targets[i], string(filepath.Separator))
		dj := strings.Count(targets[j], string(filepath.Separator))
		if di != dj {
			return di > dj // deepest first
		}
		return targets[i] > targets[j] // lexicographic descending for ties
	})

	if progress != nil {
		progress(0, len(targets), CalculatingFilesLabel, false, 0)
	}

	return e.deleteTargets(ctx, targets, progress)
}
