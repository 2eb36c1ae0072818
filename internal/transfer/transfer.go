// Package transfer implements the Mod Transfer Engine of spec.md §4.3:
// safe, cancellable install/uninstall of a mod's payload onto
// /atmosphere/, in either folder mode (contents/, exefs_patches/
// directories) or zip mode (a single archive).
//
// Folder-mode copying generalizes the teacher's buffered-copy idiom
// (internal/linker.CopyLinker.Deploy) to the spec's 8 MiB block size and
// 5% intra-file progress reporting; zip-mode extraction follows the
// teacher's internal/core.Extractor.extractZip streaming-reader idiom,
// using archive/zip exactly as the teacher does.
package transfer

import (
	"context"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nxmodmgr/internal/domain"
)

// Fixed numeric policy (spec.md §4.3).
const (
	bulkBufferSize          = 8 * 1024 * 1024 // 8 MiB, shared copy buffer
	stdioBufferSize         = 1 * 1024 * 1024 // 1 MiB, source/target stdio buffer
	countingProgressEvery   = 50              // counting-phase progress granularity
	intraFileThresholdBytes = 8 * 1024 * 1024 // only files above this get intra-file progress
	intraFileProgressStep   = 5               // percent delta between intra-file reports
)

// crcTable is the IEEE-polynomial (0xEDB88320) CRC32 table spec.md §4.3
// and §7 require; crc32.IEEE is that exact polynomial.
var crcTable = crc32.MakeTable(crc32.IEEE)

// contentsDir and exefsPatchesDir are the two payload roots a mod-dir
// may carry (spec.md §4.3), and their /atmosphere/ counterparts.
const (
	contentsDir     = "contents"
	exefsPatchesDir = "exefs_patches"
)

// Mode is the mod-dir structure the engine dispatched to.
type Mode int

const (
	ModeFolder Mode = iota
	ModeZip
)

// CalculatingFilesLabel is the current-filename string reported during
// the uninstall counting phase (spec.md §4.3); a caller-supplied
// localization layer may substitute its own text before display.
const CalculatingFilesLabel = "Calculating files"

// ProgressFunc receives one coalesced progress update (spec.md §4.3):
// filesDone/totalFiles track the whole operation, currentFilename is
// the file in flight, isFileLevel distinguishes an intra-file update
// from a whole-file-done update, and fileProgressPercent is only
// meaningful when isFileLevel is true.
type ProgressFunc func(filesDone, totalFiles int, currentFilename string, isFileLevel bool, fileProgressPercent int)

// Engine performs transfer operations against one atmosphere root.
type Engine struct {
	AtmosphereRoot string
}

// New returns an Engine rooted at atmosphereRoot (e.g. "/atmosphere").
func New(atmosphereRoot string) *Engine {
	return &Engine{AtmosphereRoot: atmosphereRoot}
}

// Dispatch inspects modDir's contents and determines Mode, or returns a
// StructureInvalid error (spec.md §4.3).
func (e *Engine) Dispatch(modDir string) (Mode, error) {
	entries, err := os.ReadDir(modDir)
	if err != nil {
		return 0, domain.NewError(domain.ErrIoOpen, modDir, err)
	}

	var zips []os.DirEntry
	hasContents, hasExefsPatches, hasOtherDir, hasFile := false, false, false, false

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			switch name {
			case contentsDir:
				hasContents = true
			case exefsPatchesDir:
				hasExefsPatches = true
			default:
				hasOtherDir = true
			}
			continue
		}
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".zip") {
			zips = append(zips, entry)
			continue
		}
		hasFile = true
	}

	if (hasContents || hasExefsPatches) && !hasOtherDir && !hasFile && len(zips) == 0 {
		return ModeFolder, nil
	}
	if len(zips) == 1 && !hasContents && !hasExefsPatches && !hasOtherDir && !hasFile {
		return ModeZip, nil
	}

	return 0, domain.NewStructureInvalid(modDir, "mod directory is neither folder-type nor zip-type")
}

// checkCancel converts a cancelled context into a domain.ErrCancelled
// error; it returns nil while ctx is still live.
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &domain.Error{Kind: domain.ErrCancelled, Cause: err}
	}
	return nil
}

// filePair is a resolved (source, target) copy/delete path.
type filePair struct {
	src  string
	dst  string
	size int64
}

// collectPayloadFiles walks contents/ and exefs_patches/ under modDir
// (whichever exist), returning the files found with their /atmosphere/
// targets and every intermediate directory those targets imply,
// relative to atmosphereRoot (spec.md §4.3 install step 1, uninstall
// step 1). The total file count isn't known until the walk completes,
// so the counting-phase progress callback reports files_done with
// total_files = 0, every countingProgressEvery files (spec.md §4.3/§186).
func collectPayloadFiles(modDir, atmosphereRoot string, progress ProgressFunc) (files []filePair, dirs []string, err error) {
	dirSet := map[string]struct{}{}
	counted := 0

	for _, root := range []string{contentsDir, exefsPatchesDir} {
		srcRoot := filepath.Join(modDir, root)
		info, statErr := os.Stat(srcRoot)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue
			}
			return nil, nil, domain.NewError(domain.ErrIoOpen, srcRoot, statErr)
		}
		if !info.IsDir() {
			continue
		}

		walkErr := filepath.Walk(srcRoot, func(path string, fi os.FileInfo, werr error) error {
			if werr != nil {
				return werr
			}
			rel, relErr := filepath.Rel(modDir, path)
			if relErr != nil {
				return relErr
			}
			target := filepath.Join(atmosphereRoot, rel)
			if fi.IsDir() {
				dirSet[target] = struct{}{}
				return nil
			}
			dirSet[filepath.Dir(target)] = struct{}{}
			files = append(files, filePair{src: path, dst: target, size: fi.Size()})

			counted++
			if progress != nil && counted%countingProgressEvery == 0 {
				progress(counted, 0, filepath.Base(path), false, 0)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, domain.NewError(domain.ErrIoOpen, srcRoot, walkErr)
		}
	}

	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sortDirsShortestFirst(dirs)

	return files, dirs, nil
}

// sortDirsShortestFirst sorts dirs by path component count ascending,
// then lexicographically, so creating them in order never fails on a
// missing parent (spec.md §4.3 install step 2: "sorted, deduped,
// shortest first").
func sortDirsShortestFirst(dirs []string) {
	sort.Slice(dirs, func(i, j int) bool {
		di := strings.Count(dirs[i], string(filepath.Separator))
		dj := strings.Count(dirs[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
}

// createDirs creates each of dirs, treating EEXIST as success.
func createDirs(dirs []string) error {
	for _, d := range dirs {
		if err := os.Mkdir(d, 0o755); err != nil && !os.IsExist(err) {
			if parentErr := os.MkdirAll(filepath.Dir(d), 0o755); parentErr == nil {
				if err2 := os.Mkdir(d, 0o755); err2 == nil || os.IsExist(err2) {
					continue
				}
			}
			return domain.NewError(domain.ErrIoCreate, d, err)
		}
	}
	return nil
}

// isUnderAtmosphereRoots reports whether dir is strictly below
// atmosphereRoot/contents or atmosphereRoot/exefs_patches (spec.md
// §4.3 rollback/prune boundary).
func isUnderAtmosphereRoots(dir, atmosphereRoot string) bool {
	contents := filepath.Join(atmosphereRoot, contentsDir)
	patches := filepath.Join(atmosphereRoot, exefsPatchesDir)
	return (strings.HasPrefix(dir, contents+string(filepath.Separator)) && dir != contents) ||
		(strings.HasPrefix(dir, patches+string(filepath.Separator)) && dir != patches)
}
