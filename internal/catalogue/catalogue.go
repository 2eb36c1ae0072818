// Package catalogue implements the Title Catalogue & Cache scan of
// spec.md §4.1: it enumerates /mods2/*, resolves each title's metadata
// from the binary title cache or a live platform NS query, and reports
// the result as it becomes available so the caller can transition its
// UI off a splash screen early.
package catalogue

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"nxmodmgr/internal/domain"
	"nxmodmgr/internal/platform"
	"nxmodmgr/internal/titlecache"
)

// UnknownPlaceholder is substituted for a title's display name and
// publisher when no NACP language slot yields a non-empty string
// (spec.md §4.1). The real localized text is supplied by the caller;
// this is the fallback used when none is configured.
const UnknownPlaceholder = "[UNKNOWN]"

// initialBatchSize is the record count after which Scan flips
// initial_batch_ready (spec.md §4.1).
const initialBatchSize = 4

// scanSleep is the per-iteration sleep the scanner takes after each
// record to avoid saturating shared filesystem locks (spec.md §4.1).
const scanSleep = time.Millisecond

// IconSubmitter receives a priority-0 icon decode task for every newly
// resolved record that has icon bytes (spec.md §4.1, §4.4). The
// scheduler package implements this; catalogue only depends on the
// interface so it stays decoupled from scheduling policy.
type IconSubmitter interface {
	SubmitIcon(id domain.TitleID, iconJPEG []byte, priority int)
}

// Options configures a Scan call.
type Options struct {
	ModsRoot           string // e.g. "/mods2"
	TitleCachePath     string // binary cache file path
	Querier            platform.TitleQuerier
	Icons              IconSubmitter // may be nil
	UnknownPlaceholder string        // defaults to UnknownPlaceholder if empty
}

// Result is the outcome of a full scan.
type Result struct {
	Records []domain.TitleRecord
	// CacheDirty is true if any record was newly resolved via the
	// platform query and should be persisted back to the title cache.
	CacheDirty bool
}

// Progress is delivered once per resolved record so a caller can render
// incrementally; InitialBatchReady is set on the call where the
// cumulative record count first reaches initialBatchSize.
type Progress struct {
	Record            domain.TitleRecord
	Index             int
	InitialBatchReady bool
}

// Scan enumerates opts.ModsRoot, resolving each title's metadata and
// reporting incremental Progress on onProgress (may be nil). It returns
// the full Result once every slot has been processed or ctx is done.
func Scan(ctx context.Context, opts Options, onProgress func(Progress)) (Result, error) {
	placeholder := opts.UnknownPlaceholder
	if placeholder == "" {
		placeholder = UnknownPlaceholder
	}

	lang := domain.LangENUS
	if opts.Querier != nil {
		if l, err := opts.Querier.SystemLanguage(ctx); err == nil {
			lang = l
		}
	}

	cache, _ := titlecache.Load(opts.TitleCachePath, lang)
	if cache == nil {
		cache = titlecache.New(lang)
	}

	slots, err := discoverSlots(opts.ModsRoot)
	if err != nil {
		return Result{}, err
	}

	var records []domain.TitleRecord
	dirty := false

	for i, slot := range slots {
		if err := ctx.Err(); err != nil {
			return Result{Records: records, CacheDirty: dirty}, err
		}

		rec, resolvedLive, err := resolveSlot(ctx, opts, cache, slot, placeholder)
		if err != nil {
			// Directory enumeration errors inside one slot skip the
			// offending entry rather than aborting the scan (spec.md §4.1).
			continue
		}
		if resolvedLive {
			dirty = true
			cache.Put(rec)
		}

		records = append(records, rec)

		if opts.Icons != nil && len(rec.IconJPEG) > 0 {
			opts.Icons.SubmitIcon(rec.ID, rec.IconJPEG, 0)
		}

		if onProgress != nil {
			onProgress(Progress{
				Record:            rec,
				Index:             i,
				InitialBatchReady: len(records) == initialBatchSize,
			})
		}

		time.Sleep(scanSleep)
	}

	if dirty {
		// Cache write failures are non-fatal: the file is deleted and the
		// session runs cacheless (spec.md §4.1).
		if err := cache.Save(opts.TitleCachePath); err != nil {
			os.Remove(opts.TitleCachePath)
		}
	}

	return Result{Records: records, CacheDirty: dirty}, nil
}

// slotInfo is one parsed /mods2/<slot> directory.
type slotInfo struct {
	dirname  string // raw directory name, e.g. "Game1[1.0.0]"
	name     string // "Game1"
	version  string // "1.0.0", or "" if no bracket suffix
	titleID  domain.TitleID
	hasID    bool
	modCount int
}

// discoverSlots enumerates /mods2/*, skipping "." and "..", parsing each
// slot's XXXX or XXXX[ver] name, and finding its one hex16 subdirectory.
func discoverSlots(modsRoot string) ([]slotInfo, error) {
	entries, err := os.ReadDir(modsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewError(domain.ErrIoOpen, modsRoot, err)
	}

	var slots []slotInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}

		info := slotInfo{dirname: name}
		info.name, info.version = parseSlotName(name)

		sub, err := os.ReadDir(filepath.Join(modsRoot, name))
		if err != nil {
			continue
		}
		for _, s := range sub {
			if !s.IsDir() {
				continue
			}
			if id, err := domain.ParseTitleID(s.Name()); err == nil {
				info.titleID = id
				info.hasID = true
				count, cerr := countModSubdirs(filepath.Join(modsRoot, name, s.Name()))
				if cerr == nil {
					info.modCount = count
				}
				break
			}
		}

		slots = append(slots, info)
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].dirname < slots[j].dirname })
	return slots, nil
}

// parseSlotName splits "XXXX[ver]" into ("XXXX", "ver"); a name with no
// bracketed suffix returns ("XXXX", "").
func parseSlotName(raw string) (name, version string) {
	open := strings.IndexByte(raw, '[')
	if open < 0 || !strings.HasSuffix(raw, "]") {
		return raw, ""
	}
	return raw[:open], raw[open+1 : len(raw)-1]
}

// countModSubdirs counts non-hidden subdirectories of a title's mod root.
func countModSubdirs(path string) (int, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
}

// resolveSlot fills in a TitleRecord for one slot, trying the title
// cache first and falling back to the live platform query.
func resolveSlot(ctx context.Context, opts Options, cache *titlecache.File, slot slotInfo, placeholder string) (domain.TitleRecord, bool, error) {
	rec := domain.TitleRecord{
		ModSlotDirname: slot.dirname,
		ModSlotVersion: slot.version,
		ModCount:       strconv.Itoa(slot.modCount),
		DisplayVersion: domain.NoneGameText,
	}

	if !slot.hasID {
		rec.DisplayName = slot.name
		return rec, false, nil
	}
	rec.ID = slot.titleID

	if cached, ok := cache.Get(slot.titleID); ok {
		cached.ModSlotDirname = slot.dirname
		cached.ModSlotVersion = slot.version
		cached.ModCount = rec.ModCount
		return cached, false, nil
	}

	if opts.Querier == nil {
		rec.DisplayName = placeholder
		rec.Publisher = placeholder
		return rec, false, nil
	}

	nacp, icon, err := opts.Querier.QueryControlData(ctx, slot.titleID)
	if err != nil {
		// NS failure marks display_version = NONE_GAME_TEXT without
		// aborting the scan (spec.md §4.1, §7 NsQueryFailed).
		rec.DisplayName = placeholder
		rec.Publisher = placeholder
		return rec, false, nil
	}

	lang := domain.LangENUS
	if l, lerr := opts.Querier.SystemLanguage(ctx); lerr == nil {
		lang = l
	}
	name, author := resolveNameAuthor(nacp, lang, placeholder)

	rec.DisplayName = name
	rec.Publisher = author
	rec.DisplayVersion = nacp.DisplayVersion

	// An icon over NACPMaxIconSize, or one that isn't a well-formed JPEG,
	// is hard-rejected rather than byte-truncated into a corrupt image
	// (spec.md §9 open question: "the reference treats it as a hard
	// rejection" — see DESIGN.md).
	if domain.JPEGValid(icon) {
		rec.IconJPEG = icon
	}

	return rec, true, nil
}

// resolveNameAuthor picks the NACP slot mapped from lang; if both name
// and author are empty there, it scans slots 0-15 for the first
// non-empty pair, falling back to placeholder if none exist (spec.md §4.1).
func resolveNameAuthor(nacp domain.NACP, lang domain.SetLanguage, placeholder string) (name, author string) {
	slot := domain.NACPSlot(lang)
	entry := nacp.Entries[slot]
	if entry.Name != "" || entry.Author != "" {
		return orPlaceholder(entry.Name, placeholder), orPlaceholder(entry.Author, placeholder)
	}

	for i := 0; i < domain.NACPLanguageSlots; i++ {
		e := nacp.Entries[i]
		if e.Name != "" || e.Author != "" {
			return orPlaceholder(e.Name, placeholder), orPlaceholder(e.Author, placeholder)
		}
	}

	return placeholder, placeholder
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
