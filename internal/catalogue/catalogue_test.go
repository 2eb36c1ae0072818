package catalogue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nxmodmgr/internal/domain"
)

type fakeQuerier struct {
	lang    domain.SetLanguage
	byID    map[domain.TitleID]domain.NACP
	icons   map[domain.TitleID][]byte
	failIDs map[domain.TitleID]bool
}

func (f *fakeQuerier) SystemLanguage(ctx context.Context) (domain.SetLanguage, error) {
	return f.lang, nil
}

func (f *fakeQuerier) QueryControlData(ctx context.Context, id domain.TitleID) (domain.NACP, []byte, error) {
	if f.failIDs[id] {
		return domain.NACP{}, nil, os.ErrNotExist
	}
	return f.byID[id], f.icons[id], nil
}

type fakeIcons struct {
	submitted []domain.TitleID
}

func (f *fakeIcons) SubmitIcon(id domain.TitleID, iconJPEG []byte, priority int) {
	f.submitted = append(f.submitted, id)
}

func mkTitleTree(t *testing.T, root, slot, titleIDHex string, modDirs ...string) {
	t.Helper()
	base := filepath.Join(root, slot, titleIDHex)
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, m := range modDirs {
		if err := os.MkdirAll(filepath.Join(base, m), 0o755); err != nil {
			t.Fatalf("MkdirAll mod: %v", err)
		}
	}
}

func TestScanResolvesViaQuerierAndCounts(t *testing.T) {
	root := t.TempDir()
	mkTitleTree(t, root, "Game1[1.0.0]", "0100000000001000", "ModA", "ModB$")

	id, err := domain.ParseTitleID("0100000000001000")
	if err != nil {
		t.Fatalf("ParseTitleID: %v", err)
	}

	q := &fakeQuerier{
		lang: domain.LangENUS,
		byID: map[domain.TitleID]domain.NACP{
			id: {
				Entries:        func() (e [16]domain.NACPEntry) { e[0] = domain.NACPEntry{Name: "Game One", Author: "Studio"}; return }(),
				DisplayVersion: "1.0.0",
			},
		},
		icons: map[domain.TitleID][]byte{id: {0xFF, 0xD8, 0x00, 0xFF, 0xD9}},
	}
	icons := &fakeIcons{}

	res, err := Scan(context.Background(), Options{
		ModsRoot:       root,
		TitleCachePath: filepath.Join(root, "cache.bin"),
		Querier:        q,
		Icons:          icons,
	}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Scan returned %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.DisplayName != "Game One" || rec.Publisher != "Studio" {
		t.Fatalf("record = %+v, want Game One/Studio", rec)
	}
	if rec.ModCount != "2" {
		t.Fatalf("ModCount = %q, want %q", rec.ModCount, "2")
	}
	if rec.ModSlotVersion != "1.0.0" {
		t.Fatalf("ModSlotVersion = %q, want %q", rec.ModSlotVersion, "1.0.0")
	}
	if !res.CacheDirty {
		t.Fatal("expected CacheDirty after a live resolve")
	}
	if len(icons.submitted) != 1 || icons.submitted[0] != id {
		t.Fatalf("icon submissions = %v, want [%v]", icons.submitted, id)
	}
}

func TestScanRejectsOversizedIcon(t *testing.T) {
	root := t.TempDir()
	mkTitleTree(t, root, "Game3", "0100000000003000")

	id, _ := domain.ParseTitleID("0100000000003000")
	oversized := make([]byte, domain.NACPMaxIconSize+1)
	oversized[0], oversized[1] = 0xFF, 0xD8
	oversized[len(oversized)-2], oversized[len(oversized)-1] = 0xFF, 0xD9

	q := &fakeQuerier{
		lang: domain.LangENUS,
		byID: map[domain.TitleID]domain.NACP{
			id: {Entries: func() (e [16]domain.NACPEntry) { e[0] = domain.NACPEntry{Name: "Game Three", Author: "Studio"}; return }()},
		},
		icons: map[domain.TitleID][]byte{id: oversized},
	}

	res, err := Scan(context.Background(), Options{
		ModsRoot:       root,
		TitleCachePath: filepath.Join(root, "cache.bin"),
		Querier:        q,
	}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Scan returned %d records, want 1", len(res.Records))
	}
	if rec := res.Records[0]; rec.IconJPEG != nil {
		t.Fatalf("IconJPEG = %d bytes, want rejected (nil), not truncated", len(rec.IconJPEG))
	}
}

func TestScanFallsBackToPlaceholderOnQueryFailure(t *testing.T) {
	root := t.TempDir()
	mkTitleTree(t, root, "Game2", "0100000000002000")

	id, _ := domain.ParseTitleID("0100000000002000")
	q := &fakeQuerier{lang: domain.LangENUS, failIDs: map[domain.TitleID]bool{id: true}}

	res, err := Scan(context.Background(), Options{
		ModsRoot:       root,
		TitleCachePath: filepath.Join(root, "cache.bin"),
		Querier:        q,
	}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Scan returned %d records, want 1", len(res.Records))
	}
	if res.Records[0].DisplayName != UnknownPlaceholder {
		t.Fatalf("DisplayName = %q, want placeholder", res.Records[0].DisplayName)
	}
}

func TestScanEmptyModsRootReturnsNoRecords(t *testing.T) {
	root := t.TempDir()
	res, err := Scan(context.Background(), Options{
		ModsRoot:       filepath.Join(root, "mods2"),
		TitleCachePath: filepath.Join(root, "cache.bin"),
	}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("Scan returned %d records, want 0", len(res.Records))
	}
}

func TestScanInitialBatchReadyFlag(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		mkTitleTree(t, root, "Slot"+string(rune('A'+i)), "010000000000"+paddedHex(i))
	}

	var batchReadyAt = -1
	_, err := Scan(context.Background(), Options{
		ModsRoot:       root,
		TitleCachePath: filepath.Join(root, "cache.bin"),
	}, func(p Progress) {
		if p.InitialBatchReady {
			batchReadyAt = p.Index
		}
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if batchReadyAt != initialBatchSize-1 {
		t.Fatalf("initial batch ready at index %d, want %d", batchReadyAt, initialBatchSize-1)
	}
}

func paddedHex(n int) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{'0', '0', '0', hexDigits[n]})
}
