// Package titlecache implements the persisted binary title cache at
// /switch/nxtc_version.bin (spec.md §3, §4.1): a length-prefixed store
// of TitleRecord metadata and icon bytes, keyed by title id, guarded by
// per-entry and per-blob CRC32 checksums so that any corruption is
// detected and the whole file is discarded rather than trusted.
package titlecache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"nxmodmgr/internal/domain"
)

const (
	magic         uint32 = 0x4E585443 // "NXTC", stored big-endian on disk
	formatVersion byte   = 1
	headerSize           = 16
	entrySize            = 0x28
	blobAlign            = 16
)

// entryHeader mirrors the on-disk 0x28-byte entry layout (spec.md §3).
// All multi-byte fields are little-endian except the file magic.
type entryHeader struct {
	TitleID      uint64
	NameLen      uint16
	PublisherLen uint16
	VersionLen   uint16
	Reserved     uint16
	VersionInfo  uint32
	IconSize     uint32
	BlobOffset   uint32 // 16-aligned, relative to the start of the blob area
	BlobSize     uint32
	BlobCRC32    uint32
	EntryCRC32   uint32 // computed with this field zeroed
}

// File is an in-memory title cache ready to be written, or one freshly
// read and validated from disk.
type File struct {
	Language domain.SetLanguage
	Records  map[domain.TitleID]domain.TitleRecord
}

// New creates an empty cache for the given language.
func New(lang domain.SetLanguage) *File {
	return &File{Language: lang, Records: make(map[domain.TitleID]domain.TitleRecord)}
}

// Put inserts or replaces a record in the in-memory cache.
func (f *File) Put(r domain.TitleRecord) {
	f.Records[r.ID] = r
}

// Get returns a cached record and whether it was present.
func (f *File) Get(id domain.TitleID) (domain.TitleRecord, bool) {
	r, ok := f.Records[id]
	return r, ok
}

// pad16 returns n rounded up to the next multiple of blobAlign.
func pad16(n int) int {
	return (n + blobAlign - 1) / blobAlign * blobAlign
}

// Save serialises f to path atomically (write to a temp file, then
// rename). Per-entry and per-blob CRC32 (IEEE polynomial) are
// recomputed on every save (spec.md §4.1 step 4).
func (f *File) Save(path string) error {
	var blobs bytes.Buffer
	entries := make([]entryHeader, 0, len(f.Records))

	// Stable iteration order so repeated saves of the same content
	// produce byte-identical files (useful for tests and diffing).
	ids := make([]domain.TitleID, 0, len(f.Records))
	for id := range f.Records {
		ids = append(ids, id)
	}
	sortTitleIDs(ids)

	for _, id := range ids {
		r := f.Records[id]
		offset := blobs.Len()

		writeField := func(s string) {
			blobs.WriteString(s)
			pad := pad16(len(s)) - len(s)
			blobs.Write(make([]byte, pad))
		}
		writeField(r.DisplayName)
		writeField(r.Publisher)
		writeField(r.DisplayVersion)
		blobs.Write(r.IconJPEG)
		iconPad := pad16(len(r.IconJPEG)) - len(r.IconJPEG)
		blobs.Write(make([]byte, iconPad))

		blobSize := blobs.Len() - offset
		blobCRC := crc32.ChecksumIEEE(blobs.Bytes()[offset : offset+blobSize])

		e := entryHeader{
			TitleID:      uint64(r.ID),
			NameLen:      uint16(len(r.DisplayName)),
			PublisherLen: uint16(len(r.Publisher)),
			VersionLen:   uint16(len(r.DisplayVersion)),
			VersionInfo:  0,
			IconSize:     uint32(len(r.IconJPEG)),
			BlobOffset:   uint32(offset),
			BlobSize:     uint32(blobSize),
			BlobCRC32:    blobCRC,
		}
		e.EntryCRC32 = entryCRC(e)
		entries = append(entries, e)
	}

	var out bytes.Buffer
	writeHeader(&out, f.Language, uint32(len(entries)))
	for _, e := range entries {
		writeEntry(&out, e)
	}
	out.Write(blobs.Bytes())

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return domain.NewError(domain.ErrIoWrite, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return domain.NewError(domain.ErrIoRename, path, err)
	}
	return nil
}

// entryCRC computes the entry's CRC32 with the EntryCRC32 field zeroed.
func entryCRC(e entryHeader) uint32 {
	e.EntryCRC32 = 0
	var buf bytes.Buffer
	writeEntry(&buf, e)
	return crc32.ChecksumIEEE(buf.Bytes())
}

func writeHeader(w *bytes.Buffer, lang domain.SetLanguage, count uint32) {
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	hdr[4] = formatVersion
	hdr[5] = byte(lang)
	// hdr[6:8] reserved
	binary.LittleEndian.PutUint32(hdr[8:12], count)
	// hdr[12:16] reserved
	w.Write(hdr[:])
}

func writeEntry(w *bytes.Buffer, e entryHeader) {
	var b [entrySize]byte
	binary.LittleEndian.PutUint64(b[0:8], e.TitleID)
	binary.LittleEndian.PutUint16(b[8:10], e.NameLen)
	binary.LittleEndian.PutUint16(b[10:12], e.PublisherLen)
	binary.LittleEndian.PutUint16(b[12:14], e.VersionLen)
	binary.LittleEndian.PutUint16(b[14:16], e.Reserved)
	binary.LittleEndian.PutUint32(b[16:20], e.VersionInfo)
	binary.LittleEndian.PutUint32(b[20:24], e.IconSize)
	binary.LittleEndian.PutUint32(b[24:28], e.BlobOffset)
	binary.LittleEndian.PutUint32(b[28:32], e.BlobSize)
	binary.LittleEndian.PutUint32(b[32:36], e.BlobCRC32)
	binary.LittleEndian.PutUint32(b[36:40], e.EntryCRC32)
	w.Write(b[:])
}

func readEntry(b []byte) entryHeader {
	return entryHeader{
		TitleID:      binary.LittleEndian.Uint64(b[0:8]),
		NameLen:      binary.LittleEndian.Uint16(b[8:10]),
		PublisherLen: binary.LittleEndian.Uint16(b[10:12]),
		VersionLen:   binary.LittleEndian.Uint16(b[12:14]),
		Reserved:     binary.LittleEndian.Uint16(b[14:16]),
		VersionInfo:  binary.LittleEndian.Uint32(b[16:20]),
		IconSize:     binary.LittleEndian.Uint32(b[20:24]),
		BlobOffset:   binary.LittleEndian.Uint32(b[24:28]),
		BlobSize:     binary.LittleEndian.Uint32(b[28:32]),
		BlobCRC32:    binary.LittleEndian.Uint32(b[32:36]),
		EntryCRC32:   binary.LittleEndian.Uint32(b[36:40]),
	}
}

// Load reads and validates the cache at path for the given session
// language. Any magic/version/language mismatch or CRC32 failure
// deletes the file and returns a CacheCorrupt error (spec.md §4.1); the
// caller is expected to fall back to live NS queries in that case.
func Load(path string, sessionLang domain.SetLanguage) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.ErrIoOpen, path, err)
	}

	f, err := parse(data, sessionLang)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

func corrupt(path, detail string) error {
	return &domain.Error{Kind: domain.ErrCacheCorrupt, Path: path, Detail: detail}
}

func parse(data []byte, sessionLang domain.SetLanguage) (*File, error) {
	if len(data) < headerSize {
		return nil, corrupt("", "header truncated")
	}
	gotMagic := binary.BigEndian.Uint32(data[0:4])
	if gotMagic != magic {
		return nil, corrupt("", "bad magic")
	}
	version := data[4]
	if version != formatVersion {
		return nil, corrupt("", "unsupported version")
	}
	lang := domain.SetLanguage(data[5])
	if lang != sessionLang {
		return nil, corrupt("", "language mismatch")
	}
	count := binary.LittleEndian.Uint32(data[8:12])
	if count == 0 {
		return nil, corrupt("", "empty cache")
	}

	entriesEnd := headerSize + int(count)*entrySize
	if entriesEnd > len(data) {
		return nil, corrupt("", "entry table truncated")
	}

	blobArea := data[entriesEnd:]
	f := New(sessionLang)

	for i := 0; i < int(count); i++ {
		raw := data[headerSize+i*entrySize : headerSize+(i+1)*entrySize]
		e := readEntry(raw)

		if ok := verifyEntryCRC(raw, e); !ok {
			return nil, corrupt("", fmt.Sprintf("entry %d crc mismatch", i))
		}

		if uint64(e.BlobOffset)+uint64(e.BlobSize) > uint64(len(blobArea)) {
			return nil, corrupt("", fmt.Sprintf("entry %d blob range out of bounds", i))
		}
		blob := blobArea[e.BlobOffset : e.BlobOffset+e.BlobSize]
		if crc32.ChecksumIEEE(blob) != e.BlobCRC32 {
			return nil, corrupt("", fmt.Sprintf("entry %d blob crc mismatch", i))
		}

		rec, err := decodeBlob(e, blob)
		if err != nil {
			return nil, corrupt("", err.Error())
		}
		f.Records[rec.ID] = rec
	}

	return f, nil
}

func verifyEntryCRC(raw []byte, e entryHeader) bool {
	zeroed := make([]byte, entrySize)
	copy(zeroed, raw)
	binary.LittleEndian.PutUint32(zeroed[36:40], 0)
	return crc32.ChecksumIEEE(zeroed) == e.EntryCRC32
}

func decodeBlob(e entryHeader, blob []byte) (domain.TitleRecord, error) {
	pos := 0
	readField := func(n int) (string, error) {
		if pos+n > len(blob) {
			return "", fmt.Errorf("field out of bounds")
		}
		s := string(blob[pos : pos+n])
		pos += pad16(n)
		return s, nil
	}

	name, err := readField(int(e.NameLen))
	if err != nil {
		return domain.TitleRecord{}, err
	}
	publisher, err := readField(int(e.PublisherLen))
	if err != nil {
		return domain.TitleRecord{}, err
	}
	version, err := readField(int(e.VersionLen))
	if err != nil {
		return domain.TitleRecord{}, err
	}
	if pos+int(e.IconSize) > len(blob) {
		return domain.TitleRecord{}, fmt.Errorf("icon out of bounds")
	}
	icon := append([]byte(nil), blob[pos:pos+int(e.IconSize)]...)

	return domain.TitleRecord{
		ID:             domain.TitleID(e.TitleID),
		DisplayName:    name,
		Publisher:      publisher,
		DisplayVersion: version,
		IconJPEG:       icon,
	}, nil
}

func sortTitleIDs(ids []domain.TitleID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
