package platform

import "io"

// EntryType distinguishes files from directories in FileSystemProxy
// responses (spec.md §6).
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDirectory
)

// ProxyFile is an open file handle exposed through a FileSystemProxy
// backend.
type ProxyFile interface {
	io.ReadWriteCloser
	GetSize() (int64, error)
	SetSize(size int64) error
}

// ProxyDirectory is an open directory handle exposed through a
// FileSystemProxy backend.
type ProxyDirectory interface {
	io.Closer
	Read() ([]DirectoryEntry, error)
	GetEntryCount() (int, error)
}

// DirectoryEntry is one child reported by ProxyDirectory.Read.
type DirectoryEntry struct {
	Name string
	Type EntryType
	Size int64
}

// FileSystemProxy is the trait the optional MTP/PTP bridge depends on
// to expose a directory tree (e.g. /mods2/) to a host PC (spec.md §6,
// §9). The core module implements no backend; this interface plus the
// BackendKind tag below model the "virtual inheritance across a
// FileSystemProxy hierarchy" re-architecture note (spec.md §9): a
// concrete backend is selected once at construction and dispatch from
// then on is a plain interface call, not a vtable walk.
type FileSystemProxy interface {
	GetTotalSpace() (uint64, error)
	GetFreeSpace() (uint64, error)
	GetEntryType(path string) (EntryType, error)
	IsReadOnly() bool

	CreateFile(path string) error
	DeleteFile(path string) error
	RenameFile(oldPath, newPath string) error
	OpenFile(path string, writable bool) (ProxyFile, error)

	CreateDirectory(path string) error
	DeleteDirectoryRecursively(path string) error
	RenameDirectory(oldPath, newPath string) error
	OpenDirectory(path string) (ProxyDirectory, error)
}

// BackendKind tags which concrete FileSystemProxy implementation a
// session is bound to (spec.md §9: "SD, Album, AddMod, ...").
type BackendKind int

const (
	BackendSD BackendKind = iota
	BackendAlbum
	BackendAddMod
)

// Backend pairs a BackendKind with the FileSystemProxy it was
// constructed for; a consumer of this package selects the backend once
// and dispatches through the interface from then on.
type Backend struct {
	Kind  BackendKind
	Proxy FileSystemProxy
}
