// Package platform declares the external collaborator interfaces
// spec.md §6 names: the platform NS title-registry query and the
// FileSystemProxy trait the MTP bridge depends on. Neither is
// implemented here — real console syscalls are out of scope — but the
// catalogue package is written against TitleQuerier so a test double or
// a future cgo-backed implementation can satisfy it without touching
// core logic. The transfer package uses the os filesystem directly.
package platform

import (
	"context"

	"nxmodmgr/internal/domain"
)

// TitleQuerier resolves live NACP metadata and the current system
// language from the platform title registry (spec.md §4.1, §6).
type TitleQuerier interface {
	// QueryControlData returns the NACP and icon JPEG bytes for id.
	// An error marks the title's DisplayVersion as domain.NoneGameText
	// (spec.md §7 NsQueryFailed) without aborting the scan.
	QueryControlData(ctx context.Context, id domain.TitleID) (domain.NACP, []byte, error)

	// SystemLanguage returns the console's current SetLanguage.
	SystemLanguage(ctx context.Context) (domain.SetLanguage, error)
}
