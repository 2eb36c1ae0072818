// Package core wires the mod manager's components into one orchestrator:
// title scanning, mod cataloguing, transfer, scheduling, and JSON
// overrides, behind a single Service a front end drives per frame.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nxmodmgr/internal/catalogue"
	"nxmodmgr/internal/domain"
	"nxmodmgr/internal/jsonstore"
	"nxmodmgr/internal/modcatalog"
	"nxmodmgr/internal/platform"
	"nxmodmgr/internal/scheduler"
	"nxmodmgr/internal/transfer"
)

// addModSlotName is the always-present placeholder slot spec.md §6
// requires alongside /mods2/ itself.
const addModSlotName = "0000-add-mod-0000"

// ServiceConfig holds the filesystem roots and platform collaborator a
// Service is constructed against.
type ServiceConfig struct {
	ModsRoot       string // e.g. "/mods2"
	AtmosphereRoot string // e.g. "/atmosphere"
	TitleCachePath string // e.g. "/switch/nxtc_version.bin"
	Querier        platform.TitleQuerier
	IconDecoder    scheduler.IconDecoder // may be nil
}

// Service is the main orchestrator for mod management operations.
type Service struct {
	cfg       ServiceConfig
	scheduler *scheduler.Scheduler
	transfer  *transfer.Engine

	mu     sync.RWMutex
	titles []domain.TitleRecord
}

// NewService bootstraps /mods2/ and /mods2/0000-add-mod-0000/ (spec.md
// §6) and returns a ready-to-scan Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := os.MkdirAll(filepath.Join(cfg.ModsRoot, addModSlotName), 0o755); err != nil {
		return nil, fmt.Errorf("bootstrapping mods root: %w", err)
	}

	return &Service{
		cfg:       cfg,
		scheduler: scheduler.New(cfg.IconDecoder),
		transfer:  transfer.New(cfg.AtmosphereRoot),
	}, nil
}

// Scan refreshes the title catalogue, reporting incremental progress on
// onProgress (spec.md §4.1). The resolved titles become the Service's
// current snapshot, retrievable via Titles; the bootstrapped add-mod
// slot is not a title and is left out of the snapshot.
func (s *Service) Scan(ctx context.Context, onProgress func(catalogue.Progress)) error {
	result, err := catalogue.Scan(ctx, catalogue.Options{
		ModsRoot:       s.cfg.ModsRoot,
		TitleCachePath: s.cfg.TitleCachePath,
		Querier:        s.cfg.Querier,
		Icons:          s.scheduler,
	}, onProgress)
	if err != nil {
		return err
	}

	titles := make([]domain.TitleRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		if rec.ModSlotDirname == addModSlotName {
			continue
		}
		titles = append(titles, rec)
	}

	s.mu.Lock()
	s.titles = titles
	s.mu.Unlock()
	return nil
}

// Titles returns the most recent scan's title snapshot.
func (s *Service) Titles() []domain.TitleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TitleRecord, len(s.titles))
	copy(out, s.titles)
	return out
}

// TitleModRoot returns a title's mod root directory given its slot
// dirname (spec.md §6: /mods2/<slot>/<hex16 title id>/).
func (s *Service) TitleModRoot(rec domain.TitleRecord) string {
	return filepath.Join(s.cfg.ModsRoot, rec.ModSlotDirname, rec.ID.Hex16())
}

// ModsForTitle produces the ordered mod list for a title (spec.md §4.2).
func (s *Service) ModsForTitle(rec domain.TitleRecord) ([]domain.ModRecord, error) {
	return modcatalog.Scan(s.TitleModRoot(rec))
}

// InstallMod runs the transfer engine's install operation against
// modDir and, on success, flips its trailing "$" marker — the engine
// itself never renames the directory (spec.md §4.3 install step 5).
func (s *Service) InstallMod(ctx context.Context, modDir string, progress transfer.ProgressFunc) error {
	if err := s.transfer.Install(ctx, modDir, progress); err != nil {
		return err
	}
	return markInstalled(modDir, true)
}

// UninstallMod runs the transfer engine's uninstall operation against
// modDir. The installed-flag is only flipped once deletion succeeds to
// completion (spec.md §4.3 cancellation semantics).
func (s *Service) UninstallMod(ctx context.Context, modDir string, progress transfer.ProgressFunc) error {
	if err := s.transfer.Uninstall(ctx, modDir, progress); err != nil {
		return err
	}
	return markInstalled(modDir, false)
}

// markInstalled renames modDir to add or remove its trailing "$".
func markInstalled(modDir string, installed bool) error {
	dir, base := filepath.Dir(modDir), filepath.Base(modDir)
	name, tag, wasInstalled := domain.ParseModDirName(base)
	if wasInstalled == installed {
		return nil
	}
	rec := domain.ModRecord{ModName: name, TypeTag: tag, Installed: installed}
	newPath := filepath.Join(dir, rec.DirName())
	if newPath == modDir {
		return nil
	}
	if err := os.Rename(modDir, newPath); err != nil {
		return domain.NewError(domain.ErrIoRename, modDir, err)
	}
	return nil
}

// ModOverrides returns the display-name/description override store for
// a title's mod root (spec.md §4.5).
func (s *Service) ModOverrides(rec domain.TitleRecord) *jsonstore.ModOverrides {
	return jsonstore.NewModOverrides(filepath.Join(s.TitleModRoot(rec), "mod_name.json"))
}

// GameNameOverrides returns the global slot-dirname -> display_name
// override store at /mods2/game_name.json (spec.md §4.5).
func (s *Service) GameNameOverrides() *jsonstore.Store {
	return jsonstore.New(filepath.Join(s.cfg.ModsRoot, "game_name.json"))
}

// Tick runs one frame's worth of scheduled resource-load work (spec.md
// §4.4); call it once per render frame.
func (s *Service) Tick() {
	s.scheduler.Tick()
}

// LoadVisibleArea forwards to the scheduler's viewport/debounce policy
// (spec.md §4.4), so a front end need only depend on Service.
func (s *Service) LoadVisibleArea(gridIndex int, submit func(itemIndex, priority int)) {
	s.scheduler.LoadVisibleArea(gridIndex, time.Now(), submit)
}

// ForceReload resets the viewport debounce state (spec.md §4.4's
// SIZE_MAX sentinel), used on sort/index resets.
func (s *Service) ForceReload() {
	s.scheduler.ForceReload()
}
