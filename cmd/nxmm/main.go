// Command nxmm is the mod manager's process entry point: it bootstraps
// the filesystem layout, runs an initial title scan, and then drives
// the same 60 Hz cadence the original NanoVG front end used to pace
// its resource scheduler (spec.md §1 expansion, §4.4). There is no
// argv-driven CLI surface — input is device buttons, out of scope here
// — so main only wires the core.Service and runs its frame loop.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nxmodmgr/internal/catalogue"
	"nxmodmgr/internal/core"
)

// frameInterval is the 60 Hz cadence the reference UI's render loop
// drives the resource scheduler at (spec.md §4.4 expansion).
const frameInterval = time.Second / 60

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := core.ServiceConfig{
		ModsRoot:       getenvOr("NXMM_MODS_ROOT", "/mods2"),
		AtmosphereRoot: getenvOr("NXMM_ATMOSPHERE_ROOT", "/atmosphere"),
		TitleCachePath: getenvOr("NXMM_TITLE_CACHE", "/switch/nxtc_version.bin"),
	}

	svc, err := core.NewService(cfg)
	if err != nil {
		logger.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("scanning titles", "mods_root", cfg.ModsRoot)
	onProgress := func(p catalogue.Progress) {
		if p.InitialBatchReady {
			logger.Info("initial batch ready", "count", p.Index+1)
		}
	}
	if err := svc.Scan(ctx, onProgress); err != nil && ctx.Err() == nil {
		logger.Error("initial scan failed", "err", err)
	}
	logger.Info("scan complete", "titles", len(svc.Titles()))

	runFrameLoop(ctx, svc, logger)
}

// runFrameLoop ticks the resource scheduler at frameInterval until ctx
// is cancelled (spec.md §4.4 expansion: the scheduler runs "per frame").
func runFrameLoop(ctx context.Context, svc *core.Service, logger *slog.Logger) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			svc.Tick()
		}
	}
}

func getenvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
