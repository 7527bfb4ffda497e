// Package watch triggers import runs when removable media arrives.
//
// A udev netlink monitor watches for block devices carrying a filesystem
// (camera cards, USB readers). When one appears, the watcher waits for the
// kernel to mount it, lets the mount settle, and imports the configured
// source subdirectory through the supplied import function. The watcher
// only decides when a run starts; the run itself is a normal import.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"shutterbox/internal/config"
	"shutterbox/internal/logging"
)

// ImportFunc runs one import of the given source directory.
type ImportFunc func(ctx context.Context, sourceDir string) error

// Watcher listens for media arrival events and dispatches imports.
type Watcher struct {
	cfg      *config.Config
	logger   *slog.Logger
	importFn ImportFunc

	// mountsPath is /proc/mounts outside of tests.
	mountsPath   string
	pollInterval time.Duration
}

// New builds a Watcher that feeds discovered media into importFn.
func New(cfg *config.Config, logger *slog.Logger, importFn ImportFunc) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "watch"),
		importFn:     importFn,
		mountsPath:   "/proc/mounts",
		pollInterval: time.Second,
	}
}

// Run blocks listening for udev events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connect netlink socket: %w", err)
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, matcher())
	defer close(monitorQuit)

	w.logger.Info("watching for removable media",
		logging.String("source_subdir", w.cfg.Watch.SourceSubdir),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return ctx.Err()
		case uevent := <-queue:
			w.handleEvent(ctx, uevent)
		case err := <-errs:
			w.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// matcher selects block-device add events that carry a mountable
// filesystem, which is what a camera card or USB reader announces.
func matcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":   "block",
			"ID_FS_USAGE": "filesystem",
		},
	})
	return rules
}

func (w *Watcher) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		w.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	w.logger.Info("removable media detected",
		logging.String("device", device),
		logging.String("action", string(uevent.Action)),
	)

	mountPoint, err := w.awaitMount(ctx, device)
	if err != nil {
		w.logger.Warn("media never mounted",
			logging.String("device", device),
			logging.Error(err),
		)
		return
	}

	if !w.sleep(ctx, time.Duration(w.cfg.Watch.SettleDelay)*time.Second) {
		return
	}

	source := filepath.Join(mountPoint, w.cfg.Watch.SourceSubdir)
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		w.logger.Info("media has no source directory, skipping",
			logging.String("device", device),
			logging.String("source_dir", source),
		)
		return
	}

	w.logger.Info("importing media",
		logging.String("device", device),
		logging.String("source_dir", source),
	)
	if err := w.importFn(ctx, source); err != nil {
		w.logger.Warn("import failed",
			logging.String("source_dir", source),
			logging.Error(err),
		)
		return
	}
	w.logger.Info("import completed", logging.String("source_dir", source))
}

// awaitMount polls the mount table until the device shows up or the
// configured timeout elapses.
func (w *Watcher) awaitMount(ctx context.Context, device string) (string, error) {
	timeout := time.Duration(w.cfg.Watch.MountTimeout) * time.Second
	deadline := time.Now().Add(timeout)

	for {
		mountPoint, err := mountPointForDevice(w.mountsPath, device)
		if err == nil {
			return mountPoint, nil
		}
		if !errors.Is(err, errNotMounted) {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("device %s not mounted after %s", device, timeout)
		}
		if !w.sleep(ctx, w.pollInterval) {
			return "", ctx.Err()
		}
	}
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// deviceName extracts the device node from a uevent, falling back to the
// last DEVPATH element when DEVNAME is missing.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
