package main

import (
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/celsowm/adorn-api/internal/config"
)

// debounceWindow coalesces editor save bursts into a single rebuild.
const debounceWindow = 250 * time.Millisecond

func watchCmd(args []string) {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := flags.String("dir", "", "project directory (default: current directory)")
	verbose := flags.Bool("v", false, "verbose output")
	_ = flags.Parse(args)

	cfg, err := config.Load(*dir)
	if err != nil {
		fatal(err)
	}
	logger := pickLogger(*verbose)

	if err := runBuild(cfg, false, logger); err != nil {
		logger.Error("initial build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal(err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(cfg)
	if err != nil {
		fatal(err)
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			logger.Warn("cannot watch directory", "dir", d, "error", err)
		}
	}
	logger.Info("watching for changes", "dirs", len(dirs))

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(cfg, event) {
				continue
			}
			// New subdirectories get picked up as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			logger.Info("change detected, rebuilding")
			if err := runBuild(cfg, true, logger); err != nil {
				logger.Error("rebuild failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watch error", "error", err)
		}
	}
}

// relevantEvent reports whether an fsnotify event should trigger a
// rebuild: Go source files, the config file, or new directories.
func relevantEvent(cfg *config.Config, event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if base == config.ConfigFilename || base == "go.mod" || base == "go.sum" {
		return true
	}
	if strings.HasSuffix(base, ".go") && !strings.HasSuffix(base, "_test.go") {
		return true
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return true
	}
	return false
}

// watchDirs walks the project tree and collects every directory that
// may contain scanned sources. The output directory, vendor trees, and
// hidden directories are skipped.
func watchDirs(cfg *config.Config) ([]string, error) {
	out := cfg.OutputDir()
	var dirs []string
	err := filepath.WalkDir(cfg.ConfigDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != cfg.ConfigDir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		if path == out {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
