package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/dgnsrekt/sfxpool/internal/assets"
	"github.com/dgnsrekt/sfxpool/internal/cache"
	"github.com/dgnsrekt/sfxpool/internal/manifest"
	"github.com/dgnsrekt/sfxpool/internal/metrics"
	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
	"github.com/dgnsrekt/sfxpool/ui"
)

// app wires the engine to its resources for one run of a command.
type app struct {
	engine   *sfx.Engine
	source   interface{ Name() string }
	dir      *assets.DirSource
	zip      *assets.ZipSource
	manifest *manifest.Manifest
	showAll  bool
	cache    *cache.Manager
	metrics  *metrics.Metrics
	watcher  *assets.Watcher

	cancel context.CancelFunc
}

// newApp opens the resources named in s. onChange, when not nil, is called
// with every effect path the watcher unloads.
func newApp(ctx context.Context, s settings, onChange func(path string)) (*app, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{showAll: s.ShowAll, cancel: cancel}

	var src sfx.Source
	if s.AssetsZip != "" {
		z, err := assets.OpenZip(s.AssetsZip)
		if err != nil {
			cancel()
			return nil, err
		}
		a.zip, a.source, src = z, z, z
	} else {
		d, err := assets.NewDirSource(s.AssetsDir)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("resource directory: %w", err)
		}
		a.dir, a.source, src = d, d, d
	}

	if s.Manifest != "" {
		m, err := manifest.Load(s.Manifest)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		a.manifest = m
	}

	cm, err := cache.NewManager(cacheConfig(s))
	if err != nil {
		// decoding still works without a cache
		log.Warn("Clip cache disabled", "error", err)
	} else {
		a.cache = cm
	}

	popts := poolOptions(s)
	if a.cache != nil {
		popts.Cache = a.cache
	}
	newPool := func() (soundpool.Pool, error) {
		return soundpool.New(s.Backend, popts)
	}

	engineOpts := []sfx.Option{sfx.WithVolume(s.Volume)}
	if s.MetricsAddr != "" {
		a.metrics = metrics.New()
		if a.cache != nil {
			a.metrics.RegisterCache(a.cache.Stats)
		}
		engineOpts = append(engineOpts, sfx.WithObserver(a.metrics))
		go func() {
			if err := a.metrics.Serve(ctx, s.MetricsAddr); err != nil {
				log.Error("Metrics server failed", "addr", s.MetricsAddr, "error", err)
			}
		}()
	}

	a.engine, err = sfx.New(src, newPool, engineOpts...)
	if err != nil {
		_ = a.close()
		return nil, fmt.Errorf("unable to open sound pool: %w", err)
	}

	if a.manifest != nil {
		for _, p := range a.manifest.Preloads() {
			a.engine.PreloadEffect(p)
		}
	}

	if s.Watch && a.dir != nil {
		w, err := assets.NewWatcher(a.dir, func(p string) {
			a.engine.UnloadEffect(p)
			if onChange != nil {
				onChange(p)
			}
		})
		if err != nil {
			log.Error("error creating fsnotify watcher", "error", err)
		} else {
			a.watcher = w
			go w.Run(ctx)
		}
	}

	return a, nil
}

func cacheConfig(s settings) cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = int64(s.CacheMemoryMB) << 20
	cfg.DiskCapacity = int64(s.CacheDiskMB) << 20
	cfg.CompressionLevel = s.CompressionLevel
	cfg.DiskPath = ""
	if s.CacheDiskMB > 0 {
		cfg.DiskPath = s.CacheDir
		if cfg.DiskPath == "" {
			dir, err := gap.NewScope(gap.User, appName).CacheDir()
			if err != nil {
				log.Warn("No cache directory, disk cache disabled", "error", err)
				return cfg
			}
			cfg.DiskPath = filepath.Join(dir, "clips")
		}
	}
	return cfg
}

// effects lists the board rows: the manifest when there is one, otherwise
// every audio file in the resource directory or zip.
func (a *app) effects() ([]ui.Effect, error) {
	if a.manifest != nil {
		out := make([]ui.Effect, 0, len(a.manifest.Effects))
		for _, e := range a.manifest.Effects {
			out = append(out, ui.Effect{Name: e.Name, Path: e.Path, Key: e.Key, Loop: e.Loop, Size: a.sizeOf(e.Path)})
		}
		return out, nil
	}

	var found []assets.Asset
	if a.zip != nil {
		found = a.zip.List()
	} else {
		var err error
		found, err = assets.Discover(a.dir.Root(), a.showAll, nil)
		if err != nil {
			return nil, err
		}
	}

	out := make([]ui.Effect, 0, len(found))
	for _, f := range found {
		out = append(out, ui.Effect{Name: effectName(f.Path), Path: f.Path, Size: f.Size})
	}
	return out, nil
}

func (a *app) sizeOf(p string) int64 {
	if a.zip != nil {
		for _, f := range a.zip.List() {
			if f.Path == p {
				return f.Size
			}
		}
		return 0
	}
	full, err := a.dir.Resolve(p)
	if err != nil {
		return 0
	}
	if info, err := os.Stat(full); err == nil {
		return info.Size()
	}
	return 0
}

// resolve maps a manifest name or a path to an effect path and its
// default loop mode.
func (a *app) resolve(name string) (string, bool) {
	if a.manifest != nil {
		if e, ok := a.manifest.Lookup(name); ok {
			return e.Path, e.Loop
		}
	}
	return name, false
}

// effectName strips directories and extension from an asset path.
func effectName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (a *app) close() error {
	a.cancel()

	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.zip != nil {
		errs = append(errs, a.zip.Close())
	}
	return errors.Join(errs...)
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
