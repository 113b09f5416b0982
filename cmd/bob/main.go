package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/xmit-co/bob/internal/config"
	boberrors "github.com/xmit-co/bob/internal/errors"
	"github.com/xmit-co/bob/internal/lock"
	"github.com/xmit-co/bob/internal/logging"
	"github.com/xmit-co/bob/internal/manifest"
	"github.com/xmit-co/bob/internal/paths"
	"github.com/xmit-co/bob/internal/registry"
	"github.com/xmit-co/bob/internal/runtime"
	"github.com/xmit-co/bob/internal/store"
	"github.com/xmit-co/bob/internal/supervisor"
	"github.com/xmit-co/bob/internal/ui"
	"github.com/xmit-co/bob/internal/watch"
)

const version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bob v%s\n", version)
		return
	}

	if err := run(*configPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	pm, err := paths.NewManager()
	if err != nil {
		return err
	}
	if err := pm.EnsureDirectories(); err != nil {
		return err
	}

	if configPath == "" {
		configPath = pm.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return boberrors.ConfigInvalid(configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return boberrors.ConfigInvalid(configPath, err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logPath := cfg.Log.File
	if logPath == "" {
		logPath = pm.LogPath()
	}
	logger, logCloser, err := logging.Setup(cfg.Log.Level, logPath)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	instance, err := lock.Acquire(pm.LockPath())
	if err != nil {
		if err == lock.ErrAlreadyLocked {
			return boberrors.AlreadyRunning(pm.LockPath())
		}
		return err
	}
	defer instance.Release()

	st := store.New(pm.ProjectsPath())
	projects, err := st.Load()
	if err != nil {
		return boberrors.StoreUnreadable(pm.ProjectsPath(), err)
	}

	reg := registry.New()
	reg.Seed(projects)
	reg.RefreshVisibility(manifest.Exists)

	cacheDir := cfg.Runtime.CacheDir
	if cacheDir == "" {
		cacheDir = pm.RuntimeDir()
	}
	rt := runtime.NewManager(cacheDir, cfg.Runtime.DownloadURL, logger)

	sup := supervisor.New(reg, rt, logger)
	defer sup.Close()

	// The watcher forwards debounced manifest changes into the update loop.
	var program *tea.Program
	watcher, err := watch.New(cfg.Watch.Debounce, cfg.Watch.RescanInterval, logger, reg.Paths, func(dir string) {
		if program != nil {
			program.Send(ui.FileChangedMsg{Dir: dir})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	model := ui.New(reg, sup, st, watcher, logger)
	program = tea.NewProgram(model, tea.WithAltScreen())
	watcher.Start()

	logger.Info("bob starting", "version", version, "projects", len(projects))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}
