package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tagsortd/internal/config"
	"tagsortd/internal/log"
	"tagsortd/internal/organize"
	"tagsortd/internal/tags"
	"tagsortd/internal/watch"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const defaultConfigName = "tagsortd.yml"

type rootOptions struct {
	configPath string
	dryRun     bool
	once       bool
	debug      bool
	json       bool
	logFile    string
	color      string
	initConfig bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tagsortd [config.yml] [directory...]",
		Short: "Move tagged files into place",
		Long: `tagsortd watches directories for files named like "#tag1#tag2=name.ext"
and moves each one to the directory of the first rule whose tags match.

Arguments ending in .yml or .yaml name the config file; every other
argument is a directory to monitor.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (overrides a .yml argument)")
	flags.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Log what would be moved without touching files")
	flags.BoolVar(&opts.once, "once", false, "Run a single check and exit")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	flags.BoolVar(&opts.json, "json", false, "Log JSON lines")
	flags.StringVar(&opts.logFile, "log-file", "", "Also append plain log lines to this file")
	flags.StringVar(&opts.color, "color", "", "Colored output: auto, always or never (default from use_ansi_colors)")
	flags.BoolVar(&opts.initConfig, "init-config", false, "Write a sample config file and exit")

	return cmd
}

// splitArgs separates config file arguments from directories. The last
// config argument wins.
func splitArgs(args []string) (configPath string, dirs []string) {
	for _, arg := range args {
		if config.IsConfigPath(arg) {
			configPath = arg
			continue
		}
		dirs = append(dirs, arg)
	}
	return configPath, dirs
}

// mergeDirectories appends extra to base, dropping repeats.
func mergeDirectories(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, dir := range append(append([]string{}, base...), extra...) {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return out
}

// useColor decides colored log lines from the --color flag, falling back to
// the config when the flag is unset.
func useColor(mode string, cfgColors bool, out *os.File) (bool, error) {
	switch mode {
	case "":
		return cfgColors, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (want auto, always or never)", mode)
	}
}

func run(ctx context.Context, opts *rootOptions, args []string) error {
	argConfig, argDirs := splitArgs(args)
	configPath := argConfig
	if opts.configPath != "" {
		configPath = opts.configPath
	}

	if opts.initConfig {
		if configPath == "" {
			configPath = defaultConfigName
		}
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.SaveConfig(config.Sample(), configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote sample config to %s\n", configPath)
		return nil
	}

	cfg := config.New()
	if configPath != "" {
		loaded, err := config.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	color, err := useColor(opts.color, cfg.UseANSIColors, os.Stdout)
	if err != nil {
		return err
	}
	logOpts := []log.Option{log.WithOutput(os.Stdout), log.WithColor(color), log.WithDebug(opts.debug)}
	if opts.json {
		logOpts = append(logOpts, log.WithJSON())
	}
	if opts.logFile != "" {
		logOpts = append(logOpts, log.WithFile(opts.logFile))
	}
	log.Configure(logOpts...)
	log.SetDebug(opts.debug)

	dirs := mergeDirectories(cfg.SourceDirectories(), argDirs)
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to monitor: pass them as arguments or set directories in the config")
	}
	if len(cfg.Rules) == 0 {
		log.Warn("No rules configured; nothing will be moved")
	}
	if configPath != "" {
		log.LogWithFields(log.F("config", configPath)).Debug("Loaded config")
	}

	if cfg.LockFile != "" {
		lock, err := watch.AcquireLock(cfg.LockFile)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	organizer, err := organize.CurrentOrganizerFactory(cfg)
	if err != nil {
		return err
	}
	if organizer.IsDryRun() {
		log.Info("Dry run: no files will be moved")
	}

	schedOpts := []watch.SchedulerOption{watch.Once(opts.once)}
	if cfg.WatchEvents && !opts.once {
		watcher, err := startWatcher(cfg, dirs)
		if err != nil {
			log.LogWithError(err).Warn("File events unavailable, checking on the interval only")
		} else {
			defer watcher.Stop()
			schedOpts = append(schedOpts, watch.WithTrigger(watcher.FileChannel()))
		}
	}

	scheduler, err := watch.NewScheduler(organizer, dirs, cfg.Interval(), schedOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scheduler.Run(ctx)
}

// startWatcher watches every existing source directory for tagged names.
// Directories that do not exist yet are still scanned on the interval.
func startWatcher(cfg *config.Config, dirs []string) (*watch.Watcher, error) {
	tagOpts := cfg.TagOptions()
	watcher, err := watch.NewWatcher(func(name string) bool {
		_, err := tags.Extract(name, tagOpts)
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := watcher.AddDirectory(dir); err != nil {
			log.LogWithFields(log.F("directory", dir), log.F("error", err)).Warn("Not watching directory for events")
		}
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}
