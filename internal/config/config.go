package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tagsortd/internal/errors"
	"tagsortd/internal/rules"
	"tagsortd/internal/tags"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Rules          []RuleConfig `yaml:"rules"`           // Ordered tag rules
	CreateDirs     bool         `yaml:"create_dirs"`     // Create missing destination directories
	OverwriteFiles bool         `yaml:"overwrite_files"` // Replace files already at the destination
	CheckInterval  int          `yaml:"check_interval"`  // Seconds between checks
	NameSeparator  string       `yaml:"filename_prefix"` // Separates the tag block from the file name
	TagPrefix      string       `yaml:"tag_prefix"`      // Marks each tag
	SkipPartFiles  bool         `yaml:"skip_part_files"` // Leave incomplete downloads alone
	UseANSIColors  bool         `yaml:"use_ansi_colors"` // Colored log lines
	Directories    []string     `yaml:"directories"`     // Source directories, merged with CLI arguments
	DryRun         bool         `yaml:"dry_run"`         // Log decisions without touching files
	Ignore         []string     `yaml:"ignore"`          // Glob patterns of entry names to leave alone
	WatchEvents    bool         `yaml:"watch_events"`    // Wake early on filesystem events
	LockFile       string       `yaml:"lock_file"`       // Single-instance lock path
}

// RuleConfig is one configured rule. A trailing "*" on Path makes it a
// catch-all rule.
type RuleConfig struct {
	Path string  `yaml:"path"`
	Tags TagList `yaml:"tags"`
}

// fileConfig mirrors Config with pointers so unset keys keep their defaults
// and an explicit false still overrides a true default.
type fileConfig struct {
	Rules          []RuleConfig `yaml:"rules"`
	CreateDirs     *bool        `yaml:"create_dirs"`
	OverwriteFiles *bool        `yaml:"overwrite_files"`
	CheckInterval  *int         `yaml:"check_interval"`
	NameSeparator  *string      `yaml:"filename_prefix"`
	TagPrefix      *string      `yaml:"tag_prefix"`
	SkipPartFiles  *bool        `yaml:"skip_part_files"`
	UseANSIColors  *bool        `yaml:"use_ansi_colors"`
	Directories    []string     `yaml:"directories"`
	DryRun         *bool        `yaml:"dry_run"`
	Ignore         []string     `yaml:"ignore"`
	WatchEvents    *bool        `yaml:"watch_events"`
	LockFile       *string      `yaml:"lock_file"`
}

// LoadConfigFile loads configuration from path over the defaults. A missing
// or invalid file is an error: the caller asked for this file explicitly.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError("config file not found", path, errors.ConfigNotFound, err)
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.InvalidConfig, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and validates it.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, errors.NewConfigError("error parsing config file", "", errors.InvalidConfig, err)
	}

	cfg.merge(raw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(raw fileConfig) {
	if raw.Rules != nil {
		c.Rules = raw.Rules
	}
	if raw.CreateDirs != nil {
		c.CreateDirs = *raw.CreateDirs
	}
	if raw.OverwriteFiles != nil {
		c.OverwriteFiles = *raw.OverwriteFiles
	}
	if raw.CheckInterval != nil {
		c.CheckInterval = *raw.CheckInterval
	}
	if raw.NameSeparator != nil {
		c.NameSeparator = *raw.NameSeparator
	}
	if raw.TagPrefix != nil {
		c.TagPrefix = *raw.TagPrefix
	}
	if raw.SkipPartFiles != nil {
		c.SkipPartFiles = *raw.SkipPartFiles
	}
	if raw.UseANSIColors != nil {
		c.UseANSIColors = *raw.UseANSIColors
	}
	if raw.Directories != nil {
		c.Directories = raw.Directories
	}
	if raw.DryRun != nil {
		c.DryRun = *raw.DryRun
	}
	if raw.Ignore != nil {
		c.Ignore = raw.Ignore
	}
	if raw.WatchEvents != nil {
		c.WatchEvents = *raw.WatchEvents
	}
	if raw.LockFile != nil {
		c.LockFile = *raw.LockFile
	}
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() *Config {
	return &Config{
		Rules:          []RuleConfig{},
		CreateDirs:     true,
		OverwriteFiles: false,
		CheckInterval:  60,
		NameSeparator:  "=",
		TagPrefix:      "#",
		SkipPartFiles:  true,
		UseANSIColors:  false,
		Directories:    []string{},
		Ignore:         []string{},
	}
}

// New returns the default configuration.
func New() *Config {
	return defaultConfig()
}

// Validate checks the configuration. Every failure is a ConfigError.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	if c.CheckInterval < 1 {
		return errors.NewConfigError("check interval must be >= 1 second", "check_interval", errors.InvalidConfig, nil)
	}
	if c.TagPrefix == "" {
		return errors.NewConfigError("tag prefix must not be empty", "tag_prefix", errors.InvalidConfig, nil)
	}
	if c.NameSeparator == "" {
		return errors.NewConfigError("name separator must not be empty", "filename_prefix", errors.InvalidConfig, nil)
	}
	if strings.Contains(c.TagPrefix, c.NameSeparator) || strings.Contains(c.NameSeparator, c.TagPrefix) {
		return errors.NewConfigError("tag prefix and name separator must differ", "filename_prefix", errors.InvalidConfig, nil)
	}
	if strings.ContainsAny(c.TagPrefix+c.NameSeparator, `/\`) {
		return errors.NewConfigError("tag prefix and name separator must not contain path separators", "tag_prefix", errors.InvalidConfig, nil)
	}

	if _, err := c.CompiledRules(); err != nil {
		return errors.NewConfigError("invalid rule", "rules", errors.InvalidConfig, err)
	}
	if _, err := c.IgnorePatterns(); err != nil {
		return errors.NewConfigError("invalid ignore pattern", "ignore", errors.InvalidConfig, err)
	}

	for i, dir := range c.Directories {
		if strings.TrimSpace(dir) == "" {
			return errors.NewConfigError(fmt.Sprintf("directory %d is empty", i), "directories", errors.InvalidConfig, nil)
		}
	}

	return nil
}

// CompiledRules converts the configured rules, in order.
func (c *Config) CompiledRules() ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		r, err := rules.New(i, expandHome(rc.Path), rc.Tags)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// IgnorePatterns compiles the ignore globs.
func (c *Config) IgnorePatterns() ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(c.Ignore))
	for _, pattern := range c.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// TagOptions returns the filename parsing options.
func (c *Config) TagOptions() tags.Options {
	return tags.Options{
		TagPrefix:     c.TagPrefix,
		Separator:     c.NameSeparator,
		SkipPartFiles: c.SkipPartFiles,
	}
}

// Interval returns the pause between checks.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// SaveConfig writes the configuration to path, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sample returns the defaults with two example rules, for writing a starter
// config file.
func Sample() *Config {
	cfg := defaultConfig()
	cfg.Rules = []RuleConfig{
		{Path: "~/Pictures/family", Tags: TagList{"family", "photo"}},
		{Path: "~/Archive/*", Tags: TagList{"misc"}},
	}
	cfg.Ignore = []string{"*.crdownload"}
	return cfg
}

// SourceDirectories returns the configured directories with "~" expanded.
func (c *Config) SourceDirectories() []string {
	out := make([]string, 0, len(c.Directories))
	for _, dir := range c.Directories {
		out = append(out, expandHome(dir))
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// IsConfigPath reports whether a command-line argument names a config file
// rather than a directory to monitor.
func IsConfigPath(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	return ext == ".yml" || ext == ".yaml"
}
