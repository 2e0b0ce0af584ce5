package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tagsortd/internal/config"
	"tagsortd/internal/errors"
	"tagsortd/internal/log"
	"tagsortd/internal/rules"
	"tagsortd/internal/tags"
	"tagsortd/pkg/types"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// Reasons a tagged file is not moved by Plan.
var (
	ErrNoMatch   = errors.New("no rule matches the file tags")
	ErrIgnored   = errors.New("name matches an ignore pattern")
	ErrUnsafeTag = errors.New("catch-all tag would leave the rule directory")
)

// Plan is the decision for one tagged file.
type Plan struct {
	Candidate tags.Candidate
	Match     rules.MatchResult
	// DestinationDir is the resolved directory, Destination the full path.
	DestinationDir string
	Destination    string
}

// Engine runs scan cycles over source directories. It is not safe for
// concurrent use; cycles run one at a time.
type Engine struct {
	fs      afero.Fs
	config  *config.Config
	rules   []rules.Rule
	ignore  []glob.Glob
	tagOpts tags.Options
	logger  *log.Logger
	dryRun  bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithFs sets the filesystem the engine works on (the OS by default).
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithLogger sets the logger; its line formatter decides plain or colored
// output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewWithConfig creates an engine for cfg. cfg must not change afterwards.
func NewWithConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("no config set", "", errors.InvalidConfig, nil)
	}

	compiled, err := cfg.CompiledRules()
	if err != nil {
		return nil, err
	}
	ignore, err := cfg.IgnorePatterns()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		fs:      afero.NewOsFs(),
		config:  cfg,
		rules:   compiled,
		ignore:  ignore,
		tagOpts: cfg.TagOptions(),
		logger:  log.Default(),
		dryRun:  cfg.DryRun,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// IsDryRun returns whether the engine only logs its decisions
func (e *Engine) IsDryRun() bool {
	return e.dryRun
}

// Rules returns the compiled rules in evaluation order.
func (e *Engine) Rules() []rules.Rule {
	return e.rules
}

// Plan decides where the entry called name should go without touching the
// filesystem. Rejections from tags.Extract are returned unchanged.
func (e *Engine) Plan(name string) (Plan, error) {
	c, err := tags.Extract(name, e.tagOpts)
	if err != nil {
		return Plan{Candidate: c}, err
	}
	if e.ignored(name) {
		return Plan{Candidate: c}, ErrIgnored
	}

	p := Plan{Candidate: c}
	p.Match = rules.Match(c.Tags, e.rules)
	if !p.Match.Matched() {
		return p, ErrNoMatch
	}

	rule := *p.Match.Rule
	if rule.CatchAll {
		for _, t := range c.Tags.Difference(rule.Tags) {
			if t == "." || t == ".." {
				return p, ErrUnsafeTag
			}
		}
	}

	p.DestinationDir = rules.Resolve(rule, c.Tags)
	p.Destination = rules.Destination(rule, c)
	return p, nil
}

func (e *Engine) ignored(name string) bool {
	for _, g := range e.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// RunCycle makes one pass over dirs. Missing directories are logged and
// skipped; they are tried again on the next cycle.
func (e *Engine) RunCycle(dirs []string) types.CycleReport {
	report := types.CycleReport{
		Started:     time.Now(),
		Directories: dirs,
	}

	for _, dir := range dirs {
		results, err := e.OrganizeDirectory(dir)
		if err != nil {
			if errors.IsDirectoryNotFound(err) {
				report.MissingDirectories = append(report.MissingDirectories, dir)
			}
			e.logger.WithError(err).Warnf("Skipping %s this check", dir)
			continue
		}
		report.Results = append(report.Results, results...)
	}

	report.Finished = time.Now()
	return report
}

// OrganizeDirectory handles every immediate entry of directory in name
// order. Entries that are not candidates are left out of the results.
func (e *Engine) OrganizeDirectory(directory string) ([]types.OrganizeResult, error) {
	e.logger.Infof("Checking %s", directory)

	exists, err := afero.DirExists(e.fs, directory)
	if err != nil {
		return nil, errors.NewFileError("error accessing directory", directory, errors.FileAccessDenied, err)
	}
	if !exists {
		return nil, errors.NewFileError("source directory not found", directory, errors.DirectoryNotFound, nil)
	}

	entries, err := afero.ReadDir(e.fs, directory)
	if err != nil {
		return nil, errors.NewFileError("error reading directory", directory, errors.FileAccessDenied, err)
	}

	var results []types.OrganizeResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		res := e.OrganizeFile(directory, entry.Name())
		if res.Status == types.StatusIgnored {
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// OrganizeFile plans and, unless dry-running, executes the move of one
// entry. Failures are reported on the result and never abort the cycle.
func (e *Engine) OrganizeFile(dir, name string) types.OrganizeResult {
	src := filepath.Join(dir, name)
	res := types.OrganizeResult{SourcePath: src, RuleIndex: -1}
	logger := e.logger.With(log.F("file", name))

	plan, err := e.Plan(name)
	if plan.Match.Matched() {
		res.RuleIndex = plan.Match.Rule.Index
		res.MatchKind = plan.Match.Kind()
	}
	if err != nil {
		res.Reason = err.Error()
		switch {
		case errors.Is(err, tags.ErrNotTagged), errors.Is(err, tags.ErrPartialFile), errors.Is(err, ErrIgnored):
			res.Status = types.StatusIgnored
			logger.Debugf("Ignoring %s: %v", name, err)
		case errors.Is(err, ErrNoMatch):
			res.Status = types.StatusSkipped
			logger.With(log.F("tags", plan.Candidate.Tags)).Infof("No match found for %s", name)
		default:
			res.Status = types.StatusSkipped
			logger.Warnf("Skipping %s: %v", name, err)
		}
		return res
	}

	res.DestinationPath = plan.Destination
	if plan.Candidate.NoSeparator {
		logger.Warnf("%s has no %q separator; keeping the whole name", name, e.tagOpts.Separator)
	}
	logger.With(log.F("rule", res.RuleIndex), log.F("score", plan.Match.Score)).
		Infof("Found %s match: %s", plan.Match.Kind(), plan.DestinationDir)

	return e.execute(src, plan, res, logger)
}

func (e *Engine) execute(src string, plan Plan, res types.OrganizeResult, logger *log.Logger) types.OrganizeResult {
	dir := plan.DestinationDir

	info, err := e.fs.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return e.fail(res, logger, errors.NewFileError("destination is not a directory", dir, errors.InvalidPath, nil))
	case err != nil && !os.IsNotExist(err):
		return e.fail(res, logger, errors.NewFileError("error accessing destination", dir, errors.FileAccessDenied, err))
	case err != nil && !e.config.CreateDirs:
		res.Status = types.StatusSkipped
		res.Reason = "destination directory does not exist and create_dirs is disabled"
		logger.Infof("%s doesn't exist, create_dirs == false. Skipping...", dir)
		return res
	case err != nil:
		if e.dryRun {
			logger.Infof("Would create directory %s", dir)
		} else {
			logger.Infof("%s doesn't exist, creating directory...", dir)
			if err := e.fs.MkdirAll(dir, 0755); err != nil {
				return e.fail(res, logger, errors.NewFileError("failed to create destination directory", dir, errors.FileOperationFailed, err))
			}
		}
	}

	if filepath.Clean(src) == filepath.Clean(plan.Destination) {
		res.Status = types.StatusSkipped
		res.Reason = "file is already at its destination"
		logger.Debugf("%s is already at its destination", src)
		return res
	}

	exists, err := afero.Exists(e.fs, plan.Destination)
	if err != nil {
		return e.fail(res, logger, errors.NewFileError("error checking destination", plan.Destination, errors.FileAccessDenied, err))
	}
	if exists && !e.config.OverwriteFiles {
		res.Status = types.StatusSkipped
		res.Reason = errors.NewFileError("destination exists", plan.Destination, errors.DestinationExists, nil).Error()
		logger.Infof("%s exists, overwrite_files == false. Skipping...", plan.Destination)
		return res
	}

	if e.dryRun {
		res.Status = types.StatusPlanned
		logger.Infof("Would move %s to %s", src, plan.Destination)
		return res
	}

	if err := e.MoveFile(src, plan.Destination); err != nil {
		return e.fail(res, logger, err)
	}
	res.Status = types.StatusMoved
	return res
}

func (e *Engine) fail(res types.OrganizeResult, logger *log.Logger, err error) types.OrganizeResult {
	res.Status = types.StatusFailed
	res.Error = err
	res.Reason = err.Error()
	logger.WithError(err).Error(fmt.Sprintf("Giving up on %s for this check", filepath.Base(res.SourcePath)))
	return res
}
