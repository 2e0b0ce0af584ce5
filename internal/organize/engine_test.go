package organize_test

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"tagsortd/internal/config"
	"tagsortd/internal/log"
	"tagsortd/internal/organize"
	"tagsortd/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srcDir = "/home/user/Downloads"

func testConfig(rules ...config.RuleConfig) *config.Config {
	cfg := config.New()
	cfg.Rules = rules
	return cfg
}

func rule(path string, tags ...string) config.RuleConfig {
	return config.RuleConfig{Path: path, Tags: config.TagList(tags)}
}

func newEngine(t *testing.T, cfg *config.Config, fs afero.Fs) (*organize.Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	engine, err := organize.NewWithConfig(cfg,
		organize.WithFs(fs),
		organize.WithLogger(log.NewLogger(log.WithOutput(&buf))),
	)
	require.NoError(t, err)
	return engine, &buf
}

func writeFiles(t *testing.T, fs afero.Fs, dir string, names ...string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(name), 0644))
	}
}

func assertExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, ok, "%s should exist", path)
}

func assertMissing(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, ok, "%s should not exist", path)
}

func TestNewWithConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := organize.NewWithConfig(nil)
		assert.Error(t, err)
	})

	t.Run("bad rule", func(t *testing.T) {
		_, err := organize.NewWithConfig(testConfig(rule("/x")))
		assert.Error(t, err)
	})

	t.Run("rules keep their order", func(t *testing.T) {
		engine, err := organize.NewWithConfig(testConfig(rule("/a", "x"), rule("/b/*", "y")))
		require.NoError(t, err)
		require.Len(t, engine.Rules(), 2)
		assert.Equal(t, "/a", engine.Rules()[0].Destination)
		assert.True(t, engine.Rules()[1].CatchAll)
		assert.False(t, engine.IsDryRun())
	})
}

func TestPlan(t *testing.T) {
	cfg := testConfig(
		rule("/data/photos/family", "family", "photo"),
		rule("/data/misc/*", "misc"),
	)
	cfg.Ignore = []string{"*.tmp"}
	engine, _ := newEngine(t, cfg, afero.NewMemMapFs())

	tests := []struct {
		name    string
		file    string
		wantErr bool
		dest    string
	}{
		{"exact match", "#family#photo=beach.jpg", false, "/data/photos/family/beach.jpg"},
		{"catch-all nests remaining tags", "#misc#foo#bar=notes.txt", false, "/data/misc/foo/bar/notes.txt"},
		{"no rule", "#unknown=file.txt", true, ""},
		{"untagged", "holiday.jpg", true, ""},
		{"ignored", "#misc=download.tmp", true, ""},
		{"dot tag escapes the rule directory", "#misc#..=evil.txt", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := engine.Plan(tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dest, plan.Destination)
			assert.Equal(t, filepath.Dir(tt.dest), plan.DestinationDir)
		})
	}

	_, err := engine.Plan("#unknown=file.txt")
	assert.ErrorIs(t, err, organize.ErrNoMatch)
	_, err = engine.Plan("#misc=download.tmp")
	assert.ErrorIs(t, err, organize.ErrIgnored)
	_, err = engine.Plan("#misc#..=evil.txt")
	assert.ErrorIs(t, err, organize.ErrUnsafeTag)
}

func TestRunCycle(t *testing.T) {
	t.Run("moves matching files and leaves the rest", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir,
			"#family#photo=beach.jpg",
			"#misc#foo#bar=notes.txt",
			"#unknown=file.txt",
			"holiday.jpg",
		)
		require.NoError(t, fs.MkdirAll(filepath.Join(srcDir, "#family=subdir"), 0755))

		engine, out := newEngine(t, testConfig(
			rule("/data/photos/family", "family", "photo"),
			rule("/data/misc/*", "misc"),
		), fs)

		report := engine.RunCycle([]string{srcDir})
		assert.Equal(t, 2, report.Count(types.StatusMoved))
		assert.Equal(t, 1, report.Count(types.StatusSkipped))
		assert.Len(t, report.Results, 3, "untagged files and directories are not reported")

		assertExists(t, fs, "/data/photos/family/beach.jpg")
		assertExists(t, fs, "/data/misc/foo/bar/notes.txt")
		assertExists(t, fs, filepath.Join(srcDir, "#unknown=file.txt"))
		assertExists(t, fs, filepath.Join(srcDir, "holiday.jpg"))
		assertExists(t, fs, filepath.Join(srcDir, "#family=subdir"))

		assert.Contains(t, out.String(), "Checking "+srcDir)
		assert.Contains(t, out.String(), "No match found for #unknown=file.txt")
	})

	t.Run("second cycle has nothing to do", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#misc=a.txt")
		engine, _ := newEngine(t, testConfig(rule("/data/misc/*", "misc")), fs)

		first := engine.RunCycle([]string{srcDir})
		assert.Equal(t, 1, first.Count(types.StatusMoved))

		second := engine.RunCycle([]string{srcDir})
		assert.Empty(t, second.Results)
		assertExists(t, fs, "/data/misc/a.txt")
	})

	t.Run("missing source directory is skipped", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/other", "#misc=a.txt")
		engine, out := newEngine(t, testConfig(rule("/data/misc/*", "misc")), fs)

		report := engine.RunCycle([]string{"/gone", "/other"})
		assert.Equal(t, []string{"/gone"}, report.MissingDirectories)
		assert.Equal(t, 1, report.Count(types.StatusMoved))
		assert.Contains(t, out.String(), "Skipping /gone this check")
	})

	t.Run("partial downloads are left alone", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#misc=movie.mkv.part")
		engine, _ := newEngine(t, testConfig(rule("/data/misc", "misc")), fs)

		report := engine.RunCycle([]string{srcDir})
		assert.Empty(t, report.Results)
		assertExists(t, fs, filepath.Join(srcDir, "#misc=movie.mkv.part"))
	})
}

func TestDestinationPolicy(t *testing.T) {
	t.Run("create_dirs disabled skips", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#work=report.pdf")
		cfg := testConfig(rule("/data/work", "work"))
		cfg.CreateDirs = false
		engine, out := newEngine(t, cfg, fs)

		res := engine.OrganizeFile(srcDir, "#work=report.pdf")
		assert.Equal(t, types.StatusSkipped, res.Status)
		assertExists(t, fs, filepath.Join(srcDir, "#work=report.pdf"))
		assertMissing(t, fs, "/data/work")
		assert.Contains(t, out.String(), "create_dirs == false")
	})

	t.Run("existing destination is kept", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#work=report.pdf")
		require.NoError(t, afero.WriteFile(fs, "/data/work/report.pdf", []byte("old"), 0644))
		engine, _ := newEngine(t, testConfig(rule("/data/work", "work")), fs)

		res := engine.OrganizeFile(srcDir, "#work=report.pdf")
		assert.Equal(t, types.StatusSkipped, res.Status)
		assert.Contains(t, res.Reason, "destination exists")

		data, err := afero.ReadFile(fs, "/data/work/report.pdf")
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
		assertExists(t, fs, filepath.Join(srcDir, "#work=report.pdf"))
	})

	t.Run("overwrite_files replaces destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#work=report.pdf")
		require.NoError(t, afero.WriteFile(fs, "/data/work/report.pdf", []byte("old"), 0644))
		cfg := testConfig(rule("/data/work", "work"))
		cfg.OverwriteFiles = true
		engine, _ := newEngine(t, cfg, fs)

		res := engine.OrganizeFile(srcDir, "#work=report.pdf")
		assert.Equal(t, types.StatusMoved, res.Status)

		data, err := afero.ReadFile(fs, "/data/work/report.pdf")
		require.NoError(t, err)
		assert.Equal(t, "#work=report.pdf", string(data))
		assertMissing(t, fs, filepath.Join(srcDir, "#work=report.pdf"))
	})

	t.Run("destination is a file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, srcDir, "#work=report.pdf")
		require.NoError(t, afero.WriteFile(fs, "/data/work", []byte("not a dir"), 0644))
		engine, _ := newEngine(t, testConfig(rule("/data/work", "work")), fs)

		res := engine.OrganizeFile(srcDir, "#work=report.pdf")
		assert.Equal(t, types.StatusFailed, res.Status)
		assert.Error(t, res.Error)
	})

	t.Run("file already at its destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, "/data/inbox", "#inbox")
		engine, out := newEngine(t, testConfig(rule("/data/inbox", "inbox")), fs)

		res := engine.OrganizeFile("/data/inbox", "#inbox")
		assert.Equal(t, types.StatusSkipped, res.Status)
		assert.Contains(t, res.Reason, "already at its destination")
		assertExists(t, fs, "/data/inbox/#inbox")
		assert.Contains(t, out.String(), "separator")
	})
}

func TestDryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, srcDir, "#misc#foo=a.txt")
	cfg := testConfig(rule("/data/misc/*", "misc"))
	cfg.DryRun = true
	engine, out := newEngine(t, cfg, fs)
	assert.True(t, engine.IsDryRun())

	report := engine.RunCycle([]string{srcDir})
	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusPlanned, report.Results[0].Status)
	assert.Equal(t, "/data/misc/foo/a.txt", report.Results[0].DestinationPath)

	assertExists(t, fs, filepath.Join(srcDir, "#misc#foo=a.txt"))
	assertMissing(t, fs, "/data/misc")
	assert.Contains(t, out.String(), "Would create directory /data/misc/foo")
	assert.Contains(t, out.String(), "Would move")
}

// renameFailFs fails renames of one source path.
type renameFailFs struct {
	afero.Fs
	failing string
}

func (f renameFailFs) Rename(oldname, newname string) error {
	if oldname == f.failing {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EACCES}
	}
	return f.Fs.Rename(oldname, newname)
}

func TestFailureIsolation(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, srcDir, "#misc=a.txt", "#misc=b.txt", "#misc=c.txt")
	fs := renameFailFs{Fs: mem, failing: filepath.Join(srcDir, "#misc=b.txt")}
	engine, _ := newEngine(t, testConfig(rule("/data/misc", "misc")), fs)

	report := engine.RunCycle([]string{srcDir})
	assert.Equal(t, 2, report.Count(types.StatusMoved))
	assert.Equal(t, 1, report.Count(types.StatusFailed))

	assertExists(t, mem, "/data/misc/a.txt")
	assertExists(t, mem, "/data/misc/c.txt")
	assertExists(t, mem, filepath.Join(srcDir, "#misc=b.txt"))

	// the failed file is retried on the next cycle
	fs.failing = ""
	engine, _ = newEngine(t, testConfig(rule("/data/misc", "misc")), fs)
	report = engine.RunCycle([]string{srcDir})
	assert.Equal(t, 1, report.Count(types.StatusMoved))
}
