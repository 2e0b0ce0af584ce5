package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())

	err = Newf("formatted %s", "error")
	assert.Equal(t, "formatted error", err.Error())

	var appErr *ApplicationError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, Unknown, appErr.Kind())
}

func TestWrapping(t *testing.T) {
	origErr := New("original error")
	wrappedErr := Wrap(origErr, "wrapped")
	assert.Equal(t, "wrapped: original error", wrappedErr.Error())
	assert.Equal(t, origErr, Unwrap(wrappedErr))

	wrappedFormatted := Wrapf(origErr, "formatted %s", "wrapper")
	assert.Equal(t, "formatted wrapper: original error", wrappedFormatted.Error())

	// Wrapping nil stays nil
	assert.Nil(t, Wrap(nil, "wrapper"))
	assert.Nil(t, Wrapf(nil, "formatted %s", "wrapper"))

	deepWrapped := Wrap(wrappedErr, "deeper")
	assert.Equal(t, "deeper: wrapped: original error", deepWrapped.Error())
	assert.True(t, Is(deepWrapped, origErr))
}

func TestFileError(t *testing.T) {
	fileErr := NewFileError("destination exists", "/dst/photo.jpg", DestinationExists, nil)
	assert.Equal(t, "destination exists: /dst/photo.jpg", fileErr.Error())
	assert.Equal(t, "/dst/photo.jpg", fileErr.Path())
	assert.Equal(t, DestinationExists, fileErr.Kind())

	origErr := fmt.Errorf("permission denied")
	fileErr = NewFileError("move failed", "/src/a", FileOperationFailed, origErr)
	assert.Equal(t, "move failed: /src/a: permission denied", fileErr.Error())
	assert.Equal(t, origErr, Unwrap(fileErr))

	missing := NewFileError("source directory not found", "/nope", DirectoryNotFound, nil)
	assert.True(t, IsDirectoryNotFound(missing))
	assert.False(t, IsDirectoryNotFound(fileErr))
	assert.False(t, IsFileNotFound(missing))

	var fe *FileError
	assert.True(t, As(fileErr, &fe))
	assert.Equal(t, "/src/a", fe.Path())
}

func TestConfigError(t *testing.T) {
	configErr := NewConfigError("invalid value", "check_interval", InvalidConfig, nil)
	assert.Equal(t, "invalid value: check_interval", configErr.Error())
	assert.Equal(t, "check_interval", configErr.Param())
	assert.True(t, IsInvalidConfig(configErr))
	assert.False(t, IsConfigNotFound(configErr))

	notFound := NewConfigError("config file not found", "/etc/tagsortd.yml", ConfigNotFound, nil)
	assert.True(t, IsConfigNotFound(notFound))
	assert.False(t, IsInvalidConfig(New("some other error")))
}

func TestRuleError(t *testing.T) {
	ruleErr := NewRuleError("no tags", 2, "/data/misc/*", nil)
	assert.Equal(t, "rule 2 (/data/misc/*): no tags", ruleErr.Error())
	assert.Equal(t, 2, ruleErr.Index())
	assert.Equal(t, "/data/misc/*", ruleErr.Path())
	assert.Equal(t, InvalidRule, ruleErr.Kind())
	assert.True(t, IsInvalidRule(ruleErr))

	ruleErr = NewRuleError("empty path", 0, "", nil)
	assert.Equal(t, "rule 0: empty path", ruleErr.Error())
	assert.False(t, IsInvalidRule(New("some other error")))
}

func TestErrorChains(t *testing.T) {
	baseErr := errors.New("base error")
	ruleErr := NewRuleError("rule error", 1, "/a", baseErr)
	configErr := NewConfigError("config error", "rules", InvalidConfig, ruleErr)

	assert.Equal(t, "config error: rules: rule 1 (/a): rule error: base error", configErr.Error())
	assert.True(t, Is(configErr, baseErr))
	assert.True(t, IsInvalidRule(configErr))
	assert.True(t, IsInvalidConfig(configErr))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, Unknown},
		{"plain", fmt.Errorf("x"), Unknown},
		{"file", NewFileError("m", "p", FileOperationFailed, nil), FileOperationFailed},
		{"wrapped with unknown", Wrap(NewFileError("m", "p", DestinationExists, nil), "ctx"), DestinationExists},
		{"std wrapped", fmt.Errorf("outer: %w", NewConfigError("m", "p", ConfigNotFound, nil)), ConfigNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
	assert.True(t, IsKind(NewRuleError("m", 0, "", nil), InvalidRule))
	assert.Equal(t, "destination_exists", DestinationExists.String())
}
