// Package errors provides standardized error handling for tagsortd.
// It defines the error kinds the scan cycle distinguishes between (skip and
// retry next cycle, abandon the file, or abort startup) together with helpers
// for consistent creation and wrapping.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	DirectoryNotFound
	DestinationExists
	FileOperationFailed
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Rule error kinds
	InvalidRule
)

var kindNames = map[ErrorKind]string{
	Unknown:             "unknown",
	FileNotFound:        "file_not_found",
	FileAccessDenied:    "file_access_denied",
	InvalidPath:         "invalid_path",
	DirectoryNotFound:   "directory_not_found",
	DestinationExists:   "destination_exists",
	FileOperationFailed: "file_operation_failed",
	InvalidConfig:       "invalid_config",
	ConfigNotFound:      "config_not_found",
	InvalidRule:         "invalid_rule",
}

// String returns the snake_case name of the kind, used as a log field value.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinded is implemented by every error type in this package.
type Kinded interface {
	error
	Kind() ErrorKind
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to file and directory operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// RuleError represents an invalid tag rule. The rule is identified by its
// position in the configured list and its destination path.
type RuleError struct {
	ApplicationError
	index int
	path  string
}

// NewRuleError creates a new rule error
func NewRuleError(msg string, index int, path string, err error) *RuleError {
	return &RuleError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: InvalidRule,
		},
		index: index,
		path:  path,
	}
}

// Error returns the rule error message
func (e *RuleError) Error() string {
	where := fmt.Sprintf("rule %d", e.index)
	if e.path != "" {
		where = fmt.Sprintf("rule %d (%s)", e.index, e.path)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", where, e.msg)
}

// Index returns the position of the offending rule in the rule list
func (e *RuleError) Index() int {
	return e.index
}

// Path returns the configured destination of the offending rule
func (e *RuleError) Path() string {
	return e.path
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first kinded error in err's chain that is
// not Unknown, or Unknown when there is none.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(Kinded); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether err's chain carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileNotFound
	}
	return false
}

// IsDirectoryNotFound checks if the error is a missing directory error
func IsDirectoryNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == DirectoryNotFound
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsConfigNotFound checks if the error is a missing configuration file error
func IsConfigNotFound(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == ConfigNotFound
	}
	return false
}

// IsInvalidRule checks if the error is an invalid rule error
func IsInvalidRule(err error) bool {
	var ruleErr *RuleError
	return errors.As(err, &ruleErr)
}
