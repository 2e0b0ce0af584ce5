package organize

import (
	"tagsortd/pkg/types"
)

// Organizer defines the interface for file organization operations
// This allows for dependency injection in tests and other parts of the application
type Organizer interface {
	// IsDryRun reports whether moves are only logged
	IsDryRun() bool

	// OrganizeFile plans and moves one entry of dir
	OrganizeFile(dir, name string) types.OrganizeResult

	// OrganizeDirectory handles every immediate entry of a directory
	OrganizeDirectory(dir string) ([]types.OrganizeResult, error)

	// MoveFile moves a file from source to destination
	MoveFile(src, dest string) error

	// RunCycle makes one pass over all source directories
	RunCycle(dirs []string) types.CycleReport
}

// Ensure Engine implements the Organizer interface
var _ Organizer = (*Engine)(nil)
