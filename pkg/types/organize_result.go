package types

import "time"

// Status is the outcome of considering one directory entry.
type Status int

const (
	// StatusIgnored means the entry was not a candidate: untagged, a partial
	// download, a directory or matched by an ignore pattern.
	StatusIgnored Status = iota
	// StatusSkipped means a tagged file was left in place this cycle; it is
	// reconsidered on the next one.
	StatusSkipped
	// StatusPlanned means a move was decided but not performed (dry run).
	StatusPlanned
	// StatusMoved means the file was moved.
	StatusMoved
	// StatusFailed means a filesystem operation failed for this file.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusSkipped:
		return "skipped"
	case StatusPlanned:
		return "planned"
	case StatusMoved:
		return "moved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OrganizeResult holds the outcome of an organization attempt for a single file
type OrganizeResult struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path,omitempty"`
	Status          Status `json:"status"`
	Reason          string `json:"reason,omitempty"`
	RuleIndex       int    `json:"rule_index"` // -1 when no rule matched
	MatchKind       string `json:"match_kind,omitempty"`
	Error           error  `json:"-"`
}

// Moved reports whether the file left the source directory.
func (r OrganizeResult) Moved() bool {
	return r.Status == StatusMoved
}

// CycleReport summarizes one pass over all source directories.
type CycleReport struct {
	Cycle              int              `json:"cycle"`
	Started            time.Time        `json:"started"`
	Finished           time.Time        `json:"finished"`
	Directories        []string         `json:"directories"`
	MissingDirectories []string         `json:"missing_directories,omitempty"`
	Results            []OrganizeResult `json:"results"`
}

// Count returns how many results have status s.
func (r CycleReport) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Duration returns how long the cycle took.
func (r CycleReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
