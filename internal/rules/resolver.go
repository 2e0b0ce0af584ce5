package rules

import (
	"path/filepath"

	"tagsortd/internal/tags"
)

// Resolve returns the destination directory for a file carrying fileTags
// that matched r. Catch-all rules nest the tags they did not require under
// their base directory, in the order the file lists them.
func Resolve(r Rule, fileTags tags.Set) string {
	if !r.CatchAll {
		return r.Destination
	}

	extra := fileTags.Difference(r.Tags)
	return filepath.Join(append([]string{r.Destination}, extra...)...)
}

// Destination returns the full target path of candidate c under r.
func Destination(r Rule, c tags.Candidate) string {
	return filepath.Join(Resolve(r, c.Tags), c.Name)
}
