// Package rules selects a destination for a tagged file: it holds the rule
// model, the best-overlap matcher and the destination resolver.
package rules

import (
	"path/filepath"
	"strings"

	"tagsortd/internal/errors"
	"tagsortd/internal/tags"
)

// CatchAllMarker at the end of a rule path turns the rule into a catch-all.
const CatchAllMarker = "*"

// Rule maps a set of required tags to a destination directory. Rules are
// immutable once built; their position in the list matters for ties.
type Rule struct {
	// Path is the destination as configured, marker included.
	Path string
	// Destination is the directory files are moved to. For catch-all rules
	// it is the base under which unmatched tags become subdirectories.
	Destination string
	// Tags the rule requires, deduplicated.
	Tags tags.Set
	// CatchAll is set when Path ends with CatchAllMarker.
	CatchAll bool
	// Index is the rule's position in the configured list.
	Index int
}

// New builds the rule at position index from a configured path and tags.
func New(index int, path string, required []string) (Rule, error) {
	r := Rule{Path: path, Index: index}

	path = strings.TrimSpace(path)
	if path == "" {
		return r, errors.NewRuleError("destination path is empty", index, r.Path, nil)
	}

	for _, t := range required {
		if t = strings.TrimSpace(t); t != "" {
			r.Tags = append(r.Tags, t)
		}
	}
	r.Tags = r.Tags.Unique()
	if len(r.Tags) == 0 {
		return r, errors.NewRuleError("rule has no tags", index, r.Path, nil)
	}

	if strings.HasSuffix(path, CatchAllMarker) {
		r.CatchAll = true
		base := strings.TrimRight(strings.TrimSuffix(path, CatchAllMarker), `/\`)
		if base == "" {
			if strings.HasPrefix(path, "/") {
				base = "/"
			} else {
				return r, errors.NewRuleError("catch-all rule has no base directory", index, r.Path, nil)
			}
		}
		r.Destination = filepath.Clean(base)
		return r, nil
	}

	r.Destination = filepath.Clean(path)
	return r, nil
}
