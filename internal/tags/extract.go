// Package tags parses tag-encoded filenames such as "#misc#foo=photo.jpg"
// into a tag set and the display name the file is moved under.
package tags

import (
	"strings"

	"tagsortd/internal/errors"
)

// PartSuffix marks an incomplete browser download.
const PartSuffix = ".part"

// Rejection reasons returned by Extract. Compare with errors.Is.
var (
	ErrPartialFile = errors.New("partial download")
	ErrNotTagged   = errors.New("name does not start with the tag prefix")
	ErrNoTags      = errors.New("no tags in name")
	ErrNoName      = errors.New("nothing after the name separator")
)

// Options controls how filenames are parsed.
type Options struct {
	TagPrefix     string
	Separator     string
	SkipPartFiles bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{TagPrefix: "#", Separator: "=", SkipPartFiles: true}
}

// Candidate is a filename that carries tags and a residual display name.
type Candidate struct {
	// Filename is the entry name as listed in the source directory.
	Filename string
	// Name is the residual display name used verbatim as the output filename.
	Name string
	// Tags in the order they appear in Filename.
	Tags Set
	// NoSeparator is set when Filename has no separator; Name is then the
	// whole filename, prefix characters included.
	NoSeparator bool
}

// Extract parses filename. The partial-download check runs before anything
// else so ".part" files are rejected whether or not they are tagged.
func Extract(filename string, opts Options) (Candidate, error) {
	if opts.SkipPartFiles && strings.HasSuffix(filename, PartSuffix) {
		return Candidate{}, ErrPartialFile
	}
	if opts.TagPrefix == "" || !strings.HasPrefix(filename, opts.TagPrefix) {
		return Candidate{}, ErrNotTagged
	}

	c := Candidate{Filename: filename}

	block, name, found := filename, filename, false
	if opts.Separator != "" {
		var before, after string
		before, after, found = strings.Cut(filename, opts.Separator)
		if found {
			block, name = before, after
		}
	}
	c.NoSeparator = !found
	c.Name = name

	// The first token is always the empty string before the leading prefix.
	tokens := strings.Split(block, opts.TagPrefix)[1:]
	for _, tok := range tokens {
		if tok != "" {
			c.Tags = append(c.Tags, tok)
		}
	}

	if len(c.Tags) == 0 {
		return c, ErrNoTags
	}
	if c.Name == "" {
		return c, ErrNoName
	}
	return c, nil
}
