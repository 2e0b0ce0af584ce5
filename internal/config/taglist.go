package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagList is a rule's required tags. In YAML it is either a comma-separated
// string ("foo, bar") or a sequence of strings.
type TagList []string

// UnmarshalYAML accepts both the scalar and the sequence form.
func (t *TagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = splitTags(s)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		out := TagList{}
		for _, item := range items {
			out = append(out, splitTags(item)...)
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("line %d: tags must be a string or a list of strings", node.Line)
	}
}

// MarshalYAML writes the comma-separated form.
func (t TagList) MarshalYAML() (interface{}, error) {
	return strings.Join(t, ", "), nil
}

func splitTags(s string) TagList {
	out := TagList{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
