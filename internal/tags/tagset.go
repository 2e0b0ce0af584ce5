package tags

// Set is the ordered sequence of tags as they appeared in a filename.
// Matching treats it as a set; ordering only matters for catch-all
// subdirectories.
type Set []string

// Unique returns the tags with duplicates removed, keeping the first
// occurrence of each.
func (s Set) Unique() Set {
	seen := make(map[string]struct{}, len(s))
	out := make(Set, 0, len(s))
	for _, t := range s {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Contains reports whether tag is in the set.
func (s Set) Contains(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// Intersect returns the tags present in both sets, in s order, deduplicated.
func (s Set) Intersect(other Set) Set {
	out := Set{}
	for _, t := range s.Unique() {
		if other.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// Difference returns the tags of s not present in other, in s order,
// deduplicated.
func (s Set) Difference(other Set) Set {
	out := Set{}
	for _, t := range s.Unique() {
		if !other.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}
