package rules

import "tagsortd/internal/tags"

// MatchResult is the outcome of Match. A zero value means no match.
type MatchResult struct {
	Rule *Rule
	// Score is the number of file tags the rule shares.
	Score int
	// Exact is set when the rule consumed every file tag.
	Exact bool
}

// Matched reports whether a rule was selected.
func (m MatchResult) Matched() bool {
	return m.Rule != nil
}

// Kind describes the match for log lines.
func (m MatchResult) Kind() string {
	switch {
	case !m.Matched():
		return "none"
	case m.Exact:
		return "exact"
	case m.Rule.CatchAll:
		return "catch-all"
	default:
		return "partial"
	}
}

// Match picks the rule sharing the most tags with the file in one
// left-to-right pass. A later rule with an equal score replaces an earlier
// one, and the scan stops at the first rule covering every file tag.
// Rules requiring more tags than the file carries are never considered.
// Duplicate file tags count once.
func Match(fileTags tags.Set, rules []Rule) MatchResult {
	set := fileTags.Unique()
	if len(set) == 0 {
		return MatchResult{}
	}

	var best MatchResult
	for i := range rules {
		r := &rules[i]
		if len(r.Tags) > len(set) {
			continue
		}

		overlap := len(set.Intersect(r.Tags))
		if overlap == 0 {
			continue
		}

		if overlap >= best.Score {
			best = MatchResult{Rule: r, Score: overlap}
		}

		if overlap == len(set) {
			best.Exact = true
			break
		}
	}

	if best.Score == 0 {
		return MatchResult{}
	}
	return best
}
