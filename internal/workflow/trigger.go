package workflow

import "strings"

// Event kinds recognized in the on block.
const (
	EventPullRequest = "pull_request"
	EventPush        = "push"
)

// Matches reports whether the workflow triggers for the given event kind
// and target branch. An event kind not declared in the on block does not
// trigger. A declared event with no branch list matches any branch.
func (w *Workflow) Matches(event, branch string) bool {
	var filter *BranchFilter
	switch event {
	case EventPullRequest:
		filter = w.On.PullRequest
	case EventPush:
		filter = w.On.Push
	default:
		return false
	}
	if filter == nil {
		return false
	}
	if len(filter.Branches) == 0 {
		return true
	}
	for _, pattern := range filter.Branches {
		if MatchBranch(pattern, branch) {
			return true
		}
	}
	return false
}

// MatchBranch matches a branch name against a pattern. `*` matches any
// run of characters within one slash-separated segment, `**` matches
// across segments.
func MatchBranch(pattern, branch string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(branch, "/"))
}

func matchSegments(pattern, name []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	if pattern[0] == "**" {
		// `**` absorbs zero or more leading segments.
		for i := 0; i <= len(name); i++ {
			if matchSegments(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	}
	if len(name) == 0 {
		return false
	}
	if !matchSegment(pattern[0], name[0]) {
		return false
	}
	return matchSegments(pattern[1:], name[1:])
}

func matchSegment(pattern, segment string) bool {
	// Literal fast path.
	if !strings.Contains(pattern, "*") {
		return pattern == segment
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(segment, parts[0]) {
		return false
	}
	segment = segment[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(segment, part)
		if idx < 0 {
			return false
		}
		segment = segment[idx+len(part):]
	}
	return strings.HasSuffix(segment, parts[len(parts)-1])
}
