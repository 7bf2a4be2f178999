package gitversion

import (
	"regexp"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// ParseBranches parses the output of `git branch` and returns the branch
// marked with `*`. Only the first marked line is used. It returns false
// when no line is marked.
func ParseBranches(text string) (BranchInfo, bool) {
	for _, line := range lineBreak.Split(text, -1) {
		if !strings.HasPrefix(line, "*") {
			continue
		}
		return NewBranchInfo(strings.TrimSpace(line[1:])), true
	}

	return BranchInfo{}, false
}
