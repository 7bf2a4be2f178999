package gitversion

import "regexp"

// describePattern matches `<version><qualifier>-<build>-g<commit>` with an
// optional line terminator. The qualifier is greedy and backtracks to leave
// the build and commit segments intact; it never spans a line separator.
var describePattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)([^\r\n\x{85}\x{2028}\x{2029}]*)-(\d+)-g([0-9a-f]{7})\r?\n?$`)

// ParseDescribe parses the output of `git describe --tags --long`.
//
// It returns false when the text does not describe a version tag, which is
// the normal outcome for a repository without tags (git prints an error
// instead of a description).
func ParseDescribe(text string) (VersionInfo, bool) {
	matches := describePattern.FindStringSubmatch(text)
	if len(matches) != 5 {
		return VersionInfo{}, false
	}

	version, qualifier, build, commit := matches[1], matches[2], matches[3], matches[4]
	return NewVersionInfo(version, build, qualifier, commit), true
}
