package gitversion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBranches(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected BranchInfo
		ok       bool
	}{
		{"empty", "", BranchInfo{}, false},
		{"feature branch checked out",
			"  0.1.x\n  WIP\n* feature-auth\n  import-xunit\n  master\n",
			NewBranchInfo("feature-auth"), true},
		{"nothing checked out",
			"  0.1.x\n  WIP\n  feature-auth\n  import-xunit\n  master\n",
			BranchInfo{}, false},
		{"single branch without newline", "* master", NewBranchInfo("master"), true},
		{"crlf line endings", "  develop\r\n* main\r\n", NewBranchInfo("main"), true},
		{"first marked line wins", "* first\n* second\n", NewBranchInfo("first"), true},
		{"detached head", "* (HEAD detached at 0b65efa)\n  master\n",
			NewBranchInfo("(HEAD detached at 0b65efa)"), true},
		{"marker without space", "*main\n", NewBranchInfo("main"), true},
		{"indented marker is ignored", "  * main\n", BranchInfo{}, false},
		{"marker only", "*\n", NewBranchInfo(""), true},
		{"very long preceding line", "  " + strings.Repeat("x", 70000) + "\n* feature-auth\n",
			NewBranchInfo("feature-auth"), true},
		{"cr line endings", "  master\r* feature-auth\r", NewBranchInfo("feature-auth"), true},
		{"marker after cr inside line", "  master\r  * other\r", BranchInfo{}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, ok := ParseBranches(test.input)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, actual)
		})
	}
}
