// Package gitversion derives a build version string from the output of
// `git describe` and `git branch`.
package gitversion

import (
	"context"
	"log/slog"
	"strings"
)

const featurePrefix = "feature-"

// VersionInfo is the structured form of a `git describe --tags --long` line
type VersionInfo struct {
	// Version is the three-part numeric tag, e.g. "1.5.4"
	Version string `json:"version"`

	// Build is the number of commits since the tag
	Build string `json:"build"`

	// Qualifier is whatever follows the version in the tag, e.g. "-alpha"
	Qualifier string `json:"qualifier"`

	// Commit is the abbreviated commit hash
	Commit string `json:"commit"`
}

// NewVersionInfo creates a VersionInfo
func NewVersionInfo(version, build, qualifier, commit string) VersionInfo {
	return VersionInfo{
		Version:   version,
		Build:     build,
		Qualifier: qualifier,
		Commit:    commit,
	}
}

// IsRelease reports whether the described commit is the tagged commit itself
func (v VersionInfo) IsRelease() bool {
	return v.Build == "0"
}

// String renders the describe line the record was parsed from
func (v VersionInfo) String() string {
	return v.Version + v.Qualifier + "-" + v.Build + "-g" + v.Commit
}

// BranchInfo describes the checked-out branch
type BranchInfo struct {
	Name string `json:"name"`
}

// NewBranchInfo creates a BranchInfo
func NewBranchInfo(name string) BranchInfo {
	return BranchInfo{Name: name}
}

// IsFeature reports whether the branch is a feature branch
func (b BranchInfo) IsFeature() bool {
	return strings.HasPrefix(b.Name, featurePrefix)
}

// ShortName returns the branch name without its feature prefix
func (b BranchInfo) ShortName() string {
	if !b.IsFeature() {
		return b.Name
	}
	return b.Name[len(featurePrefix):]
}

// Result is what a build applies to its project. An empty Version means no
// tag was found and the build keeps its own default.
type Result struct {
	Version   string `json:"version,omitempty"`
	IsRelease bool   `json:"isRelease"`
	Branch    string `json:"branch,omitempty"`
}

// Source supplies the raw text of the two git commands a version is
// derived from
type Source interface {
	// Describe returns the output of `git describe --tags --long`
	Describe(ctx context.Context) (string, error)

	// Branches returns the output of `git branch`
	Branches(ctx context.Context) (string, error)
}

// Options configures version calculation
type Options struct {
	// Source provides the describe and branch output
	Source Source

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}
