package gitversion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Calculate derives the version for the repository behind opts.Source.
//
// A repository without a describable tag is not an error: the returned
// Result has an empty Version and IsRelease false. Errors only come from
// the Source itself.
func Calculate(ctx context.Context, opts Options) (*Result, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	describe, err := opts.Source.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing HEAD: %w", err)
	}

	version, ok := ParseDescribe(describe)
	if !ok {
		logger.Debug("no version tag found", "describe", strings.TrimSpace(describe))
		return &Result{}, nil
	}

	branches, err := opts.Source.Branches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}

	branch, ok := ParseBranches(branches)
	if !ok {
		logger.Debug("no current branch found")
	}

	result := &Result{
		Version:   VersionString(version, branch),
		IsRelease: version.IsRelease(),
		Branch:    branch.Name,
	}
	logger.Debug("calculated version",
		"tag", version.Version+version.Qualifier,
		"build", version.Build,
		"commit", version.Commit,
		"branch", branch.Name,
		"version", result.Version,
		"release", result.IsRelease)

	return result, nil
}

// VersionString composes the display version:
//
//	<version>[.<build>]<qualifier>[-f<feature>]-g<commit>
//
// The build distance is left out for releases. The qualifier always follows
// the build segment.
func VersionString(version VersionInfo, branch BranchInfo) string {
	var sb strings.Builder
	sb.WriteString(version.Version)

	if !version.IsRelease() {
		sb.WriteString(".")
		sb.WriteString(version.Build)
	}

	sb.WriteString(version.Qualifier)

	if branch.IsFeature() {
		sb.WriteString("-f")
		sb.WriteString(branch.ShortName())
	}

	sb.WriteString("-g")
	sb.WriteString(version.Commit)

	return sb.String()
}
