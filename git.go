// Package gitversion derives a build version string from the output of
// `git describe` and `git branch`.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0.
package gitversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const abbrevLength = 7

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// GitExecutable returns the git binary to run. A non-blank gitHome names an
// alternate installation whose binary lives in gitHome/bin.
func GitExecutable(gitHome string) string {
	if strings.TrimSpace(gitHome) == "" {
		return "git"
	}
	return filepath.Join(gitHome, "bin", "git")
}

// CommandSource reads describe and branch output by running the git executable
type CommandSource struct {
	// Executable is the git binary (see GitExecutable)
	Executable string

	// Dir is the working directory git runs in. Empty means the current directory.
	Dir string

	// Logger receives git's stderr when it exits with an error. Nil discards it.
	Logger *slog.Logger

	execCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewCommandSource creates a CommandSource running git from gitHome inside dir
func NewCommandSource(dir, gitHome string, logger *slog.Logger) *CommandSource {
	return &CommandSource{
		Executable:  GitExecutable(gitHome),
		Dir:         dir,
		Logger:      logger,
		execCommand: exec.CommandContext,
	}
}

// Verify the sources implement Source.
var (
	_ Source = (*CommandSource)(nil)
	_ Source = (*RepositorySource)(nil)
)

func (s *CommandSource) Describe(ctx context.Context) (string, error) {
	return s.run(ctx, "describe", "--tags", "--long")
}

func (s *CommandSource) Branches(ctx context.Context) (string, error) {
	return s.run(ctx, "branch")
}

// run returns git's stdout. A non-zero exit is not an error: git reports
// "no names found" and "not a git repository" that way, and both simply
// mean there is nothing to parse.
func (s *CommandSource) run(ctx context.Context, args ...string) (string, error) {
	execCommand := s.execCommand
	if execCommand == nil {
		execCommand = exec.CommandContext
	}
	executable := s.Executable
	if executable == "" {
		executable = "git"
	}

	cmd := execCommand(ctx, executable, args...)
	cmd.Dir = s.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger().Debug("git exited with an error",
				"args", strings.Join(args, " "),
				"code", exitErr.ExitCode(),
				"stderr", strings.TrimSpace(stderr.String()))
			return stdout.String(), nil
		}
		return "", fmt.Errorf("running %s %s: %w", executable, strings.Join(args, " "), err)
	}

	return stdout.String(), nil
}

func (s *CommandSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// RepositorySource produces describe and branch output from a go-git
// repository, so no git executable is needed
type RepositorySource struct {
	// Repository is the Git repository to read
	Repository *git.Repository

	// TagFilter limits which tags are considered. Nil considers all tags.
	TagFilter func(string) bool
}

// NewRepositorySource creates a RepositorySource for repo
func NewRepositorySource(repo *git.Repository) *RepositorySource {
	return &RepositorySource{Repository: repo}
}

// Describe renders `<tag>-<distance>-g<hash>` for the nearest tag reachable
// from HEAD. It returns empty output when the repository has no commits or
// no reachable tags.
func (s *RepositorySource) Describe(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head, err := s.Repository.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	tags, err := s.tagsByCommit()
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", nil
	}

	commit, err := s.Repository.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("getting commit object: %w", err)
	}

	tagged, err := nearestTaggedCommit(ctx, commit, tags)
	if err != nil {
		return "", fmt.Errorf("finding nearest tag: %w", err)
	}
	if tagged == nil {
		return "", nil
	}

	distance, err := commitDistance(commit, tagged)
	if err != nil {
		return "", fmt.Errorf("counting commits since tag: %w", err)
	}

	return fmt.Sprintf("%s-%d-g%s\n",
		preferredTag(tags[tagged.Hash]), distance, abbrev(head.Hash())), nil
}

// Branches renders the local branches the way `git branch` lists them,
// marking the checked-out branch with `* `
func (s *RepositorySource) Branches(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head, err := s.Repository.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	refs, err := s.Repository.Branches()
	if err != nil {
		return "", fmt.Errorf("listing branches: %w", err)
	}

	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("listing branches: %w", err)
	}
	sort.Strings(names)

	var sb strings.Builder
	if !head.Name().IsBranch() {
		fmt.Fprintf(&sb, "* (HEAD detached at %s)\n", abbrev(head.Hash()))
	}
	for _, name := range names {
		marker := "  "
		if head.Name().IsBranch() && head.Name().Short() == name {
			marker = "* "
		}
		sb.WriteString(marker + name + "\n")
	}

	return sb.String(), nil
}

// tagsByCommit maps each tagged commit to the names of its tags. Annotated
// tags are resolved to the commit they point at.
func (s *RepositorySource) tagsByCommit() (map[plumbing.Hash][]string, error) {
	refs, err := s.Repository.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tags := make(map[plumbing.Hash][]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := ref.Name().Short()
		if s.TagFilter != nil && !s.TagFilter(name) {
			return nil
		}

		obj, err := s.Repository.TagObject(ref.Hash())
		switch err {
		case nil:
			// Annotated tag
			if obj.TargetType != plumbing.CommitObject {
				return nil
			}
			tags[obj.Target] = append(tags[obj.Target], name)
		case plumbing.ErrObjectNotFound:
			// Lightweight tag
			tags[ref.Hash()] = append(tags[ref.Hash()], name)
		default:
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading tags: %w", err)
	}

	return tags, nil
}

// nearestTaggedCommit walks history breadth-first from commit and returns
// the first commit carrying a tag, or nil when there is none
func nearestTaggedCommit(ctx context.Context, commit *object.Commit,
	tags map[plumbing.Hash][]string) (*object.Commit, error) {

	var tagged *object.Commit
	err := object.NewCommitIterBSF(commit, nil, nil).ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := tags[c.Hash]; ok {
			tagged = c
			return storer.ErrStop
		}
		return nil
	})

	return tagged, err
}

// commitDistance counts the commits reachable from head but not from base
func commitDistance(head, base *object.Commit) (int, error) {
	seen := make(map[plumbing.Hash]bool)
	err := object.NewCommitPreorderIter(base, nil, nil).ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	distance := 0
	err = object.NewCommitPreorderIter(head, seen, nil).ForEach(func(*object.Commit) error {
		distance++
		return nil
	})

	return distance, err
}

// preferredTag picks the highest version among tags on the same commit.
// Names that are not versions rank below versions and compare by name.
func preferredTag(names []string) string {
	best := names[0]
	for _, name := range names[1:] {
		if tagLess(best, name) {
			best = name
		}
	}
	return best
}

func tagLess(a, b string) bool {
	va, errA := semver.ParseTolerant(a)
	vb, errB := semver.ParseTolerant(b)

	switch {
	case errA == nil && errB == nil && !va.EQ(vb):
		return va.LT(vb)
	case errA == nil && errB != nil:
		return false
	case errA != nil && errB == nil:
		return true
	}

	return a < b
}

func abbrev(hash plumbing.Hash) string {
	return hash.String()[:abbrevLength]
}
