package gitversion

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var testFileCount int

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate(t *testing.T) *git.Repository {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	return repo
}

// testRepoCommit writes a new file containing msg and commits it
func testRepoCommit(t *testing.T, repo *git.Repository, msg string) plumbing.Hash {
	t.Helper()

	workTree, err := repo.Worktree()
	require.NoError(t, err)

	testFileCount++
	filename := fmt.Sprintf("file-%d.txt", testFileCount)
	require.NoError(t, writeFile(workTree.Filesystem, filename, msg))

	_, err = workTree.Add(filename)
	require.NoError(t, err)

	hash, err := workTree.Commit(msg, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return hash
}

// testRepoTaggedPastRelease tags a commit and adds n commits after it,
// returning the HEAD hash
func testRepoTaggedPastRelease(t *testing.T, repo *git.Repository, tag string, n int) plumbing.Hash {
	t.Helper()

	head := testRepoCommit(t, repo, "Release commit")
	_, err := repo.CreateTag(tag, head, nil)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		head = testRepoCommit(t, repo, fmt.Sprintf("Commit %d after %s", i+1, tag))
	}
	return head
}

// testRepoCheckoutBranch creates a branch at HEAD and checks it out
func testRepoCheckoutBranch(t *testing.T, repo *git.Repository, name string) {
	t.Helper()

	workTree, err := repo.Worktree()
	require.NoError(t, err)

	err = workTree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	require.NoError(t, err)
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
