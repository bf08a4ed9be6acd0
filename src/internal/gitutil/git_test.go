package gitutil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resp struct {
	out, errStr string
	err         error
}

// fakeRunner replays canned responses and records each command line.
type fakeRunner struct {
	seq   []resp
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if len(f.calls) > len(f.seq) {
		return "", "", nil
	}
	r := f.seq[len(f.calls)-1]
	return r.out, r.errStr, r.err
}

var errExit = errors.New("exit status 1")

func TestCommitNoPaths(t *testing.T) {
	fr := &fakeRunner{}
	require.NoError(t, New(".").WithRunner(fr).Commit(context.Background(), nil, "msg"))
	assert.Empty(t, fr.calls)
}

func TestCommitWithoutPush(t *testing.T) {
	fr := &fakeRunner{}
	require.NoError(t, New(".").WithRunner(fr).Commit(context.Background(), []string{"a.yaml"}, "add entry"))
	assert.Equal(t, []string{"git add -A -- a.yaml", "git commit -m add entry"}, fr.calls)
}

func TestCommitErrorPaths(t *testing.T) {
	ctx := context.Background()

	fr := &fakeRunner{seq: []resp{{"", "boom", errExit}}}
	err := New(".").WithRunner(fr).Commit(ctx, []string{"x"}, "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git add failed")

	fr = &fakeRunner{seq: []resp{{}, {"", "nothing to commit", errExit}}}
	repo := New(".").WithRunner(fr)
	repo.Push = true
	require.NoError(t, repo.Commit(ctx, []string{"x"}, "msg"))
	assert.Len(t, fr.calls, 2, "no push after a no-op commit")

	fr = &fakeRunner{seq: []resp{{}, {"", "other error", errExit}}}
	err = New(".").WithRunner(fr).Commit(ctx, []string{"x"}, "msg")
	require.Error(t, err)
	assert.ErrorIs(t, err, errExit)

	fr = &fakeRunner{seq: []resp{{}, {}, {"", "push fail", errExit}}}
	repo = New(".").WithRunner(fr)
	repo.Push = true
	require.Error(t, repo.Commit(ctx, []string{"x"}, "msg"))
}

func TestPushFallsBackToUpstream(t *testing.T) {
	fr := &fakeRunner{seq: []resp{{}, {}, {"", "fatal: The current branch main has no upstream branch.", errExit}, {"main\n", "", nil}, {}}}
	repo := New(".").WithRunner(fr)
	repo.Push = true
	require.NoError(t, repo.Commit(context.Background(), []string{"x"}, "msg"))
	assert.Equal(t, "git push -u origin main", fr.calls[len(fr.calls)-1])
}

func TestCommitRealRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	out, err := exec.Command("git", "-C", dir, "init").CombinedOutput()
	require.NoError(t, err, string(out))

	f := filepath.Join(dir, "entry.yaml")
	require.NoError(t, os.WriteFile(f, []byte("id: a\n"), 0o644))
	repo := New(dir)
	require.NoError(t, repo.Commit(context.Background(), []string{"entry.yaml"}, "add entry"))
	require.NoError(t, repo.Commit(context.Background(), []string{"entry.yaml"}, "again"), "second commit is a no-op")

	out, err = exec.Command("git", "-C", dir, "log", "--oneline").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "add entry")
}
