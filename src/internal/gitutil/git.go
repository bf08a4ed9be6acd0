// Package gitutil commits library files to the git repository that holds
// them.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

// Run executes the named program in dir and returns stdout, stderr, and error.
func (execRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out, errB bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errB
	err := cmd.Run()
	return out.String(), errB.String(), err
}

// Repo is a working tree rooted at Dir.
type Repo struct {
	Dir string
	// Push also pushes after each commit.
	Push   bool
	runner Runner
}

// New returns a repo that shells out to git in dir.
func New(dir string) *Repo { return &Repo{Dir: dir, runner: execRunner{}} }

// WithRunner swaps the command runner; used by tests.
func (r *Repo) WithRunner(run Runner) *Repo {
	r.runner = run
	return r
}

// Commit stages the given paths and commits them with message, pushing when
// Push is set. "Nothing to commit" counts as success.
func (r *Repo) Commit(ctx context.Context, paths []string, message string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := r.add(ctx, paths); err != nil {
		return err
	}
	noChange, err := r.commit(ctx, message)
	if err != nil {
		return err
	}
	if noChange || !r.Push {
		return nil
	}
	return r.pushWithFallback(ctx)
}

// add stages additions, modifications, and deletions for the provided paths.
func (r *Repo) add(ctx context.Context, paths []string) error {
	args := append([]string{"add", "-A", "--"}, paths...)
	if _, stderr, err := r.runner.Run(ctx, r.Dir, "git", args...); err != nil {
		return fmt.Errorf("git add failed: %w: %s", err, strings.TrimSpace(stderr))
	}
	return nil
}

// commit returns noChange=true when there is nothing to commit.
func (r *Repo) commit(ctx context.Context, message string) (noChange bool, err error) {
	stdout, stderr, runErr := r.runner.Run(ctx, r.Dir, "git", "commit", "-m", message)
	if runErr == nil {
		return false, nil
	}
	// Some Git versions report the no-op on stdout, others on stderr.
	combined := stderr + stdout
	if strings.Contains(combined, "nothing to commit") ||
		strings.Contains(combined, "no changes added to commit") ||
		strings.Contains(combined, "working tree clean") {
		return true, nil
	}
	return false, fmt.Errorf("git commit failed: %w: %s", runErr, strings.TrimSpace(combined))
}

// pushWithFallback runs `git push`, falling back to
// `git push -u origin <current-branch>` when no upstream is configured.
func (r *Repo) pushWithFallback(ctx context.Context) error {
	_, stderr, err := r.runner.Run(ctx, r.Dir, "git", "push")
	if err == nil {
		return nil
	}
	if !strings.Contains(stderr, "has no upstream branch") && !strings.Contains(stderr, "no configured push destination") {
		return fmt.Errorf("git push failed: %w: %s", err, strings.TrimSpace(stderr))
	}
	branch := "HEAD"
	if br, _, bErr := r.runner.Run(ctx, r.Dir, "git", "rev-parse", "--abbrev-ref", "HEAD"); bErr == nil && strings.TrimSpace(br) != "" {
		branch = strings.TrimSpace(br)
	}
	if _, stderr2, err2 := r.runner.Run(ctx, r.Dir, "git", "push", "-u", "origin", branch); err2 != nil {
		return fmt.Errorf("git push failed: %v: %s; fallback failed: %w: %s", err, stderr, err2, stderr2)
	}
	return nil
}
