// Package lookup runs a single identifier search against a fetcher off the
// caller's goroutine and reports exactly one outcome per task.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/schema"
)

var (
	ErrBlankIdentifier = errors.New("lookup: identifier is blank")
	ErrNilFetcher      = errors.New("lookup: no fetcher")
)

// State is a task's position in its lifecycle.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool { return s >= Succeeded }

// Failure is the classified error of a failed task.
type Failure struct {
	Kind    fetcher.Kind
	Message string
}

// Outcome is delivered once per task on Done.
// Entry is set only for Succeeded and may be nil (the fetcher found nothing
// usable). Failure is set only for Failed.
type Outcome struct {
	TaskID      string
	Identifier  string
	FetcherName string
	State       State
	Entry       *schema.Entry
	Failure     *Failure
	Elapsed     time.Duration
}

// Task is one identifier search. Only the worker goroutine moves it between
// states; other goroutines may read its state and request cancellation.
type Task struct {
	ID         string
	Identifier string
	Fetcher    fetcher.Fetcher

	mu              sync.Mutex
	state           State
	history         []State
	cancelRequested bool
	cancel          context.CancelFunc
	started         time.Time
	done            chan Outcome
}

// Start validates its inputs and launches the search. It returns at once with
// a Pending task; the outcome arrives on Done.
func Start(ctx context.Context, identifier string, f fetcher.Fetcher) (*Task, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, ErrBlankIdentifier
	}
	if f == nil {
		return nil, ErrNilFetcher
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Fetcher:    f,
		state:      Pending,
		history:    []State{Pending},
		cancel:     cancel,
		started:    time.Now(),
		done:       make(chan Outcome, 1),
	}
	go t.run(ctx)
	return t, nil
}

// Done yields the task's single outcome and is then closed.
func (t *Task) Done() <-chan Outcome { return t.done }

// State returns the current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// History returns every state the task has been in, oldest first.
func (t *Task) History() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}

// Cancel asks the task to stop. The request is cooperative: the fetch's
// context is cancelled, but the task only turns Cancelled once the fetch
// returns, and whatever it returned is discarded. Cancel reports false when
// the task is already terminal or cancellation was already requested.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() || t.cancelRequested {
		return false
	}
	t.cancelRequested = true
	t.cancel()
	return true
}

func (t *Task) run(ctx context.Context) {
	defer t.cancel()
	if !t.begin() {
		t.finish(ctx, nil, nil)
		return
	}
	entry, err := t.search(ctx)
	t.finish(ctx, entry, err)
}

// begin moves Pending to Running unless cancellation got there first.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelRequested {
		return false
	}
	t.setState(Running)
	return true
}

func (t *Task) search(ctx context.Context) (e *schema.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("%s: fetcher panicked: %v", t.Fetcher.Name(), r)
		}
	}()
	return t.Fetcher.SearchByID(ctx, t.Identifier)
}

// finish settles the terminal state and delivers the outcome. The state is
// decided under the same lock Cancel takes, so a Cancel that reports true
// always ends in Cancelled.
func (t *Task) finish(ctx context.Context, entry *schema.Entry, err error) {
	o := Outcome{TaskID: t.ID, Identifier: t.Identifier, FetcherName: t.Fetcher.Name()}
	t.mu.Lock()
	switch {
	case t.cancelRequested || ctx.Err() != nil:
		o.State = Cancelled
	case err != nil:
		o.State = Failed
		o.Failure = &Failure{Kind: fetcher.Classify(err), Message: err.Error()}
	default:
		o.State = Succeeded
		o.Entry = entry
	}
	t.setState(o.State)
	t.mu.Unlock()
	o.Elapsed = time.Since(t.started)
	observe(o)
	t.done <- o
	close(t.done)
}

func (t *Task) setState(s State) {
	t.state = s
	t.history = append(t.history, s)
}
