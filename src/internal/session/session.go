// Package session drives the new-entry workflow: which approach is active,
// which fetcher a lookup goes to, the single in-flight lookup, and what
// happens to its outcome.
//
// A Session is owned by one control goroutine and is not safe for concurrent
// use. Lookups run on their own goroutine; their outcomes come back through
// the task's Done channel and are handed to Complete by the owner.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/library"
	"bibentry/src/internal/lookup"
	"bibentry/src/internal/prefs"
	"bibentry/src/internal/schema"
)

// Importer performs the duplicate-checked import; *library.Pipeline
// satisfies it.
type Importer interface {
	ImportWithDuplicateCheck(ctx context.Context, target library.Target, e schema.Entry) (library.Report, error)
}

// Notifier is the presentation boundary. It renders; the session decides.
type Notifier interface {
	TaskStarted(identifier, fetcherName string)
	// TaskSucceeded receives nil when the search found nothing usable.
	TaskSucceeded(e *schema.Entry)
	TaskFailed(kind fetcher.Kind, message string)
}

// CitationInterpreter turns free citation text into entries.
type CitationInterpreter interface {
	Interpret(ctx context.Context, text string) ([]schema.Entry, error)
}

// FormatParser turns a raw bibliographic format (e.g. BibTeX) into entries.
type FormatParser interface {
	Parse(ctx context.Context, text string) ([]schema.Entry, error)
}

// Deps are the collaborators a session works with. Registry, Target,
// Importer and Store are required.
type Deps struct {
	Registry    *fetcher.Registry
	Target      library.Target
	Importer    Importer
	Store       prefs.Store
	Notifier    Notifier
	Logger      *zap.Logger
	Interpreter CitationInterpreter
	Parser      FormatParser
}

// Result is an entry that went through the import pipeline.
type Result struct {
	Entry  schema.Entry
	Report library.Report
}

// Session is one run of the new-entry workflow.
type Session struct {
	approach Approach
	prefs    prefs.Preferences
	fetchers []fetcher.Fetcher
	selected fetcher.Fetcher
	picked   schema.EntryType

	// task is the lookup whose outcome has not been delivered yet.
	task       *lookup.Task
	inProgress bool
	finished   bool
	// cancelled is set once cancellation of task was requested. The outcome
	// is then dropped even if the fetch won the race.
	cancelled bool

	target   library.Target
	importer Importer
	store    prefs.Store
	notifier Notifier
	interp   CitationInterpreter
	parser   FormatParser
	log      *zap.Logger
}

// Open starts a session from the persisted preferences. Unreadable
// preferences are logged and replaced by defaults.
func Open(d Deps) (*Session, error) {
	if d.Target == nil || d.Importer == nil || d.Store == nil {
		return nil, fmt.Errorf("session: target, importer and store are required")
	}
	s := &Session{
		fetchers: d.Registry.List(),
		target:   d.Target,
		importer: d.Importer,
		store:    d.Store,
		notifier: d.Notifier,
		interp:   d.Interpreter,
		parser:   d.Parser,
		log:      d.Logger,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	p, err := d.Store.Load()
	if err != nil {
		s.log.Warn("preferences unreadable, using defaults", zap.Error(err))
		p = prefs.Defaults()
	}
	s.prefs = p
	s.approach = CreateEntry
	if a := Approach(p.Approach); a.Valid() {
		s.approach = a
	} else if p.Approach != "" {
		s.log.Warn("unknown saved approach", zap.String("approach", p.Approach))
	}
	if f, ok := fetcher.Find(s.fetchers, p.LastFetcher); ok {
		s.selected = f
	} else if len(s.fetchers) > 0 {
		s.selected = s.fetchers[0]
	}
	s.log.Debug("session opened",
		zap.String("approach", string(s.approach)),
		zap.Bool("guessing", s.prefs.IDLookupGuessing),
		zap.Int("fetchers", len(s.fetchers)),
	)
	return s, nil
}

// Approach returns the active approach.
func (s *Session) Approach() Approach { return s.approach }

// Preferences returns a snapshot of what will be persisted.
func (s *Session) Preferences() prefs.Preferences { return s.prefs }

// Fetchers returns the session's fetchers in registry order.
func (s *Session) Fetchers() []fetcher.Fetcher { return append([]fetcher.Fetcher(nil), s.fetchers...) }

// Selected returns the explicitly chosen fetcher, if any.
func (s *Session) Selected() (fetcher.Fetcher, bool) { return s.selected, s.selected != nil }

// Guessing reports whether the fetcher is picked from the identifier's shape.
func (s *Session) Guessing() bool { return s.prefs.IDLookupGuessing }

// InProgress reports whether a lookup's outcome is still outstanding.
func (s *Session) InProgress() bool { return s.inProgress }

// Finished reports whether the workflow produced and imported an entry.
func (s *Session) Finished() bool { return s.finished }

// SwitchApproach makes a the active approach and persists it at once. A
// running lookup is left alone. The switch stands even if persisting fails.
func (s *Session) SwitchApproach(a Approach) error {
	if !a.Valid() {
		return invalid(ErrUnknownApproach, string(a))
	}
	s.approach = a
	return s.persist()
}

// ConfirmAction describes the confirm control for the active approach.
func (s *Session) ConfirmAction() Action {
	switch s.approach {
	case LookupIdentifier:
		return Action{Label: "Lookup", Enabled: !s.inProgress && (s.prefs.IDLookupGuessing || s.selected != nil)}
	case InterpretCitations:
		return Action{Label: "Interpret", Enabled: s.interp != nil}
	case SpecifyFormat:
		return Action{Label: "Generate", Enabled: s.parser != nil}
	default:
		return Action{Label: "Select", Enabled: s.picked != ""}
	}
}

// PickType records the type highlighted for creation without creating it.
func (s *Session) PickType(t schema.EntryType) error {
	if !t.Known() {
		return invalid(ErrUnknownType, string(t))
	}
	s.picked = t
	return nil
}

// SetGuessing toggles fetcher guessing and persists the choice.
func (s *Session) SetGuessing(on bool) error {
	s.prefs.IDLookupGuessing = on
	return s.persist()
}

// SelectFetcher chooses the fetcher used while guessing is off and persists
// its name.
func (s *Session) SelectFetcher(name string) error {
	f, ok := fetcher.Find(s.fetchers, strings.TrimSpace(name))
	if !ok {
		return invalid(ErrUnknownFetcher, name)
	}
	s.selected = f
	s.prefs.LastFetcher = f.Name()
	return s.persist()
}

// ResolveFetcher returns the fetcher a lookup of text would use.
func (s *Session) ResolveFetcher(text string) (fetcher.Fetcher, bool) {
	if s.prefs.IDLookupGuessing {
		return fetcher.Guess(s.fetchers, text)
	}
	return s.selected, s.selected != nil
}

// CanLookup reports whether Lookup(text) would start a task.
func (s *Session) CanLookup(text string) bool {
	if strings.TrimSpace(text) == "" || s.task != nil {
		return false
	}
	_, ok := s.ResolveFetcher(text)
	return ok
}

// Lookup validates the submission and starts a lookup task. Validation
// failures are returned synchronously as *ValidationError and start nothing.
func (s *Session) Lookup(ctx context.Context, text string) (*lookup.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid(ErrBlankIdentifier, "")
	}
	if s.task != nil {
		return nil, invalid(ErrLookupInProgress, s.task.Identifier)
	}
	f, ok := s.ResolveFetcher(text)
	if !ok {
		return nil, invalid(ErrNoFetcher, text)
	}
	task, err := lookup.Start(ctx, text, f)
	if err != nil {
		return nil, err
	}
	s.task = task
	s.inProgress = true
	s.cancelled = false
	s.log.Info("lookup started",
		zap.String("task_id", task.ID),
		zap.String("fetcher", f.Name()),
		zap.String("identifier", text),
	)
	s.notifier.TaskStarted(text, f.Name())
	return task, nil
}

// Cancel requests cancellation of the outstanding lookup. The outcome still
// arrives on the task's Done channel and must be passed to Complete, which
// treats it as cancelled even when the fetch had already finished.
func (s *Session) Cancel() bool {
	if s.task == nil || s.cancelled {
		return false
	}
	s.cancelled = true
	s.task.Cancel()
	return true
}

// Complete consumes a lookup outcome on the control goroutine. Outcomes of
// tasks other than the outstanding one, including repeats, are ignored. A
// present entry is imported exactly once; the returned Result is nil for
// every other outcome.
func (s *Session) Complete(ctx context.Context, o lookup.Outcome) (*Result, error) {
	if s.task == nil || o.TaskID != s.task.ID {
		s.log.Debug("ignoring stale lookup outcome", zap.String("task_id", o.TaskID))
		return nil, nil
	}
	cancelled := s.cancelled
	s.task = nil
	s.inProgress = false
	s.cancelled = false
	fields := []zap.Field{
		zap.String("task_id", o.TaskID),
		zap.String("fetcher", o.FetcherName),
		zap.String("identifier", o.Identifier),
		zap.Duration("elapsed", o.Elapsed),
	}
	if cancelled && o.State != lookup.Cancelled {
		s.log.Info("lookup cancelled", append(fields, zap.String("discarded", o.State.String()))...)
		return nil, nil
	}

	switch o.State {
	case lookup.Succeeded:
		if o.Entry == nil {
			s.log.Warn("lookup returned no usable entry", fields...)
			s.notifier.TaskSucceeded(nil)
			return nil, nil
		}
		e := o.Entry.Clone()
		rep, err := s.importer.ImportWithDuplicateCheck(ctx, s.target, e)
		if err != nil && rep.Path == "" {
			s.log.Error("import failed", append(fields, zap.Error(err))...)
			return nil, fmt.Errorf("import %s: %w", o.Identifier, err)
		}
		s.finished = true
		if err != nil {
			// stored, but a later step (mirror, commit) failed
			s.log.Warn("entry stored, follow-up failed", append(fields,
				zap.String("path", rep.Path),
				zap.Error(err),
			)...)
			s.notifier.TaskSucceeded(&e)
			return &Result{Entry: e, Report: rep}, fmt.Errorf("import %s: %w", o.Identifier, err)
		}
		s.log.Info("lookup imported", append(fields,
			zap.String("action", string(rep.Action)),
			zap.String("entry_id", rep.ID),
		)...)
		s.notifier.TaskSucceeded(&e)
		return &Result{Entry: e, Report: rep}, nil
	case lookup.Failed:
		kind, msg := fetcher.KindUnknown, ""
		if o.Failure != nil {
			kind, msg = o.Failure.Kind, o.Failure.Message
		}
		s.log.Error("lookup failed", append(fields,
			zap.String("kind", kind.String()),
			zap.String("error", msg),
		)...)
		s.notifier.TaskFailed(kind, msg)
	case lookup.Cancelled:
		s.log.Info("lookup cancelled", fields...)
	}
	return nil, nil
}

// Await blocks until task delivers its outcome and completes it. If ctx ends
// first the task is cancelled and its outcome still awaited.
func (s *Session) Await(ctx context.Context, task *lookup.Task) (*Result, error) {
	var o lookup.Outcome
	select {
	case o = <-task.Done():
	case <-ctx.Done():
		if task == s.task {
			s.Cancel()
		} else {
			task.Cancel()
		}
		o = <-task.Done()
	}
	return s.Complete(context.WithoutCancel(ctx), o)
}

// CreateEntry completes the create-entry approach: an empty entry of type t
// is imported and t is remembered for instant creation.
func (s *Session) CreateEntry(ctx context.Context, t schema.EntryType) (*Result, error) {
	if !t.Known() {
		return nil, invalid(ErrUnknownType, string(t))
	}
	s.picked = t
	s.prefs.LastInstantType = t
	if err := s.persist(); err != nil {
		s.log.Warn("could not persist last instant type", zap.Error(err))
	}
	e := schema.New(t)
	rep, err := s.importer.ImportWithDuplicateCheck(ctx, s.target, e)
	if err != nil && rep.Path == "" {
		return nil, fmt.Errorf("import new %s: %w", t, err)
	}
	s.finished = true
	if err != nil {
		s.log.Warn("entry stored, follow-up failed", zap.String("path", rep.Path), zap.Error(err))
		return &Result{Entry: e, Report: rep}, fmt.Errorf("import new %s: %w", t, err)
	}
	s.log.Info("entry created", zap.String("type", string(t)), zap.String("entry_id", rep.ID))
	return &Result{Entry: e, Report: rep}, nil
}

// InstantEntry creates an entry of the last used type without switching
// approach.
func (s *Session) InstantEntry(ctx context.Context) (*Result, error) {
	t := s.prefs.LastInstantType
	if !t.Known() {
		t = prefs.DefaultLastInstantType
	}
	return s.CreateEntry(ctx, t)
}

// Generate runs the active text-based approach (citation interpretation or
// format parsing) and imports every entry it yields.
func (s *Session) Generate(ctx context.Context, text string) ([]Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid(ErrBlankInput, "")
	}
	var (
		entries []schema.Entry
		err     error
	)
	switch {
	case s.approach == InterpretCitations && s.interp != nil:
		entries, err = s.interp.Interpret(ctx, text)
	case s.approach == SpecifyFormat && s.parser != nil:
		entries, err = s.parser.Parse(ctx, text)
	default:
		return nil, invalid(ErrApproachUnavailable, string(s.approach))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.approach, err)
	}
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		rep, err := s.importer.ImportWithDuplicateCheck(ctx, s.target, e)
		if err != nil {
			return results, fmt.Errorf("import %q: %w", e.APA7.Title, err)
		}
		results = append(results, Result{Entry: e, Report: rep})
		s.finished = true
	}
	s.log.Info("entries generated", zap.String("approach", string(s.approach)), zap.Int("count", len(results)))
	return results, nil
}

// Close cancels an outstanding lookup and persists the final state.
func (s *Session) Close() error {
	if s.task != nil && s.Cancel() {
		s.log.Info("lookup cancelled on close", zap.String("task_id", s.task.ID))
	}
	return s.persist()
}

func (s *Session) persist() error {
	s.prefs.Approach = string(s.approach)
	if err := s.store.Save(s.prefs); err != nil {
		s.log.Warn("could not save preferences", zap.Error(err))
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) TaskStarted(string, string) {}
func (nopNotifier) TaskSucceeded(*schema.Entry) {}
func (nopNotifier) TaskFailed(fetcher.Kind, string) {}
