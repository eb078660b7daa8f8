// Package annotation holds the open meeting: its transcript, minutes, the
// links between them, evaluation scores and the undo history of every edit.
package annotation

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/history"
	"github.com/ELITR/alignmeet/internal/model"
)

// ErrUnsaved is matched by ConflictError.
var ErrUnsaved = errors.New("unsaved changes")

// ErrNoLetters rejects an edit that would leave a dialog act without any
// letter, since such a line is skipped when the transcript is read back.
var ErrNoLetters = errors.New("dialog act needs at least one letter")

// ErrNoFiles is returned by Save when a transcript or minutes file is not open.
var ErrNoFiles = errors.New("transcript and minutes must both be open")

// ConflictError rejects an operation that would discard unsaved changes.
type ConflictError struct {
	Op string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: save or discard changes first", e.Op)
}

func (e *ConflictError) Is(target error) bool { return target == ErrUnsaved }

// EventKind says what part of the document changed.
type EventKind int

const (
	EventModified EventKind = iota
	EventPath
	EventTranscript
	EventMinutes
	EventEmbeddings
)

func (k EventKind) String() string {
	switch k {
	case EventModified:
		return "modified"
	case EventPath:
		return "path"
	case EventTranscript:
		return "transcript"
	case EventMinutes:
		return "minutes"
	case EventEmbeddings:
		return "embeddings"
	}
	return "unknown"
}

// Event is delivered to listeners after a mutation.
type Event struct {
	Kind     EventKind
	Modified bool
}

// Listener observes a document. It is called synchronously.
type Listener interface {
	DocumentChanged(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) DocumentChanged(ev Event) { f(ev) }

// Options configures a new Document.
type Options struct {
	// Indent is the marker added or removed by Indent. Defaults to "-".
	Indent string
	Logger *zerolog.Logger
}

// Document is the aggregate root of one annotated meeting. It is not safe for
// concurrent use; background work must hand results back to the owner.
type Document struct {
	reg    *model.Registry
	log    zerolog.Logger
	indent string

	root            string
	layout          codec.Layout
	transcriptFile  string
	minutesFile     string
	transcriptFiles []string
	minutesFiles    []string

	acts     []*model.DialogAct
	minutes  []*model.Minute
	position map[*model.Minute]int

	scores   model.Scores
	modified bool

	selectedActs    []int
	selectedMinutes []int

	history   history.Stack
	listeners []Listener
}

// New returns an empty, unmodified document.
func New(opts Options) *Document {
	d := &Document{
		reg:      model.NewRegistry(),
		log:      zerolog.Nop(),
		indent:   opts.Indent,
		position: make(map[*model.Minute]int),
		scores:   model.DefaultScores(),
	}
	if d.indent == "" {
		d.indent = "-"
	}
	if opts.Logger != nil {
		d.log = opts.Logger.With().Str("component", "document").Logger()
	}
	return d
}

// Subscribe registers l for change events.
func (d *Document) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Document) notify(kind EventKind) {
	ev := Event{Kind: kind, Modified: d.modified}
	for _, l := range d.listeners {
		l.DocumentChanged(ev)
	}
}

func (d *Document) setModified(v bool) {
	if d.modified == v {
		return
	}
	d.modified = v
	d.notify(EventModified)
}

// touch marks the document modified after a change of the given kind.
func (d *Document) touch(kind EventKind) {
	d.setModified(true)
	d.notify(kind)
}

func (d *Document) Registry() *model.Registry { return d.reg }
func (d *Document) Modified() bool            { return d.modified }
func (d *Document) Root() string              { return d.root }
func (d *Document) Layout() codec.Layout      { return d.layout }
func (d *Document) TranscriptFile() string    { return d.transcriptFile }
func (d *Document) MinutesFile() string       { return d.minutesFile }

// TranscriptFiles lists the transcript candidates found by the last refresh.
func (d *Document) TranscriptFiles() []string { return slices.Clone(d.transcriptFiles) }

// MinutesFiles lists the minutes candidates found by the last refresh.
func (d *Document) MinutesFiles() []string { return slices.Clone(d.minutesFiles) }

func (d *Document) ActCount() int              { return len(d.acts) }
func (d *Document) Act(i int) *model.DialogAct { return d.acts[i] }
func (d *Document) Acts() []*model.DialogAct   { return slices.Clone(d.acts) }
func (d *Document) MinuteCount() int           { return len(d.minutes) }
func (d *Document) Minute(i int) *model.Minute { return d.minutes[i] }
func (d *Document) Minutes() []*model.Minute   { return slices.Clone(d.minutes) }

// Position returns the 0-based position of m, or -1 if m is not in the
// document.
func (d *Document) Position(m *model.Minute) int {
	if m == nil {
		return -1
	}
	if i, ok := d.position[m]; ok {
		return i
	}
	return -1
}

func (d *Document) reindex() {
	clear(d.position)
	for i, m := range d.minutes {
		d.position[m] = i
	}
}

// InsertDialogAct inserts da before row i.
func (d *Document) InsertDialogAct(i int, da *model.DialogAct) {
	d.acts = slices.Insert(d.acts, i, da)
	d.selectedActs = nil
	d.touch(EventTranscript)
}

// RemoveDialogActs removes count acts starting at row i and returns them.
func (d *Document) RemoveDialogActs(i, count int) []*model.DialogAct {
	removed := slices.Clone(d.acts[i : i+count])
	d.acts = slices.Delete(d.acts, i, i+count)
	d.selectedActs = nil
	d.touch(EventTranscript)
	return removed
}

// InsertMinute inserts m before position i.
func (d *Document) InsertMinute(i int, m *model.Minute) {
	d.minutes = slices.Insert(d.minutes, i, m)
	d.reindex()
	d.selectedMinutes = nil
	d.touch(EventMinutes)
}

// RemoveMinutes removes count minutes starting at position i. Every act
// linked to a removed minute is unlinked; those acts are returned.
func (d *Document) RemoveMinutes(i, count int) (removed []*model.Minute, detached []*model.DialogAct) {
	removed = slices.Clone(d.minutes[i : i+count])
	gone := make(map[*model.Minute]struct{}, len(removed))
	for _, m := range removed {
		gone[m] = struct{}{}
	}
	for _, da := range d.acts {
		if _, ok := gone[da.Minute]; ok && da.Minute != nil {
			detached = append(detached, da)
			da.Minute = nil
		}
	}
	d.minutes = slices.Delete(d.minutes, i, i+count)
	d.reindex()
	d.selectedMinutes = nil
	d.touch(EventMinutes)
	if len(detached) > 0 {
		d.notify(EventTranscript)
	}
	return removed, detached
}

// SelectActs replaces the transcript selection. Out of range rows are dropped.
func (d *Document) SelectActs(rows ...int) {
	d.selectedActs = normalizeRows(rows, len(d.acts))
}

// SelectMinutes replaces the minutes selection.
func (d *Document) SelectMinutes(rows ...int) {
	d.selectedMinutes = normalizeRows(rows, len(d.minutes))
}

func (d *Document) SelectedActs() []int    { return slices.Clone(d.selectedActs) }
func (d *Document) SelectedMinutes() []int { return slices.Clone(d.selectedMinutes) }

func normalizeRows(rows []int, n int) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		if r >= 0 && r < n {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (d *Document) actsAt(rows []int) []*model.DialogAct {
	out := make([]*model.DialogAct, 0, len(rows))
	for _, r := range rows {
		out = append(out, d.acts[r])
	}
	return out
}

// Execute applies cmd and records it for undo.
func (d *Document) Execute(cmd history.Command) {
	d.history.Push(cmd)
	d.log.Debug().Str("command", cmd.Label()).Msg("executed")
}

func (d *Document) Undo() bool        { return d.history.Undo() }
func (d *Document) Redo() bool        { return d.history.Redo() }
func (d *Document) CanUndo() bool     { return d.history.CanUndo() }
func (d *Document) CanRedo() bool     { return d.history.CanRedo() }
func (d *Document) UndoLabel() string { return d.history.UndoLabel() }
func (d *Document) RedoLabel() string { return d.history.RedoLabel() }

// Discard drops unsaved changes from consideration so the next open
// succeeds. The in-memory content is left as is.
func (d *Document) Discard() {
	d.setModified(false)
}

// SetRoot ties the document to a meeting directory and lists its files. The
// previously open content is dropped.
func (d *Document) SetRoot(dir string) error {
	if d.modified {
		return &ConflictError{Op: "open directory"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open directory: %s is not a directory", dir)
	}
	d.root = dir
	d.transcriptFile, d.minutesFile = "", ""
	d.acts, d.minutes = nil, nil
	d.reindex()
	d.selectedActs, d.selectedMinutes = nil, nil
	d.scores = model.DefaultScores()
	d.history.Clear()
	if err := d.Refresh(); err != nil {
		return err
	}
	d.notify(EventPath)
	return nil
}

// Refresh re-resolves the directory layout and file listings.
func (d *Document) Refresh() error {
	d.layout = codec.Resolve(d.root)
	t, err := d.layout.TranscriptFiles()
	if err != nil {
		return err
	}
	m, err := d.layout.MinutesFiles()
	if err != nil {
		return err
	}
	d.transcriptFiles, d.minutesFiles = t, m
	return nil
}

// SourcePath returns the full path of the open file of the given kind, or ""
// if none is open.
func (d *Document) SourcePath(kind model.Kind) string {
	switch kind {
	case model.KindTranscript:
		if d.transcriptFile != "" {
			return d.layout.TranscriptPath(d.transcriptFile)
		}
	case model.KindMinutes:
		if d.minutesFile != "" {
			return d.layout.MinutesPath(d.minutesFile)
		}
	}
	return ""
}

// Texts returns the current lines of the given kind, as fed to an embedder.
func (d *Document) Texts(kind model.Kind) []string {
	if kind == model.KindMinutes {
		out := make([]string, len(d.minutes))
		for i, m := range d.minutes {
			out[i] = m.Text
		}
		return out
	}
	out := make([]string, len(d.acts))
	for i, da := range d.acts {
		out[i] = da.Text
	}
	return out
}

// DocumentScores returns the document-level evaluation.
func (d *Document) DocumentScores() model.Scores { return d.scores }

// SetDocumentScores stores s clamped to the valid range.
func (d *Document) SetDocumentScores(s model.Scores) {
	s = s.Clamp()
	if s == d.scores {
		return
	}
	d.scores = s
	d.setModified(true)
}

// SetMinuteScores stores s for the minute at position i.
func (d *Document) SetMinuteScores(i int, s model.Scores) {
	s = s.Clamp()
	m := d.minutes[i]
	if m.Scores == s {
		return
	}
	m.Scores = s
	d.touch(EventMinutes)
}

// Linked reports whether any act links to m.
func (d *Document) Linked(m *model.Minute) bool {
	for _, da := range d.acts {
		if da.Minute == m {
			return true
		}
	}
	return false
}

// Problems lists the standard taxonomy followed by every custom problem in
// use, in order of first appearance.
func (d *Document) Problems() []model.Problem {
	out := make([]model.Problem, 0, len(model.Taxonomy))
	for i := range model.Taxonomy {
		out = append(out, model.StandardProblem(i))
	}
	seen := make(map[string]struct{})
	for _, da := range d.acts {
		if da.Problem.Kind() != model.ProblemCustom {
			continue
		}
		if _, ok := seen[da.Problem.Text()]; ok {
			continue
		}
		seen[da.Problem.Text()] = struct{}{}
		out = append(out, da.Problem)
	}
	return out
}
