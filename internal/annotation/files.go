package annotation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/model"
)

// OpenTranscript loads the named transcript, then re-applies the saved
// alignment and evaluation for the current minutes.
func (d *Document) OpenTranscript(name string) error {
	if d.modified {
		return &ConflictError{Op: "open transcript"}
	}
	path := d.layout.TranscriptPath(name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	acts, err := codec.ReadTranscript(f, d.reg)
	if err != nil {
		return fmt.Errorf("open transcript %s: %w", name, err)
	}

	d.acts = acts
	d.transcriptFile = name
	d.selectedActs = nil
	d.loadAnnotations()
	d.history.Clear()
	d.log.Info().Str("file", name).Int("acts", len(acts)).Msg("transcript opened")
	d.notify(EventTranscript)
	d.setModified(false)
	return nil
}

// OpenMinutes loads the named minutes file. A file that cannot be read gives
// an empty minutes list rather than an error.
func (d *Document) OpenMinutes(name string) error {
	if d.modified {
		return &ConflictError{Op: "open minutes"}
	}
	minutes, err := d.readMinutes(d.layout.MinutesPath(name))
	if err != nil {
		d.log.Warn().Err(err).Str("file", name).Msg("minutes unreadable, starting empty")
		minutes = nil
	}

	d.minutes = minutes
	d.minutesFile = name
	d.reindex()
	d.selectedMinutes = nil
	d.loadAnnotations()
	d.history.Clear()
	d.log.Info().Str("file", name).Int("minutes", len(minutes)).Msg("minutes opened")
	d.notify(EventMinutes)
	d.setModified(false)
	return nil
}

func (d *Document) readMinutes(path string) ([]*model.Minute, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return codec.ReadMinutes(f, d.reg)
}

// loadAnnotations resets every link and score, then applies the saved link
// and evaluation files of the open pair, if any.
func (d *Document) loadAnnotations() {
	for _, da := range d.acts {
		da.Minute, da.Problem, da.Final = nil, model.NoProblem(), false
	}
	d.scores = model.DefaultScores()
	for _, m := range d.minutes {
		m.Scores = model.DefaultScores()
	}
	if d.transcriptFile == "" || d.minutesFile == "" {
		return
	}
	d.loadLinks(d.layout.LinkPath(d.transcriptFile, d.minutesFile))
	d.loadEvaluation(d.layout.EvaluationPath(d.transcriptFile, d.minutesFile))
}

func (d *Document) loadLinks(path string) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.log.Warn().Err(err).Str("path", path).Msg("cannot read alignment")
		}
		return
	}
	defer f.Close()
	links, skipped, err := codec.ReadLinks(f)
	if err != nil {
		d.log.Warn().Err(err).Str("path", path).Msg("alignment read failed")
	}
	if skipped > 0 {
		d.log.Warn().Int("skipped", skipped).Str("path", path).Msg("skipped malformed alignment lines")
	}
	for _, l := range links {
		if l.Index >= len(d.acts) {
			continue
		}
		da := d.acts[l.Index]
		da.Problem = l.Problem
		if l.Linked() && l.Minute < len(d.minutes) {
			da.Minute, da.Final = d.minutes[l.Minute], l.Final
		}
	}
}

func (d *Document) loadEvaluation(path string) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.log.Warn().Err(err).Str("path", path).Msg("cannot read evaluation")
		}
		return
	}
	defer f.Close()
	ev, err := codec.ReadEvaluation(f)
	if err != nil {
		d.log.Warn().Err(err).Str("path", path).Msg("evaluation read failed")
		return
	}
	d.scores = ev.Document.Clamp()
	for i, s := range ev.Minutes {
		if i >= len(d.minutes) {
			break
		}
		if s != nil {
			d.minutes[i].Scores = s.Clamp()
		}
	}
}

// Evaluation returns the scores as they would be saved. Minutes no act links
// to have undefined scores.
func (d *Document) Evaluation() codec.Evaluation {
	linked := make(map[*model.Minute]bool)
	for _, da := range d.acts {
		if da.Minute != nil {
			linked[da.Minute] = true
		}
	}
	ev := codec.Evaluation{Document: d.scores, Minutes: make([]*model.Scores, len(d.minutes))}
	for i, m := range d.minutes {
		if linked[m] {
			s := m.Scores
			ev.Minutes[i] = &s
		}
	}
	return ev
}

// Save writes the alignment, evaluation, minutes and transcript files in
// that order. On failure the document stays modified.
func (d *Document) Save() error {
	if d.transcriptFile == "" || d.minutesFile == "" {
		return ErrNoFiles
	}
	links := d.Links()
	ev := d.Evaluation()
	steps := []struct {
		path  string
		write func(f *os.File) error
	}{
		{d.layout.LinkPath(d.transcriptFile, d.minutesFile), func(f *os.File) error { return codec.WriteLinks(f, links) }},
		{d.layout.EvaluationPath(d.transcriptFile, d.minutesFile), func(f *os.File) error { return codec.WriteEvaluation(f, ev) }},
		{d.layout.MinutesPath(d.minutesFile), func(f *os.File) error { return codec.WriteMinutes(f, d.minutes) }},
		{d.layout.TranscriptPath(d.transcriptFile), func(f *os.File) error { return codec.WriteTranscript(f, d.acts) }},
	}
	for _, s := range steps {
		if err := codec.WriteFileAtomic(s.path, s.write); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	d.log.Info().Str("transcript", d.transcriptFile).Str("minutes", d.minutesFile).Int("links", len(links)).Msg("saved")
	d.setModified(false)
	return nil
}
