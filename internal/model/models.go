// Package model defines the entities of an annotated meeting: transcript dialog
// acts, minutes lines and the links between them.
package model

import (
	"regexp"
	"strings"
)

// NoTime marks a dialog act without timing information.
const NoTime = -1.0

// Vector is a sentence embedding.
type Vector []float32

// Kind distinguishes the two source documents of a meeting.
type Kind int

const (
	KindTranscript Kind = iota
	KindMinutes
)

func (k Kind) String() string {
	switch k {
	case KindTranscript:
		return "transcript"
	case KindMinutes:
		return "minutes"
	}
	return "unknown"
}

// Scores holds the four evaluation dimensions, each in [MinScore, MaxScore].
type Scores struct {
	Adequacy       float64
	Grammaticality float64
	Fluency        float64
	Relevance      float64
}

const (
	MinScore = 1.0
	MaxScore = 5.0
)

// DefaultScores returns the lowest score on every dimension.
func DefaultScores() Scores {
	return Scores{Adequacy: MinScore, Grammaticality: MinScore, Fluency: MinScore, Relevance: MinScore}
}

// Clamp limits every dimension to the valid score range.
func (s Scores) Clamp() Scores {
	return Scores{
		Adequacy:       clamp(s.Adequacy),
		Grammaticality: clamp(s.Grammaticality),
		Fluency:        clamp(s.Fluency),
		Relevance:      clamp(s.Relevance),
	}
}

func clamp(v float64) float64 {
	return min(MaxScore, max(MinScore, v))
}

// Minute is one line of the summary document.
type Minute struct {
	id        int
	Text      string
	Scores    Scores
	Embedding Vector
}

// NewMinute creates a minute with a fresh id issued by reg.
func NewMinute(reg *Registry, text string) *Minute {
	return &Minute{id: reg.NextMinuteID(), Text: text, Scores: DefaultScores()}
}

// NewMinuteWithID creates a minute with a caller-chosen id and raises the
// registry high-water mark so later ids never collide with it.
func NewMinuteWithID(reg *Registry, id int, text string) *Minute {
	reg.ObserveMinuteID(id)
	return &Minute{id: id, Text: text, Scores: DefaultScores()}
}

// ID returns the process-unique identity of the minute.
func (m *Minute) ID() int { return m.id }

// DialogAct is one segment of the transcript.
type DialogAct struct {
	Text    string
	Speaker string
	Start   float64
	End     float64
	Minute  *Minute
	Problem Problem
	// Final is false while Minute is an unconfirmed machine suggestion.
	Final     bool
	Embedding Vector
}

var speakerPrefix = regexp.MustCompile(`^\s*\(([^)]+)\)`)

// NewDialogAct creates a dialog act. When speaker is empty and text starts with
// a "(Name)" prefix, the name is moved into the speaker field.
func NewDialogAct(reg *Registry, text, speaker string, start, end float64) *DialogAct {
	if speaker == "" {
		if loc := speakerPrefix.FindStringSubmatchIndex(text); loc != nil {
			speaker = text[loc[2]:loc[3]]
			text = strings.TrimLeft(text[loc[1]:], " \t")
		}
	}
	reg.AddSpeaker(speaker)
	return &DialogAct{Text: text, Speaker: speaker, Start: start, End: end}
}

// TimeValid reports whether both timestamps are present.
func (d *DialogAct) TimeValid() bool {
	return d.Start > NoTime && d.End > NoTime
}

// Clone returns a copy carrying the same speaker, timing and annotation but
// no embedding, since the copy's text is expected to change.
func (d *DialogAct) Clone() *DialogAct {
	c := *d
	c.Embedding = nil
	return &c
}
