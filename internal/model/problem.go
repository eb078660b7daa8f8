package model

import "fmt"

// Taxonomy is the closed list of standard problem categories.
var Taxonomy = []string{
	"Organizational",
	"Speech incomprehensible",
	"See separate comment",
	"Small talk",
	"Censored",
}

// ProblemKind tags the variant held by a Problem.
type ProblemKind int

const (
	ProblemNone ProblemKind = iota
	ProblemStandard
	ProblemCustom
)

// Problem annotates a dialog act with a quality issue. The zero value is no
// problem. Problems are comparable with ==.
type Problem struct {
	kind  ProblemKind
	index int
	text  string
}

// NoProblem returns the empty annotation.
func NoProblem() Problem { return Problem{} }

// StandardProblem refers to Taxonomy[index].
func StandardProblem(index int) Problem {
	return Problem{kind: ProblemStandard, index: index}
}

// CustomProblem is a free-text, user-defined category.
func CustomProblem(text string) Problem {
	return Problem{kind: ProblemCustom, text: text}
}

func (p Problem) Kind() ProblemKind { return p.kind }
func (p Problem) Index() int        { return p.index }
func (p Problem) Text() string      { return p.text }
func (p Problem) IsNone() bool      { return p.kind == ProblemNone }

// Label returns the human readable category name.
func (p Problem) Label() string {
	switch p.kind {
	case ProblemStandard:
		if p.index >= 0 && p.index < len(Taxonomy) {
			return Taxonomy[p.index]
		}
		return fmt.Sprintf("problem %d", p.index+1)
	case ProblemCustom:
		return p.text
	}
	return ""
}

func (p Problem) String() string {
	switch p.kind {
	case ProblemStandard:
		return fmt.Sprintf("Standard(%d)", p.index)
	case ProblemCustom:
		return fmt.Sprintf("Custom(%q)", p.text)
	}
	return "None"
}
