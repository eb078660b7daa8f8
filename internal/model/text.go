package model

import (
	"strings"
	"unicode"
)

var (
	lineReplacer    = strings.NewReplacer("\r", " ", "\n", " ")
	fieldReplacer   = strings.NewReplacer("^", " ", "\r", " ", "\n", " ")
	speakerReplacer = strings.NewReplacer("^", " ", "\r", " ", "\n", " ", "(", "", ")", "")
)

// CleanLine replaces line breaks, which would split one minute into several.
func CleanLine(s string) string { return lineReplacer.Replace(s) }

// CleanText replaces the characters that would split a transcript line into
// extra fields or lines.
func CleanText(s string) string { return fieldReplacer.Replace(s) }

// CleanSpeaker is CleanText that also drops parentheses, since the speaker is
// stored as a "(speaker)" prefix.
func CleanSpeaker(s string) string { return strings.TrimSpace(speakerReplacer.Replace(s)) }

// HasLetter reports whether s contains at least one letter. Transcript lines
// without one are skipped when read.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Blank reports whether the act would be written as a line without letters.
func (d *DialogAct) Blank() bool {
	return !HasLetter(d.Speaker) && !HasLetter(d.Text)
}
