// Package codec reads and writes the plain-text files of an annotated meeting:
// transcript, minutes, alignment links and evaluation scores.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ELITR/alignmeet/internal/model"
)

// Separator splits the fields of transcript and evaluation lines.
const Separator = "^"

// ErrMalformed is wrapped by errors for lines that cannot be parsed.
var ErrMalformed = errors.New("malformed line")

const maxLineSize = 1024 * 1024

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

// ReadTranscript parses "text^speaker^start^end" lines. Lines without any
// letter are noise and skipped. Missing trailing fields take their defaults.
func ReadTranscript(r io.Reader, reg *model.Registry) ([]*model.DialogAct, error) {
	var acts []*model.DialogAct
	scanner := newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if !model.HasLetter(line) {
			continue
		}
		fields := strings.Split(line, Separator)
		if len(fields) > 4 {
			return nil, fmt.Errorf("line %d: %d fields: %w", lineNo, len(fields), ErrMalformed)
		}
		var speaker string
		start, end := model.NoTime, model.NoTime
		if len(fields) > 1 {
			speaker = fields[1]
		}
		var err error
		if len(fields) > 2 {
			if start, err = parseTime(fields[2]); err != nil {
				return nil, fmt.Errorf("line %d: parse start: %w", lineNo, err)
			}
		}
		if len(fields) > 3 {
			if end, err = parseTime(fields[3]); err != nil {
				return nil, fmt.Errorf("line %d: parse end: %w", lineNo, err)
			}
		}
		acts = append(acts, model.NewDialogAct(reg, fields[0], speaker, start, end))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return acts, nil
}

// WriteTranscript writes one line per act, folding the speaker into a
// "(speaker)" prefix. Timed acts get "^^start^end" appended. Separators and
// line breaks inside the fields are written as spaces.
func WriteTranscript(w io.Writer, acts []*model.DialogAct) error {
	bw := bufio.NewWriter(w)
	for _, da := range acts {
		if speaker := model.CleanSpeaker(da.Speaker); speaker != "" {
			bw.WriteString("(" + speaker + ")")
		}
		bw.WriteString(model.CleanText(da.Text))
		if da.TimeValid() {
			bw.WriteString(Separator + Separator + FormatFloat(da.Start) + Separator + FormatFloat(da.End))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// FormatFloat renders v so that whole numbers keep a ".0" suffix, matching the
// files produced by earlier versions of the tool.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func parseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.NoTime, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrMalformed)
	}
	return v, nil
}
