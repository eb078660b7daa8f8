package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ELITR/alignmeet/internal/model"
)

const undefinedScore = "-1"

// Evaluation holds the document scores and one entry per minute. A nil entry
// means the minute was not linked when saved and its scores are undefined.
type Evaluation struct {
	Document model.Scores
	Minutes  []*model.Scores
}

// ReadEvaluation parses an evaluation file. A first line without a separator
// is a legacy adequacy-only value. Minute lines that do not parse, or carry a
// non-positive value, read as undefined.
func ReadEvaluation(r io.Reader) (Evaluation, error) {
	ev := Evaluation{Document: model.DefaultScores()}
	scanner := newScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			ev.Document = parseDocumentScores(line)
			continue
		}
		ev.Minutes = append(ev.Minutes, parseMinuteScores(line))
	}
	if err := scanner.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("read evaluation: %w", err)
	}
	return ev, nil
}

func parseDocumentScores(line string) model.Scores {
	s := model.DefaultScores()
	if !strings.Contains(line, Separator) {
		if v, err := strconv.ParseFloat(line, 64); err == nil {
			s.Adequacy = v
		}
		return s
	}
	values, ok := parseFloats(line)
	if !ok {
		return s
	}
	dims := []*float64{&s.Adequacy, &s.Grammaticality, &s.Fluency, &s.Relevance}
	for i := 0; i < len(values) && i < len(dims); i++ {
		*dims[i] = values[i]
	}
	return s
}

func parseMinuteScores(line string) *model.Scores {
	values, ok := parseFloats(line)
	if !ok || len(values) < 3 {
		return nil
	}
	for _, v := range values {
		if v <= 0 {
			return nil
		}
	}
	s := model.DefaultScores()
	s.Adequacy, s.Grammaticality, s.Fluency = values[0], values[1], values[2]
	if len(values) > 3 {
		s.Relevance = values[3]
	}
	return &s
}

func parseFloats(line string) ([]float64, bool) {
	parts := strings.Split(line, Separator)
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// WriteEvaluation writes the document line followed by one line per minute.
func WriteEvaluation(w io.Writer, ev Evaluation) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(formatScores(ev.Document))
	bw.WriteByte('\n')
	for _, s := range ev.Minutes {
		if s == nil {
			bw.WriteString(strings.Join([]string{undefinedScore, undefinedScore, undefinedScore, undefinedScore}, Separator))
		} else {
			bw.WriteString(formatScores(*s))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write evaluation: %w", err)
	}
	return nil
}

func formatScores(s model.Scores) string {
	return strings.Join([]string{
		FormatFloat(s.Adequacy),
		FormatFloat(s.Grammaticality),
		FormatFloat(s.Fluency),
		FormatFloat(s.Relevance),
	}, Separator)
}
