package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ELITR/alignmeet/internal/model"
)

const (
	noneRef      = "None"
	tentative    = "?"
	customPrefix = "0:"
)

// Link is one line of an alignment file. Index and Minute are 0-based; Minute
// is -1 when the act is not linked.
type Link struct {
	Index   int
	Minute  int
	Final   bool
	Problem model.Problem
}

// Linked reports whether the line references a minute.
func (l Link) Linked() bool { return l.Minute >= 0 }

// FormatLink renders "<idx> <minute-ref><final-mark> <problem>" with 1-based
// indices.
func FormatLink(l Link) string {
	ref := noneRef
	if l.Linked() {
		ref = strconv.Itoa(l.Minute + 1)
		if !l.Final {
			ref += tentative
		}
	}
	return fmt.Sprintf("%d %s %s", l.Index+1, ref, formatProblem(l.Problem))
}

func formatProblem(p model.Problem) string {
	switch p.Kind() {
	case model.ProblemStandard:
		return strconv.Itoa(p.Index() + 1)
	case model.ProblemCustom:
		return customPrefix + p.Text()
	}
	return noneRef
}

// ParseLink parses one alignment line. A minute reference that is not a
// positive integer reads as unlinked.
func ParseLink(line string) (Link, error) {
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(fields) < 2 {
		return Link{}, fmt.Errorf("%q: %w", line, ErrMalformed)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || idx < 1 {
		return Link{}, fmt.Errorf("index %q: %w", fields[0], ErrMalformed)
	}

	l := Link{Index: idx - 1, Minute: -1}
	ref := strings.TrimSpace(fields[1])
	final := !strings.HasSuffix(ref, tentative)
	ref = strings.TrimSuffix(ref, tentative)
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 {
		l.Minute = n - 1
		l.Final = final
	}
	if len(fields) == 3 {
		l.Problem = parseProblem(fields[2])
	}
	return l, nil
}

func parseProblem(s string) model.Problem {
	if strings.HasPrefix(s, customPrefix) {
		return model.CustomProblem(s[len(customPrefix):])
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 1 {
		return model.StandardProblem(n - 1)
	}
	return model.NoProblem()
}

// ReadLinks parses an alignment file. Unparsable lines are skipped; the
// returned count says how many were dropped.
func ReadLinks(r io.Reader) ([]Link, int, error) {
	var links []Link
	skipped := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		l, err := ParseLink(line)
		if err != nil {
			skipped++
			continue
		}
		links = append(links, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read links: %w", err)
	}
	return links, skipped, nil
}

// WriteLinks writes the given lines in order.
func WriteLinks(w io.Writer, links []Link) error {
	bw := bufio.NewWriter(w)
	for _, l := range links {
		bw.WriteString(FormatLink(l))
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write links: %w", err)
	}
	return nil
}

// LinksFromProposals turns an alignment proposal array (1-based minute refs,
// 0 for none) into link lines, omitting unlinked acts.
func LinksFromProposals(proposals []int, final bool) []Link {
	var links []Link
	for i, p := range proposals {
		if p <= 0 {
			continue
		}
		links = append(links, Link{Index: i, Minute: p - 1, Final: final})
	}
	return links
}
