package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ELITR/alignmeet/internal/model"
)

// ReadMinutes turns every line, blank ones included, into a minute.
func ReadMinutes(r io.Reader, reg *model.Registry) ([]*model.Minute, error) {
	var minutes []*model.Minute
	scanner := newScanner(r)
	for scanner.Scan() {
		minutes = append(minutes, model.NewMinute(reg, strings.TrimRight(scanner.Text(), "\r")))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read minutes: %w", err)
	}
	return minutes, nil
}

// WriteMinutes writes one line per minute. Line breaks inside a minute are
// written as spaces.
func WriteMinutes(w io.Writer, minutes []*model.Minute) error {
	bw := bufio.NewWriter(w)
	for _, m := range minutes {
		bw.WriteString(model.CleanLine(m.Text))
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write minutes: %w", err)
	}
	return nil
}
