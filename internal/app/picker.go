package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ELITR/alignmeet/internal/model"
	"github.com/ELITR/alignmeet/internal/ui"
)

// picker lists the transcript or minutes files of the meeting directory.
type picker struct {
	kind   model.Kind
	files  []string
	cursor int
}

func (m Model) openPicker(kind model.Kind) (Model, tea.Cmd) {
	if err := m.doc.Refresh(); err != nil {
		return m, m.fail(err)
	}
	files, current := m.doc.TranscriptFiles(), m.doc.TranscriptFile()
	if kind == model.KindMinutes {
		files, current = m.doc.MinutesFiles(), m.doc.MinutesFile()
	}
	if len(files) == 0 {
		return m, m.transientError(fmt.Sprintf("no %s files in %s", kind, m.doc.Root()))
	}
	p := picker{kind: kind, files: files}
	for i, f := range files {
		if f == current {
			p.cursor = i
		}
	}
	m.picker = p
	m.mode = modePicker
	return m, nil
}

func (m Model) handlePicker(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		m.picker.cursor = min(len(m.picker.files)-1, m.picker.cursor+1)
	case KeyK, KeyUp:
		m.picker.cursor = max(0, m.picker.cursor-1)
	case KeyEsc, KeyQuit:
		m.mode = modeNormal
	case KeyEnter:
		m.mode = modeNormal
		return m.openFile(m.picker.kind, m.picker.files[m.picker.cursor])
	}
	return m, nil
}

// openFile replaces the open file of kind. The document refuses while it has
// unsaved changes.
func (m Model) openFile(kind model.Kind, name string) (Model, tea.Cmd) {
	var err error
	if kind == model.KindMinutes {
		err = m.doc.OpenMinutes(name)
	} else {
		err = m.doc.OpenTranscript(name)
	}
	if err != nil {
		return m, m.fail(err)
	}

	m.minuteCursor, m.actCursor = 0, 0
	m.minuteScroll, m.actScroll = 0, 0
	m.markedActs, m.markedMins = nil, nil
	m.matches, m.matchIndex = nil, 0
	m.statusText = "opened " + name
	m.log.Info().Str("kind", kind.String()).Str("file", name).Msg("file opened")

	if m.opts.Service == nil {
		return m, nil
	}
	return m, m.requestEmbeddings()
}

func (m Model) renderPicker(width, height int) string {
	current := m.doc.TranscriptFile()
	if m.picker.kind == model.KindMinutes {
		current = m.doc.MinutesFile()
	}
	title := fmt.Sprintf("OPEN %s (%d)", strings.ToUpper(m.picker.kind.String()), len(m.picker.files))
	lines := []string{padRight(ui.PanelTitleActiveStyle.Render(title), width)}
	for i, f := range m.picker.files {
		prefix := "  "
		if i == m.picker.cursor {
			prefix = ui.CursorStyle.Render("> ")
		}
		name := f
		if f == current {
			name += ui.DimStyle.Render("  (open)")
		}
		lines = append(lines, prefix+name)
	}
	return strings.Join(fitLines(lines, width, height), "\n")
}

func (m Model) renderPickerFooter() string {
	return ui.FooterKeyStyle.Render("j/k") + ui.FooterDescStyle.Render(" Choose") + "  " +
		ui.FooterKeyStyle.Render("Enter") + ui.FooterDescStyle.Render(" Open") + "  " +
		ui.FooterKeyStyle.Render("Esc") + ui.FooterDescStyle.Render(" Cancel")
}
