package app

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/ELITR/alignmeet/internal/align"
	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/db"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/model"
	"github.com/ELITR/alignmeet/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusMinutes PanelFocus = iota
	FocusTranscript
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeEdit
	modeSpeaker
	modeProblem
	modeScores
	modePicker
)

var inputPrompts = map[inputMode]string{
	modeSearch:  "Search: ",
	modeEdit:    "Edit: ",
	modeSpeaker: "Speaker: ",
	modeProblem: "Problem: ",
	modeScores:  "Scores (A G F R): ",
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Options wires the model to its collaborators. Service and Store are
// optional.
type Options struct {
	Service   *embedding.Service
	Results   <-chan embedding.Result
	Store     *db.Store
	Threshold float64
	Final     bool
	Annotator string
	Logger    *zerolog.Logger
}

// Model is the root bubbletea model for the annotation TUI.
type Model struct {
	doc  *annotation.Document
	opts Options
	log  zerolog.Logger

	// Cursors and marks, as row indices
	minuteCursor int
	actCursor    int
	minuteScroll int
	actScroll    int
	markedActs   []int
	markedMins   []int

	// Text input; adding defers inserting a new row at addAt until the
	// edit is submitted
	mode     inputMode
	input    []rune
	inputPos int
	adding   bool
	addAt    int
	picker   picker

	// Search
	matches    []int
	matchIndex int

	// Embeddings
	spinning  bool
	spinFrame int

	// UI state
	focusedPanel PanelFocus
	width        int
	height       int
	quitArmed    bool

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string
}

// New creates a model over an already opened document.
func New(doc *annotation.Document, opts Options) Model {
	if opts.Threshold == 0 {
		opts.Threshold = align.DefaultThreshold
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "tui").Logger()
	}
	return Model{
		doc:          doc,
		opts:         opts,
		log:          log,
		focusedPanel: FocusTranscript,
	}
}

// Init loads or starts embeddings for the open files when a service is
// configured.
func (m Model) Init() tea.Cmd {
	if m.opts.Service == nil {
		return nil
	}
	return tea.Batch(requestEmbeddingsCmd(), waitForEmbeddingsCmd(m.opts.Results))
}

func requestEmbeddingsCmd() tea.Cmd {
	return func() tea.Msg { return requestEmbeddingsMsg{} }
}

// waitForEmbeddingsCmd reads the next finished computation. It is re-armed
// after every delivery.
func waitForEmbeddingsCmd(ch <-chan embedding.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return EmbeddingsMsg{Result: r}
	}
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.mode {
		case modeNormal:
			m, cmd = m.handleKey(msg)
		case modePicker:
			m, cmd = m.handlePicker(msg)
		default:
			m, cmd = m.handleInput(msg)
		}
		m.clampCursors()
		m.ensureVisible()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil

	case requestEmbeddingsMsg:
		return m, m.requestEmbeddings()

	case EmbeddingsMsg:
		r := msg.Result
		cmds := []tea.Cmd{waitForEmbeddingsCmd(m.opts.Results)}
		switch {
		case r.Err != nil:
			text := fmt.Sprintf("%s embeddings: %v", r.Kind, r.Err)
			if m.breakerOpen() {
				text += " (embedder paused)"
			}
			cmds = append(cmds, m.transientError(text))
		default:
			if err := m.doc.ApplyEmbeddings(r.Kind, r.Path, r.Vectors); err != nil {
				m.log.Debug().Err(err).Msg("dropped stale embeddings")
				break
			}
			m.statusText = fmt.Sprintf("%s embeddings ready", r.Kind)
		}
		return m, tea.Batch(cmds...)

	case SpinnerTickMsg:
		m.spinFrame++
		if m.embeddingsPending() {
			return m, spinnerTickCmd()
		}
		m.spinning = false
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// breakerOpen reports whether the embedder is rejecting calls after repeated
// failures.
func (m Model) breakerOpen() bool {
	if m.opts.Service == nil {
		return false
	}
	b, ok := m.opts.Service.Embedder().(interface{ BreakerState() string })
	return ok && b.BreakerState() == "open"
}

func (m *Model) transientError(text string) tea.Cmd {
	m.errorMessage = text
	m.errorTransient = true
	return clearTransientErrorCmd()
}

func (m *Model) fail(err error) tea.Cmd {
	m.log.Warn().Err(err).Msg("operation failed")
	return m.transientError(err.Error())
}

// requestEmbeddings attaches cached vectors where the cache is current and
// queues background computation for the rest.
func (m *Model) requestEmbeddings() tea.Cmd {
	svc := m.opts.Service
	if svc == nil {
		return m.transientError("no embedding provider configured")
	}
	for _, kind := range []model.Kind{model.KindMinutes, model.KindTranscript} {
		path := m.doc.SourcePath(kind)
		if path == "" || m.doc.HasEmbeddings(kind) {
			continue
		}
		texts := m.doc.Texts(kind)
		if vectors, err := svc.Load(path, texts); err == nil {
			if err := m.doc.ApplyEmbeddings(kind, path, vectors); err != nil {
				m.log.Warn().Err(err).Msg("cached embeddings rejected")
			}
			continue
		}
		svc.Request(kind, path, texts)
	}
	if m.spinning || !m.embeddingsPending() {
		return nil
	}
	m.spinning = true
	return spinnerTickCmd()
}

func (m Model) embeddingsPending() bool {
	svc := m.opts.Service
	return svc != nil && (svc.Pending(model.KindMinutes) || svc.Pending(model.KindTranscript))
}

// handleKey processes key presses in normal mode.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if key != KeyQuit {
		m.quitArmed = false
	}

	switch key {
	case KeyQuit:
		if m.doc.Modified() && !m.quitArmed {
			m.quitArmed = true
			return m, m.transientError("unsaved changes: press q again to quit, s to save")
		}
		return m, tea.Quit

	case KeyQuitForce, KeyCtrlC:
		return m, tea.Quit

	case KeyTab:
		if m.focusedPanel == FocusMinutes {
			m.focusedPanel = FocusTranscript
		} else {
			m.focusedPanel = FocusMinutes
		}

	case KeyJ, KeyDown:
		m.moveCursor(1)

	case KeyK, KeyUp:
		m.moveCursor(-1)

	case KeyPgDown:
		m.moveCursor(m.visibleRows())

	case KeyPgUp:
		m.moveCursor(-m.visibleRows())

	case KeySpace:
		if m.focusedPanel == FocusMinutes {
			m.markedMins = toggle(m.markedMins, m.minuteCursor, m.doc.MinuteCount())
		} else {
			m.markedActs = toggle(m.markedActs, m.actCursor, m.doc.ActCount())
		}

	case KeyEsc:
		m.markedActs, m.markedMins = nil, nil
		m.errorMessage = ""

	case KeyEnter:
		if m.doc.MinuteCount() == 0 {
			return m, nil
		}
		target := m.doc.Minute(m.minuteCursor)
		m.doc.SelectActs(m.targetActs()...)
		if m.doc.SetMinute(target) {
			m.statusText = fmt.Sprintf("linked %d act(s) to minute %d", len(m.doc.SelectedActs()), m.minuteCursor+1)
			m.markedActs = nil
		}

	case KeyUnlink:
		m.doc.SelectActs(m.targetActs()...)
		if m.doc.SetMinute(nil) {
			m.statusText = "unlinked"
			m.markedActs = nil
		}

	case KeyClearProblem, "1", "2", "3", "4", "5":
		p := model.NoProblem()
		if n, _ := strconv.Atoi(key); n > 0 {
			p = model.StandardProblem(n - 1)
		}
		m.doc.SelectActs(m.targetActs()...)
		m.doc.SetProblem(p)

	case KeyFinalize:
		m.doc.SelectActs(m.targetActs()...)
		if m.doc.FinalizeSelection() {
			m.statusText = "links confirmed"
			m.markedActs = nil
		}

	case KeyFinalizeAll:
		if m.doc.FinalizeAll() {
			m.statusText = "all links confirmed"
		}

	case KeyUndo:
		if !m.doc.CanUndo() {
			m.statusText = "nothing to undo"
			break
		}
		label := m.doc.UndoLabel()
		if m.doc.Undo() {
			m.statusText = "undo " + label
			m.markedActs, m.markedMins = nil, nil
		}

	case KeyRedo:
		if !m.doc.CanRedo() {
			m.statusText = "nothing to redo"
			break
		}
		label := m.doc.RedoLabel()
		if m.doc.Redo() {
			m.statusText = "redo " + label
			m.markedActs, m.markedMins = nil, nil
		}

	case KeySave:
		if err := m.doc.Save(); err != nil {
			return m, m.fail(err)
		}
		m.statusText = "saved"

	case KeyAutoAlign:
		if !m.doc.HasEmbeddings(model.KindMinutes) {
			cmd := m.requestEmbeddings()
			return m, tea.Batch(cmd, m.transientError("minutes embeddings not ready"))
		}
		n := m.doc.AutoAlign(m.opts.Threshold, align.Options{Final: m.opts.Final})
		m.statusText = fmt.Sprintf("auto-align changed %d act(s)", n)

	case KeyEmbed:
		return m, m.requestEmbeddings()

	case KeyExport:
		if m.opts.Store == nil {
			return m, m.transientError("no database configured")
		}
		id, err := m.opts.Store.ExportDocument(m.doc, m.opts.Annotator)
		if err != nil {
			return m, m.fail(err)
		}
		m.statusText = "exported " + id

	case KeySearch:
		m.startInput(modeSearch, "")

	case KeyNextMatch:
		if len(m.matches) > 0 {
			m.matchIndex = (m.matchIndex + 1) % len(m.matches)
			m.focusedPanel = FocusTranscript
			m.actCursor = m.matches[m.matchIndex]
		}

	case KeyEdit:
		if text, ok := m.cursorText(); ok {
			m.startInput(modeEdit, text)
		}

	case KeyAddBelow, KeyAddAbove:
		m.addRow(key == KeyAddBelow)

	case KeyOpenTranscript:
		return m.openPicker(model.KindTranscript)

	case KeyOpenMinutes:
		return m.openPicker(model.KindMinutes)

	case KeyDelete:
		if m.focusedPanel == FocusMinutes {
			if m.doc.MinuteCount() > 0 {
				m.doc.DeleteMinutes(m.minuteCursor, 1)
			}
		} else if m.doc.ActCount() > 0 {
			m.doc.DeleteDialogActs(m.actCursor, 1)
		}
		m.markedActs, m.markedMins = nil, nil

	case KeyJoinDown:
		if m.doc.JoinDown(m.focusedKind(), m.cursor()) {
			m.markedActs, m.markedMins = nil, nil
		}

	case KeyJoinUp:
		if m.doc.JoinUp(m.focusedKind(), m.cursor()) {
			m.setCursor(m.cursor() - 1)
			m.markedActs, m.markedMins = nil, nil
		}

	case KeyIndentRight, KeyIndentLeft:
		m.doc.SelectMinutes(m.targetMinutes()...)
		m.doc.Indent(key == KeyIndentLeft)

	case KeyExpandSpeak:
		if m.doc.ExpandSpeakers() {
			m.statusText = "speakers expanded"
		}

	case KeySpeaker:
		speaker := ""
		if m.doc.ActCount() > 0 {
			speaker = m.doc.Act(m.actCursor).Speaker
		}
		m.startInput(modeSpeaker, speaker)

	case KeyCustomProblem:
		m.startInput(modeProblem, "")

	case KeyScores:
		m.startInput(modeScores, formatScores(m.cursorScores()))
	}

	return m, nil
}

// handleInput edits the input line and submits it on enter.
func (m Model) handleInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == KeySplit {
		return m.submitInput(true)
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input = nil
		m.adding = false
	case tea.KeyEnter:
		return m.submitInput(false)
	case tea.KeyBackspace:
		if m.inputPos > 0 {
			m.input = slices.Delete(m.input, m.inputPos-1, m.inputPos)
			m.inputPos--
		}
	case tea.KeyLeft:
		m.inputPos = max(0, m.inputPos-1)
	case tea.KeyRight:
		m.inputPos = min(len(m.input), m.inputPos+1)
	case tea.KeySpace:
		m.insertRunes([]rune{' '})
	case tea.KeyRunes:
		m.insertRunes(msg.Runes)
	}
	return m, nil
}

func (m *Model) insertRunes(r []rune) {
	m.input = slices.Insert(m.input, m.inputPos, r...)
	m.inputPos += len(r)
}

func (m *Model) startInput(mode inputMode, initial string) {
	m.mode = mode
	m.input = []rune(initial)
	m.inputPos = len(m.input)
}

func (m Model) submitInput(split bool) (Model, tea.Cmd) {
	mode := m.mode
	value := string(m.input)
	offset := -1
	if split {
		offset = len(string(m.input[:m.inputPos]))
	}
	adding := m.adding
	m.mode = modeNormal
	m.input = nil
	m.adding = false

	switch mode {
	case modeSearch:
		if value == "" {
			m.matches = nil
			return m, nil
		}
		rows, err := m.doc.Search(value, true)
		if err != nil {
			return m, m.fail(err)
		}
		m.matches, m.matchIndex = rows, 0
		if len(rows) == 0 {
			m.statusText = "no match"
			return m, nil
		}
		m.focusedPanel = FocusTranscript
		m.actCursor = rows[0]
		m.statusText = fmt.Sprintf("%d match(es)", len(rows))

	case modeEdit:
		if adding {
			return m, m.insertRow(value, offset)
		}
		if err := m.doc.EditText(m.focusedKind(), m.cursor(), value, offset); err != nil {
			return m, m.fail(err)
		}

	case modeSpeaker:
		m.doc.SelectActs(m.targetActs()...)
		m.doc.SetSpeaker(strings.TrimSpace(value))

	case modeProblem:
		p := model.NoProblem()
		if v := strings.TrimSpace(value); v != "" {
			p = model.CustomProblem(v)
		}
		m.doc.SelectActs(m.targetActs()...)
		m.doc.SetProblem(p)

	case modeScores:
		s, err := parseScores(value)
		if err != nil {
			return m, m.fail(err)
		}
		if m.focusedPanel == FocusMinutes && m.doc.MinuteCount() > 0 {
			m.doc.SetMinuteScores(m.minuteCursor, s)
		} else {
			m.doc.SetDocumentScores(s)
		}
	}
	return m, nil
}

// addRow opens the editor for a new row above or below the cursor. Nothing
// is inserted until the edit is submitted.
func (m *Model) addRow(below bool) {
	i := m.cursor()
	if below && m.count() > 0 {
		i++
	}
	m.adding, m.addAt = true, i
	m.startInput(modeEdit, "")
}

// insertRow inserts the row opened by addRow. A new dialog act takes the
// speaker of the act under the cursor.
func (m *Model) insertRow(value string, split int) tea.Cmd {
	i := m.addAt
	kind := m.focusedKind()
	if kind == model.KindMinutes {
		m.doc.AddMinute(i, value)
	} else {
		speaker := ""
		if m.doc.ActCount() > 0 {
			speaker = m.doc.Act(m.actCursor).Speaker
		}
		da := model.NewDialogAct(m.doc.Registry(), value, speaker, model.NoTime, model.NoTime)
		if err := m.doc.AddDialogAct(i, da); err != nil {
			return m.fail(err)
		}
	}
	m.markedActs, m.markedMins = nil, nil
	m.setCursor(i)
	if split >= 0 {
		if err := m.doc.EditText(kind, i, value, split); err != nil {
			return m.fail(err)
		}
	}
	return nil
}

func (m Model) focusedKind() model.Kind {
	if m.focusedPanel == FocusMinutes {
		return model.KindMinutes
	}
	return model.KindTranscript
}

func (m Model) cursor() int {
	if m.focusedPanel == FocusMinutes {
		return m.minuteCursor
	}
	return m.actCursor
}

func (m *Model) setCursor(i int) {
	if m.focusedPanel == FocusMinutes {
		m.minuteCursor = i
	} else {
		m.actCursor = i
	}
}

func (m Model) count() int {
	if m.focusedPanel == FocusMinutes {
		return m.doc.MinuteCount()
	}
	return m.doc.ActCount()
}

func (m *Model) moveCursor(delta int) {
	m.setCursor(m.cursor() + delta)
	m.clampCursors()
}

func (m *Model) clampCursors() {
	m.minuteCursor = clampRow(m.minuteCursor, m.doc.MinuteCount())
	m.actCursor = clampRow(m.actCursor, m.doc.ActCount())
}

func clampRow(i, n int) int {
	if n == 0 {
		return 0
	}
	return min(max(i, 0), n-1)
}

func (m *Model) ensureVisible() {
	visible := m.visibleRows()
	m.minuteScroll = scrollFor(m.minuteCursor, m.minuteScroll, visible)
	m.actScroll = scrollFor(m.actCursor, m.actScroll, visible)
}

func scrollFor(cursor, scroll, visible int) int {
	if cursor < scroll {
		return cursor
	}
	if cursor >= scroll+visible {
		return cursor - visible + 1
	}
	return scroll
}

// targetActs returns the marked act rows, or the act under the cursor.
func (m Model) targetActs() []int {
	if len(m.markedActs) > 0 {
		return slices.Clone(m.markedActs)
	}
	if m.doc.ActCount() == 0 {
		return nil
	}
	return []int{m.actCursor}
}

func (m Model) targetMinutes() []int {
	if len(m.markedMins) > 0 {
		return slices.Clone(m.markedMins)
	}
	if m.doc.MinuteCount() == 0 {
		return nil
	}
	return []int{m.minuteCursor}
}

func toggle(rows []int, row, n int) []int {
	if n == 0 {
		return rows
	}
	i, found := slices.BinarySearch(rows, row)
	if found {
		return slices.Delete(slices.Clone(rows), i, i+1)
	}
	return slices.Insert(slices.Clone(rows), i, row)
}

func (m Model) cursorText() (string, bool) {
	if m.focusedPanel == FocusMinutes {
		if m.doc.MinuteCount() == 0 {
			return "", false
		}
		return m.doc.Minute(m.minuteCursor).Text, true
	}
	if m.doc.ActCount() == 0 {
		return "", false
	}
	return m.doc.Act(m.actCursor).Text, true
}

func (m Model) cursorScores() model.Scores {
	if m.focusedPanel == FocusMinutes && m.doc.MinuteCount() > 0 {
		return m.doc.Minute(m.minuteCursor).Scores
	}
	return m.doc.DocumentScores()
}

func formatScores(s model.Scores) string {
	return fmt.Sprintf("%g %g %g %g", s.Adequacy, s.Grammaticality, s.Fluency, s.Relevance)
}

func parseScores(value string) (model.Scores, error) {
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return model.Scores{}, fmt.Errorf("scores: want 4 values, got %d", len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return model.Scores{}, fmt.Errorf("scores: %w", err)
		}
		v[i] = x
	}
	return model.Scores{Adequacy: v[0], Grammaticality: v[1], Fluency: v[2], Relevance: v[3]}, nil
}

func (m Model) visibleRows() int {
	// panel header line
	return max(1, m.contentHeight()-1)
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + error(1) + footer(1) + padding
	reserved := 7
	return max(5, m.height-reserved)
}

func (m Model) minutesPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(20, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.minutesPanelWidth()-1)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Main content: minutes | transcript
	if m.mode == modePicker {
		sections = append(sections, m.renderPicker(m.width, m.contentHeight()))
	} else {
		sections = append(sections, m.renderMainContent())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	switch m.mode {
	case modeNormal:
		sections = append(sections, m.renderFooter())
	case modePicker:
		sections = append(sections, m.renderPickerFooter())
	default:
		sections = append(sections, m.renderInput())
	}

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("ALIGNMEET")
	var root string
	if m.doc.Root() != "" {
		root = ui.DimStyle.Render(" — " + m.doc.Root())
	}
	return title + root
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.doc.Modified() {
		dot = ui.ModifiedDotStyle.Render("● MODIFIED")
	} else {
		dot = ui.SavedDotStyle.Render("○ SAVED")
	}

	files := fmt.Sprintf("  %s + %s", orDash(m.doc.TranscriptFile()), orDash(m.doc.MinutesFile()))
	counts := fmt.Sprintf("  acts %d  minutes %d", m.doc.ActCount(), m.doc.MinuteCount())
	var tentative string
	if n := m.doc.Tentative(); n > 0 {
		tentative = "  " + ui.TentativeStyle.Render(fmt.Sprintf("%d tentative", n))
	}

	var spinner string
	if m.embeddingsPending() {
		frame := spinnerFrames[m.spinFrame%len(spinnerFrames)]
		spinner = "  " + ui.SpinnerStyle.Render(frame+" embedding")
	}

	var status string
	if m.statusText != "" {
		status = "  " + ui.InfoTextStyle.Render(m.statusText)
	}

	return dot + ui.StatusStyle.Render(files+counts) + tentative + spinner + status
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m Model) renderMainContent() string {
	minutesW := m.minutesPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.contentHeight()

	minutesLines := m.renderMinutesPanel(minutesW, contentH)
	transcriptLines := m.renderTranscriptPanel(transcriptW, contentH)

	divider := ui.DividerStyle.Render("│")

	rows := make([]string, contentH)
	for i := range rows {
		rows[i] = minutesLines[i] + divider + transcriptLines[i]
	}
	return strings.Join(rows, "\n")
}

func (m Model) panelHeader(title string, focus PanelFocus, width int) string {
	if m.focusedPanel == focus {
		return padRight(ui.PanelTitleActiveStyle.Render(title), width)
	}
	return padRight(ui.PanelTitleStyle.Render(title), width)
}

func (m Model) rowPrefix(focus PanelFocus, cursor bool, marked bool) string {
	prefix := "  "
	if cursor && m.focusedPanel == focus {
		prefix = ui.CursorStyle.Render("> ")
	}
	if marked {
		return prefix + ui.MarkedStyle.Render("*")
	}
	return prefix + " "
}

func (m Model) renderMinutesPanel(width, height int) []string {
	lines := []string{m.panelHeader(fmt.Sprintf("MINUTES (%d)", m.doc.MinuteCount()), FocusMinutes, width)}

	linked := make(map[int]bool)
	for _, da := range m.doc.Acts() {
		if da.Minute != nil {
			linked[m.doc.Position(da.Minute)] = true
		}
	}

	if m.doc.MinuteCount() == 0 {
		lines = append(lines, ui.DimStyle.Render("  No minutes"))
	}
	end := min(m.doc.MinuteCount(), m.minuteScroll+height-1)
	for i := m.minuteScroll; i < end; i++ {
		mn := m.doc.Minute(i)
		_, marked := slices.BinarySearch(m.markedMins, i)
		text := truncateToWidth(mn.Text, max(1, width-10))
		if !linked[i] {
			text = ui.DimStyle.Render(text)
		}
		line := m.rowPrefix(FocusMinutes, i == m.minuteCursor, marked) +
			ui.Swatch(annotation.ColorAt(i).Hex()) +
			fmt.Sprintf("%4d ", i+1) + text
		lines = append(lines, line)
	}
	return fitLines(lines, width, height)
}

func (m Model) renderTranscriptPanel(width, height int) []string {
	lines := []string{m.panelHeader(fmt.Sprintf("TRANSCRIPT (%d)", m.doc.ActCount()), FocusTranscript, width)}

	if m.doc.ActCount() == 0 {
		lines = append(lines, ui.DimStyle.Render("  No transcript"))
	}
	end := min(m.doc.ActCount(), m.actScroll+height-1)
	for i := m.actScroll; i < end; i++ {
		da := m.doc.Act(i)
		_, marked := slices.BinarySearch(m.markedActs, i)

		swatch := " "
		if c, ok := m.doc.MinuteColor(da.Minute); ok {
			swatch = ui.Swatch(c.Hex())
		}
		flag := " "
		if da.Minute != nil && !da.Final {
			flag = ui.TentativeStyle.Render("?")
		}
		var speaker string
		if da.Speaker != "" {
			speaker = ui.SpeakerStyle.Render("("+da.Speaker+")") + " "
		}
		var problem string
		if !da.Problem.IsNone() {
			problem = " " + ui.ProblemStyle.Render("["+da.Problem.Label()+"]")
		}
		used := 6 + lipgloss.Width(speaker) + lipgloss.Width(problem)
		text := truncateToWidth(da.Text, max(1, width-used))
		lines = append(lines, m.rowPrefix(FocusTranscript, i == m.actCursor, marked)+swatch+flag+" "+speaker+text+problem)
	}
	return fitLines(lines, width, height)
}

// fitLines pads or cuts lines to exactly height rows of the given width.
func fitLines(lines []string, width, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderInput() string {
	before := string(m.input[:m.inputPos])
	after := string(m.input[m.inputPos:])
	hint := "  " + ui.FooterDescStyle.Render("enter apply  esc cancel")
	switch m.mode {
	case modeEdit:
		hint = "  " + ui.FooterDescStyle.Render("enter apply  alt+enter split  esc cancel")
	case modeSpeaker:
		if speakers := m.doc.Registry().Speakers(); len(speakers) > 0 {
			hint += "  " + ui.DimStyle.Render("known: "+strings.Join(speakers, ", "))
		}
	case modeProblem:
		var custom []string
		for _, p := range m.doc.Problems() {
			if p.Kind() == model.ProblemCustom {
				custom = append(custom, p.Text())
			}
		}
		if len(custom) > 0 {
			hint += "  " + ui.DimStyle.Render("in use: "+strings.Join(custom, ", "))
		}
	}
	prompt := inputPrompts[m.mode]
	if m.adding {
		prompt = "New: "
	}
	return ui.FooterKeyStyle.Render(prompt) + ui.InputStyle.Render(before+"▌"+after) + hint
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"Tab", "Focus"},
		{"j/k", "Nav"},
		{"Space", "Mark"},
		{"Enter", "Link"},
		{"x", "Unlink"},
		{"0-5", "Problem"},
		{"f/F", "Confirm"},
		{"A", "Align"},
		{"u/^r", "Undo/Redo"},
		{"e", "Edit"},
		{"/", "Search"},
		{"t/m", "Open"},
		{"s", "Save"},
		{"q", "Quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k.key)+ui.FooterDescStyle.Render(" "+k.desc))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:max(0, width-1)]) + "…"
	}
	return s
}
