package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/db"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/model"
)

func newTestDoc(t *testing.T) *annotation.Document {
	t.Helper()
	dir := t.TempDir()
	if err := codec.Scaffold(dir); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	writeFile(t, filepath.Join(dir, codec.TranscriptFolder, "transcript.txt"), "(Alice)hello\n(Bob)world\n(Alice)budget review\n")
	writeFile(t, filepath.Join(dir, codec.MinutesFolder, "minutes.txt"), "hello\nworld\n")

	doc := annotation.New(annotation.Options{})
	if err := doc.SetRoot(dir); err != nil {
		t.Fatalf("set root: %v", err)
	}
	if err := doc.OpenTranscript("transcript.txt"); err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	if err := doc.OpenMinutes("minutes.txt"); err != nil {
		t.Fatalf("open minutes: %v", err)
	}
	return doc
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "alt+enter":
		return tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m, cmd
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func hashVectors(t *testing.T, texts []string) []model.Vector {
	t.Helper()
	vectors, err := embedding.EmbedAll(context.Background(), embedding.HashEmbedder{}, texts, 1)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vectors
}

func embeddingsMsg(t *testing.T, doc *annotation.Document, kind model.Kind) EmbeddingsMsg {
	return EmbeddingsMsg{Result: embedding.Result{
		Kind:    kind,
		Path:    doc.SourcePath(kind),
		Vectors: hashVectors(t, doc.Texts(kind)),
	}}
}

func TestNewModel(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	if m.focusedPanel != FocusTranscript {
		t.Error("new model should focus transcript")
	}
	if m.opts.Threshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", m.opts.Threshold)
	}
	if m.Init() != nil {
		t.Error("Init without a service should return nil")
	}
}

func TestTabTogglesFocus(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "tab")
	if m.focusedPanel != FocusMinutes {
		t.Error("tab should focus minutes")
	}
	m, _ = press(m, "tab")
	if m.focusedPanel != FocusTranscript {
		t.Error("second tab should focus transcript")
	}
}

func TestCursorClamps(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "j", "j", "j", "j", "j")
	if m.actCursor != 2 {
		t.Errorf("actCursor = %d, want 2", m.actCursor)
	}
	m, _ = press(m, "k", "k", "k", "k")
	if m.actCursor != 0 {
		t.Errorf("actCursor = %d, want 0", m.actCursor)
	}
}

func TestEnterLinksActToMinuteUnderCursor(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "tab", "j", "tab", "enter")

	da := doc.Act(0)
	if da.Minute != doc.Minute(1) {
		t.Fatalf("act 0 linked to %v, want minute 1", doc.Position(da.Minute))
	}
	if !da.Final {
		t.Error("manual link should be final")
	}
	if !doc.Modified() {
		t.Error("document should be modified")
	}
	if m.statusText == "" {
		t.Error("status should report the link")
	}
}

func TestMarkedActsLinkTogether(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, " ", "j", " ", "enter")

	for i := 0; i < 2; i++ {
		if doc.Act(i).Minute != doc.Minute(0) {
			t.Errorf("act %d not linked to minute 0", i)
		}
	}
	if doc.Act(2).Minute != nil {
		t.Error("unmarked act should stay unlinked")
	}
	if len(m.markedActs) != 0 {
		t.Errorf("marks = %v, want cleared", m.markedActs)
	}
}

func TestUnlinkKey(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "enter", "x")
	if doc.Act(0).Minute != nil {
		t.Error("x should unlink the act")
	}
}

func TestProblemKeys(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "2")
	if doc.Act(0).Problem != model.StandardProblem(1) {
		t.Errorf("problem = %v, want standard 2", doc.Act(0).Problem)
	}
	m, _ = press(m, "0")
	if !doc.Act(0).Problem.IsNone() {
		t.Errorf("problem = %v, want none", doc.Act(0).Problem)
	}
	m, _ = press(m, "p", "echo", "enter")
	if doc.Act(0).Problem != model.CustomProblem("echo") {
		t.Errorf("problem = %v, want custom echo", doc.Act(0).Problem)
	}
}

func TestUndoRedoKeys(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "enter", "u")
	if doc.Act(0).Minute != nil {
		t.Error("undo should remove the link")
	}
	m, _ = press(m, "ctrl+r")
	if doc.Act(0).Minute != doc.Minute(0) {
		t.Error("redo should restore the link")
	}
	if !strings.HasPrefix(m.statusText, "redo") {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestQuitWithUnsavedChanges(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "enter", "q")
	if !m.quitArmed {
		t.Fatal("first q with unsaved changes should only warn")
	}
	if m.errorMessage == "" {
		t.Error("expected an unsaved-changes warning")
	}

	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("second q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second q should return tea.Quit")
	}
}

func TestQuitWhenSaved(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestSaveKey(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "enter", "s")
	if doc.Modified() {
		t.Error("document should be saved")
	}
	data, err := os.ReadFile(doc.Layout().LinkPath("transcript.txt", "minutes.txt"))
	if err != nil {
		t.Fatalf("read links: %v", err)
	}
	if got := string(data); got != "1 1 None\n" {
		t.Errorf("links = %q, want %q", got, "1 1 None\n")
	}
	if m.statusText != "saved" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestEditReplacesText(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "e")
	if string(m.input) != "hello" {
		t.Fatalf("input = %q, want %q", string(m.input), "hello")
	}
	m, _ = press(m, "backspace", "backspace", "backspace", "backspace", "backspace", "hi", "enter")
	if got := doc.Act(0).Text; got != "hi" {
		t.Errorf("text = %q, want %q", got, "hi")
	}
	if m.mode != modeNormal {
		t.Error("enter should leave edit mode")
	}
}

func TestEditEscapeCancels(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "e", "xyz", "esc")
	if got := doc.Act(0).Text; got != "hello" {
		t.Errorf("text = %q, want unchanged", got)
	}
	if doc.Modified() {
		t.Error("cancelled edit should not modify")
	}
}

func TestSplitEdit(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	press(m, "e", "left", "left", "alt+enter")

	if doc.ActCount() != 4 {
		t.Fatalf("ActCount = %d, want 4", doc.ActCount())
	}
	if doc.Act(0).Text != "hel" || doc.Act(1).Text != "lo" {
		t.Errorf("split = %q / %q, want hel / lo", doc.Act(0).Text, doc.Act(1).Text)
	}
	if doc.Act(1).Speaker != "Alice" {
		t.Errorf("split speaker = %q, want Alice", doc.Act(1).Speaker)
	}
}

func TestSearchMovesCursor(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "/", "BUDGET", "enter")
	if m.actCursor != 2 {
		t.Errorf("actCursor = %d, want 2", m.actCursor)
	}
	if len(m.matches) != 1 {
		t.Errorf("matches = %v", m.matches)
	}
	if m.mode != modeNormal {
		t.Error("enter should leave search mode")
	}
}

func TestEmbeddingsMsgAttachesVectors(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, cmd := applyUpdate(m, embeddingsMsg(t, doc, model.KindMinutes))
	if !doc.HasEmbeddings(model.KindMinutes) {
		t.Error("minutes embeddings should be attached")
	}
	if cmd == nil {
		t.Error("reader should be re-armed")
	}
	if m.statusText != "minutes embeddings ready" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestStaleEmbeddingsDropped(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	msg := embeddingsMsg(t, doc, model.KindMinutes)
	msg.Result.Path = filepath.Join(t.TempDir(), "other.txt")

	m, _ = applyUpdate(m, msg)
	if doc.HasEmbeddings(model.KindMinutes) {
		t.Error("vectors for another file must not be attached")
	}
	if m.errorMessage != "" {
		t.Errorf("stale result should not raise an error, got %q", m.errorMessage)
	}
}

func TestEmbeddingErrorIsTransient(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = applyUpdate(m, EmbeddingsMsg{Result: embedding.Result{Kind: model.KindTranscript, Err: errors.New("boom")}})
	if !strings.Contains(m.errorMessage, "boom") {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if !m.errorTransient {
		t.Error("embedding errors should be transient")
	}
	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Error("transient error should clear")
	}
}

func TestAutoAlignKey(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = applyUpdate(m, embeddingsMsg(t, doc, model.KindMinutes))
	m, _ = applyUpdate(m, embeddingsMsg(t, doc, model.KindTranscript))
	m, _ = press(m, "A")

	if doc.Act(0).Minute != doc.Minute(0) {
		t.Error("hello should align to minute 1")
	}
	if doc.Act(1).Minute != doc.Minute(1) {
		t.Error("world should align to minute 2")
	}
	if doc.Act(0).Final {
		t.Error("auto-align links should be tentative")
	}
	if doc.Tentative() != 2 {
		t.Errorf("Tentative = %d, want 2", doc.Tentative())
	}

	m, _ = press(m, "F")
	if doc.Tentative() != 0 {
		t.Errorf("after F Tentative = %d, want 0", doc.Tentative())
	}
}

func TestAutoAlignWithoutEmbeddings(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "A")
	if m.errorMessage == "" {
		t.Error("expected an error without embeddings")
	}
	if doc.Act(0).Minute != nil {
		t.Error("nothing should be linked")
	}
}

func TestIndentKeys(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "tab", ">")
	if got := doc.Minute(0).Text; got != "-hello" {
		t.Errorf("text = %q, want %q", got, "-hello")
	}
	m, _ = press(m, "<")
	if got := doc.Minute(0).Text; got != "hello" {
		t.Errorf("text = %q, want %q", got, "hello")
	}
}

func TestAddMinuteEntersEditMode(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "tab", "o")
	if m.mode != modeEdit {
		t.Fatal("new row should open the editor")
	}
	m, _ = press(m, "new", "enter")
	if doc.MinuteCount() != 3 {
		t.Fatalf("MinuteCount = %d, want 3", doc.MinuteCount())
	}
	if got := doc.Minute(1).Text; got != "new" {
		t.Errorf("text = %q, want %q", got, "new")
	}
	if m.minuteCursor != 1 {
		t.Errorf("minuteCursor = %d, want 1", m.minuteCursor)
	}
}

func TestDeleteAndJoinKeys(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "J")
	if doc.ActCount() != 2 {
		t.Fatalf("ActCount = %d, want 2", doc.ActCount())
	}
	m, _ = press(m, "d")
	if doc.ActCount() != 1 {
		t.Fatalf("ActCount = %d, want 1", doc.ActCount())
	}
	m, _ = press(m, "u", "u")
	if doc.ActCount() != 3 {
		t.Errorf("after undo ActCount = %d, want 3", doc.ActCount())
	}
}

func TestScoresInput(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "v")
	if string(m.input) != "1 1 1 1" {
		t.Fatalf("input = %q", string(m.input))
	}
	for range m.input {
		m, _ = press(m, "backspace")
	}
	m, _ = press(m, "4 5 3 2", "enter")

	want := model.Scores{Adequacy: 4, Grammaticality: 5, Fluency: 3, Relevance: 2}
	if got := doc.DocumentScores(); got != want {
		t.Errorf("document scores = %+v, want %+v", got, want)
	}
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"1 2 3 4", false},
		{"1.5 2 3 4", false},
		{"1 2 3", true},
		{"a b c d", true},
	}
	for _, tt := range tests {
		_, err := parseScores(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseScores(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestExportWithoutStore(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "X")
	if m.errorMessage == "" {
		t.Error("export without a store should fail")
	}
}

func TestExportToStore(t *testing.T) {
	store, err := db.Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	m := New(newTestDoc(t), Options{Store: store, Annotator: "tester"})
	m, _ = press(m, "enter", "X")
	if !strings.HasPrefix(m.statusText, "exported ") {
		t.Fatalf("status = %q, error = %q", m.statusText, m.errorMessage)
	}
	meetings, err := store.Meetings()
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 1 || meetings[0].LinkedCount != 1 {
		t.Errorf("meetings = %+v", meetings)
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	for _, want := range []string{"ALIGNMEET", "MINUTES (2)", "TRANSCRIPT (3)", "budget review", "Quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q", got)
	}
}

func TestViewShowsInputPrompt(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = press(m, "/", "wor")
	if !strings.Contains(m.View(), "Search: ") {
		t.Error("view should show the search prompt")
	}
}

func TestSpeakerPromptListsKnownSpeakers(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = press(m, "w")
	if m.mode != modeSpeaker {
		t.Fatalf("mode = %v, want speaker", m.mode)
	}
	if !strings.Contains(m.View(), "known: Alice, Bob") {
		t.Error("speaker prompt should list known speakers")
	}
}

func TestUndoWithEmptyHistory(t *testing.T) {
	m := New(newTestDoc(t), Options{})
	m, _ = press(m, "u")
	if m.statusText != "nothing to undo" {
		t.Errorf("status = %q, want %q", m.statusText, "nothing to undo")
	}
	m, _ = press(m, "ctrl+r")
	if m.statusText != "nothing to redo" {
		t.Errorf("status = %q, want %q", m.statusText, "nothing to redo")
	}
}

func TestAddRowEscapeInsertsNothing(t *testing.T) {
	doc := newTestDoc(t)
	m := New(doc, Options{})
	m, _ = press(m, "o", "esc")
	if doc.ActCount() != 3 {
		t.Errorf("ActCount = %d, want 3", doc.ActCount())
	}
	if doc.Modified() {
		t.Error("cancelled add should not modify")
	}
}

func TestEditToBlankActRejected(t *testing.T) {
	doc := newTestDoc(t)
	doc.SelectActs(0)
	if !doc.SetSpeaker("") {
		t.Fatal("SetSpeaker should clear the speaker")
	}
	m := New(doc, Options{})
	m, _ = press(m, "e", "backspace", "backspace", "backspace", "backspace", "backspace", " ", "enter")
	if got := doc.Act(0).Text; got != "hello" {
		t.Errorf("text = %q, want unchanged", got)
	}
	if !strings.Contains(m.errorMessage, "letter") {
		t.Errorf("errorMessage = %q, want a missing letter error", m.errorMessage)
	}
}

func TestPickerOpensTranscript(t *testing.T) {
	doc := newTestDoc(t)
	writeFile(t, filepath.Join(doc.Root(), codec.TranscriptFolder, "transcript2.txt"), "(Carol)second meeting\n")
	m := New(doc, Options{})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m, _ = press(m, "t")
	if m.mode != modePicker {
		t.Fatalf("mode = %v, want picker", m.mode)
	}
	view := m.View()
	for _, want := range []string{"OPEN TRANSCRIPT (2)", "transcript2.txt", "(open)"} {
		if !strings.Contains(view, want) {
			t.Errorf("picker view missing %q", want)
		}
	}

	m, _ = press(m, "j", "enter")
	if m.mode != modeNormal {
		t.Error("enter should close the picker")
	}
	if got := doc.TranscriptFile(); got != "transcript2.txt" {
		t.Fatalf("TranscriptFile = %q, want transcript2.txt", got)
	}
	if doc.ActCount() != 1 || doc.Act(0).Speaker != "Carol" {
		t.Errorf("acts not replaced: count %d", doc.ActCount())
	}
	if m.statusText != "opened transcript2.txt" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestPickerEscapeKeepsFile(t *testing.T) {
	doc := newTestDoc(t)
	writeFile(t, filepath.Join(doc.Root(), codec.MinutesFolder, "minutes2.txt"), "other\n")
	m := New(doc, Options{})
	m, _ = press(m, "m", "j", "esc")
	if m.mode != modeNormal {
		t.Error("esc should close the picker")
	}
	if got := doc.MinutesFile(); got != "minutes.txt" {
		t.Errorf("MinutesFile = %q, want minutes.txt", got)
	}
}

func TestPickerRefusesWithUnsavedChanges(t *testing.T) {
	doc := newTestDoc(t)
	writeFile(t, filepath.Join(doc.Root(), codec.TranscriptFolder, "transcript2.txt"), "(Carol)second meeting\n")
	m := New(doc, Options{})
	m, _ = press(m, "enter")
	if !doc.Modified() {
		t.Fatal("link should modify the document")
	}

	m, _ = press(m, "t", "j", "enter")
	if !strings.Contains(m.errorMessage, "save or discard") {
		t.Errorf("errorMessage = %q, want a conflict error", m.errorMessage)
	}
	if got := doc.TranscriptFile(); got != "transcript.txt" {
		t.Errorf("TranscriptFile = %q, want transcript.txt", got)
	}
	if doc.Act(0).Minute == nil {
		t.Error("pending link should survive the refused open")
	}
}

func TestPickerRequestsEmbeddingsForNewFile(t *testing.T) {
	doc := newTestDoc(t)
	writeFile(t, filepath.Join(doc.Root(), codec.TranscriptFolder, "transcript2.txt"), "(Carol)second meeting\n")
	svc := embedding.NewService(embedding.HashEmbedder{Dim: 8}, 1, func(embedding.Result) {}, zerolog.Nop())
	m := New(doc, Options{Service: svc})

	m, _ = press(m, "t", "j", "enter")
	svc.Close()
	if m.errorMessage != "" {
		t.Fatalf("errorMessage = %q", m.errorMessage)
	}
	if _, err := os.Stat(embedding.CachePath(doc.SourcePath(model.KindTranscript))); err != nil {
		t.Errorf("embeddings for the opened transcript were not computed: %v", err)
	}
}
