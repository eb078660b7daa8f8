package app

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// TestLiveTUIFlow exercises the model against a real meeting directory named
// by ALIGNMEET_LIVE_DIR. Nothing is saved.
func TestLiveTUIFlow(t *testing.T) {
	dir := os.Getenv("ALIGNMEET_LIVE_DIR")
	if dir == "" {
		t.Skip("ALIGNMEET_LIVE_DIR not set")
	}

	doc := annotation.New(annotation.Options{})
	if err := doc.SetRoot(dir); err != nil {
		t.Fatalf("set root: %v", err)
	}
	transcripts, minutes := doc.TranscriptFiles(), doc.MinutesFiles()
	if len(transcripts) == 0 || len(minutes) == 0 {
		t.Skip("meeting directory has no transcript or minutes")
	}
	if err := doc.OpenTranscript(transcripts[0]); err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	if err := doc.OpenMinutes(minutes[0]); err != nil {
		t.Fatalf("open minutes: %v", err)
	}

	results := make(chan embedding.Result, 2)
	svc := embedding.NewService(embedding.HashEmbedder{}, 4, func(r embedding.Result) { results <- r }, zerolog.Nop())
	defer svc.Close()

	m := New(doc, Options{Service: svc, Results: results})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	fmt.Println("=== Initial View ===")
	fmt.Println(m.View())

	m, _ = applyUpdate(m, requestEmbeddingsMsg{})
	deadline := time.After(30 * time.Second)
	for !doc.HasEmbeddings(model.KindMinutes) || !doc.HasEmbeddings(model.KindTranscript) {
		select {
		case r := <-results:
			m, _ = applyUpdate(m, EmbeddingsMsg{Result: r})
			if r.Err != nil {
				t.Fatalf("embed %s: %v", r.Kind, r.Err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for embeddings")
		}
	}

	m, _ = press(m, "A")
	fmt.Printf("Auto-align: %s, tentative=%d\n", m.statusText, doc.Tentative())
	fmt.Println("=== Aligned View ===")
	fmt.Println(m.View())

	m, _ = press(m, "u")
	if doc.Tentative() != 0 && m.statusText == "" {
		t.Error("undo should report a status")
	}
}
