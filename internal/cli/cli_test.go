package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELITR/alignmeet/internal/config"
	"github.com/ELITR/alignmeet/internal/db"
	"github.com/ELITR/alignmeet/internal/embedding"
)

const (
	testTranscript = "(Alice)hello\n(Bob)world\n(Alice)budget review\n"
	testMinutes    = "hello\nworld\n"
)

func newTestDeps(t *testing.T) (*Deps, *tea.Model) {
	t.Helper()
	t.Setenv("ALIGNMEET_CONFIG_DIR", t.TempDir())

	var captured tea.Model
	dbPath := filepath.Join(t.TempDir(), "export.sqlite")
	deps := &Deps{
		LoadConfig: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Embedding.Provider = config.ProviderHash
			cfg.Annotator = "tester"
			cfg.DBPath = dbPath
			return cfg, nil
		},
		NewEmbedder: NewEmbedder,
		OpenStore:   db.Open,
		RunProgram: func(m tea.Model) error {
			captured = m
			return nil
		},
	}
	return deps, &captured
}

func newMeetingDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transcript.txt"), []byte(testTranscript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minutes.txt"), []byte(testMinutes), 0o644))
	return dir
}

func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)

	assert.Equal(t, "alignmeet", cmd.Use)
	assert.NotNil(t, cmd.PersistentPreRunE)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"tui", "embed", "align", "export", "meetings", "grep", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	deps, _ := newTestDeps(t)

	out, err := execute(t, deps, "version")
	require.NoError(t, err)
	assert.Equal(t, "alignmeet dev\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	deps, _ := newTestDeps(t)

	_, err := execute(t, deps, "version", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--log-level")
}

func TestEmbedCommand(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)
	path := filepath.Join(dir, "transcript.txt")

	out, err := execute(t, deps, "embed", path, "--kind", "transcript")
	require.NoError(t, err)
	assert.Contains(t, out, "3 vectors (computed)")
	assert.FileExists(t, embedding.CachePath(path))

	out, err = execute(t, deps, "embed", path, "--kind", "transcript")
	require.NoError(t, err)
	assert.Contains(t, out, "3 vectors (cached)")

	out, err = execute(t, deps, "embed", path, "--kind", "transcript", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "(computed)")
}

func TestEmbedCommandBadKind(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)

	_, err := execute(t, deps, "embed", filepath.Join(dir, "minutes.txt"), "--kind", "slides")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kind")
}

func embedMeeting(t *testing.T, deps *Deps, dir string) (string, string) {
	t.Helper()
	minutes := filepath.Join(dir, "minutes.txt")
	transcript := filepath.Join(dir, "transcript.txt")
	_, err := execute(t, deps, "embed", minutes, "--kind", "minutes")
	require.NoError(t, err)
	_, err = execute(t, deps, "embed", transcript, "--kind", "transcript")
	require.NoError(t, err)
	return embedding.CachePath(minutes), embedding.CachePath(transcript)
}

func TestAlignCommand(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)
	minutesEmb, transcriptEmb := embedMeeting(t, deps, dir)

	out, err := execute(t, deps, "align", "--minutes-emb", minutesEmb, "--transcript-emb", transcriptEmb)
	require.NoError(t, err)
	assert.Equal(t, "1 1? None\n2 2? None\n", out)

	out, err = execute(t, deps, "align", "--minutes-emb", minutesEmb, "--transcript-emb", transcriptEmb, "--final")
	require.NoError(t, err)
	assert.Equal(t, "1 1 None\n2 2 None\n", out)
}

func TestAlignCommandToFile(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)
	minutesEmb, transcriptEmb := embedMeeting(t, deps, dir)
	output := filepath.Join(dir, "alignment+transcript.txt+minutes.txt")

	out, err := execute(t, deps, "align", "--minutes-emb", minutesEmb, "--transcript-emb", transcriptEmb, "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "1 1? None\n2 2? None\n", string(data))
}

func TestAlignCommandIntoMeeting(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)
	minutesEmb, transcriptEmb := embedMeeting(t, deps, dir)

	out, err := execute(t, deps, "align", "--minutes-emb", minutesEmb, "--transcript-emb", transcriptEmb, "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "2 links changed\n", out)

	data, err := os.ReadFile(filepath.Join(dir, "alignment+transcript.txt+minutes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1 1? None\n2 2? None\n", string(data))
}

func TestAlignCommandMissingCache(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := t.TempDir()

	_, err := execute(t, deps, "align",
		"--minutes-emb", filepath.Join(dir, "minutes.txt.embed"),
		"--transcript-emb", filepath.Join(dir, "transcript.txt.embed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read minutes embeddings")
}

func TestExportAndMeetingsCommands(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)

	out, err := execute(t, deps, "export", dir)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.NotEmpty(t, id)

	store, err := db.Open(deps.Config.DBPath, deps.Logger)
	require.NoError(t, err)
	meetings, err := store.Meetings()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, meetings, 1)
	assert.Equal(t, id, meetings[0].ID)
	assert.Equal(t, "tester", meetings[0].Annotator)
	assert.Equal(t, 3, meetings[0].ActCount)

	out, err = execute(t, deps, "meetings")
	require.NoError(t, err)
	assert.Contains(t, out, "COVERAGE")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "transcript.txt")
}

func TestMeetingsShowAndRm(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)
	links := "1 1 None\n2 2? 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alignment+transcript.txt+minutes.txt"), []byte(links), 0o644))

	out, err := execute(t, deps, "export", dir)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, err = execute(t, deps, "meetings", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "1. hello\n   1\t(Alice) hello\n")
	assert.Contains(t, out, "2. world\n   2?\t(Bob) world\n")
	assert.Contains(t, out, "problems\n   2\tSmall talk\n")
	assert.NotContains(t, out, "budget review")

	_, err = execute(t, deps, "meetings", "rm", id)
	require.NoError(t, err)

	_, err = execute(t, deps, "meetings", "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExportCommandNoMinutes(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transcript.txt"), []byte(testTranscript), 0o644))

	_, err := execute(t, deps, "export", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no minutes")
}

func TestGrepCommand(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)

	out, err := execute(t, deps, "grep", dir, "budget")
	require.NoError(t, err)
	assert.Equal(t, "3\t(Alice) budget review\n", out)

	out, err = execute(t, deps, "grep", dir, "ALICE", "-i")
	require.NoError(t, err)
	assert.Equal(t, "1\t(Alice) hello\n3\t(Alice) budget review\n", out)
}

func TestGrepCommandBadPattern(t *testing.T) {
	deps, _ := newTestDeps(t)
	dir := newMeetingDir(t)

	_, err := execute(t, deps, "grep", dir, "(")
	require.Error(t, err)
}

func TestTUICommand(t *testing.T) {
	deps, captured := newTestDeps(t)
	dir := newMeetingDir(t)

	_, err := execute(t, deps, "tui", dir, "--no-embed")
	require.NoError(t, err)
	require.NotNil(t, *captured)

	m, _ := (*captured).Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	view := m.View()
	assert.Contains(t, view, "TRANSCRIPT (3)")
	assert.Contains(t, view, "MINUTES (2)")
}

func TestTUICommandScaffold(t *testing.T) {
	deps, captured := newTestDeps(t)
	dir := filepath.Join(t.TempDir(), "meeting")

	_, err := execute(t, deps, "tui", dir, "--new", "--no-embed")
	require.NoError(t, err)
	require.NotNil(t, *captured)
	assert.DirExists(t, filepath.Join(dir, "transcripts"))
	assert.FileExists(t, filepath.Join(dir, "minutes", "minutes.txt"))
}

func TestNewEmbedder(t *testing.T) {
	cfg := config.Default()

	cfg.Embedding.Provider = config.ProviderHash
	e, err := NewEmbedder(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Model())

	cfg.Embedding.Provider = config.ProviderOllama
	e, err = NewEmbedder(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, e.Model())

	cfg.Embedding.Provider = "word2vec"
	_, err = NewEmbedder(cfg, zerolog.Nop())
	assert.Error(t, err)
}
