// Package cli wires the alignmeet commands.
package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/config"
	"github.com/ELITR/alignmeet/internal/db"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/logging"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// Deps holds what the commands need from the outside world.
type Deps struct {
	Config *config.Config
	Logger zerolog.Logger

	LoadConfig  func() (*config.Config, error)
	NewEmbedder func(*config.Config, zerolog.Logger) (embedding.Embedder, error)
	OpenStore   func(path string, log zerolog.Logger) (*db.Store, error)
	RunProgram  func(tea.Model) error
}

// DefaultDeps returns the dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		Logger:      zerolog.Nop(),
		LoadConfig:  config.Load,
		NewEmbedder: NewEmbedder,
		OpenStore:   db.Open,
		RunProgram:  runProgram,
	}
}

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// NewRootCommand creates the alignmeet command with all subcommands.
func NewRootCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	var logLevel string
	var jsonLog bool

	cmd := &cobra.Command{
		Use:   "alignmeet",
		Short: "Align meeting transcripts with their minutes",
		Long: `alignmeet links each dialog act of a meeting transcript to the minute it
supports, records problems, and scores the minutes.

Examples:
  # Annotate a meeting directory
  alignmeet tui meetings/2024-03-01

  # Precompute embeddings and propose links
  alignmeet embed minutes.txt --kind minutes
  alignmeet embed transcript.txt --kind transcript
  alignmeet align --minutes-emb minutes.txt.embed --transcript-emb transcript.txt.embed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				if !logging.Level(logLevel).Valid() {
					return fmt.Errorf("invalid --log-level %q", logLevel)
				}
				cfg.Log.Level = logLevel
			}
			if jsonLog {
				cfg.Log.JSON = true
			}
			deps.Config = cfg
			deps.Logger = logging.New(logging.Config{
				Level:      logging.Level(cfg.Log.Level),
				JSONFormat: cfg.Log.JSON,
				Output:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&jsonLog, "log-json", false, "Log as JSON")

	cmd.AddCommand(newTUICommand(deps))
	cmd.AddCommand(newEmbedCommand(deps))
	cmd.AddCommand(newAlignCommand(deps))
	cmd.AddCommand(newExportCommand(deps))
	cmd.AddCommand(newMeetingsCommand(deps))
	cmd.AddCommand(newGrepCommand(deps))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "alignmeet %s\n", Version)
			return nil
		},
	}
}

// openDocument opens a meeting directory with the named files, or the first
// candidates listed when a name is empty. Minutes are optional when
// needMinutes is false.
func openDocument(deps *Deps, dir, transcript, minutes string, needMinutes bool) (*annotation.Document, error) {
	log := deps.Logger
	doc := annotation.New(annotation.Options{Indent: deps.Config.Indent, Logger: &log})
	if err := doc.SetRoot(dir); err != nil {
		return nil, err
	}

	if transcript == "" {
		files := doc.TranscriptFiles()
		if len(files) == 0 {
			return nil, fmt.Errorf("no transcript in %s", dir)
		}
		transcript = files[0]
	}
	if err := doc.OpenTranscript(transcript); err != nil {
		return nil, err
	}

	if minutes == "" {
		files := doc.MinutesFiles()
		if len(files) == 0 {
			if needMinutes {
				return nil, fmt.Errorf("no minutes in %s", dir)
			}
			return doc, nil
		}
		minutes = files[0]
	}
	if err := doc.OpenMinutes(minutes); err != nil {
		return nil, err
	}
	return doc, nil
}
