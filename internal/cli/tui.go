package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/app"
	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/config"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/logging"
)

type tuiOptions struct {
	transcript string
	minutes    string
	scaffold   bool
	noEmbed    bool
}

func newTUICommand(deps *Deps) *cobra.Command {
	var opts tuiOptions

	cmd := &cobra.Command{
		Use:   "tui DIR",
		Short: "Annotate a meeting directory interactively",
		Long: `Open a meeting directory in the terminal annotator.

The first transcript and minutes files found are opened unless named with
--transcript and --minutes. Embeddings are loaded from their caches or
computed in the background. Logs go to alignmeet.log in the config directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(deps, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Transcript file name")
	cmd.Flags().StringVar(&opts.minutes, "minutes", "", "Minutes file name")
	cmd.Flags().BoolVar(&opts.scaffold, "new", false, "Create the meeting directory layout first")
	cmd.Flags().BoolVar(&opts.noEmbed, "no-embed", false, "Do not load or compute embeddings")

	return cmd
}

func runTUI(deps *Deps, dir string, opts tuiOptions) error {
	cfg := deps.Config
	if opts.scaffold {
		if err := codec.Scaffold(dir); err != nil {
			return fmt.Errorf("create meeting: %w", err)
		}
	}

	logPath, err := config.LogPath()
	if err != nil {
		return err
	}
	logFile, err := logging.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	deps.Logger = logging.New(logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     logFile,
	})
	log := deps.Logger

	doc, err := openDocument(deps, dir, opts.transcript, opts.minutes, true)
	if err != nil {
		return err
	}
	doc.Subscribe(annotation.ListenerFunc(func(ev annotation.Event) {
		log.Debug().Stringer("event", ev.Kind).Bool("modified", ev.Modified).Msg("document changed")
	}))

	appOpts := app.Options{
		Threshold: cfg.Align.Threshold,
		Final:     cfg.Align.Final,
		Annotator: cfg.Annotator,
		Logger:    &log,
	}

	if !opts.noEmbed {
		e, err := deps.NewEmbedder(cfg, log)
		if err != nil {
			return err
		}
		results := make(chan embedding.Result, 2)
		done := make(chan struct{})
		svc := embedding.NewService(e, cfg.Embedding.Concurrency, func(r embedding.Result) {
			select {
			case results <- r:
			case <-done:
			}
		}, log)
		defer func() {
			close(done)
			svc.Close()
		}()
		appOpts.Service, appOpts.Results = svc, results
	}

	if path, err := cfg.ResolveDBPath(); err == nil {
		store, err := deps.OpenStore(path, log)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("export database unavailable")
		} else {
			defer store.Close()
			appOpts.Store = store
		}
	}

	log.Info().Str("root", doc.Root()).Str("transcript", doc.TranscriptFile()).Str("minutes", doc.MinutesFile()).Msg("starting annotator")
	return deps.RunProgram(app.New(doc, appOpts))
}
