package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/config"
	"github.com/ELITR/alignmeet/internal/embedding"
	"github.com/ELITR/alignmeet/internal/model"
)

// NewEmbedder builds the embedder selected by cfg.
func NewEmbedder(cfg *config.Config, log zerolog.Logger) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderHash:
		return embedding.HashEmbedder{}, nil
	case config.ProviderOllama:
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL:           cfg.Embedding.URL,
			Model:             cfg.Embedding.Model,
			Timeout:           cfg.Embedding.Timeout,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Breaker:           embedding.DefaultBreakerConfig(),
		}, log), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

func parseKind(s string) (model.Kind, error) {
	switch s {
	case "transcript":
		return model.KindTranscript, nil
	case "minutes":
		return model.KindMinutes, nil
	}
	return 0, fmt.Errorf("invalid kind %q (must be transcript or minutes)", s)
}

func newEmbedCommand(deps *Deps) *cobra.Command {
	var kind string
	var force bool

	cmd := &cobra.Command{
		Use:   "embed FILE",
		Short: "Compute the embedding cache of a transcript or minutes file",
		Long: `Compute one embedding per line of FILE and store them in FILE.embed.

An existing cache computed from the same lines with the same model is reused
unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			path := args[0]
			texts, err := readTexts(path, k)
			if err != nil {
				return err
			}
			if force {
				if err := os.Remove(embedding.CachePath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("remove cache: %w", err)
				}
			}
			e, err := deps.NewEmbedder(deps.Config, deps.Logger)
			if err != nil {
				return err
			}
			vectors, cached, err := embedding.LoadOrCompute(cmd.Context(), e, path, texts, deps.Config.Embedding.Concurrency)
			if err != nil {
				return err
			}
			how := "computed"
			if cached {
				how = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vectors (%s) -> %s\n", path, len(vectors), how, embedding.CachePath(path))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "File kind: transcript or minutes")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute even if the cache is current")
	cmd.MarkFlagRequired("kind")

	return cmd
}

// readTexts returns the lines of path as the document would embed them.
func readTexts(path string, kind model.Kind) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	defer f.Close()

	reg := model.NewRegistry()
	if kind == model.KindMinutes {
		minutes, err := codec.ReadMinutes(f, reg)
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(minutes))
		for i, m := range minutes {
			texts[i] = m.Text
		}
		return texts, nil
	}
	acts, err := codec.ReadTranscript(f, reg)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(acts))
	for i, da := range acts {
		texts[i] = da.Text
	}
	return texts, nil
}
