package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ELITR/alignmeet/internal/model"
)

// DefaultConcurrency bounds parallel requests when none is configured.
const DefaultConcurrency = 4

// EmbedAll embeds every text with at most concurrency requests in flight. The
// result is index-aligned with texts. The first failure cancels the rest.
func EmbedAll(ctx context.Context, e Embedder, texts []string, concurrency int) ([]model.Vector, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	out := make([]model.Vector, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embed line %d: %w", i+1, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
