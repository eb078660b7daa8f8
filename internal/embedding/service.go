package embedding

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ELITR/alignmeet/internal/model"
)

// Result is a finished background computation.
type Result struct {
	Kind    model.Kind
	Path    string
	Vectors []model.Vector
	Err     error
}

type task struct {
	gen    uint64
	cancel context.CancelFunc
}

// Service runs at most one embedding computation per kind. A new Request for
// a kind cancels the previous one; results of superseded requests are never
// delivered.
type Service struct {
	embedder    Embedder
	concurrency int
	deliver     func(Result)
	log         zerolog.Logger

	mu    sync.Mutex
	gen   uint64
	tasks map[model.Kind]*task
	wg    sync.WaitGroup
}

// NewService creates a service that hands every current result to deliver.
// deliver is called from a background goroutine.
func NewService(e Embedder, concurrency int, deliver func(Result), log zerolog.Logger) *Service {
	return &Service{
		embedder:    e,
		concurrency: concurrency,
		deliver:     deliver,
		log:         log.With().Str("component", "embedding").Logger(),
		tasks:       make(map[model.Kind]*task),
	}
}

// Embedder returns the underlying embedder.
func (s *Service) Embedder() Embedder { return s.embedder }

// Load returns cached vectors for the source file if the cache matches texts.
func (s *Service) Load(path string, texts []string) ([]model.Vector, error) {
	return LoadCacheFile(path, Fingerprint(s.embedder.Model(), texts))
}

// Request starts computing embeddings for texts in the background, replacing
// any computation of the same kind still running.
func (s *Service) Request(kind model.Kind, path string, texts []string) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if prev := s.tasks[kind]; prev != nil {
		prev.cancel()
	}
	s.gen++
	t := &task{gen: s.gen, cancel: cancel}
	s.tasks[kind] = t
	s.mu.Unlock()

	s.log.Debug().Str("kind", kind.String()).Str("path", path).Int("lines", len(texts)).Msg("embedding requested")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, t.gen, kind, path, texts)
	}()
}

func (s *Service) run(ctx context.Context, gen uint64, kind model.Kind, path string, texts []string) {
	vectors, err := EmbedAll(ctx, s.embedder, texts, s.concurrency)
	if err == nil {
		if werr := SaveCacheFile(path, Fingerprint(s.embedder.Model(), texts), vectors); werr != nil {
			s.log.Warn().Err(werr).Str("path", path).Msg("could not write embedding cache")
		}
	}

	s.mu.Lock()
	current := s.tasks[kind] != nil && s.tasks[kind].gen == gen
	if current {
		delete(s.tasks, kind)
	}
	s.mu.Unlock()

	if !current {
		s.log.Debug().Str("kind", kind.String()).Str("path", path).Msg("embedding superseded")
		return
	}
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind.String()).Str("path", path).Msg("embedding failed")
	}
	if s.deliver != nil {
		s.deliver(Result{Kind: kind, Path: path, Vectors: vectors, Err: err})
	}
}

// Pending reports whether a computation for kind is running.
func (s *Service) Pending(kind model.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[kind] != nil
}

// Cancel stops the computation for kind, if any.
func (s *Service) Cancel(kind model.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.tasks[kind]; t != nil {
		t.cancel()
		delete(s.tasks, kind)
	}
}

// Close cancels everything and waits for workers to exit.
func (s *Service) Close() {
	s.mu.Lock()
	for kind, t := range s.tasks {
		t.cancel()
		delete(s.tasks, kind)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// LoadOrCompute returns cached vectors for path, computing and caching them
// synchronously on a miss.
func LoadOrCompute(ctx context.Context, e Embedder, path string, texts []string, concurrency int) ([]model.Vector, bool, error) {
	fp := Fingerprint(e.Model(), texts)
	vectors, err := LoadCacheFile(path, fp)
	if err == nil {
		return vectors, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrStaleCache) && !errors.Is(err, ErrBadCache) {
		return nil, false, err
	}
	vectors, err = EmbedAll(ctx, e, texts, concurrency)
	if err != nil {
		return nil, false, err
	}
	if err := SaveCacheFile(path, fp, vectors); err != nil {
		return nil, false, err
	}
	return vectors, false, nil
}
