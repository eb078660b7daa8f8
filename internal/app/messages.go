package app

import "github.com/ELITR/alignmeet/internal/embedding"

// EmbeddingsMsg carries a finished background embedding computation.
type EmbeddingsMsg struct {
	Result embedding.Result
}

// requestEmbeddingsMsg asks the model to load or compute embeddings for both
// open files.
type requestEmbeddingsMsg struct{}

// SpinnerTickMsg advances the embedding spinner.
type SpinnerTickMsg struct{}

// ClearTransientErrorMsg clears a transient error or notice after a timeout.
type ClearTransientErrorMsg struct{}
