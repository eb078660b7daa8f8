// Package embedding computes, caches and delivers sentence embeddings for the
// lines of a transcript or minutes file.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/ELITR/alignmeet/internal/model"
)

// Embedder turns one line of text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (model.Vector, error)
	// Model names the embedding model; vectors from different models are not
	// comparable.
	Model() string
}

// DefaultHashDim is the vector size of HashEmbedder when none is given.
const DefaultHashDim = 256

// HashEmbedder is a deterministic bag-of-words embedder. Each lowercased word
// is hashed into one of Dim buckets and the result is L2-normalised. It needs
// no network and gives identical texts identical vectors.
type HashEmbedder struct {
	Dim int
}

func (h HashEmbedder) dim() int {
	if h.Dim <= 0 {
		return DefaultHashDim
	}
	return h.Dim
}

func (h HashEmbedder) Model() string { return "hash" }

func (h HashEmbedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make(model.Vector, h.dim())
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		f.Write([]byte(w))
		v[f.Sum32()%uint32(len(v))]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return v, nil
}
