// Package align proposes transcript-to-minute links from sentence embeddings.
package align

import (
	"math"

	"github.com/ELITR/alignmeet/internal/model"
)

// DefaultThreshold is the cosine distance below which a link is proposed.
const DefaultThreshold = 0.5

// Proposal values other than 1-based minute refs.
const (
	// None means no minute is close enough.
	None = 0
	// Skip marks an act that has no embedding and must be left untouched.
	Skip = -1
)

// CosineDistance returns 1 - cos(a, b), which lies in [0, 2]. Vectors of
// different length, or where either is all zeros, are at distance 1.
func CosineDistance(a, b model.Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Propose returns, for each transcript vector, the 1-based index of the
// nearest minute when its distance is below threshold, None otherwise. Ties go
// to the lowest index. A nil transcript vector yields Skip; a nil minute
// vector is never chosen.
func Propose(transcript, minutes []model.Vector, threshold float64) []int {
	out := make([]int, len(transcript))
	for i, t := range transcript {
		if t == nil {
			out[i] = Skip
			continue
		}
		best, bestDist := -1, math.Inf(1)
		for j, m := range minutes {
			if m == nil {
				continue
			}
			if d := CosineDistance(t, m); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 && bestDist < threshold {
			out[i] = best + 1
		}
	}
	return out
}

// Options controls how proposals are merged into live annotations.
type Options struct {
	// DisregardExisting allows overwriting confirmed links.
	DisregardExisting bool
	// Final marks merged links as confirmed.
	Final bool
}

// Change is one act's new state as decided by Merge.
type Change struct {
	Index  int
	Minute *model.Minute
	Final  bool
}

// Merge decides how proposals apply to acts. Only acts that are unlinked or
// tentative are touched unless DisregardExisting is set. A None proposal
// unlinks the act. Acts whose state would not change are omitted. Merge does
// not mutate its arguments.
func Merge(acts []*model.DialogAct, minutes []*model.Minute, proposals []int, opts Options) []Change {
	var changes []Change
	for i, p := range proposals {
		if i >= len(acts) || p == Skip || p > len(minutes) {
			continue
		}
		da := acts[i]
		if da.Minute != nil && da.Final && !opts.DisregardExisting {
			continue
		}
		c := Change{Index: i, Final: true}
		if p != None {
			c.Minute = minutes[p-1]
			c.Final = opts.Final
		}
		if c.Minute == da.Minute && c.Final == da.Final {
			continue
		}
		changes = append(changes, c)
	}
	return changes
}

// Vectors collects the embeddings of acts, keeping nil for missing ones.
func Vectors(acts []*model.DialogAct) []model.Vector {
	out := make([]model.Vector, len(acts))
	for i, da := range acts {
		out[i] = da.Embedding
	}
	return out
}

// MinuteVectors collects the embeddings of minutes.
func MinuteVectors(minutes []*model.Minute) []model.Vector {
	out := make([]model.Vector, len(minutes))
	for i, m := range minutes {
		out[i] = m.Embedding
	}
	return out
}
