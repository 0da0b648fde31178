// Package downsample caps per-chunk coverage depth by random read
// retention (spec §4.3), seeded deterministically by chunk index so a run
// is reproducible regardless of worker scheduling order.
package downsample

import (
	"math/rand"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/loader"
)

// Result holds the outcome of a downsampling attempt.
type Result struct {
	Downsampled bool

	FilteredReads      []*loader.Read
	FilteredAlignments []*align.Alignment

	DiscardedReads      []*loader.Read
	DiscardedAlignments []*align.Alignment

	ApproxDepth float64
}

// Apply retains each read independently with probability targetDepth/depth
// when the estimated depth exceeds targetDepth; otherwise it returns the
// input unchanged. targetDepth <= 0 disables downsampling entirely (spec
// §6: "maxDepth 0 disables downsampling").
func Apply(chunkIndex int, targetDepth int, chunkLen int, reads []*loader.Read, alignments []*align.Alignment) Result {
	depth := approxDepth(alignments, chunkLen)
	if targetDepth <= 0 || depth <= float64(targetDepth) {
		return Result{
			Downsampled:         false,
			FilteredReads:       reads,
			FilteredAlignments:  alignments,
			ApproxDepth:         depth,
		}
	}

	keepProb := float64(targetDepth) / depth
	rng := rand.New(rand.NewSource(int64(chunkIndex)))

	res := Result{Downsampled: true, ApproxDepth: depth}
	for i, r := range reads {
		if rng.Float64() < keepProb {
			res.FilteredReads = append(res.FilteredReads, r)
			res.FilteredAlignments = append(res.FilteredAlignments, alignments[i])
		} else {
			res.DiscardedReads = append(res.DiscardedReads, r)
			res.DiscardedAlignments = append(res.DiscardedAlignments, alignments[i])
		}
	}
	return res
}

// approxDepth computes d = Σ alignedRefLen / L (spec §4.3).
func approxDepth(alignments []*align.Alignment, chunkLen int) float64 {
	if chunkLen <= 0 {
		return 0
	}
	total := 0
	for _, a := range alignments {
		total += a.AlignedRefLength()
	}
	return float64(total) / float64(chunkLen)
}
