// Package phase assigns a chunk's reads to two haplotypes and chooses, per
// bubble, the allele pair maximising phased likelihood (spec §4.7).
package phase

import (
	"math"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/bubble"
)

// NoCall marks a read with no usable observation at a bubble (its
// alignment didn't span the bubble, or its substring matched no known
// allele).
const NoCall = -1

// BuildVotes computes, for every (read, bubble) pair, which allele index
// the read's own substring across the bubble matches, or NoCall. This is
// the "per-read allele-vote vector" spec §4.7's k-means initialisation
// clusters on.
func BuildVotes(bubbles []bubble.Bubble, alignments []*align.Alignment) [][]int {
	votes := make([][]int, len(alignments))
	for r, aln := range alignments {
		row := make([]int, len(bubbles))
		for b, bub := range bubbles {
			row[b] = voteFor(bub, aln)
		}
		votes[r] = row
	}
	return votes
}

// voteFor reconstructs the read's substring strictly between a bubble's
// branch and converge reference positions and matches it against the
// bubble's known alleles.
func voteFor(bub bubble.Bubble, aln *align.Alignment) int {
	var seq []byte
	seen := false
	for _, op := range aln.Ops {
		switch op.Kind {
		case align.OpMatch:
			if op.RefPos <= bub.RefStart || op.RefPos >= bub.RefEnd {
				continue
			}
			seen = true
			for i := 0; i < op.RunLength; i++ {
				seq = append(seq, op.Base)
			}
		case align.OpDeletion:
			if op.RefPos <= bub.RefStart || op.RefPos >= bub.RefEnd {
				continue
			}
			seen = true
		case align.OpInsertion:
			if !seen {
				continue
			}
			seq = append(seq, op.Insert.Expand()...)
		}
	}
	if !seen {
		return NoCall
	}
	observed := string(seq)
	for i, a := range bub.Alleles {
		if a.Sequence == observed {
			return i
		}
	}
	return NoCall
}

// logP is the per-call emission log-probability: readErrorRate of
// disagreeing with the true allele, spread uniformly over the other
// observed alleles.
func logP(vote, trueAllele, numAlleles int, readErrorRate float64) float64 {
	if vote == NoCall {
		return 0 // no information
	}
	if vote == trueAllele {
		return math.Log(1 - readErrorRate)
	}
	if numAlleles <= 1 {
		return math.Log(readErrorRate)
	}
	return math.Log(readErrorRate / float64(numAlleles-1))
}
