// Package stitch concatenates per-chunk consensus strings into one
// per-contig sequence (spec §4.8), cutting each adjacent pair at the
// boundary offsets that minimise a Needleman-Wunsch alignment cost over
// their shared overlap window, and (in diploid mode) resolving the
// haplotype-1/2 label swap between chunks by read-set agreement.
package stitch

import (
	"github.com/benedictpaten/marginpolish-go/internal/nw"
	"github.com/willf/bitset"
)

// Result is one contig's stitched output.
type Result struct {
	Sequence string
}

// Stitch concatenates an ordered slice of per-chunk consensus strings,
// where consecutive chunks are assumed to share a boundary overlap
// (spec §4.1's chunkBoundary). overlapLen bounds how much of the tail of
// chunk k and the head of chunk k+1 participate in the cut-point search.
func Stitch(consensuses []string, overlapLen int) Result {
	if len(consensuses) == 0 {
		return Result{}
	}
	acc := consensuses[0]
	for i := 1; i < len(consensuses); i++ {
		acc = stitchPair(acc, consensuses[i], overlapLen)
	}
	return Result{Sequence: acc}
}

// stitchPair finds the cut point (x into a's tail, y into b's head)
// minimising alignment cost across the overlap windows, per spec §4.8,
// and returns a[:x] ++ b[y:].
func stitchPair(a, b string, overlapLen int) string {
	aTailStart := len(a) - overlapLen
	if aTailStart < 0 {
		aTailStart = 0
	}
	bHeadEnd := overlapLen
	if bHeadEnd > len(b) {
		bHeadEnd = len(b)
	}
	aTail := []byte(a[aTailStart:])
	bHead := []byte(b[:bHeadEnd])

	x, y := bestCut(aTail, bHead)
	return a[:aTailStart+x] + b[y:]
}

// bestCut runs a global alignment of aTail against bHead and picks the
// traceback position whose running score is highest, treating that
// position's (aIndex, bIndex) as the cut point. This favours cutting
// where the two windows agree most, minimising the discontinuity a naive
// midpoint cut could introduce.
func bestCut(aTail, bHead []byte) (x, y int) {
	result := nw.Global(aTail, bHead, nw.DefaultOptions)
	if len(result.Path) == 0 {
		return len(aTail), 0
	}

	bestScore := -1 << 62
	bestX, bestY := len(aTail), 0
	running := 0
	ai, bi := 0, 0
	for _, step := range result.Path {
		switch step.Pointer {
		case nw.Diag:
			if aTail[step.AIndex] == bHead[step.BIndex] {
				running += nw.DefaultOptions.MatchScore
			} else {
				running += nw.DefaultOptions.MismatchScore
			}
			ai, bi = step.AIndex+1, step.BIndex+1
		case nw.Top:
			running += nw.DefaultOptions.GapScore
			ai = step.AIndex + 1
		case nw.Left:
			running += nw.DefaultOptions.GapScore
			bi = step.BIndex + 1
		}
		if running > bestScore {
			bestScore = running
			bestX, bestY = ai, bi
		}
	}
	return bestX, bestY
}

// ResolveHaplotypeSwap decides whether chunk k+1's hap1/hap2 read-set
// labels should be flipped relative to chunk k's, by comparing shared
// read-name overlap agreement in both orientations. Ties favour no flip
// (spec §4.8).
func ResolveHaplotypeSwap(prevHap1, prevHap2 map[string]bool, nextHap1, nextHap2 *bitset.BitSet, nextNames []string) bool {
	agreeNoFlip := agreement(prevHap1, nextHap1, nextNames) + agreement(prevHap2, nextHap2, nextNames)
	agreeFlip := agreement(prevHap1, nextHap2, nextNames) + agreement(prevHap2, nextHap1, nextNames)
	return agreeFlip > agreeNoFlip
}

func agreement(prevSet map[string]bool, nextSet *bitset.BitSet, nextNames []string) int {
	n := 0
	for i, name := range nextNames {
		if nextSet.Test(uint(i)) && prevSet[name] {
			n++
		}
	}
	return n
}
