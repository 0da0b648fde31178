package stitch

import (
	"strings"
	"testing"

	"github.com/willf/bitset"
)

func TestStitchOfOneSequenceReturnsItUnchanged(t *testing.T) {
	res := Stitch([]string{"ACGTACGT"}, 4)
	if res.Sequence != "ACGTACGT" {
		t.Errorf("Sequence = %q, want %q", res.Sequence, "ACGTACGT")
	}
}

func TestStitchJoinsOverlappingChunksWithoutDuplication(t *testing.T) {
	// "ACGTACGTTTGGCC": chunk A covers the first 10 bases, chunk B repeats
	// the last 5 of those as its overlap before continuing.
	a := "ACGTACGTTT"
	b := "CGTTTGGCC"
	res := Stitch([]string{a, b}, 5)
	if !strings.HasPrefix(res.Sequence, "ACGTACGT") {
		t.Errorf("Sequence = %q, want a prefix of %q", res.Sequence, a)
	}
	if !strings.HasSuffix(res.Sequence, "GGCC") {
		t.Errorf("Sequence = %q, want a suffix of %q", res.Sequence, b)
	}
	// The stitched result should be shorter than the naive concatenation,
	// since the shared overlap is not duplicated.
	if len(res.Sequence) >= len(a)+len(b) {
		t.Errorf("len(Sequence) = %d, want less than the unstitched concatenation %d", len(res.Sequence), len(a)+len(b))
	}
}

func TestStitchFoldsPairsLeftToRightAcrossMultipleChunks(t *testing.T) {
	chunks := []string{"ACGTACGTTT", "CGTTTGGCCA", "GGCCATTTAA"}
	whole := Stitch(chunks, 5)
	pairwise := stitchPair(stitchPair(chunks[0], chunks[1], 5), chunks[2], 5)
	if whole.Sequence != pairwise {
		t.Errorf("Stitch() of 3 chunks = %q, want the same as folding stitchPair left to right: %q", whole.Sequence, pairwise)
	}
}

func TestResolveHaplotypeSwapNoFlipWhenAgreementMatches(t *testing.T) {
	prevHap1 := map[string]bool{"r1": true, "r2": true}
	prevHap2 := map[string]bool{"r3": true, "r4": true}
	nextNames := []string{"r1", "r2", "r3", "r4"}
	nextHap1 := bitset.New(4)
	nextHap1.Set(0)
	nextHap1.Set(1)
	nextHap2 := bitset.New(4)
	nextHap2.Set(2)
	nextHap2.Set(3)

	if ResolveHaplotypeSwap(prevHap1, prevHap2, nextHap1, nextHap2, nextNames) {
		t.Error("expected no flip when labels already agree")
	}
}

func TestResolveHaplotypeSwapFlipsWhenLabelsAreReversed(t *testing.T) {
	prevHap1 := map[string]bool{"r1": true, "r2": true}
	prevHap2 := map[string]bool{"r3": true, "r4": true}
	nextNames := []string{"r1", "r2", "r3", "r4"}
	// nextHap1/nextHap2 are swapped relative to the previous chunk's labels.
	nextHap1 := bitset.New(4)
	nextHap1.Set(2)
	nextHap1.Set(3)
	nextHap2 := bitset.New(4)
	nextHap2.Set(0)
	nextHap2.Set(1)

	if !ResolveHaplotypeSwap(prevHap1, prevHap2, nextHap1, nextHap2, nextNames) {
		t.Error("expected a flip when the next chunk's haplotype labels are reversed")
	}
}

func TestResolveHaplotypeSwapTiesFavourNoFlip(t *testing.T) {
	// No overlapping read names at all: agreement is 0 in both
	// orientations, which must not trigger a flip.
	prevHap1 := map[string]bool{"a": true}
	prevHap2 := map[string]bool{"b": true}
	nextNames := []string{"c", "d"}
	nextHap1 := bitset.New(2)
	nextHap1.Set(0)
	nextHap2 := bitset.New(2)
	nextHap2.Set(1)

	if ResolveHaplotypeSwap(prevHap1, prevHap2, nextHap1, nextHap2, nextNames) {
		t.Error("expected a tie (no shared read names) to favour no flip")
	}
}
