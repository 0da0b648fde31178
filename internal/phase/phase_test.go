package phase

import (
	"testing"

	"github.com/benedictpaten/marginpolish-go/internal/bubble"
	"github.com/benedictpaten/marginpolish-go/internal/params"
)

func testBubbles() []bubble.Bubble {
	return []bubble.Bubble{
		{RefStart: 10, RefEnd: 11, Alleles: []bubble.Allele{{Sequence: "A", IsRefAllele: true}, {Sequence: "G"}}},
		{RefStart: 20, RefEnd: 21, Alleles: []bubble.Allele{{Sequence: "C", IsRefAllele: true}, {Sequence: "T"}}},
		{RefStart: 30, RefEnd: 31, Alleles: []bubble.Allele{{Sequence: "A", IsRefAllele: true}, {Sequence: "T"}}},
	}
}

func testParams() params.PhaseParams {
	return params.PhaseParams{
		ReadErrorRate:      0.05,
		MaxEMIterations:    10,
		UnphasedConfidence: 0.5,
	}
}

func TestPhaseProducesDisjointHaplotypes(t *testing.T) {
	bubbles := testBubbles()
	// Two clean haplotype groups voting allele 0 and allele 1 throughout,
	// plus one ambiguous read that should land unphased.
	votes := [][]int{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
		{NoCall, NoCall, NoCall},
	}
	_, assignment := Phase(bubbles, votes, testParams())
	if !assignment.Disjoint() {
		t.Error("Hap1 and Hap2 overlap after phasing")
	}
	if assignment.NumReads != uint(len(votes)) {
		t.Errorf("NumReads = %d, want %d", assignment.NumReads, len(votes))
	}
}

func TestPhaseSeparatesTwoCleanHaplotypeGroups(t *testing.T) {
	bubbles := testBubbles()
	votes := [][]int{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}
	_, assignment := Phase(bubbles, votes, testParams())
	group0 := assignment.Hap1.Test(0)
	for i := 0; i < 3; i++ {
		if assignment.Hap1.Test(uint(i)) != group0 {
			t.Errorf("read %d disagrees with the rest of its voting group's haplotype assignment", i)
		}
	}
	group3 := assignment.Hap1.Test(3)
	for i := 3; i < 6; i++ {
		if assignment.Hap1.Test(uint(i)) != group3 {
			t.Errorf("read %d disagrees with the rest of its voting group's haplotype assignment", i)
		}
	}
	if group0 == group3 {
		t.Error("the two voting groups ended up on the same haplotype")
	}
}

func TestPhaseOnEmptyBubblesReturnsAllUnphased(t *testing.T) {
	votes := [][]int{{}, {}}
	_, assignment := Phase(nil, votes, testParams())
	for i := range votes {
		if !assignment.Unphased(i) {
			t.Errorf("read %d should be unphased when there are no bubbles", i)
		}
	}
}

func TestChooseGenotypesFavoursHeterozygousWhenVotesClearlyDisagree(t *testing.T) {
	bub := bubble.Bubble{RefStart: 10, RefEnd: 11, Alleles: []bubble.Allele{{Sequence: "A"}, {Sequence: "G"}}}
	votes := [][]int{{0}, {0}, {0}, {1}, {1}, {1}}
	assignment := NewAssignment(len(votes))
	for i := 0; i < 3; i++ {
		assignment.assignHap1(i)
	}
	for i := 3; i < 6; i++ {
		assignment.assignHap2(i)
	}

	h1, h2 := bestGenotypePair(votes, assignment, 0, bub, 0.05, 0.001)
	if h1 == h2 {
		t.Errorf("bestGenotypePair(...) = (%d, %d), want a heterozygous call given the clean vote split", h1, h2)
	}
}

func TestChooseGenotypesPrefersHomozygousAtLowSupportSites(t *testing.T) {
	bub := bubble.Bubble{RefStart: 10, RefEnd: 11, Alleles: []bubble.Allele{{Sequence: "A"}, {Sequence: "G"}}}
	// A single read weakly favouring allele 1 on hap2 shouldn't be enough
	// to overcome the prior against a heterozygous call.
	votes := [][]int{{0}, {1}}
	assignment := NewAssignment(len(votes))
	assignment.assignHap1(0)
	assignment.assignHap2(1)

	h1, h2 := bestGenotypePair(votes, assignment, 0, bub, 0.4, 0.001)
	if h1 != h2 {
		t.Errorf("bestGenotypePair(...) = (%d, %d), want a homozygous call when the prior dominates a single ambiguous read", h1, h2)
	}
}

func TestDisjointDetectsOverlap(t *testing.T) {
	a := NewAssignment(3)
	a.assignHap1(0)
	a.Hap2.Set(0) // force an overlap the normal API would never produce
	if a.Disjoint() {
		t.Error("Disjoint() should report false when the two sets overlap")
	}
}
