package poa

import (
	"testing"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

func TestConsensusOfEmptyGraphReturnsReferenceUnchanged(t *testing.T) {
	ref := rle.Compress("ACGTACGT")
	g := NewGraph(ref)
	consensus, _ := g.Consensus()
	if consensus.Expand() != ref.Expand() {
		t.Errorf("Consensus() of an untouched graph = %q, want %q", consensus.Expand(), ref.Expand())
	}
}

func TestNodeCountMatchesReferencePlusOne(t *testing.T) {
	ref := rle.Compress("ACGTACGT")
	g := NewGraph(ref)
	if got, want := len(g.Nodes), ref.Len()+1; got != want {
		t.Errorf("len(Nodes) = %d, want %d", got, want)
	}
}

func matchOps(ref *rle.String) []align.Op {
	var ops []align.Op
	for i := range ref.Bases {
		ops = append(ops, align.Op{Kind: align.OpMatch, RefPos: i, Base: ref.Bases[i], RunLength: ref.Lengths[i], Weight: 1})
	}
	return ops
}

func TestAddReadMatchingReferenceKeepsConsensusUnchanged(t *testing.T) {
	ref := rle.Compress("ACGTACGT")
	g := NewGraph(ref)
	for i := 0; i < 5; i++ {
		g.AddRead(matchOps(ref), 0.5)
	}
	consensus, _ := g.Consensus()
	if consensus.Expand() != ref.Expand() {
		t.Errorf("Consensus() = %q, want %q", consensus.Expand(), ref.Expand())
	}
}

func TestConsensusIsDeterministicAcrossRuns(t *testing.T) {
	ref := rle.Compress("ACGTACGT")
	build := func() string {
		g := NewGraph(ref)
		for i := 0; i < 7; i++ {
			g.AddRead(matchOps(ref), 0.5)
		}
		consensus, _ := g.Consensus()
		return consensus.Expand()
	}
	first := build()
	for i := 0; i < 5; i++ {
		if got := build(); got != first {
			t.Fatalf("Consensus() run %d = %q, want %q", i, got, first)
		}
	}
}

func TestMajorityVariantWinsConsensus(t *testing.T) {
	ref := rle.Compress("ACGTACGT")
	g := NewGraph(ref)
	for i := 0; i < 7; i++ {
		g.AddRead(matchOps(ref), 0.5)
	}
	// Three reads disagree with the reference at position 0.
	variant := matchOps(ref)
	variant[0].Base = 'T'
	for i := 0; i < 3; i++ {
		g.AddRead(variant, 0.5)
	}
	consensus, _ := g.Consensus()
	if consensus.Bases[0] != 'A' {
		t.Errorf("consensus base at position 0 = %c, want 'A' (majority)", consensus.Bases[0])
	}
}
