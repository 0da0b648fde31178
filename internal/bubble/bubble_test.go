package bubble

import (
	"testing"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/poa"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

func plainOps(ref *rle.String) []align.Op {
	var ops []align.Op
	for i := range ref.Bases {
		ops = append(ops, align.Op{Kind: align.OpMatch, RefPos: i, Base: ref.Bases[i], RunLength: ref.Lengths[i], Weight: 1})
	}
	return ops
}

func insertionOps(ref *rle.String, afterPos int, insert string) []align.Op {
	var ops []align.Op
	for i := range ref.Bases {
		ops = append(ops, align.Op{Kind: align.OpMatch, RefPos: i, Base: ref.Bases[i], RunLength: ref.Lengths[i], Weight: 1})
		if i == afterPos {
			ops = append(ops, align.Op{Kind: align.OpInsertion, Insert: rle.Compress(insert), Weight: 1})
		}
	}
	return ops
}

func TestExtractFindsBubbleAtAnObservedInsertion(t *testing.T) {
	ref := rle.Compress("AACC")
	g := poa.NewGraph(ref)
	for i := 0; i < 5; i++ {
		g.AddRead(plainOps(ref), 1)
	}
	for i := 0; i < 3; i++ {
		g.AddRead(insertionOps(ref, 1, "G"), 1)
	}

	bg := Extract(g, nil, Options{MinAlleleSupport: 0})
	if len(bg.Bubbles) != 1 {
		t.Fatalf("len(Bubbles) = %d, want 1", len(bg.Bubbles))
	}
	b := bg.Bubbles[0]
	if len(b.Alleles) != 2 {
		t.Fatalf("len(Alleles) = %d, want 2", len(b.Alleles))
	}
	if b.Alleles[0].Sequence != "" || !b.Alleles[0].IsRefAllele {
		t.Errorf("expected the reference (empty) allele first and marked, got %+v", b.Alleles[0])
	}
	if b.Alleles[1].Sequence != "G" {
		t.Errorf("expected the second allele to be the inserted \"G\", got %q", b.Alleles[1].Sequence)
	}
	if b.Alleles[0].Weight <= b.Alleles[1].Weight {
		t.Errorf("expected the plain allele (weight 8) to outweigh the inserted allele (weight 3)")
	}
}

func TestExtractWithNoBranchingFindsNoBubbles(t *testing.T) {
	ref := rle.Compress("AACC")
	g := poa.NewGraph(ref)
	for i := 0; i < 5; i++ {
		g.AddRead(plainOps(ref), 1)
	}
	bg := Extract(g, nil, Options{MinAlleleSupport: 0})
	if len(bg.Bubbles) != 0 {
		t.Errorf("len(Bubbles) = %d, want 0 for a graph with no branching", len(bg.Bubbles))
	}
}

func TestAllelesFromReadsGroupsByDistinctSubstring(t *testing.T) {
	alignments := []*align.Alignment{
		{Ops: []align.Op{
			{Kind: align.OpMatch, RefPos: 0, Base: 'A', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 1, Base: 'C', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 2, Base: 'G', RunLength: 1},
		}},
		{Ops: []align.Op{
			{Kind: align.OpMatch, RefPos: 0, Base: 'A', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 1, Base: 'C', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 2, Base: 'G', RunLength: 1},
		}},
		{Ops: []align.Op{
			{Kind: align.OpMatch, RefPos: 0, Base: 'A', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 1, Base: 'T', RunLength: 1},
			{Kind: align.OpMatch, RefPos: 2, Base: 'G', RunLength: 1},
		}},
	}
	alleles := allelesFromReads(0, 2, alignments)
	if len(alleles) != 2 {
		t.Fatalf("len(alleles) = %d, want 2", len(alleles))
	}
	bySeq := map[string]float64{}
	for _, a := range alleles {
		bySeq[a.Sequence] = a.Weight
	}
	if bySeq["C"] != 2 {
		t.Errorf("allele \"C\" weight = %v, want 2", bySeq["C"])
	}
	if bySeq["T"] != 1 {
		t.Errorf("allele \"T\" weight = %v, want 1", bySeq["T"])
	}
}

func TestReadSubstringSkipsAlignmentsThatNeverSpanTheBubble(t *testing.T) {
	aln := &align.Alignment{Ops: []align.Op{
		{Kind: align.OpMatch, RefPos: 5, Base: 'A', RunLength: 1},
	}}
	if _, ok := readSubstring(0, 2, aln); ok {
		t.Error("expected ok=false for an alignment with no ops inside the bubble span")
	}
}

func TestExtractFallsBackToEdgeLabelsWhenReadAllelesFindNothing(t *testing.T) {
	// A bubble's branch and converge nodes are adjacent for a
	// single-position insertion, so a read-substring search strictly
	// between them (exclusive both ends) always comes up empty; Extract
	// should keep the edge-label alleles in that case rather than drop
	// the bubble.
	ref := rle.Compress("AACC")
	g := poa.NewGraph(ref)
	for i := 0; i < 5; i++ {
		g.AddRead(plainOps(ref), 1)
	}
	for i := 0; i < 3; i++ {
		g.AddRead(insertionOps(ref, 1, "G"), 1)
	}
	alignments := []*align.Alignment{
		{Ops: plainOps(ref)},
		{Ops: insertionOps(ref, 1, "G")},
	}

	bg := Extract(g, alignments, Options{UseReadAlleles: true, MinAlleleSupport: 0})
	if len(bg.Bubbles) != 1 {
		t.Fatalf("len(Bubbles) = %d, want 1", len(bg.Bubbles))
	}
}

func TestFilterAllelesDropsBelowMinSupport(t *testing.T) {
	ref := rle.Compress("AACC")
	g := poa.NewGraph(ref)
	for i := 0; i < 5; i++ {
		g.AddRead(plainOps(ref), 1)
	}
	// A single low-weight insertion shouldn't survive a high support floor.
	g.AddRead(insertionOps(ref, 1, "G"), 1)

	bg := Extract(g, nil, Options{MinAlleleSupport: 2})
	if len(bg.Bubbles) != 0 {
		t.Errorf("expected the low-support allele to be filtered out, leaving no bubble, got %d", len(bg.Bubbles))
	}
}
