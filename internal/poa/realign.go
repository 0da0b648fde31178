package poa

import (
	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/nw"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// RealignOptions bounds the realignment pass (spec §4.4): "iterate until
// change below threshold or max iterations."
type RealignOptions struct {
	MaxIterations          int
	ConvergenceFraction    float64
	MinInsertPromotionFrac float64
}

// ReadInput is one read's RLE sequence and per-operation weight, the
// minimal input the realignment pass needs (as opposed to a raw CIGAR
// alignment, which only the first construction pass has).
type ReadInput struct {
	RLE    *rle.String
	Weight float64
}

// Build constructs the initial graph from a reference substring and a set
// of CIGAR-derived alignments (spec §4.4's first pass), then runs the
// bounded realignment pass: each subsequent iteration re-aligns every
// read's RLE sequence against the current linear consensus with a global
// DP (internal/nw, grounded on shenwei356-LexicMap's aligner) rather than
// against the full graph topology, and rebuilds the arena from those
// paths. This trades exact graph-banded DP for a tractable approximation;
// since the graph's own consensus already reflects prior rounds of read
// support, realigning against it converges to the same fixed point for
// the common case of a majority-supported consensus.
func Build(refRLE *rle.String, alignments []*align.Alignment, reads []ReadInput, opts RealignOptions) (*Graph, *rle.String, []PositionHistogram) {
	minFrac := opts.MinInsertPromotionFrac
	if minFrac <= 0 {
		minFrac = defaultMinInsertPromotionFraction
	}

	g := NewGraph(refRLE)
	for _, aln := range alignments {
		g.AddRead(aln.Ops, minFrac)
	}
	consensus, hists := g.Consensus()

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		return g, consensus, hists
	}
	convergence := opts.ConvergenceFraction
	if convergence <= 0 {
		convergence = 0.01
	}

	for iter := 0; iter < maxIter; iter++ {
		ng := NewGraph(consensus)
		for _, r := range reads {
			if r.RLE == nil || r.RLE.Len() == 0 {
				continue
			}
			ops := realignOne(consensus, r.RLE, r.Weight)
			ng.AddRead(ops, minFrac)
		}
		newConsensus, newHists := ng.Consensus()

		changeFrac := consensusChangeFraction(consensus, newConsensus)
		g, consensus, hists = ng, newConsensus, newHists
		if changeFrac < convergence {
			break
		}
	}
	return g, consensus, hists
}

// realignOne globally aligns a read's RLE base sequence against the
// consensus RLE base sequence and translates the traceback into
// RLE-coordinate align.Ops referencing consensus positions, matching the
// vocabulary the graph construction (poa.go's AddRead) already consumes.
func realignOne(consensus, read *rle.String, weight float64) []align.Op {
	if weight <= 0 {
		weight = 1.0
	}
	result := nw.Global(consensus.Bases, read.Bases, nw.DefaultOptions)

	var ops []align.Op
	i := 0
	for i < len(result.Path) {
		step := result.Path[i]
		switch step.Pointer {
		case nw.Diag:
			ops = append(ops, align.Op{
				Kind:      align.OpMatch,
				RefPos:    step.AIndex,
				Base:      read.Bases[step.BIndex],
				RunLength: read.Lengths[step.BIndex],
				Weight:    weight,
			})
			i++
		case nw.Top:
			// Consensus position with no corresponding read run: deletion.
			ops = append(ops, align.Op{
				Kind:   align.OpDeletion,
				RefPos: step.AIndex,
				Weight: weight,
			})
			i++
		case nw.Left:
			// Run of read positions with no consensus counterpart: group
			// consecutive Left steps into a single insertion, matching how
			// the loader groups a CIGAR insertion element.
			start := step.BIndex
			end := step.BIndex
			j := i + 1
			for j < len(result.Path) && result.Path[j].Pointer == nw.Left {
				end = result.Path[j].BIndex
				j++
			}
			ops = append(ops, align.Op{
				Kind:   align.OpInsertion,
				Insert: read.Slice(start, end+1),
				Weight: weight,
			})
			i = j
		}
	}
	return ops
}

// consensusChangeFraction is the fraction of consensus RLE runs whose base
// or run length differs between two successive iterations' consensus
// strings, the "change below threshold" measure spec §4.4 calls for.
func consensusChangeFraction(old, new *rle.String) float64 {
	n := old.Len()
	if new.Len() > n {
		n = new.Len()
	}
	if n == 0 {
		return 0
	}
	diff := 0
	for i := 0; i < n; i++ {
		if i >= old.Len() || i >= new.Len() {
			diff++
			continue
		}
		if old.Bases[i] != new.Bases[i] || old.Lengths[i] != new.Lengths[i] {
			diff++
		}
	}
	return float64(diff) / float64(n)
}
