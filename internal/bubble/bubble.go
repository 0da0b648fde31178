// Package bubble extracts variant sites from a POA consensus graph (spec
// §4.6). A bubble is a branch-then-reconverge region of the arena; each
// bubble carries the distinct allele strings observed crossing it, each
// allele weighted by its supporting reads.
package bubble

import (
	"sort"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/poa"
)

// Allele is one distinct string observed traversing a bubble. Weight is
// an edge-weight sum in the default (edge-label) extraction mode, or a
// supporting-read count in the read-substring mode (Options.UseReadAlleles).
type Allele struct {
	Sequence    string
	Weight      float64
	IsRefAllele bool
}

// Bubble is one candidate variant site: a branch node, a converge node,
// and the alleles observed between them.
type Bubble struct {
	RefStart int // reference RLE coordinate of the branch node
	RefEnd   int // reference RLE coordinate of the converge node
	Alleles  []Allele
}

// Graph is the ordered sequence of bubbles for one chunk, plus the
// reference fragments between them (spec's Bubble Graph glossary entry).
// The inter-bubble reference fragments are recoverable from the POA
// consensus directly, so Graph stores only the bubble sequence.
type Graph struct {
	Bubbles []Bubble
}

// Options configures extraction.
type Options struct {
	// UseReadAlleles synthesises allele strings from each read's own
	// substring spanning the bubble (Extract's alignments argument)
	// instead of from the arena's aggregated edge labels. The two modes
	// can disagree at sites where several reads share an edge but diverge
	// only in bases the arena folded onto the same node.
	UseReadAlleles   bool
	MinAlleleSupport float64
}

// Extract scans the graph from source to sink, opening a bubble at any
// node with more than one outgoing edge carrying non-zero weight (a
// branch) and closing it at the next node where all open branches have
// converged (spec §4.6). alignments is only consulted when
// opts.UseReadAlleles is set; callers extracting edge-label alleles may
// pass nil.
func Extract(g *poa.Graph, alignments []*align.Alignment, opts Options) *Graph {
	out := &Graph{}
	cur := g.Source
	visited := map[int]bool{}

	for {
		visited[cur] = true
		branches := liveOutEdges(g, cur)
		if len(branches) <= 1 {
			next, ok := advance(g, cur)
			if !ok || next == g.Sink {
				break
			}
			cur = next
			continue
		}

		converge, edgeAlleles := walkBubble(g, cur, branches)
		b := Bubble{RefStart: g.Nodes[cur].RefPos, RefEnd: g.Nodes[converge].RefPos}

		alleles := edgeAlleles
		if opts.UseReadAlleles && len(alignments) > 0 {
			// A bubble spanning a single reference position (the common
			// case for an isolated insertion) has no interior coordinate
			// for a read substring to occupy, so the read-derived search
			// comes up empty; fall back to the edge-label alleles rather
			// than drop an otherwise well-supported bubble.
			if readAlleles := allelesFromReads(b.RefStart, b.RefEnd, alignments); len(readAlleles) > 1 {
				alleles = readAlleles
			}
		}
		b.Alleles = filterAlleles(alleles, opts.MinAlleleSupport)
		markReferenceAllele(b.Alleles, g, cur, converge)
		if len(b.Alleles) > 1 {
			out.Bubbles = append(out.Bubbles, b)
		}

		if converge == g.Sink {
			break
		}
		cur = converge
	}
	return out
}

// allelesFromReads derives allele strings directly from each read's own
// substring between refStart and refEnd, exclusive, rather than from the
// graph's aggregated edge labels (Options.UseReadAlleles's read-substring
// mode). Distinct observed substrings become distinct alleles, each
// weighted by the count of reads that produced it.
func allelesFromReads(refStart, refEnd int, alignments []*align.Alignment) []Allele {
	bySeq := map[string]*Allele{}
	var order []string
	for _, aln := range alignments {
		seq, ok := readSubstring(refStart, refEnd, aln)
		if !ok {
			continue
		}
		a, exists := bySeq[seq]
		if !exists {
			a = &Allele{Sequence: seq}
			bySeq[seq] = a
			order = append(order, seq)
		}
		a.Weight++
	}
	alleles := make([]Allele, 0, len(order))
	for _, seq := range order {
		alleles = append(alleles, *bySeq[seq])
	}
	return alleles
}

// readSubstring reconstructs one read's observed sequence strictly
// between refStart and refEnd, mirroring the reference span walkBubble's
// edge-label walk covers. ok is false if the read's alignment never
// touches the span.
func readSubstring(refStart, refEnd int, aln *align.Alignment) (string, bool) {
	var seq []byte
	seen := false
	for _, op := range aln.Ops {
		switch op.Kind {
		case align.OpMatch:
			if op.RefPos <= refStart || op.RefPos >= refEnd {
				continue
			}
			seen = true
			for i := 0; i < op.RunLength; i++ {
				seq = append(seq, op.Base)
			}
		case align.OpDeletion:
			if op.RefPos <= refStart || op.RefPos >= refEnd {
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
		return "", false
	}
	return string(seq), true
}

// liveOutEdges returns the node's outgoing edges with non-zero weight.
func liveOutEdges(g *poa.Graph, node int) []int {
	var out []int
	for _, e := range g.Nodes[node].Out {
		if g.Edges[e].Weight > 0 {
			out = append(out, e)
		}
	}
	return out
}

// advance follows the single live outgoing edge from a non-branching
// node, or any outgoing edge if none carry weight (an unsupported
// reference-only stretch).
func advance(g *poa.Graph, node int) (int, bool) {
	edges := g.Nodes[node].Out
	if len(edges) == 0 {
		return 0, false
	}
	live := liveOutEdges(g, node)
	if len(live) == 1 {
		return g.Edges[live[0]].To, true
	}
	return g.Edges[edges[0]].To, true
}

// walkBubble traces each branch independently, accumulating its sequence
// and weight, until all branches land on a common node (the converge
// point). Branches that promoted insertion nodes simply walk through
// them like any other node; their base becomes part of the allele
// string.
func walkBubble(g *poa.Graph, branchNode int, branchEdges []int) (int, []Allele) {
	type path struct {
		node    int
		seq     []byte
		weight  float64
	}
	var paths []path
	for _, e := range branchEdges {
		edge := g.Edges[e]
		seq := []byte(edge.Label)
		paths = append(paths, path{node: edge.To, seq: seq, weight: edge.Weight})
	}

	// Walk each path forward until they all agree on the current node,
	// bounded by the arena size to guard against a construction bug
	// creating a cycle.
	for step := 0; step < len(g.Nodes)+1; step++ {
		agree := true
		first := paths[0].node
		for _, p := range paths[1:] {
			if p.node != first {
				agree = false
				break
			}
		}
		if agree {
			break
		}
		for i := range paths {
			n := g.Nodes[paths[i].node]
			paths[i].seq = append(paths[i].seq, n.RefBase)
			next, ok := advance(g, paths[i].node)
			if !ok {
				break
			}
			paths[i].node = next
		}
	}

	converge := paths[0].node
	bySeq := map[string]*Allele{}
	var order []string
	for _, p := range paths {
		seq := string(p.seq)
		a, ok := bySeq[seq]
		if !ok {
			a = &Allele{Sequence: seq}
			bySeq[seq] = a
			order = append(order, seq)
		}
		a.Weight += p.weight
	}
	var alleles []Allele
	for _, seq := range order {
		alleles = append(alleles, *bySeq[seq])
	}
	return converge, alleles
}

// filterAlleles drops alleles below the minimum support threshold and
// sorts deterministically by descending weight, then sequence.
func filterAlleles(alleles []Allele, minSupport float64) []Allele {
	var out []Allele
	for _, a := range alleles {
		if a.Weight >= minSupport {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// markReferenceAllele flags whichever allele matches the reference path
// between branchNode and converge (spec §4.6: "mark the reference path's
// allele as the reference allele").
func markReferenceAllele(alleles []Allele, g *poa.Graph, branchNode, converge int) {
	var ref []byte
	for pos := g.Nodes[branchNode].RefPos + 1; pos < g.Nodes[converge].RefPos; pos++ {
		idx := g.RefNode(pos)
		if idx < 0 || idx >= len(g.Nodes) {
			continue
		}
		ref = append(ref, g.Nodes[idx].RefBase)
	}
	refSeq := string(ref)
	for i := range alleles {
		if alleles[i].Sequence == refSeq {
			alleles[i].IsRefAllele = true
			return
		}
	}
}
