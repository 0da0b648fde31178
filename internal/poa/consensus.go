package poa

import (
	"sort"

	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// PositionHistogram is the observed run-length histogram, keyed by run
// length, for the base chosen at one consensus position. The RLE Length
// Model (spec §4.5) consumes these to re-estimate the final run length.
type PositionHistogram struct {
	Base      byte
	Histogram map[int]float64
}

// Consensus traverses the graph from source to sink, greedily choosing the
// highest-weighted outgoing edge and, at each visited node, the
// highest-weighted base (or a deletion) per spec §4.4. It returns the
// consensus RLE string alongside each emitted position's run-length
// histogram, for use by the RLE Length Model.
//
// Guarantees: an empty (no reads added) graph reproduces the seed
// reference substring unchanged, since every node's fallback is its own
// RefBase/RefRunLength.
func (g *Graph) Consensus() (*rle.String, []PositionHistogram) {
	out := &rle.String{}
	var hists []PositionHistogram

	cur := g.Source
	visited := make(map[int]bool)
	for {
		visited[cur] = true
		edgeID, ok := g.bestOutEdge(cur)
		if !ok {
			break
		}
		next := g.Edges[edgeID].To
		if visited[next] && next != g.Sink {
			// Defensive: a cycle would only arise from a construction
			// bug; stop rather than loop forever.
			break
		}

		node := g.Nodes[next]
		base, runLength, hist, emit := g.chooseEmission(node)
		if emit {
			out.Bases = append(out.Bases, base)
			out.Lengths = append(out.Lengths, runLength)
			hists = append(hists, PositionHistogram{Base: base, Histogram: hist})
		}

		if next == g.Sink {
			break
		}
		cur = next
	}
	return out, hists
}

// bestOutEdge picks the highest-weighted outgoing edge of a node, breaking
// ties by lowest edge ID for determinism (spec §8's POA-determinism
// property).
func (g *Graph) bestOutEdge(node int) (int, bool) {
	out := g.Nodes[node].Out
	if len(out) == 0 {
		return 0, false
	}
	best := out[0]
	for _, e := range out[1:] {
		if g.Edges[e].Weight > g.Edges[best].Weight {
			best = e
		}
	}
	return best, true
}

// chooseEmission decides, for a visited node, whether to emit a base
// (and which one) or to treat the node as deleted. Ties break by
// reference base, then lexicographically (spec §4.4).
func (g *Graph) chooseEmission(node *Node) (base byte, runLength int, hist map[int]float64, emit bool) {
	total := node.totalBaseWeight()
	if total == 0 && node.DeleteWeight == 0 {
		// No observations at all: fall back to the seed reference base
		// (or, for a promoted insertion node with no support, drop it).
		if node.RefPos >= 0 {
			return node.RefBase, node.RefRunLength, map[int]float64{node.RefRunLength: 0}, true
		}
		return 0, 0, nil, false
	}
	if node.DeleteWeight > total {
		return 0, 0, nil, false
	}

	base = pickBase(node)
	hist = node.RunHist[base]
	runLength = modeRunLength(hist, node.RefBase == base, node.RefRunLength)
	return base, runLength, hist, true
}

// pickBase chooses the highest-weighted observed base, breaking ties by
// preferring the reference base and then lexicographically.
func pickBase(node *Node) byte {
	var candidates []byte
	for b := range node.BaseWeight {
		candidates = append(candidates, b)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	best := candidates[0]
	bestWeight := node.BaseWeight[best]
	for _, b := range candidates[1:] {
		w := node.BaseWeight[b]
		switch {
		case w > bestWeight:
			best, bestWeight = b, w
		case w == bestWeight && b == node.RefBase:
			best = b
		}
	}
	return best
}

// modeRunLength returns the weighted-mode run length observed for the
// chosen base, falling back to the reference run length when there is no
// histogram (e.g. a reference base retained purely because it beat the
// deletion weight without direct support).
func modeRunLength(hist map[int]float64, isRefBase bool, refRunLength int) int {
	if len(hist) == 0 {
		if isRefBase {
			return refRunLength
		}
		return 1
	}
	var lengths []int
	for l := range hist {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)
	best := lengths[0]
	bestWeight := hist[best]
	for _, l := range lengths[1:] {
		if hist[l] > bestWeight {
			best, bestWeight = l, hist[l]
		}
	}
	return best
}
