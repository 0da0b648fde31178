// Package poa implements the partial-order alignment consensus graph
// (spec §4.4), the central algorithm of the polishing pipeline. Nodes and
// edges live in flat arenas addressed by integer index (spec §9's
// ownership re-architecture away from the teacher C implementation's
// pointer graph), so a chunk's whole POA can be dropped in one garbage
// collection once its worker returns.
package poa

import (
	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// Node is one consensus position: a reference position (or, once
// promoted, a former insertion) holding weighted base/deletion
// observations and the edges connecting it to its neighbours.
type Node struct {
	ID     int
	RefPos int // -1 for the source node and for promoted insertion nodes

	RefBase      byte // the reference/seed base, used as a tie-break and as the empty-coverage fallback
	RefRunLength int

	BaseWeight   map[byte]float64
	RunHist      map[byte]map[int]float64
	DeleteWeight float64

	Out []int
	In  []int
}

func newNode(id, refPos int, refBase byte, refRunLength int) *Node {
	return &Node{
		ID:           id,
		RefPos:       refPos,
		RefBase:      refBase,
		RefRunLength: refRunLength,
		BaseWeight:   make(map[byte]float64),
		RunHist:      make(map[byte]map[int]float64),
	}
}

func (n *Node) addObservation(base byte, runLength int, weight float64) {
	n.BaseWeight[base] += weight
	hist, ok := n.RunHist[base]
	if !ok {
		hist = make(map[int]float64)
		n.RunHist[base] = hist
	}
	hist[runLength] += weight
}

func (n *Node) totalBaseWeight() float64 {
	total := 0.0
	for _, w := range n.BaseWeight {
		total += w
	}
	return total
}

// Edge connects two nodes, either the plain reference-adjacency traversal
// (Label == "") or an observed insertion run (Label == the RLE-expanded
// insertion string).
type Edge struct {
	ID     int
	From   int
	To     int
	Label  string
	Weight float64
}

// Graph is the arena-backed POA consensus graph for one chunk (or one
// haplotype's re-polishing pass within a chunk, in diploid mode).
type Graph struct {
	Nodes []*Node
	Edges []*Edge

	Source int
	Sink   int

	// edgeIndex deduplicates edges sharing (From, To, Label).
	edgeIndex map[edgeKey]int

	// junctionWeight tracks the total weight (plain + all
	// insertion labels) observed leaving a given node, for the
	// promotion-fraction threshold.
	junctionWeight map[int]float64
}

type edgeKey struct {
	From, To int
	Label    string
}

// NewGraph seeds a linear chain from an RLE reference substring: one
// source node (RefPos -1) followed by one node per reference run, chained
// by zero-weight traversal edges. Node count is len(ref.Bases)+1, matching
// spec §3's invariant before any insertion promotion.
func NewGraph(ref *rle.String) *Graph {
	g := &Graph{
		edgeIndex:      make(map[edgeKey]int),
		junctionWeight: make(map[int]float64),
	}
	source := g.addNode(-1, 0, 0)
	g.Source = source
	prev := source
	for i := 0; i < ref.Len(); i++ {
		n := g.addNode(i, ref.Bases[i], ref.Lengths[i])
		g.addEdgeWeight(prev, n, "", 0)
		prev = n
	}
	g.Sink = prev
	return g
}

func (g *Graph) addNode(refPos int, refBase byte, refRunLength int) int {
	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, newNode(id, refPos, refBase, refRunLength))
	return id
}

func (g *Graph) addEdgeWeight(from, to int, label string, weight float64) int {
	key := edgeKey{from, to, label}
	if id, ok := g.edgeIndex[key]; ok {
		g.Edges[id].Weight += weight
		return id
	}
	id := len(g.Edges)
	e := &Edge{ID: id, From: from, To: to, Label: label, Weight: weight}
	g.Edges = append(g.Edges, e)
	g.edgeIndex[key] = id
	g.Nodes[from].Out = append(g.Nodes[from].Out, id)
	g.Nodes[to].In = append(g.Nodes[to].In, id)
	return id
}

// refNode returns the node index holding reference position refPos in the
// original (pre-promotion) chain: nodes are offset by one because index 0
// is the source.
func (g *Graph) refNode(refPos int) int {
	return refPos + 1
}

// RefNode is refNode's exported form, for packages (bubble extraction)
// that need to recover a reference-path node from its RLE coordinate
// after the graph has been built.
func (g *Graph) RefNode(refPos int) int {
	return g.refNode(refPos)
}

// defaultMinInsertPromotionFraction, used when the caller passes no
// promotion fraction, matches the
// teacher's own conservative default of requiring a clear majority before
// materialising a new node for an insertion.
const defaultMinInsertPromotionFraction = 0.5

// AddRead walks one read's alignment operations into the graph, per spec
// §4.4's construction rules: matches/deletions increment node counters,
// insertions accumulate on the edge preceding the next matched node and
// are promoted to nodes once their support crosses minPromotionFrac of the
// weight passing through that junction.
func (g *Graph) AddRead(ops []align.Op, minPromotionFrac float64) {
	if minPromotionFrac <= 0 {
		minPromotionFrac = defaultMinInsertPromotionFraction
	}
	cur := g.Source
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		switch op.Kind {
		case align.OpMatch:
			nodeIdx := g.refNode(op.RefPos)
			g.Nodes[nodeIdx].addObservation(op.Base, op.RunLength, op.Weight)
			g.addEdgeWeight(cur, nodeIdx, "", op.Weight)
			g.junctionWeight[cur] += op.Weight
			cur = nodeIdx
		case align.OpDeletion:
			nodeIdx := g.refNode(op.RefPos)
			g.Nodes[nodeIdx].DeleteWeight += op.Weight
			g.addEdgeWeight(cur, nodeIdx, "", op.Weight)
			g.junctionWeight[cur] += op.Weight
			cur = nodeIdx
		case align.OpInsertion:
			target := g.Sink
			if i+1 < len(ops) {
				next := ops[i+1]
				if next.Kind == align.OpMatch || next.Kind == align.OpDeletion {
					target = g.refNode(next.RefPos)
				}
			}
			label := op.Insert.Expand()
			g.addEdgeWeight(cur, target, label, op.Weight)
			g.junctionWeight[cur] += op.Weight
			g.maybePromote(cur, target, label, op.Insert, minPromotionFrac)
			// cur is unchanged: the insertion doesn't advance the
			// reference-coordinate cursor.
		}
	}
}

// maybePromote materialises a chain of new nodes for an insertion string
// once its accumulated weight crosses minPromotionFrac of the total weight
// observed leaving `from`. Realignment (see realign.go) is what lets later
// reads actually match through the promoted nodes.
func (g *Graph) maybePromote(from, to int, label string, insert *rle.String, minPromotionFrac float64) {
	if label == "" {
		return
	}
	key := edgeKey{from, to, label}
	edgeID, ok := g.edgeIndex[key]
	if !ok {
		return
	}
	total := g.junctionWeight[from]
	if total <= 0 || g.Edges[edgeID].Weight/total < minPromotionFrac {
		return
	}
	if insert == nil || insert.Len() == 0 {
		return
	}

	prev := from
	for i := 0; i < insert.Len(); i++ {
		n := g.addNode(-1, insert.Bases[i], insert.Lengths[i])
		g.Nodes[n].addObservation(insert.Bases[i], insert.Lengths[i], g.Edges[edgeID].Weight)
		g.addEdgeWeight(prev, n, "", g.Edges[edgeID].Weight)
		prev = n
	}
	g.addEdgeWeight(prev, to, "", g.Edges[edgeID].Weight)

	// Retire the promoted insertion edge so it no longer competes during
	// consensus traversal.
	g.Edges[edgeID].Weight = 0
}
