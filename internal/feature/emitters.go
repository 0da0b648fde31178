package feature

import (
	"fmt"

	"github.com/benedictpaten/marginpolish-go/internal/poa"
)

// simpleWeightEmitter emits one row per reference-position node with the
// observed per-base weight, collapsing run length away entirely.
type simpleWeightEmitter struct{}

func (simpleWeightEmitter) Type() Type { return SimpleWeight }

func (simpleWeightEmitter) Emit(haploid *poa.Graph, diploid *HaplotypeGraphs) ([]Row, error) {
	if haploid == nil {
		return nil, fmt.Errorf("simpleWeight requires a haploid POA graph")
	}
	return emitWeightRows(haploid, func(n *poa.Node) map[string]float64 {
		w := map[string]float64{}
		for base, weight := range n.BaseWeight {
			w[string(base)] = weight
		}
		if n.DeleteWeight > 0 {
			w["-"] = n.DeleteWeight
		}
		return w
	}), nil
}

// splitRLEWeightEmitter emits a channel per (base, run length) pair,
// preserving the run-length histograms the RLE model re-estimates from.
type splitRLEWeightEmitter struct{}

func (splitRLEWeightEmitter) Type() Type { return SplitRLEWeight }

func (splitRLEWeightEmitter) Emit(haploid *poa.Graph, diploid *HaplotypeGraphs) ([]Row, error) {
	if haploid == nil {
		return nil, fmt.Errorf("splitRLEWeight requires a haploid POA graph")
	}
	return emitWeightRows(haploid, func(n *poa.Node) map[string]float64 {
		w := map[string]float64{}
		for base, hist := range n.RunHist {
			for runLen, weight := range hist {
				w[fmt.Sprintf("%c:%d", base, runLen)] = weight
			}
		}
		if n.DeleteWeight > 0 {
			w["-:0"] = n.DeleteWeight
		}
		return w
	}), nil
}

// channelRLEWeightEmitter emits one channel set per haplotype graph
// (hap1/hap2), each split by (base, run length) as in SplitRLEWeight.
// Distinct from DiploidRLEWeight so the two never alias.
type channelRLEWeightEmitter struct{}

func (channelRLEWeightEmitter) Type() Type { return ChannelRLEWeight }

func (channelRLEWeightEmitter) Emit(haploid *poa.Graph, diploid *HaplotypeGraphs) ([]Row, error) {
	if diploid == nil || diploid.Hap1 == nil || diploid.Hap2 == nil {
		return nil, fmt.Errorf("channelRLEWeight requires both haplotype POA graphs")
	}
	rows := emitWeightRowsPrefixed(diploid.Hap1, "hap1")
	rows = append(rows, emitWeightRowsPrefixed(diploid.Hap2, "hap2")...)
	return rows, nil
}

// diploidRLEWeightEmitter emits a single merged row set keyed by
// "hap1:base:runLength" / "hap2:base:runLength" channels in one row per
// reference position, rather than two separate row sets, so a consumer
// can read genotype pairs directly off one row.
type diploidRLEWeightEmitter struct{}

func (diploidRLEWeightEmitter) Type() Type { return DiploidRLEWeight }

func (diploidRLEWeightEmitter) Emit(haploid *poa.Graph, diploid *HaplotypeGraphs) ([]Row, error) {
	if diploid == nil || diploid.Hap1 == nil || diploid.Hap2 == nil {
		return nil, fmt.Errorf("diploidRLEWeight requires both haplotype POA graphs")
	}
	byPos := map[int]map[string]float64{}
	collect := func(g *poa.Graph, hapLabel string) {
		for _, n := range g.Nodes {
			if n.RefPos < 0 {
				continue
			}
			w, ok := byPos[n.RefPos]
			if !ok {
				w = map[string]float64{}
				byPos[n.RefPos] = w
			}
			for base, hist := range n.RunHist {
				for runLen, weight := range hist {
					w[fmt.Sprintf("%s:%c:%d", hapLabel, base, runLen)] = weight
				}
			}
		}
	}
	collect(diploid.Hap1, "hap1")
	collect(diploid.Hap2, "hap2")

	rows := make([]Row, 0, len(byPos))
	for pos, w := range byPos {
		rows = append(rows, Row{RefPos: pos, Weights: w})
	}
	return rows, nil
}

func emitWeightRows(g *poa.Graph, weightsFor func(*poa.Node) map[string]float64) []Row {
	rows := make([]Row, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.RefPos < 0 {
			continue
		}
		rows = append(rows, Row{RefPos: n.RefPos, Weights: weightsFor(n)})
	}
	return rows
}

func emitWeightRowsPrefixed(g *poa.Graph, hapLabel string) []Row {
	return emitWeightRows(g, func(n *poa.Node) map[string]float64 {
		w := map[string]float64{}
		for base, hist := range n.RunHist {
			for runLen, weight := range hist {
				w[fmt.Sprintf("%s:%c:%d", hapLabel, base, runLen)] = weight
			}
		}
		return w
	})
}
