package output

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/benedictpaten/marginpolish-go/internal/poa"
)

// WriteRepeatCountTSV writes, per consensus position, the chosen base and
// its observed run-length histogram (marginPolish.c's
// -i/--outputRepeatCounts), the input the RLE Length Model consumes.
func WriteRepeatCountTSV(path, contig string, chunkStart int, hists []poa.PositionHistogram) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "contig\tposition\tbase\trunLength\tweight")
	for i, h := range hists {
		lengths := make([]int, 0, len(h.Histogram))
		for l := range h.Histogram {
			lengths = append(lengths, l)
		}
		sort.Ints(lengths)
		for _, l := range lengths {
			fmt.Fprintf(w, "%s\t%d\t%c\t%d\t%g\n", contig, chunkStart+i, h.Base, l, h.Histogram[l])
		}
	}
	return nil
}

// WritePoaTSV dumps the arena's nodes and edges as two tab-separated
// tables (marginPolish.c's -j/--outputPoaTsv), for offline inspection of
// promoted insertion nodes and edge weights.
func WritePoaTSV(path string, g *poa.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "#nodes")
	fmt.Fprintln(w, "id\trefPos\trefBase\trefRunLength\tdeleteWeight")
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%d\t%d\t%c\t%d\t%g\n", n.ID, n.RefPos, orDash(n.RefBase), n.RefRunLength, n.DeleteWeight)
	}
	fmt.Fprintln(w, "#edges")
	fmt.Fprintln(w, "id\tfrom\tto\tlabel\tweight")
	for _, e := range g.Edges {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%g\n", e.ID, e.From, e.To, e.Label, e.Weight)
	}
	return nil
}

func orDash(b byte) byte {
	if b == 0 {
		return '-'
	}
	return b
}

// WritePoaDOT renders the arena as a Graphviz digraph (marginPolish.c's
// -d/--outputPoaDot), one node per arena slot, edges labelled with their
// weight and (for insertions) their inserted sequence.
func WritePoaDOT(path, graphName string, g *poa.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintf(w, "digraph %s {\n", graphName)
	for _, n := range g.Nodes {
		label := "source"
		if n.RefPos >= 0 {
			label = fmt.Sprintf("%c@%d", orDash(n.RefBase), n.RefPos)
		} else if n.ID != g.Source {
			label = fmt.Sprintf("%c(ins)", orDash(n.RefBase))
		}
		fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", n.ID, label)
	}
	for _, e := range g.Edges {
		if e.Weight <= 0 {
			continue
		}
		label := fmt.Sprintf("%g", e.Weight)
		if e.Label != "" {
			label = fmt.Sprintf("%s/%g", e.Label, e.Weight)
		}
		fmt.Fprintf(w, "  n%d -> n%d [label=\"%s\"];\n", e.From, e.To, label)
	}
	fmt.Fprintln(w, "}")
	return nil
}
