// Package polish wires the per-chunk pipeline together: Chunker output in,
// a Chunk Result out (spec §3, §4). It is the one package allowed to
// import every stage, since its whole job is sequencing them.
package polish

import (
	"fmt"

	"github.com/biogo/hts/sam"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/bamio"
	"github.com/benedictpaten/marginpolish-go/internal/bubble"
	"github.com/benedictpaten/marginpolish-go/internal/chunk"
	"github.com/benedictpaten/marginpolish-go/internal/downsample"
	"github.com/benedictpaten/marginpolish-go/internal/errs"
	"github.com/benedictpaten/marginpolish-go/internal/loader"
	"github.com/benedictpaten/marginpolish-go/internal/params"
	"github.com/benedictpaten/marginpolish-go/internal/phase"
	"github.com/benedictpaten/marginpolish-go/internal/poa"
	"github.com/benedictpaten/marginpolish-go/internal/reference"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// HaploidResult is a Chunk Result's single-consensus form.
type HaploidResult struct {
	Consensus string
	Graph     *poa.Graph
	Hists     []poa.PositionHistogram
}

// DiploidResult is a Chunk Result's two-consensus form, plus the
// Read-Haplotype Assignment that produced it (spec §3).
type DiploidResult struct {
	Hap1Consensus string
	Hap2Consensus string
	Hap1Graph     *poa.Graph
	Hap2Graph     *poa.Graph
	Assignment    *phase.Assignment
	ReadNames     []string
	Bubbles       []bubble.Bubble
}

// ChunkResult is either a HaploidResult or a DiploidResult, never both
// (spec §3's Chunk Result).
type ChunkResult struct {
	Chunk   chunk.Chunk
	Haploid *HaploidResult
	Diploid *DiploidResult
}

// Options bundles the per-run knobs Chunk needs beyond the parameter
// document itself.
type Options struct {
	Diploid bool
}

// ProcessChunk runs §4.2 through §4.7 (and, in diploid mode, the second
// polishing pass) over one chunk, per the Scheduler's contract that a
// whole chunk executes on a single worker with no intra-chunk
// parallelism (spec §5).
func ProcessChunk(idx *bamio.Index, refMap *reference.Map, c chunk.Chunk, p *params.Params, opts Options) (*ChunkResult, error) {
	refSeq, err := refMap.Substring(c.Contig, c.BoundaryStart, c.BoundaryEnd)
	if err != nil {
		return nil, err
	}

	refRLE := compress(refSeq, p.UseRunLengthEncoding)

	loadOpts := loader.Options{UseRLE: p.UseRunLengthEncoding, BoundaryAtMatch: p.BoundaryAtMatch}
	reads, alignments, err := loader.Load(idx, c, refRLE, loadOpts)
	if err != nil {
		return nil, err
	}
	if len(reads) == 0 {
		return nil, fmt.Errorf("%w: chunk %d (%s:%d-%d) has no supporting reads", errs.ErrEmptyCoverage, c.Index, c.Contig, c.InnerStart, c.InnerEnd)
	}

	return processReads(refRLE, reads, alignments, c, p, opts)
}

// processReads runs §4.2 through §4.7 (and, in diploid mode, the second
// polishing pass) given an already-loaded read set, factored out of
// ProcessChunk so the pipeline can be exercised against a synthetic
// fixture without an indexed alignment file.
func processReads(refRLE *rle.String, reads []*loader.Read, alignments []*align.Alignment, c chunk.Chunk, p *params.Params, opts Options) (*ChunkResult, error) {
	ds := downsample.Apply(c.Index, p.MaxDepth, c.BoundaryLength(), reads, alignments)
	reads, alignments = ds.FilteredReads, ds.FilteredAlignments

	matrix, err := rle.NewSubstitutionMatrix(p.RLEMatrix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrParameterInconsistent, err)
	}

	realignOpts := poa.RealignOptions{
		MaxIterations:          p.Poa.MaxRealignIterations,
		ConvergenceFraction:    p.Poa.RealignConvergenceFrac,
		MinInsertPromotionFrac: p.Poa.MinInsertPromotionFrac,
	}

	graph, consensus, hists := poa.Build(refRLE, alignments, readInputs(reads, alignments), realignOpts)
	if p.UseRunLengthEncoding {
		consensus = poa.Reestimate(consensus, hists, matrix)
	}

	if !opts.Diploid {
		return &ChunkResult{
			Chunk: c,
			Haploid: &HaploidResult{
				Consensus: consensus.Expand(),
				Graph:     graph,
				Hists:     hists,
			},
		}, nil
	}

	bubbles := bubble.Extract(graph, alignments, bubble.Options{
		UseReadAlleles:   p.Bubble.UseReadAlleles,
		MinAlleleSupport: p.Bubble.MinAlleleSupport,
	})
	votes := phase.BuildVotes(bubbles.Bubbles, alignments)
	_, assignment := phase.Phase(bubbles.Bubbles, votes, p.Phase)

	hap1Alignments, hap1Reads := selectHaplotype(assignment, alignments, reads, true)
	hap2Alignments, hap2Reads := selectHaplotype(assignment, alignments, reads, false)

	graph1, consensus1, hists1 := poa.Build(refRLE, hap1Alignments, readInputs(hap1Reads, hap1Alignments), realignOpts)
	graph2, consensus2, hists2 := poa.Build(refRLE, hap2Alignments, readInputs(hap2Reads, hap2Alignments), realignOpts)
	consensus1 = poa.Reestimate(consensus1, hists1, matrix)
	consensus2 = poa.Reestimate(consensus2, hists2, matrix)

	names := make([]string, len(reads))
	for i, r := range reads {
		names[i] = r.Name
	}

	return &ChunkResult{
		Chunk: c,
		Diploid: &DiploidResult{
			Hap1Consensus: consensus1.Expand(),
			Hap2Consensus: consensus2.Expand(),
			Hap1Graph:     graph1,
			Hap2Graph:     graph2,
			Assignment:    assignment,
			ReadNames:     names,
			Bubbles:       bubbles.Bubbles,
		},
	}, nil
}

func compress(seq string, useRLE bool) *rle.String {
	if useRLE {
		return rle.Compress(seq)
	}
	return rle.CompressNoRLE(seq)
}

func readInputs(reads []*loader.Read, alignments []*align.Alignment) []poa.ReadInput {
	out := make([]poa.ReadInput, len(alignments))
	for i, r := range reads {
		if i < len(alignments) {
			out[i] = poa.ReadInput{RLE: r.RLE, Weight: 1.0}
		}
	}
	return out
}

// selectHaplotype filters reads/alignments to those contributing to a
// given haplotype's polishing pass: its own assigned reads plus every
// unphased read (spec §3: "a read not placed in either is unphased and
// contributes to both downstream POAs").
func selectHaplotype(assignment *phase.Assignment, alignments []*align.Alignment, reads []*loader.Read, wantHap1 bool) ([]*align.Alignment, []*loader.Read) {
	var outAlign []*align.Alignment
	var outReads []*loader.Read
	for i, r := range reads {
		inHap1 := assignment.Hap1.Test(uint(i))
		inHap2 := assignment.Hap2.Test(uint(i))
		unphased := !inHap1 && !inHap2
		if (wantHap1 && (inHap1 || unphased)) || (!wantHap1 && (inHap2 || unphased)) {
			outReads = append(outReads, r)
			if i < len(alignments) {
				outAlign = append(outAlign, alignments[i])
			}
		}
	}
	return outAlign, outReads
}

// HaplotypeRecordSplit partitions raw BAM records by a chunk's haplotype
// assignment, for the Haplotype-BAM side channel (output.WriteHaplotypeBAMs).
func HaplotypeRecordSplit(records []*sam.Record, names []string, assignment *phase.Assignment) (hap1, hap2 []*sam.Record) {
	byName := make(map[string]int, len(names))
	for i, n := range names {
		byName[n] = i
	}
	for _, rec := range records {
		i, ok := byName[rec.Name]
		if !ok {
			continue
		}
		if assignment.Hap1.Test(uint(i)) {
			hap1 = append(hap1, rec)
		}
		if assignment.Hap2.Test(uint(i)) {
			hap2 = append(hap2, rec)
		}
	}
	return hap1, hap2
}
