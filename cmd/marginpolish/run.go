package main

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/google/uuid"

	"github.com/benedictpaten/marginpolish-go/internal/bamio"
	"github.com/benedictpaten/marginpolish-go/internal/chunk"
	"github.com/benedictpaten/marginpolish-go/internal/errs"
	"github.com/benedictpaten/marginpolish-go/internal/feature"
	"github.com/benedictpaten/marginpolish-go/internal/logging"
	"github.com/benedictpaten/marginpolish-go/internal/output"
	"github.com/benedictpaten/marginpolish-go/internal/params"
	"github.com/benedictpaten/marginpolish-go/internal/polish"
	"github.com/benedictpaten/marginpolish-go/internal/reference"
	"github.com/benedictpaten/marginpolish-go/internal/schedule"
	"github.com/benedictpaten/marginpolish-go/internal/stitch"
)

type runConfig struct {
	AlignmentPath string
	ReferencePath string
	ParamsPath    string

	OutputBase string
	Region     string
	Depth      int
	Diploid    bool
	Threads    int

	// ChunkBoundary is populated from the parameter document inside run(),
	// not from a CLI flag, and bounds the overlap window stitchAndWrite
	// searches for a cut point (spec §4.8).
	ChunkBoundary int

	ShuffleChunks bool

	OutputPoaDOT         bool
	OutputPoaTSV         bool
	OutputRepeatCounts   bool
	OutputHaplotypeReads bool
	OutputHaplotypeBAM   bool

	ProduceFeatures bool
	FeatureType     string

	LogLevel string
}

func run(cfg runConfig) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrParameterInconsistent, err)
	}
	logger := logging.New(level)

	p, err := params.Load(cfg.ParamsPath)
	if err != nil {
		return err
	}
	p.OverrideDepth(cfg.Depth)
	cfg.ChunkBoundary = p.ChunkBoundary

	if cfg.ProduceFeatures {
		ft, err := feature.ParseType(cfg.FeatureType)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrParameterInconsistent, err)
		}
		if err := p.ValidateFeatureMode(ft); err != nil {
			return err
		}
		p.FeatureType = ft
	}

	idx, err := bamio.Open(cfg.AlignmentPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	refMap, err := reference.Load(cfg.ReferencePath)
	if err != nil {
		return err
	}

	chunker, err := chunk.New(idx, cfg.Region, p.ChunkSize, p.ChunkBoundary)
	if err != nil {
		return err
	}
	logger.Info("chunked alignment into %d chunks", chunker.Len())

	if cfg.Threads > 0 {
		runtime.GOMAXPROCS(cfg.Threads)
	}

	runID := uuid.New()
	numChunks := chunker.Len()

	results, chunkErrs := schedule.Run(numChunks, cfg.ShuffleChunks, int64(numChunks), func(i int) (interface{}, error) {
		workerIdx, err := idx.Clone()
		if err != nil {
			return nil, err
		}
		defer workerIdx.Close()

		c := chunker.At(i)
		res, err := polish.ProcessChunk(workerIdx, refMap, c, p, polish.Options{Diploid: cfg.Diploid})
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d (%s:%d-%d): %v", errs.ErrChunkFailure, c.Index, c.Contig, c.InnerStart, c.InnerEnd, err)
		}

		if cfg.OutputPoaDOT || cfg.OutputPoaTSV || cfg.OutputRepeatCounts {
			if err := dumpChunkGraphs(cfg, res); err != nil {
				logger.Critical("side-channel dump failed for chunk %d: %v", c.Index, err)
			}
		}
		if cfg.ProduceFeatures {
			if err := dumpChunkFeatures(cfg, p, runID, res); err != nil {
				logger.Critical("feature dump failed for chunk %d: %v", c.Index, err)
			}
		}
		return res, nil
	}, func(completed, total int) {
		logger.Info("completed %d/%d chunks (%s elapsed)", completed, total, logger.Elapsed())
	})

	for i, err := range chunkErrs {
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	chunkResults := make([]*polish.ChunkResult, numChunks)
	for i, r := range results {
		if r != nil {
			chunkResults[i] = r.(*polish.ChunkResult)
		}
	}

	if err := stitchAndWrite(cfg, chunkResults); err != nil {
		return err
	}

	if cfg.OutputHaplotypeReads || cfg.OutputHaplotypeBAM {
		if err := writeHaplotypeChannels(cfg, idx, chunkResults); err != nil {
			return err
		}
	}

	logger.Critical("polishing complete: %d chunks in %s", numChunks, logger.Elapsed())
	return nil
}

// stitchAndWrite groups chunk consensuses by contig, in chunk order, and
// stitches each contig's chunks into one (haploid) or two (diploid)
// sequences before writing FASTA output. In diploid mode, each chunk's
// hap1/hap2 labels are reconciled against the previous chunk's via
// stitch.ResolveHaplotypeSwap before the consensus strings are folded in,
// since the phaser assigns hap1/hap2 labels independently per chunk.
func stitchAndWrite(cfg runConfig, results []*polish.ChunkResult) error {
	type contigChunks struct {
		hap1        []string
		hap2        []string
		prevHap1Set map[string]bool
		prevHap2Set map[string]bool
	}
	byContig := map[string]*contigChunks{}
	var order []string

	for _, r := range results {
		if r == nil {
			continue
		}
		cc, ok := byContig[r.Chunk.Contig]
		if !ok {
			cc = &contigChunks{}
			byContig[r.Chunk.Contig] = cc
			order = append(order, r.Chunk.Contig)
		}
		if r.Haploid != nil {
			cc.hap1 = append(cc.hap1, r.Haploid.Consensus)
			continue
		}
		if r.Diploid == nil {
			continue
		}

		hap1Consensus, hap2Consensus := r.Diploid.Hap1Consensus, r.Diploid.Hap2Consensus
		hap1Set, hap2Set := haplotypeReadSets(r.Diploid)
		if cc.prevHap1Set != nil {
			swap := stitch.ResolveHaplotypeSwap(cc.prevHap1Set, cc.prevHap2Set,
				r.Diploid.Assignment.Hap1, r.Diploid.Assignment.Hap2, r.Diploid.ReadNames)
			if swap {
				hap1Consensus, hap2Consensus = hap2Consensus, hap1Consensus
				hap1Set, hap2Set = hap2Set, hap1Set
			}
		}
		cc.hap1 = append(cc.hap1, hap1Consensus)
		cc.hap2 = append(cc.hap2, hap2Consensus)
		cc.prevHap1Set, cc.prevHap2Set = hap1Set, hap2Set
	}
	sort.Strings(order)

	if cfg.Diploid {
		hap1Records := map[string]string{}
		hap2Records := map[string]string{}
		for _, contig := range order {
			cc := byContig[contig]
			hap1Records[contig] = stitch.Stitch(cc.hap1, cfg.ChunkBoundary).Sequence
			hap2Records[contig] = stitch.Stitch(cc.hap2, cfg.ChunkBoundary).Sequence
		}
		if err := output.WriteFASTA(cfg.OutputBase+".h1.fa", hap1Records, order); err != nil {
			return err
		}
		return output.WriteFASTA(cfg.OutputBase+".h2.fa", hap2Records, order)
	}

	records := map[string]string{}
	for _, contig := range order {
		records[contig] = stitch.Stitch(byContig[contig].hap1, cfg.ChunkBoundary).Sequence
	}
	return output.WriteFASTA(cfg.OutputBase+".fa", records, order)
}

// haplotypeReadSets converts a diploid chunk result's bitset-based
// assignment into read-name sets, the representation
// stitch.ResolveHaplotypeSwap compares across chunk boundaries.
func haplotypeReadSets(d *polish.DiploidResult) (hap1, hap2 map[string]bool) {
	hap1 = map[string]bool{}
	hap2 = map[string]bool{}
	for i, name := range d.ReadNames {
		switch {
		case d.Assignment.Hap1.Test(uint(i)):
			hap1[name] = true
		case d.Assignment.Hap2.Test(uint(i)):
			hap2[name] = true
		}
	}
	return hap1, hap2
}

func dumpChunkGraphs(cfg runConfig, res *polish.ChunkResult) error {
	base := fmt.Sprintf("%s.chunk%04d", cfg.OutputBase, res.Chunk.Index)

	if res.Haploid != nil {
		if cfg.OutputPoaDOT {
			if err := output.WritePoaDOT(base+".dot", fmt.Sprintf("chunk%d", res.Chunk.Index), res.Haploid.Graph); err != nil {
				return err
			}
		}
		if cfg.OutputPoaTSV {
			if err := output.WritePoaTSV(base+".poa.tsv", res.Haploid.Graph); err != nil {
				return err
			}
		}
		if cfg.OutputRepeatCounts {
			if err := output.WriteRepeatCountTSV(base+".repeats.tsv", res.Chunk.Contig, res.Chunk.BoundaryStart, res.Haploid.Hists); err != nil {
				return err
			}
		}
		return nil
	}
	if res.Diploid != nil {
		if cfg.OutputPoaDOT {
			if err := output.WritePoaDOT(base+".hap1.dot", fmt.Sprintf("chunk%d_hap1", res.Chunk.Index), res.Diploid.Hap1Graph); err != nil {
				return err
			}
			if err := output.WritePoaDOT(base+".hap2.dot", fmt.Sprintf("chunk%d_hap2", res.Chunk.Index), res.Diploid.Hap2Graph); err != nil {
				return err
			}
		}
		if cfg.OutputPoaTSV {
			if err := output.WritePoaTSV(base+".hap1.poa.tsv", res.Diploid.Hap1Graph); err != nil {
				return err
			}
			if err := output.WritePoaTSV(base+".hap2.poa.tsv", res.Diploid.Hap2Graph); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpChunkFeatures(cfg runConfig, p *params.Params, runID uuid.UUID, res *polish.ChunkResult) error {
	emitter, err := feature.NewEmitter(p.FeatureType)
	if err != nil || emitter == nil {
		return err
	}

	base := fmt.Sprintf("%s.chunk%04d.features", cfg.OutputBase, res.Chunk.Index)
	if res.Haploid != nil {
		rows, err := emitter.Emit(res.Haploid.Graph, nil)
		if err != nil {
			return err
		}
		return output.WriteFeatureDump(base, runID, p.FeatureType, res.Chunk.Contig, res.Chunk.BoundaryStart, rows, true)
	}
	if res.Diploid != nil {
		rows, err := emitter.Emit(nil, &feature.HaplotypeGraphs{Hap1: res.Diploid.Hap1Graph, Hap2: res.Diploid.Hap2Graph})
		if err != nil {
			return err
		}
		return output.WriteFeatureDump(base, runID, p.FeatureType, res.Chunk.Contig, res.Chunk.BoundaryStart, rows, true)
	}
	return nil
}

func writeHaplotypeChannels(cfg runConfig, idx *bamio.Index, results []*polish.ChunkResult) error {
	var hap1Names, hap2Names, unphasedNames []string

	for _, r := range results {
		if r == nil || r.Diploid == nil {
			continue
		}
		for i, name := range r.Diploid.ReadNames {
			switch {
			case r.Diploid.Assignment.Hap1.Test(uint(i)):
				hap1Names = append(hap1Names, name)
			case r.Diploid.Assignment.Hap2.Test(uint(i)):
				hap2Names = append(hap2Names, name)
			default:
				unphasedNames = append(unphasedNames, name)
			}
		}
	}

	if cfg.OutputHaplotypeReads {
		if err := output.WriteHaplotypeReadLists(cfg.OutputBase, hap1Names, hap2Names, unphasedNames); err != nil {
			return err
		}
	}

	if cfg.OutputHaplotypeBAM {
		hap1Set := map[string]bool{}
		hap2Set := map[string]bool{}
		for _, n := range hap1Names {
			hap1Set[n] = true
		}
		for _, n := range hap2Names {
			hap2Set[n] = true
		}
		var hap1Records, hap2Records []*sam.Record
		for _, ref := range idx.Refs() {
			recs, err := idx.QueryRecords(ref.Name(), 0, ref.Len())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if hap1Set[rec.Name] {
					hap1Records = append(hap1Records, rec)
				}
				if hap2Set[rec.Name] {
					hap2Records = append(hap2Records, rec)
				}
			}
		}
		return output.WriteHaplotypeBAMs(cfg.OutputBase, idx.Header(), hap1Records, hap2Records)
	}
	return nil
}
