// Command marginpolish polishes a draft genome assembly against long-read
// alignments, optionally phasing reads into two haplotypes (spec §1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagOutputBase           string
	flagRegion               string
	flagDepth                int
	flagDiploid              bool
	flagThreads              int
	flagShuffleChunks        bool
	flagOutputPoaDOT         bool
	flagOutputPoaTSV         bool
	flagOutputRepeatCounts   bool
	flagOutputHaplotypeReads bool
	flagOutputHaplotypeBAM   bool
	flagProduceFeatures      bool
	flagFeatureType          string
	flagLogLevel             string
)

var rootCmd = &cobra.Command{
	Use:   "marginpolish <alignment.bam> <assembly.fasta> <params.json>",
	Short: "Polish a draft genome assembly from long-read alignments",
	Long: `marginpolish polishes a draft genome assembly using long-read
alignments and, in diploid mode, simultaneously phases reads into two
haplotypes and emits two polished assemblies.

It chunks the reference coordinate space, builds a partial-order
alignment consensus graph per chunk, re-estimates homopolymer run
lengths with a trained substitution matrix, optionally extracts variant
bubbles and phases reads, and stitches the per-chunk consensuses back
into per-contig sequences.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(runConfig{
			AlignmentPath:         args[0],
			ReferencePath:         args[1],
			ParamsPath:            args[2],
			OutputBase:            flagOutputBase,
			Region:                flagRegion,
			Depth:                 flagDepth,
			Diploid:               flagDiploid,
			Threads:               flagThreads,
			ShuffleChunks:         flagShuffleChunks,
			OutputPoaDOT:          flagOutputPoaDOT,
			OutputPoaTSV:          flagOutputPoaTSV,
			OutputRepeatCounts:    flagOutputRepeatCounts,
			OutputHaplotypeReads:  flagOutputHaplotypeReads,
			OutputHaplotypeBAM:    flagOutputHaplotypeBAM,
			ProduceFeatures:       flagProduceFeatures,
			FeatureType:           flagFeatureType,
			LogLevel:              flagLogLevel,
		})
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagOutputBase, "output-base", "o", "polished", "base path for output files")
	f.StringVarP(&flagRegion, "region", "r", "", "restrict polishing to contig[:start-end]")
	f.IntVarP(&flagDepth, "depth", "p", -1, "maximum per-chunk coverage depth (overrides params file; -1 keeps params file value)")
	f.BoolVarP(&flagDiploid, "diploid", "2", false, "enable diploid phasing and two-haplotype output")
	f.IntVarP(&flagThreads, "threads", "t", 0, "worker pool size (0 uses runtime default)")
	f.BoolVar(&flagShuffleChunks, "shuffle-chunks", false, "randomise chunk dispatch order to even out stragglers")
	f.BoolVarP(&flagOutputPoaDOT, "output-poa-dot", "d", false, "dump each chunk's POA graph as Graphviz DOT")
	f.BoolVarP(&flagOutputPoaTSV, "output-poa-tsv", "j", false, "dump each chunk's POA nodes/edges as TSV")
	f.BoolVarP(&flagOutputRepeatCounts, "output-repeat-counts", "i", false, "dump per-position run-length histograms as TSV")
	f.BoolVarP(&flagOutputHaplotypeReads, "output-haplotype-reads", "n", false, "write per-haplotype read name lists")
	f.BoolVarP(&flagOutputHaplotypeBAM, "output-haplotype-bam", "m", false, "re-emit per-haplotype BAM files")
	f.BoolVarP(&flagProduceFeatures, "produce-features", "f", false, "emit ML feature tensors per chunk")
	f.StringVarP(&flagFeatureType, "feature-type", "F", "simpleWeight", "feature tensor variant: simpleWeight|splitRLEWeight|channelRLEWeight|diploidRLEWeight")
	f.StringVarP(&flagLogLevel, "log-level", "a", "info", "log verbosity: off|critical|info|debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
