// Package loader materialises the reads and per-base alignments
// intersecting a chunk (spec §4.2), converting biogo/hts CIGAR records
// into the align package's RLE-coordinate operations.
package loader

import (
	"github.com/biogo/hts/sam"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/bamio"
	"github.com/benedictpaten/marginpolish-go/internal/chunk"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// Read is one read materialised for a chunk (spec §3's Read data model).
// Reads are owned by the chunk that loaded them and dropped when the
// chunk's worker returns.
type Read struct {
	Name       string
	Reverse    bool
	RLE        *rle.String
	ChunkIndex int
}

// Options configures how records are converted into Reads/Alignments.
type Options struct {
	UseRLE          bool
	BoundaryAtMatch bool
}

// Load returns the reads and alignments whose span intersects the chunk's
// boundary window and whose alignment midpoint falls in the chunk's inner
// window (spec §3's chunk-ownership invariant), given the RLE reference
// substring for the chunk's boundary window.
func Load(idx *bamio.Index, c chunk.Chunk, refRLE *rle.String, opts Options) ([]*Read, []*align.Alignment, error) {
	records, err := idx.QueryRecords(c.Contig, c.BoundaryStart, c.BoundaryEnd)
	if err != nil {
		return nil, nil, err
	}

	refIndex := positionIndexFor(refRLE, opts.UseRLE)

	var reads []*Read
	var alignments []*align.Alignment

	for _, rec := range records {
		if rec.Flags&sam.Unmapped != 0 || rec.Flags&sam.Secondary != 0 {
			continue
		}
		mid := (rec.Pos + rec.End()) / 2
		if !c.Contains(mid) {
			continue
		}

		seq := rec.Seq.Expand()
		var readRLE *rle.String
		var readIndex []int
		if opts.UseRLE {
			readRLE = rle.Compress(string(seq))
		} else {
			readRLE = rle.CompressNoRLE(string(seq))
		}
		readIndex = readRLE.PositionIndex()

		readIdx := len(reads)
		reads = append(reads, &Read{
			Name:       rec.Name,
			Reverse:    rec.Flags&sam.Reverse != 0,
			RLE:        readRLE,
			ChunkIndex: c.Index,
		})

		aln := buildAlignment(rec, c, readIdx, seq, readRLE, readIndex, refIndex)
		if opts.BoundaryAtMatch && !aln.StartsAndEndsOnMatch() {
			// Drop the read but keep the placeholder slot count in sync;
			// simplest correct behaviour is to remove both entries.
			reads = reads[:len(reads)-1]
			continue
		}
		alignments = append(alignments, aln)
	}

	return reads, alignments, nil
}

// positionIndexFor returns, for each original reference-substring
// position, the RLE run index it belongs to (identity mapping when RLE is
// disabled).
func positionIndexFor(refRLE *rle.String, useRLE bool) []int {
	return refRLE.PositionIndex()
}

// buildAlignment walks one record's CIGAR, producing RLE-coordinate
// operations. Matches/mismatches within one CIGAR element are grouped by
// the reference RLE run they fall in (spec §4.2's "splitting where runs
// cross element boundaries"); deletions likewise; insertions are grouped
// wholesale into the enclosing read RLE run span.
func buildAlignment(rec *sam.Record, c chunk.Chunk, readIdx int, seq []byte, readRLE *rle.String, readIndex, refIndex []int) *align.Alignment {
	a := &align.Alignment{ReadIndex: readIdx}

	refRel := rec.Pos - c.BoundaryStart // position within the boundary substring
	readPos := 0
	first := true

	for i, co := range rec.Cigar {
		kind := co.Type()
		n := co.Len()
		consume := kind.Consumes()

		switch kind {
		case sam.CigarSoftClipped:
			if i == 0 {
				a.StartSoftClip = n
			}
			if i == len(rec.Cigar)-1 {
				a.EndSoftClip = n
			}
			readPos += n
		case sam.CigarHardClipped, sam.CigarPadded:
			// no coordinate consumption
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			refRel, readPos = emitMatchRun(a, refRel, readPos, n, seq, readIndex, refIndex)
			first = false
		case sam.CigarDeletion, sam.CigarSkipped:
			refRel = emitDeletionRun(a, refRel, n, refIndex)
			first = false
		case sam.CigarInsertion:
			readPos = emitInsertionRun(a, readPos, n, readRLE, readIndex)
			first = false
		default:
			readPos += n * consume.Query
			if consume.Reference != 0 {
				refRel += n * consume.Reference
			}
		}
	}
	_ = first
	return a
}

// emitMatchRun groups consecutive original match positions by the
// reference RLE run they belong to, emitting one align.Op per run with the
// modal read base and the run's observed length.
func emitMatchRun(a *align.Alignment, refRel, readPos, n int, seq []byte, readIndex, refIndex []int) (int, int) {
	i := 0
	for i < n {
		if refRel+i < 0 || refRel+i >= len(refIndex) {
			i++
			continue
		}
		rleIdx := refIndex[refRel+i]
		j := i
		counts := map[byte]int{}
		for j < n && refRel+j < len(refIndex) && refIndex[refRel+j] == rleIdx {
			if readPos+j < len(seq) {
				counts[seq[readPos+j]]++
			}
			j++
		}
		base, runLen := modalBase(counts)
		a.Ops = append(a.Ops, align.Op{
			Kind:      align.OpMatch,
			RefPos:    rleIdx,
			Base:      base,
			RunLength: runLen,
			Weight:    1.0,
		})
		i = j
	}
	return refRel + n, readPos + n
}

func modalBase(counts map[byte]int) (byte, int) {
	var best byte
	bestCount := -1
	total := 0
	for b, c := range counts {
		total += c
		if c > bestCount {
			bestCount = c
			best = b
		}
	}
	if total == 0 {
		return 'N', 1
	}
	return best, total
}

// emitDeletionRun groups consecutive deleted reference positions by RLE
// run, emitting one align.Op per distinct run spanned.
func emitDeletionRun(a *align.Alignment, refRel, n int, refIndex []int) int {
	i := 0
	for i < n {
		if refRel+i < 0 || refRel+i >= len(refIndex) {
			i++
			continue
		}
		rleIdx := refIndex[refRel+i]
		j := i
		for j < n && refRel+j < len(refIndex) && refIndex[refRel+j] == rleIdx {
			j++
		}
		a.Ops = append(a.Ops, align.Op{
			Kind:   align.OpDeletion,
			RefPos: rleIdx,
			Weight: 1.0,
		})
		i = j
	}
	return refRel + n
}

// emitInsertionRun slices the read's own RLE string across the inserted
// span and attaches it as a single Insertion operation.
func emitInsertionRun(a *align.Alignment, readPos, n int, readRLE *rle.String, readIndex []int) int {
	if n <= 0 {
		return readPos
	}
	startOrig := readPos
	endOrig := readPos + n - 1
	if startOrig >= len(readIndex) || endOrig >= len(readIndex) {
		return readPos + n
	}
	startRLE := readIndex[startOrig]
	endRLE := readIndex[endOrig]
	insert := readRLE.Slice(startRLE, endRLE+1)
	a.Ops = append(a.Ops, align.Op{
		Kind:   align.OpInsertion,
		Insert: insert,
		Weight: 1.0,
	})
	return readPos + n
}
