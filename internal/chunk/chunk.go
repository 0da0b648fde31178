// Package chunk partitions a contig's coordinate space into overlapping
// work units (spec §4.1). Chunk boundaries are pure coordinate arithmetic;
// no I/O happens here.
package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"

	"github.com/benedictpaten/marginpolish-go/internal/bamio"
	"github.com/benedictpaten/marginpolish-go/internal/errs"
)

// Chunk is a coordinate-bounded work unit, spec §3's Chunk data model.
type Chunk struct {
	Index int

	Contig string

	BoundaryStart int
	InnerStart    int
	InnerEnd      int
	BoundaryEnd   int
}

// InnerLength returns the length of the chunk's authoritative window.
func (c Chunk) InnerLength() int {
	return c.InnerEnd - c.InnerStart
}

// BoundaryLength returns the length of the chunk's padded window,
// including overlap on both sides.
func (c Chunk) BoundaryLength() int {
	return c.BoundaryEnd - c.BoundaryStart
}

// Contains reports whether a reference position falls in the chunk's
// inner (authoritative) window.
func (c Chunk) Contains(refPos int) bool {
	return refPos >= c.InnerStart && refPos < c.InnerEnd
}

// Chunker produces an ordered, randomly-addressable list of Chunks
// covering one region or all indexed contigs (spec §4.1).
type Chunker struct {
	chunks []Chunk
}

// New builds a Chunker over an indexed alignment. region, if non-empty,
// restricts coverage to "contig" or "contig:start-end"; otherwise every
// contig named in the index is covered.
func New(idx *bamio.Index, region string, size, overlap int) (*Chunker, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: no alignment index provided to chunker", errs.ErrInputUnavailable)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", errs.ErrParameterInconsistent, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", errs.ErrParameterInconsistent, overlap)
	}

	refs, contigStart, contigEnd, err := resolveRegion(idx, region)
	if err != nil {
		return nil, err
	}

	c := &Chunker{}
	for _, ref := range refs {
		lo, hi := 0, ref.Len()
		if start, ok := contigStart[ref.Name()]; ok {
			lo = start
		}
		if end, ok := contigEnd[ref.Name()]; ok && end < hi {
			hi = end
		}
		c.appendContigChunks(ref.Name(), lo, hi, size, overlap)
	}

	if len(c.chunks) == 0 {
		return nil, fmt.Errorf("%w: no valid reads", errs.ErrEmptyCoverage)
	}
	for i := range c.chunks {
		c.chunks[i].Index = i
	}
	return c, nil
}

func (c *Chunker) appendContigChunks(contig string, lo, hi, size, overlap int) {
	if hi <= lo {
		return
	}
	for innerStart := lo; innerStart < hi; innerStart += size {
		innerEnd := innerStart + size
		if innerEnd > hi {
			innerEnd = hi
		}
		boundaryStart := innerStart - overlap
		if boundaryStart < lo {
			boundaryStart = lo
		}
		boundaryEnd := innerEnd + overlap
		if boundaryEnd > hi {
			boundaryEnd = hi
		}
		c.chunks = append(c.chunks, Chunk{
			Contig:        contig,
			BoundaryStart: boundaryStart,
			InnerStart:    innerStart,
			InnerEnd:      innerEnd,
			BoundaryEnd:   boundaryEnd,
		})
	}
}

// resolveRegion parses an optional "contig[:start-end]" region string
// against the alignment index's reference list.
func resolveRegion(idx *bamio.Index, region string) (refs []*sam.Reference, starts, ends map[string]int, err error) {
	starts = make(map[string]int)
	ends = make(map[string]int)

	if region == "" {
		return idx.Refs(), starts, ends, nil
	}

	name := region
	if colon := strings.IndexByte(region, ':'); colon >= 0 {
		name = region[:colon]
		span := region[colon+1:]
		dash := strings.IndexByte(span, '-')
		if dash < 0 {
			return nil, nil, nil, fmt.Errorf("%w: invalid region %q (expected contig:start-end)", errs.ErrParameterInconsistent, region)
		}
		start, e1 := strconv.Atoi(span[:dash])
		end, e2 := strconv.Atoi(span[dash+1:])
		if e1 != nil || e2 != nil || start < 0 || end <= start {
			return nil, nil, nil, fmt.Errorf("%w: invalid region %q (expected contig:start-end)", errs.ErrParameterInconsistent, region)
		}
		starts[name] = start
		ends[name] = end
	}

	ref, ok := idx.RefByName(name)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: region contig %q not found in alignment header", errs.ErrInputMismatch, name)
	}
	return []*sam.Reference{ref}, starts, ends, nil
}

// Len returns the number of chunks.
func (c *Chunker) Len() int {
	return len(c.chunks)
}

// At returns the chunk at index i.
func (c *Chunker) At(i int) Chunk {
	return c.chunks[i]
}

// All returns every chunk, in increasing coordinate order.
func (c *Chunker) All() []Chunk {
	return c.chunks
}
