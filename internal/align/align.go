// Package align defines the RLE-coordinate alignment vocabulary shared by
// the Read/Alignment Loader, the POA engine, and the Chunk Stitcher: a
// small, dependency-free set of types so those packages don't need to
// import one another to agree on what an aligned read looks like.
package align

import "github.com/benedictpaten/marginpolish-go/internal/rle"

// OpKind is the kind of one alignment operation, restricted to the three
// kinds the POA engine needs to distinguish (spec §4.4): matches and
// deletions consume the reference, insertions do not.
type OpKind byte

const (
	// OpMatch is a matched (or mismatched) reference/read base pair.
	OpMatch OpKind = 'M'
	// OpDeletion is a reference base with no corresponding read base.
	OpDeletion OpKind = 'D'
	// OpInsertion is a run of read bases with no corresponding reference
	// position, carried as a whole RLE-compressed run between the
	// enclosing match/deletion operations.
	OpInsertion OpKind = 'I'
)

// Op is a single alignment operation in RLE coordinates when RLE is
// enabled, or in raw base coordinates (each run implicitly length 1)
// otherwise.
type Op struct {
	Kind OpKind

	// RefPos is the RLE-coordinate reference position, valid for
	// OpMatch and OpDeletion.
	RefPos int

	// Base and RunLength describe the read's contribution at RefPos,
	// valid for OpMatch.
	Base      byte
	RunLength int

	// Insert carries the RLE-compressed insertion run, valid for
	// OpInsertion.
	Insert *rle.String

	// Weight is the read's confidence for this operation, defaulting to
	// 1.0 (spec §3's Alignment weight).
	Weight float64
}

// Alignment is one read's ordered sequence of operations against a chunk's
// reference substring (spec §3's Alignment data model).
type Alignment struct {
	// ReadIndex indexes into the owning chunk's read slice.
	ReadIndex int
	Ops       []Op

	// StartSoftClip and EndSoftClip record the number of RLE-coordinate
	// soft-clipped bases at the read's start/end, kept for diagnostics
	// as spec §4.2 requires.
	StartSoftClip int
	EndSoftClip   int
}

// AlignedRefLength returns the number of reference positions this
// alignment consumes (matches plus deletions), used by the Downsampler's
// depth estimate (spec §4.3).
func (a *Alignment) AlignedRefLength() int {
	n := 0
	for _, op := range a.Ops {
		if op.Kind == OpMatch || op.Kind == OpDeletion {
			n++
		}
	}
	return n
}

// RefSpan returns the [start, end) RLE-coordinate reference interval this
// alignment covers, or ok=false if it has no reference-consuming ops.
func (a *Alignment) RefSpan() (start, end int, ok bool) {
	first := true
	for _, op := range a.Ops {
		if op.Kind != OpMatch && op.Kind != OpDeletion {
			continue
		}
		if first {
			start = op.RefPos
			first = false
		}
		end = op.RefPos + 1
	}
	return start, end, !first
}

// Midpoint returns the midpoint reference coordinate of the alignment,
// used to assign a boundary-spanning read to the chunk whose inner window
// contains it (spec §3's chunk-ownership invariant).
func (a *Alignment) Midpoint() (int, bool) {
	start, end, ok := a.RefSpan()
	if !ok {
		return 0, false
	}
	return (start + end) / 2, true
}

// StartsAndEndsOnMatch reports whether the alignment's first and last
// reference-consuming or read-consuming operation is a match, for the
// boundary-at-match policy (spec §4.2).
func (a *Alignment) StartsAndEndsOnMatch() bool {
	if len(a.Ops) == 0 {
		return false
	}
	return a.Ops[0].Kind == OpMatch && a.Ops[len(a.Ops)-1].Kind == OpMatch
}
