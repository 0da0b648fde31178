package loader

import (
	"testing"

	"github.com/biogo/hts/sam"

	"github.com/benedictpaten/marginpolish-go/internal/align"
	"github.com/benedictpaten/marginpolish-go/internal/chunk"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

func testChunk() chunk.Chunk {
	return chunk.Chunk{Index: 0, Contig: "chr1", BoundaryStart: 0, InnerStart: 0, InnerEnd: 8, BoundaryEnd: 8}
}

func buildRecord(pos int, cigarStr, seqStr string) *sam.Record {
	cigar, err := sam.ParseCigar([]byte(cigarStr))
	if err != nil {
		panic(err)
	}
	return &sam.Record{
		Name:  "r",
		Pos:   pos,
		Cigar: cigar,
		Seq:   sam.NewSeq([]byte(seqStr)),
	}
}

func TestBuildAlignmentPlainMatches(t *testing.T) {
	ref := rle.CompressNoRLE("ACGTACGT")
	refIndex := ref.PositionIndex()
	rec := buildRecord(0, "4M", "ACGT")
	readRLE := rle.CompressNoRLE("ACGT")
	aln := buildAlignment(rec, testChunk(), 0, []byte("ACGT"), readRLE, readRLE.PositionIndex(), refIndex)

	if len(aln.Ops) != 4 {
		t.Fatalf("len(Ops) = %d, want 4", len(aln.Ops))
	}
	want := []byte("ACGT")
	for i, op := range aln.Ops {
		if op.Kind != align.OpMatch {
			t.Errorf("op %d kind = %v, want OpMatch", i, op.Kind)
		}
		if op.RefPos != i {
			t.Errorf("op %d RefPos = %d, want %d", i, op.RefPos, i)
		}
		if op.Base != want[i] {
			t.Errorf("op %d Base = %c, want %c", i, op.Base, want[i])
		}
	}
}

func TestBuildAlignmentWithDeletion(t *testing.T) {
	ref := rle.CompressNoRLE("ACGT")
	refIndex := ref.PositionIndex()
	rec := buildRecord(0, "2M1D1M", "ACT")
	readRLE := rle.CompressNoRLE("ACT")
	aln := buildAlignment(rec, testChunk(), 0, []byte("ACT"), readRLE, readRLE.PositionIndex(), refIndex)

	if len(aln.Ops) != 4 {
		t.Fatalf("len(Ops) = %d, want 4 (2 matches, 1 deletion, 1 match)", len(aln.Ops))
	}
	if aln.Ops[2].Kind != align.OpDeletion || aln.Ops[2].RefPos != 2 {
		t.Errorf("Ops[2] = %+v, want a deletion at RefPos 2", aln.Ops[2])
	}
	if aln.Ops[3].Kind != align.OpMatch || aln.Ops[3].RefPos != 3 || aln.Ops[3].Base != 'T' {
		t.Errorf("Ops[3] = %+v, want a match at RefPos 3 with base T", aln.Ops[3])
	}
}

func TestBuildAlignmentWithInsertion(t *testing.T) {
	ref := rle.CompressNoRLE("ACGT")
	refIndex := ref.PositionIndex()
	rec := buildRecord(0, "2M2I2M", "ACXYGT")
	readRLE := rle.CompressNoRLE("ACXYGT")
	aln := buildAlignment(rec, testChunk(), 0, []byte("ACXYGT"), readRLE, readRLE.PositionIndex(), refIndex)

	if len(aln.Ops) != 5 {
		t.Fatalf("len(Ops) = %d, want 5 (2 matches, 1 insertion, 2 matches)", len(aln.Ops))
	}
	ins := aln.Ops[2]
	if ins.Kind != align.OpInsertion {
		t.Fatalf("Ops[2].Kind = %v, want OpInsertion", ins.Kind)
	}
	if ins.Insert.Expand() != "XY" {
		t.Errorf("inserted sequence = %q, want %q", ins.Insert.Expand(), "XY")
	}
	if aln.Ops[3].RefPos != 2 || aln.Ops[4].RefPos != 3 {
		t.Errorf("expected the trailing matches to resume at RefPos 2 and 3, got %d and %d", aln.Ops[3].RefPos, aln.Ops[4].RefPos)
	}
}

func TestBuildAlignmentWithSoftClip(t *testing.T) {
	ref := rle.CompressNoRLE("ACGT")
	refIndex := ref.PositionIndex()
	rec := buildRecord(0, "2S2M", "NNGT")
	readRLE := rle.CompressNoRLE("NNGT")
	aln := buildAlignment(rec, testChunk(), 0, []byte("NNGT"), readRLE, readRLE.PositionIndex(), refIndex)

	if aln.StartSoftClip != 2 {
		t.Errorf("StartSoftClip = %d, want 2", aln.StartSoftClip)
	}
	if len(aln.Ops) != 2 {
		t.Fatalf("len(Ops) = %d, want 2", len(aln.Ops))
	}
	if aln.Ops[0].Base != 'G' || aln.Ops[0].RefPos != 0 {
		t.Errorf("Ops[0] = %+v, want a match at RefPos 0 with base G (soft clip consumes no reference)", aln.Ops[0])
	}
}
