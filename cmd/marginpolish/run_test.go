package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benedictpaten/marginpolish-go/internal/chunk"
	"github.com/benedictpaten/marginpolish-go/internal/phase"
	"github.com/benedictpaten/marginpolish-go/internal/polish"
)

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestStitchAndWriteHaploidNamesOutputFa(t *testing.T) {
	base := filepath.Join(t.TempDir(), "polished")
	cfg := runConfig{OutputBase: base, ChunkBoundary: 0}

	results := []*polish.ChunkResult{
		{
			Chunk:   chunk.Chunk{Contig: "chr1"},
			Haploid: &polish.HaploidResult{Consensus: "ACGTACGT"},
		},
	}

	if err := stitchAndWrite(cfg, results); err != nil {
		t.Fatalf("stitchAndWrite: %v", err)
	}

	if _, err := os.Stat(base + ".fa"); err != nil {
		t.Errorf("expected %s.fa to exist: %v", base, err)
	}
	if _, err := os.Stat(base + ".fasta"); err == nil {
		t.Errorf("did not expect %s.fasta to exist", base)
	}

	got := mustReadFile(t, base+".fa")
	want := ">chr1\nACGTACGT\n"
	if got != want {
		t.Errorf("%s.fa content = %q, want %q", base, got, want)
	}
}

func TestStitchAndWriteDiploidNamesOutputH1H2Fa(t *testing.T) {
	base := filepath.Join(t.TempDir(), "polished")
	cfg := runConfig{OutputBase: base, ChunkBoundary: 0, Diploid: true}

	assignment := phase.NewAssignment(2)
	assignment.Hap1.Set(0)
	assignment.Hap2.Set(1)

	results := []*polish.ChunkResult{
		{
			Chunk: chunk.Chunk{Contig: "chr1"},
			Diploid: &polish.DiploidResult{
				Hap1Consensus: "AAAA",
				Hap2Consensus: "TTTT",
				Assignment:    assignment,
				ReadNames:     []string{"read0", "read1"},
			},
		},
	}

	if err := stitchAndWrite(cfg, results); err != nil {
		t.Fatalf("stitchAndWrite: %v", err)
	}

	if _, err := os.Stat(base + ".h1.fa"); err != nil {
		t.Errorf("expected %s.h1.fa to exist: %v", base, err)
	}
	if _, err := os.Stat(base + ".h2.fa"); err != nil {
		t.Errorf("expected %s.h2.fa to exist: %v", base, err)
	}
	if _, err := os.Stat(base + ".hap1.fasta"); err == nil {
		t.Errorf("did not expect %s.hap1.fasta to exist", base)
	}

	if got, want := mustReadFile(t, base+".h1.fa"), ">chr1\nAAAA\n"; got != want {
		t.Errorf("%s.h1.fa content = %q, want %q", base, got, want)
	}
	if got, want := mustReadFile(t, base+".h2.fa"), ">chr1\nTTTT\n"; got != want {
		t.Errorf("%s.h2.fa content = %q, want %q", base, got, want)
	}
}

func TestHaplotypeReadSetsSplitsByAssignment(t *testing.T) {
	assignment := phase.NewAssignment(3)
	assignment.Hap1.Set(0)
	assignment.Hap2.Set(1)
	// read index 2 is left unassigned: unphased, belongs to neither set.

	d := &polish.DiploidResult{
		Assignment: assignment,
		ReadNames:  []string{"r0", "r1", "r2"},
	}

	hap1, hap2 := haplotypeReadSets(d)
	if !hap1["r0"] || len(hap1) != 1 {
		t.Errorf("hap1 = %v, want {r0}", hap1)
	}
	if !hap2["r1"] || len(hap2) != 1 {
		t.Errorf("hap2 = %v, want {r1}", hap2)
	}
	if hap1["r2"] || hap2["r2"] {
		t.Error("expected the unphased read to be absent from both sets")
	}
}
