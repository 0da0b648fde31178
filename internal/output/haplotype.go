package output

import (
	"bufio"
	"fmt"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// WriteHaplotypeReadLists writes one plain-text file per haplotype
// listing the read names assigned to it (marginPolish.c's
// -n/--outputHaplotypeReads).
func WriteHaplotypeReadLists(basePath string, hap1Names, hap2Names, unphasedNames []string) error {
	sets := map[string][]string{
		basePath + ".hap1.reads.txt":     hap1Names,
		basePath + ".hap2.reads.txt":     hap2Names,
		basePath + ".unphased.reads.txt": unphasedNames,
	}
	for path, names := range sets {
		if err := writeLines(path, names); err != nil {
			return err
		}
	}
	return nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// WriteHaplotypeBAMs re-emits the input alignment split into per-haplotype
// BAM files (marginPolish.c's -m/--outputHaplotypeBAM), keeping the
// original header and records but partitioning by the read name sets a
// Phaser assignment produced.
func WriteHaplotypeBAMs(basePath string, header *sam.Header, hap1Records, hap2Records []*sam.Record) error {
	if err := writeBAM(basePath+".hap1.bam", header, hap1Records); err != nil {
		return err
	}
	return writeBAM(basePath+".hap2.bam", header, hap2Records)
}

func writeBAM(path string, header *sam.Header, records []*sam.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w, err := bam.NewWriter(f, header, 1)
	if err != nil {
		return fmt.Errorf("creating BAM writer for %s: %w", path, err)
	}
	defer w.Close()

	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing record to %s: %w", path, err)
		}
	}
	return nil
}
