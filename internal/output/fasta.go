// Package output writes the polisher's primary FASTA result and its
// optional side channels: haplotype read lists, per-haplotype BAM
// re-emission, repeat-count tables, and POA graph dumps (all supplemented
// from marginPolish.c per SPEC_FULL.md, since spec.md names them only in
// passing).
package output

import (
	"bufio"
	"fmt"
	"os"
)

// WriteFASTA writes one or more named sequences, wrapped at 60 columns
// per the conventional FASTA line width.
func WriteFASTA(path string, records map[string]string, order []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating FASTA output %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, name := range order {
		seq, ok := records[name]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, ">%s\n", name); err != nil {
			return err
		}
		for i := 0; i < len(seq); i += 60 {
			end := i + 60
			if end > len(seq) {
				end = len(seq)
			}
			if _, err := fmt.Fprintln(w, seq[i:end]); err != nil {
				return err
			}
		}
	}
	return nil
}
