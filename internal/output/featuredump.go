package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/benedictpaten/marginpolish-go/internal/feature"
)

// WriteFeatureDump writes a chunk's emitted feature.Row tensor rows as a
// tab-separated table, tagged with a run UUID header, optionally zstd
// compressed. compressed selects a ".tsv.zst" suffix and streams through
// a zstd encoder; the plain path writes ".tsv" directly.
func WriteFeatureDump(path string, runID uuid.UUID, t feature.Type, contig string, chunkStart int, rows []feature.Row, compressed bool) error {
	suffix := ".tsv"
	if compressed {
		suffix = ".tsv.zst"
	}
	full := path + suffix

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("creating feature dump %s: %w", full, err)
	}
	defer f.Close()

	var out io.Writer = f
	var closer io.Closer
	if compressed {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("creating zstd encoder for %s: %w", full, err)
		}
		out = enc
		closer = enc
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "#run\t%s\n", runID)
	fmt.Fprintf(w, "#type\t%s\n", t)
	fmt.Fprintln(w, "contig\tposition\tchannel\tweight")
	for _, row := range rows {
		channels := make([]string, 0, len(row.Weights))
		for c := range row.Weights {
			channels = append(channels, c)
		}
		sort.Strings(channels)
		for _, c := range channels {
			fmt.Fprintf(w, "%s\t%d\t%s\t%g\n", contig, chunkStart+row.RefPos, c, row.Weights[c])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}
