// Package nw implements a small global-alignment (Needleman-Wunsch) DP,
// grounded on shenwei356-LexicMap's index/align/nw.go. It operates over
// arbitrary byte-comparable tokens (RLE run bases, in this module's case)
// rather than raw nucleotides, and is shared by the POA engine's
// realignment pass (§4.4) and the Chunk Stitcher's overlap alignment
// (§4.8).
//
// Both call sites work over RLE-compressed run counts, which are already
// far smaller than the raw base count; this package therefore runs the
// full O(len(a)*len(b)) DP rather than a truly banded variant, and Global
// never restricts a/b to a window itself. internal/stitch does pre-slice
// its inputs to an overlap window before calling Global, but that is a
// property of stitch's own call site, not of this package; nothing here
// currently applies the params document's poa.bandWidth to a/b before
// realignment.
package nw

// Pointer records which predecessor cell produced a DP cell's score.
type Pointer uint8

const (
	None Pointer = iota
	Top           // gap in b (a[i-1] consumed, b not)
	Left          // gap in a (b[j-1] consumed, a not)
	Diag          // a[i-1] aligned with b[j-1], match or mismatch
)

// Options configures alignment scoring.
type Options struct {
	MatchScore    int
	MismatchScore int
	GapScore      int
}

// DefaultOptions matches LexicMap's DefaultAlignOptions.
var DefaultOptions = Options{MatchScore: 1, MismatchScore: -1, GapScore: -1}

// Op is one step of a traced-back alignment path.
type Op struct {
	Pointer Pointer
	AIndex  int // index into a, valid for Top and Diag
	BIndex  int // index into b, valid for Left and Diag
}

// Result is a completed global alignment.
type Result struct {
	Score int
	// Path is ordered from the start of the alignment to its end.
	Path []Op
}

// Global computes the optimal global alignment of a against b.
func Global(a, b []byte, opts Options) Result {
	h := len(a) + 1
	w := len(b) + 1

	scores := make([]int, h*w)
	pointers := make([]Pointer, h*w)
	idx := func(i, j int) int { return i*w + j }

	pointers[idx(0, 0)] = None
	for i := 1; i < h; i++ {
		scores[idx(i, 0)] = opts.GapScore * i
		pointers[idx(i, 0)] = Top
	}
	for j := 1; j < w; j++ {
		scores[idx(0, j)] = opts.GapScore * j
		pointers[idx(0, j)] = Left
	}

	for i := 1; i < h; i++ {
		for j := 1; j < w; j++ {
			matchScore := opts.MismatchScore
			if a[i-1] == b[j-1] {
				matchScore = opts.MatchScore
			}
			diag := scores[idx(i-1, j-1)] + matchScore
			top := scores[idx(i-1, j)] + opts.GapScore
			left := scores[idx(i, j-1)] + opts.GapScore

			best := diag
			p := Diag
			if top > best {
				best, p = top, Top
			}
			if left > best {
				best, p = left, Left
			}
			scores[idx(i, j)] = best
			pointers[idx(i, j)] = p
		}
	}

	var path []Op
	i, j := h-1, w-1
	for pointers[idx(i, j)] != None {
		switch pointers[idx(i, j)] {
		case Diag:
			path = append(path, Op{Pointer: Diag, AIndex: i - 1, BIndex: j - 1})
			i--
			j--
		case Top:
			path = append(path, Op{Pointer: Top, AIndex: i - 1})
			i--
		case Left:
			path = append(path, Op{Pointer: Left, BIndex: j - 1})
			j--
		}
	}
	// Reverse into forward order.
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	return Result{Score: scores[idx(h-1, w-1)], Path: path}
}
