package nw

import "testing"

func pathString(a, b []byte, path []Op) (top, bottom string) {
	for _, op := range path {
		switch op.Pointer {
		case Diag:
			top += string(a[op.AIndex])
			bottom += string(b[op.BIndex])
		case Top:
			top += string(a[op.AIndex])
			bottom += "-"
		case Left:
			top += "-"
			bottom += string(b[op.BIndex])
		}
	}
	return top, bottom
}

func TestGlobalIdenticalSequences(t *testing.T) {
	a := []byte("ACGT")
	result := Global(a, a, DefaultOptions)
	if result.Score != len(a)*DefaultOptions.MatchScore {
		t.Errorf("Score = %d, want %d", result.Score, len(a)*DefaultOptions.MatchScore)
	}
	top, bottom := pathString(a, a, result.Path)
	if top != bottom {
		t.Errorf("expected identical alignment rows, got %q / %q", top, bottom)
	}
}

func TestGlobalInsertion(t *testing.T) {
	a := []byte("AC")
	b := []byte("AXC")
	result := Global(a, b, DefaultOptions)
	if len(result.Path) != 3 {
		t.Fatalf("path length = %d, want 3", len(result.Path))
	}
	var kinds []Pointer
	for _, op := range result.Path {
		kinds = append(kinds, op.Pointer)
	}
	if kinds[0] != Diag || kinds[2] != Diag {
		t.Errorf("expected the flanking steps to be matches, got %v", kinds)
	}
}

func TestGlobalEmptyInputs(t *testing.T) {
	result := Global(nil, []byte("AC"), DefaultOptions)
	if len(result.Path) != 2 {
		t.Fatalf("path length = %d, want 2", len(result.Path))
	}
	for _, op := range result.Path {
		if op.Pointer != Left {
			t.Errorf("expected all-Left path against an empty a, got %v", op.Pointer)
		}
	}
}
