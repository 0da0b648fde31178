package rle

import "testing"

func simpleMatrixDoc() SubstitutionMatrixDoc {
	// maxRunLength=3: true run lengths 0..3. Strongly favour the
	// diagonal (observed run length == true run length) for base "A".
	rows := [][]float64{
		{0.97, 0.01, 0.01, 0.01},
		{0.01, 0.97, 0.01, 0.01},
		{0.01, 0.01, 0.97, 0.01},
		{0.01, 0.01, 0.01, 0.97},
	}
	return SubstitutionMatrixDoc{
		MaxRunLength: 3,
		Prior:        []float64{0.1, 0.3, 0.3, 0.3},
		Bases:        map[string][][]float64{"A": rows},
	}
}

func TestReestimatePrefersObservedMode(t *testing.T) {
	m, err := NewSubstitutionMatrix(simpleMatrixDoc())
	if err != nil {
		t.Fatalf("NewSubstitutionMatrix: %v", err)
	}
	// Nearly all observations say run length 2.
	hist := []float64{0, 0, 10, 0}
	got := m.Reestimate('A', hist)
	if got != 2 {
		t.Errorf("Reestimate = %d, want 2", got)
	}
}

func TestReestimateUnknownBaseFallsBackToPrior(t *testing.T) {
	m, err := NewSubstitutionMatrix(simpleMatrixDoc())
	if err != nil {
		t.Fatalf("NewSubstitutionMatrix: %v", err)
	}
	hist := []float64{0, 0, 10, 0}
	// Base "N" has no trained rows: falls back to the prior, which peaks
	// at run lengths 1-3 equally; argmax picks the first (index 1).
	got := m.Reestimate('N', hist)
	if got < 1 || got > 3 {
		t.Errorf("Reestimate('N', ...) = %d, want in [1,3]", got)
	}
}

func TestNewSubstitutionMatrixRejectsZeroMaxRunLength(t *testing.T) {
	_, err := NewSubstitutionMatrix(SubstitutionMatrixDoc{MaxRunLength: 0})
	if err == nil {
		t.Fatal("expected an error for MaxRunLength 0")
	}
}
