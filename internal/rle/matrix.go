package rle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SubstitutionMatrixDoc is the JSON shape of the RLE substitution matrix as
// it appears in the parameter document: P(observedRun=j | trueRun=i, base)
// for runs up to MaxRunLength, plus a prior over true run lengths.
type SubstitutionMatrixDoc struct {
	MaxRunLength int                  `json:"maxRunLength"`
	Prior        []float64            `json:"priorRunLength"`
	Bases        map[string][][]float64 `json:"bases"`
}

// SubstitutionMatrix is the loaded, immutable, process-wide form of the RLE
// substitution matrix (spec §3's "RLE Substitution Matrix"). Once built it
// is passed by pointer to every worker and never mutated.
type SubstitutionMatrix struct {
	maxRunLength int
	logPrior     []float64
	byBase       map[byte]*mat.Dense // trueRun x obsRun, log-probabilities
}

// NewSubstitutionMatrix builds an immutable matrix from its JSON document
// form, taking logs up front so re-estimation is a sum rather than a
// product-of-many-small-numbers.
func NewSubstitutionMatrix(doc SubstitutionMatrixDoc) (*SubstitutionMatrix, error) {
	if doc.MaxRunLength <= 0 {
		return nil, fmt.Errorf("rle: substitution matrix maxRunLength must be positive")
	}
	n := doc.MaxRunLength + 1
	logPrior := make([]float64, n)
	if len(doc.Prior) == 0 {
		// Uniform prior when the document doesn't supply one.
		u := math.Log(1.0 / float64(n))
		for i := range logPrior {
			logPrior[i] = u
		}
	} else {
		for i := 0; i < n; i++ {
			p := 1e-12
			if i < len(doc.Prior) && doc.Prior[i] > 0 {
				p = doc.Prior[i]
			}
			logPrior[i] = math.Log(p)
		}
	}

	byBase := make(map[byte]*mat.Dense, len(doc.Bases))
	for baseStr, table := range doc.Bases {
		if len(baseStr) != 1 {
			return nil, fmt.Errorf("rle: substitution matrix base key must be one character, got %q", baseStr)
		}
		if len(table) != n {
			return nil, fmt.Errorf("rle: substitution matrix for base %s must have %d rows, got %d", baseStr, n, len(table))
		}
		d := mat.NewDense(n, n, nil)
		for i, row := range table {
			for j := 0; j < n; j++ {
				p := 1e-12
				if j < len(row) && row[j] > 0 {
					p = row[j]
				}
				d.Set(i, j, math.Log(p))
			}
		}
		byBase[baseStr[0]] = d
	}

	return &SubstitutionMatrix{maxRunLength: doc.MaxRunLength, logPrior: logPrior, byBase: byBase}, nil
}

// MaxRunLength returns the largest run length the matrix models.
func (m *SubstitutionMatrix) MaxRunLength() int {
	return m.maxRunLength
}

// clampHistogram returns histogram truncated/zero-padded to length
// m.maxRunLength+1, so that ragged observed-length histograms from callers
// never index out of range.
func (m *SubstitutionMatrix) clampHistogram(histogram []float64) []float64 {
	n := m.maxRunLength + 1
	out := make([]float64, n)
	for j := 0; j < n && j < len(histogram); j++ {
		out[j] = histogram[j]
	}
	return out
}

// LogPosterior returns log P(trueRun=i) + Σ_j histogram[j]·log P(j|i,base),
// the unnormalised log posterior spec §4.5 maximises.
func (m *SubstitutionMatrix) LogPosterior(base byte, trueRun int, histogram []float64) float64 {
	table, ok := m.byBase[base]
	h := m.clampHistogram(histogram)
	score := m.logPrior[trueRun]
	if !ok {
		// No trained rows for this base (e.g. an ambiguity code): fall
		// back to the prior alone.
		return score
	}
	for j, weight := range h {
		if weight == 0 {
			continue
		}
		score += weight * table.At(trueRun, j)
	}
	return score
}

// Reestimate chooses argmax_i P(i)·Π_j P(j|i,base)^H[j], the Bayesian
// re-estimate of the true run length given an observed run-length
// histogram (spec §4.5).
func (m *SubstitutionMatrix) Reestimate(base byte, histogram []float64) int {
	best := 0
	bestScore := math.Inf(-1)
	for i := 0; i <= m.maxRunLength; i++ {
		score := m.LogPosterior(base, i, histogram)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
