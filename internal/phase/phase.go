package phase

import (
	"math"

	"github.com/willf/bitset"
	"gonum.org/v1/gonum/stat"

	"github.com/benedictpaten/marginpolish-go/internal/bubble"
	"github.com/benedictpaten/marginpolish-go/internal/params"
)

// defaultPriorHetRate is used when a caller supplies a PriorHetRate
// outside (0,1), matching the belt-and-suspenders defaulting already done
// for MaxEMIterations both here and in params.Load.
const defaultPriorHetRate = 0.001

// Fragment is a Genome Fragment (spec glossary): the chosen allele index
// per bubble for each haplotype.
type Fragment struct {
	H1       []int
	H2       []int
	RefStart int
}

// Assignment is the chunk's Read-Haplotype Assignment: two disjoint read
// sets plus an implicit unphased complement (spec glossary). Disjointness
// is enforced by construction: Assign clears a read's membership in the
// other set before setting it in the requested one.
type Assignment struct {
	Hap1, Hap2 *bitset.BitSet
	NumReads   uint
	// Confidence records each read's signed hap1 - hap2 log-likelihood gap,
	// for diagnostics and for the unphased-confidence threshold decision.
	Confidence []float64
	// MeanConfidence is stat.Mean over Confidence's absolute values as of
	// the last EM round, a coarse per-chunk phasing-quality signal.
	MeanConfidence float64
}

// NewAssignment allocates an all-unphased assignment over numReads reads.
func NewAssignment(numReads int) *Assignment {
	return &Assignment{
		Hap1:       bitset.New(uint(numReads)),
		Hap2:       bitset.New(uint(numReads)),
		NumReads:   uint(numReads),
		Confidence: make([]float64, numReads),
	}
}

func (a *Assignment) assignHap1(i int) {
	a.Hap2.Clear(uint(i))
	a.Hap1.Set(uint(i))
}

func (a *Assignment) assignHap2(i int) {
	a.Hap1.Clear(uint(i))
	a.Hap2.Set(uint(i))
}

func (a *Assignment) markUnphased(i int) {
	a.Hap1.Clear(uint(i))
	a.Hap2.Clear(uint(i))
}

// Unphased reports whether read i belongs to neither haplotype set.
func (a *Assignment) Unphased(i int) bool {
	return !a.Hap1.Test(uint(i)) && !a.Hap2.Test(uint(i))
}

// Disjoint reports the invariant hap1 ∩ hap2 = ∅ (spec §3 invariants),
// which holds by construction but is exposed for tests to assert on.
func (a *Assignment) Disjoint() bool {
	return a.Hap1.IntersectionCardinality(a.Hap2) == 0
}

// Phase runs the EM-like alternation described in spec §4.7: initialise
// read assignments by k-means-style clustering on the vote vectors, then
// alternate fixing read assignments (choose per-bubble genotype
// maximising conditional likelihood) and fixing genotypes (reassign
// reads), terminating on assignment stability or params.MaxEMIterations.
func Phase(bubbles []bubble.Bubble, votes [][]int, p params.PhaseParams) (*Fragment, *Assignment) {
	numReads := len(votes)
	assignment := NewAssignment(numReads)
	if len(bubbles) == 0 || numReads == 0 {
		return &Fragment{}, assignment
	}

	initialCluster(votes, assignment)

	maxIter := p.MaxEMIterations
	if maxIter <= 0 {
		maxIter = 10
	}
	priorHetRate := p.PriorHetRate
	if priorHetRate <= 0 || priorHetRate >= 1 {
		priorHetRate = defaultPriorHetRate
	}

	var fragment *Fragment
	for iter := 0; iter < maxIter; iter++ {
		fragment = chooseGenotypes(bubbles, votes, assignment, p.ReadErrorRate, priorHetRate)
		changed := reassignReads(bubbles, votes, fragment, p, assignment)
		if !changed {
			break
		}
	}
	if fragment == nil {
		fragment = chooseGenotypes(bubbles, votes, assignment, p.ReadErrorRate, priorHetRate)
	}
	return fragment, assignment
}

// initialCluster seeds hap1/hap2 by picking the two reads whose vote
// vectors disagree most often as cluster centroids, then assigning every
// other read to whichever centroid it agrees with more (a k=2 k-means
// first iteration; Phase's own EM loop refines it further).
func initialCluster(votes [][]int, assignment *Assignment) {
	n := len(votes)
	if n == 0 {
		return
	}
	if n == 1 {
		assignment.assignHap1(0)
		return
	}

	seedA, seedB := 0, 1
	bestDisagreement := -1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := disagreementCount(votes[i], votes[j])
			if d > bestDisagreement {
				bestDisagreement = d
				seedA, seedB = i, j
			}
		}
	}

	assignment.assignHap1(seedA)
	assignment.assignHap2(seedB)
	for i := 0; i < n; i++ {
		if i == seedA || i == seedB {
			continue
		}
		if agreementCount(votes[i], votes[seedA]) >= agreementCount(votes[i], votes[seedB]) {
			assignment.assignHap1(i)
		} else {
			assignment.assignHap2(i)
		}
	}
}

func disagreementCount(a, b []int) int {
	n := 0
	for i := range a {
		if a[i] != NoCall && b[i] != NoCall && a[i] != b[i] {
			n++
		}
	}
	return n
}

func agreementCount(a, b []int) int {
	n := 0
	for i := range a {
		if a[i] != NoCall && b[i] != NoCall && a[i] == b[i] {
			n++
		}
	}
	return n
}

// chooseGenotypes fixes the current read assignment and, per bubble,
// picks the (hap1, hap2) allele pair maximising
// Σ_reads log P(read | haplotype) plus a genotype prior favouring
// homozygous sites over heterozygous ones (spec §4.7).
func chooseGenotypes(bubbles []bubble.Bubble, votes [][]int, assignment *Assignment, readErrorRate, priorHetRate float64) *Fragment {
	f := &Fragment{H1: make([]int, len(bubbles)), H2: make([]int, len(bubbles))}
	for b, bub := range bubbles {
		f.H1[b], f.H2[b] = bestGenotypePair(votes, assignment, b, bub, readErrorRate, priorHetRate)
	}
	return f
}

// bestGenotypePair searches every (a1, a2) allele-index pair for the one
// maximising the assigned reads' summed log-likelihood plus
// log(priorHetRate) when a1 != a2 or log(1-priorHetRate) when a1 == a2.
func bestGenotypePair(votes [][]int, assignment *Assignment, bubbleIdx int, bub bubble.Bubble, readErrorRate, priorHetRate float64) (int, int) {
	n := len(bub.Alleles)
	if n == 0 {
		return NoCall, NoCall
	}
	logHet := math.Log(priorHetRate)
	logHom := math.Log(1 - priorHetRate)

	bestA1, bestA2 := 0, 0
	bestScore := math.Inf(-1)
	for a1 := 0; a1 < n; a1++ {
		ll1 := haplotypeLogLikelihood(votes, assignment.Hap1, bubbleIdx, a1, n, readErrorRate)
		for a2 := 0; a2 < n; a2++ {
			ll2 := haplotypeLogLikelihood(votes, assignment.Hap2, bubbleIdx, a2, n, readErrorRate)
			score := ll1 + ll2
			if a1 == a2 {
				score += logHom
			} else {
				score += logHet
			}
			if score > bestScore {
				bestScore = score
				bestA1, bestA2 = a1, a2
			}
		}
	}
	return bestA1, bestA2
}

func haplotypeLogLikelihood(votes [][]int, set *bitset.BitSet, bubbleIdx, allele, numAlleles int, readErrorRate float64) float64 {
	ll := 0.0
	for r := uint(0); r < uint(len(votes)); r++ {
		if !set.Test(r) {
			continue
		}
		ll += logP(votes[r][bubbleIdx], allele, numAlleles, readErrorRate)
	}
	return ll
}

// reassignReads fixes the current per-bubble genotypes and reassigns each
// read to the haplotype its votes better support, per spec §4.7's EM
// alternation. Returns whether any read's assignment changed.
func reassignReads(bubbles []bubble.Bubble, votes [][]int, fragment *Fragment, p params.PhaseParams, assignment *Assignment) bool {
	changed := false
	diffs := make([]float64, 0, len(votes))
	for r, row := range votes {
		ll1 := 0.0
		ll2 := 0.0
		for b, bub := range bubbles {
			numAlleles := len(bub.Alleles)
			ll1 += logP(row[b], fragment.H1[b], numAlleles, p.ReadErrorRate)
			ll2 += logP(row[b], fragment.H2[b], numAlleles, p.ReadErrorRate)
		}
		diff := ll1 - ll2
		assignment.Confidence[r] = diff
		diffs = append(diffs, absFloat(diff))

		wasHap1 := assignment.Hap1.Test(uint(r))
		wasHap2 := assignment.Hap2.Test(uint(r))

		threshold := p.UnphasedConfidence
		switch {
		case absFloat(diff) < threshold:
			assignment.markUnphased(r)
			changed = changed || wasHap1 || wasHap2
		case diff > 0:
			assignment.assignHap1(r)
			changed = changed || !wasHap1
		default:
			assignment.assignHap2(r)
			changed = changed || !wasHap2
		}
	}
	if len(diffs) > 0 {
		assignment.MeanConfidence = stat.Mean(diffs, nil)
	}
	return changed
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
