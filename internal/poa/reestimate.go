package poa

import "github.com/benedictpaten/marginpolish-go/internal/rle"

// Reestimate applies the RLE Length Model (spec §4.5) to a consensus
// string: for each position, converts its observed run-length histogram
// into the dense vector rle.SubstitutionMatrix expects and replaces the
// run length with the Bayesian-optimal estimate.
func Reestimate(consensus *rle.String, hists []PositionHistogram, matrix *rle.SubstitutionMatrix) *rle.String {
	out := consensus
	maxRun := matrix.MaxRunLength()
	for i, h := range hists {
		if i >= out.Len() {
			break
		}
		dense := make([]float64, maxRun+1)
		for length, weight := range h.Histogram {
			if length >= 0 && length <= maxRun {
				dense[length] += weight
			} else if length > maxRun {
				dense[maxRun] += weight
			}
		}
		newLen := matrix.Reestimate(h.Base, dense)
		out = out.WithLength(i, newLen)
	}
	return out
}
