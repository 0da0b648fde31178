// Package schedule dispatches per-chunk polishing work across a worker
// pool (spec §4.9). It wraps pargo/parallel.Range, whose worker pool is
// sized from runtime.GOMAXPROCS rather than a parameter this package
// takes directly; cmd/marginpolish sets GOMAXPROCS from --threads before
// invoking Run, matching how pargo's own examples size their pool.
package schedule

import (
	"math/rand"
	"sync/atomic"

	"github.com/exascience/pargo/parallel"
)

// Task computes one chunk's result, addressed by its original (unshuffled)
// index.
type Task func(originalIndex int) (interface{}, error)

// ProgressFunc is called after each chunk completes, with the number of
// chunks completed so far (spec §4.9: "progress reporting is computed
// from completed count").
type ProgressFunc func(completed, total int)

// Run dispatches numChunks tasks across pargo's worker pool. When shuffle
// is true, the dispatch order is a deterministic permutation of chunk
// indices seeded by shuffleSeed, but results[originalIndex] is always
// written by originalIndex — never by the permuted dispatch position — so
// shuffling cannot perturb output (spec §5's ordering guarantee, §8's
// shuffle-invariance property).
func Run(numChunks int, shuffle bool, shuffleSeed int64, task Task, progress ProgressFunc) ([]interface{}, []error) {
	results := make([]interface{}, numChunks)
	errs := make([]error, numChunks)
	if numChunks == 0 {
		return results, errs
	}

	order := make([]int, numChunks)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(shuffleSeed))
		rng.Shuffle(numChunks, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var completed int64

	parallel.Range(0, numChunks, 0, func(low, high int) {
		for p := low; p < high; p++ {
			originalIndex := order[p]
			res, err := task(originalIndex)
			results[originalIndex] = res
			errs[originalIndex] = err
			n := atomic.AddInt64(&completed, 1)
			if progress != nil {
				progress(int(n), numChunks)
			}
		}
	})

	return results, errs
}
