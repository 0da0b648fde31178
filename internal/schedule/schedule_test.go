package schedule

import (
	"fmt"
	"sync/atomic"
	"testing"
)

func squareTask(i int) (interface{}, error) {
	return i * i, nil
}

func TestRunProducesResultsIndexedByOriginalPosition(t *testing.T) {
	results, errs := Run(10, false, 0, squareTask, nil)
	for i, r := range results {
		if r.(int) != i*i {
			t.Errorf("results[%d] = %v, want %d", i, r, i*i)
		}
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v, want nil", i, errs[i])
		}
	}
}

func TestRunIsShuffleInvariant(t *testing.T) {
	unshuffled, _ := Run(20, false, 0, squareTask, nil)
	shuffled, _ := Run(20, true, 42, squareTask, nil)
	if len(unshuffled) != len(shuffled) {
		t.Fatalf("result length mismatch: %d vs %d", len(unshuffled), len(shuffled))
	}
	for i := range unshuffled {
		if unshuffled[i] != shuffled[i] {
			t.Errorf("results[%d] = %v (unshuffled) vs %v (shuffled), want equal", i, unshuffled[i], shuffled[i])
		}
	}
}

func TestRunPropagatesPerChunkErrors(t *testing.T) {
	task := func(i int) (interface{}, error) {
		if i == 3 {
			return nil, fmt.Errorf("chunk %d failed", i)
		}
		return i, nil
	}
	_, errs := Run(5, false, 0, task, nil)
	if errs[3] == nil {
		t.Error("expected errs[3] to be non-nil")
	}
	for i, err := range errs {
		if i != 3 && err != nil {
			t.Errorf("errs[%d] = %v, want nil", i, err)
		}
	}
}

func TestRunReportsProgressForEveryChunk(t *testing.T) {
	var calls int64
	progress := func(completed, total int) {
		atomic.AddInt64(&calls, 1)
		if total != 7 {
			t.Errorf("total = %d, want 7", total)
		}
	}
	Run(7, false, 0, squareTask, progress)
	if calls != 7 {
		t.Errorf("progress was called %d times, want 7", calls)
	}
}

func TestRunOnZeroChunksReturnsEmptySlices(t *testing.T) {
	results, errs := Run(0, false, 0, squareTask, nil)
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("expected empty slices for zero chunks, got %d results, %d errs", len(results), len(errs))
	}
}
