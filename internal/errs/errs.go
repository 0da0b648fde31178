// Package errs defines the fatal-error taxonomy shared across marginpolish-go.
//
// Every fatal condition wraps one of the sentinels below with fmt.Errorf's
// %w verb so callers can classify a failure with errors.Is while still
// getting a message carrying contig/chunk/coordinate context.
package errs

import "errors"

var (
	// ErrInputUnavailable covers a missing or unreadable alignment,
	// reference, parameter file, or alignment index.
	ErrInputUnavailable = errors.New("input unavailable")

	// ErrInputMismatch covers a contig referenced by the alignment but
	// absent from the reference FASTA, or chunk coordinates that exceed
	// the contig length.
	ErrInputMismatch = errors.New("input mismatch")

	// ErrParameterInconsistent covers parameter combinations that cannot
	// be satisfied, e.g. feature-dump mode requiring RLE while RLE is
	// disabled.
	ErrParameterInconsistent = errors.New("parameter inconsistent")

	// ErrEmptyCoverage covers a run in which no chunk yielded any reads.
	ErrEmptyCoverage = errors.New("empty coverage")

	// ErrChunkFailure covers an unrecoverable error while a worker
	// processes one chunk (e.g. a corrupt alignment record).
	ErrChunkFailure = errors.New("chunk failure")
)
