// Package pipeline composes the chunker, shard codec, shard I/O, and
// index packages into the encode and decode drivers spec.md §4.6
// describes, plus the emergency (index-less) decode path and the
// per-chunk recovery state machine of §4.7.
//
// Grounded on the teacher's pkg/publisher.Upload
// (pkg/publisher/uploader.go): the same staged-pipeline shape (hash ->
// parameters -> process -> build metadata -> write -> save index) and
// its UploadStats progress-accumulator, carried here as Stats.
package pipeline

import "fmt"

// InputIOError reports that the source tree or a shard file could not
// be read (spec.md §7). Fatal, surfaced to the caller.
type InputIOError struct {
	Path  string
	Cause error
}

func (e *InputIOError) Error() string {
	return fmt.Sprintf("input I/O error at %s: %v", e.Path, e.Cause)
}
func (e *InputIOError) Unwrap() error { return e.Cause }

// DecompressionError reports that the compressed byte stream ended
// unexpectedly or otherwise failed to decode (spec.md §7). Fatal.
type DecompressionError struct {
	Cause error
}

func (e *DecompressionError) Error() string { return fmt.Sprintf("decompression error: %v", e.Cause) }
func (e *DecompressionError) Unwrap() error { return e.Cause }

// TarError reports that the tar extractor rejected the produced byte
// stream (spec.md §7). Fatal.
type TarError struct {
	Cause error
}

func (e *TarError) Error() string { return fmt.Sprintf("tar error: %v", e.Cause) }
func (e *TarError) Unwrap() error { return e.Cause }
