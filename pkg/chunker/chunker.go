// Package chunker splits a byte stream into fixed-size chunks (spec.md
// §4.1): every chunk except the last is exactly chunk_size bytes, the
// last may be shorter but is non-empty unless the input was empty, and
// an empty input yields no chunks at all.
//
// Grounded on the teacher's chunker.StreamChunkFile
// (pkg/chunker/chunker.go): the same channel-of-results streaming
// idiom and io.ReadFull + io.ErrUnexpectedEOF final-chunk handling,
// generalized from opening a fixed file path to consuming an arbitrary
// io.Reader, since this chunker sits downstream of the compressor in
// the pipeline rather than reading a file directly.
package chunker

import (
	"fmt"
	"io"
)

// Result carries one chunk buffer or a terminal read error. An error
// is delivered as the final value sent before the channel closes.
type Result struct {
	Number int // 1-based chunk number, per spec.md §3 "Chunk"
	Data   []byte
	Err    error
}

// Stream reads r in chunkSize-byte buffers and sends each as a Result
// on the returned channel, closing it when r is exhausted or a read
// error occurs. Chunks are numbered starting at 1. The chunker never
// mutates bytes and never emits an empty chunk.
func Stream(r io.Reader, chunkSize int) <-chan Result {
	out := make(chan Result, 2)

	go func() {
		defer close(out)

		if chunkSize <= 0 {
			out <- Result{Err: fmt.Errorf("chunker: chunk_size must be positive, got %d", chunkSize)}
			return
		}

		number := 1
		buffer := make([]byte, chunkSize)

		for {
			n, err := io.ReadFull(r, buffer)

			if err == io.EOF {
				// Exact multiple of chunkSize already flushed; nothing left.
				return
			}
			if err == io.ErrUnexpectedEOF {
				// Final, partial chunk -- not a real error.
				err = nil
			}
			if err != nil {
				out <- Result{Err: fmt.Errorf("chunker: read failed at chunk %d: %w", number, err)}
				return
			}

			data := make([]byte, n)
			copy(data, buffer[:n])

			out <- Result{Number: number, Data: data}
			number++

			if n < chunkSize {
				return // that was the final, short chunk
			}
		}
	}()

	return out
}
