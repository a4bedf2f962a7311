package shardio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotImplemented is returned by sinks whose body spec.md explicitly
// defers (the experimental multi-tape writer, §9 open question: "LTO
// tape writer"). Only the interface seam is built.
var ErrNotImplemented = errors.New("shardio: not implemented")

// Sink is the polymorphic shard output spec.md §9 calls for:
// `{File(path), TapeDevice(path, block_size)}`. Both present the same
// "write one shard's bytes durably" contract; the pipeline driver never
// branches on which one it holds.
type Sink interface {
	// WriteShard durably writes data as the named shard file and
	// returns once it is flushed to stable storage.
	WriteShard(name string, data []byte) error
}

// FileSink writes shards as ordinary files in a directory.
type FileSink struct {
	Dir string
}

func (s FileSink) WriteShard(name string, data []byte) error {
	path := filepath.Join(s.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("shardio: failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("shardio: failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("shardio: failed to sync %s: %w", path, err)
	}
	return f.Close()
}

// TapeSink is the seam for the experimental multi-tape writer spec.md
// §9 explicitly excludes from this core spec pending a finalized
// failure model (mid-tape EOM, drive failure mid-write). It exists so
// the Sink interface already has the right shape for that future work.
type TapeSink struct {
	Path      string
	BlockSize int
}

func (s TapeSink) WriteShard(name string, data []byte) error {
	return fmt.Errorf("shardio: tape sink for %s: %w", name, ErrNotImplemented)
}

// WriteChunkShards writes every shard of one chunk concurrently --
// one goroutine per shard file, since they are independent outputs
// (spec.md §5 "Shard fan-out") -- and returns only once all of them
// are durably flushed, so a crash can never leave a chunk's shards
// half-written while the next chunk's shards have already begun.
func WriteChunkShards(sink Sink, names []string, shards [][]byte) error {
	if len(names) != len(shards) {
		return fmt.Errorf("shardio: names/shards length mismatch: %d vs %d", len(names), len(shards))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(shards))
	for i := range shards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = sink.WriteShard(names[i], shards[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("shardio: shard %d: %w", i, err)
		}
	}
	return nil
}
