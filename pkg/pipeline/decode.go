package pipeline

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/paulreece42/ectar/pkg/compress"
	"github.com/paulreece42/ectar/pkg/index"
	"github.com/paulreece42/ectar/pkg/shardcodec"
	"github.com/paulreece42/ectar/pkg/shardio"
)

// DecodeOptions configures one index-driven decode run (spec.md §4.6
// "Decode (with index)").
type DecodeOptions struct {
	InputDir string
	Basename string

	// Partial, when true, stops cleanly at the first unrecoverable
	// chunk instead of failing the whole decode (spec.md §4.7).
	Partial bool

	Logger logrus.FieldLogger
}

// Report is the final recovery summary a decode produces, available
// once the returned Done channel fires (spec.md §6's "Chunks
// recovered: N/total").
type Report struct {
	Recoveries      []ChunkRecovery
	ChunksRecovered int
	TotalChunks     int
}

// Decode parses the index, discovers shards, and returns a tar byte
// stream assembled chunk-by-chunk in ascending order. The caller (the
// external tar extractor, per spec.md §6) reads the stream to
// completion; Done then receives exactly one Report describing what
// was recovered. A strict-mode failure on an unrecoverable chunk
// surfaces as a Read error on the returned stream, matching the
// "propagate elsewhere" policy of spec.md §7.
func Decode(opts DecodeOptions) (io.ReadCloser, <-chan Report, error) {
	idx, codec, err := loadIndex(opts.InputDir, opts.Basename)
	if err != nil {
		return nil, nil, err
	}

	discovered, err := shardio.Discover(opts.InputDir, opts.Basename)
	if err != nil {
		return nil, nil, &InputIOError{Path: opts.InputDir, Cause: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	k := idx.Parameters.DataShards
	total := len(idx.Chunks)

	pr, pw := io.Pipe()
	done := make(chan Report, 1)

	go func() {
		var recoveries []ChunkRecovery
		recovered := 0

		finish := func() {
			done <- Report{Recoveries: recoveries, ChunksRecovered: recovered, TotalChunks: total}
		}

		for _, c := range idx.Chunks {
			shards := discovered[c.Number]
			have := len(shards)

			if have < k {
				recoveries = append(recoveries, ChunkRecovery{Chunk: c.Number, State: Unrecoverable, Have: have, Need: k})
				if !opts.Partial {
					pw.CloseWithError(&shardcodec.InsufficientShardsError{Chunk: c.Number, Have: have, Need: k})
					finish()
					return
				}
				logger.WithFields(logrus.Fields{"chunk": c.Number, "have": have, "need": k}).
					Warn("chunk unrecoverable, stopping partial decode")
				break
			}

			raw, err := shardio.ReadChunkShards(shards)
			if err != nil {
				recoveries = append(recoveries, ChunkRecovery{Chunk: c.Number, State: Unrecoverable, Have: have, Need: k})
				if !opts.Partial {
					pw.CloseWithError(&InputIOError{Path: opts.InputDir, Cause: err})
					finish()
					return
				}
				break
			}

			data, err := shardcodec.Decode(c.Number, raw)
			if err != nil {
				recoveries = append(recoveries, ChunkRecovery{Chunk: c.Number, State: Unrecoverable, Have: have, Need: k})
				if !opts.Partial {
					pw.CloseWithError(err)
					finish()
					return
				}
				break
			}

			if _, err := pw.Write(data); err != nil {
				finish()
				return
			}

			recoveries = append(recoveries, ChunkRecovery{Chunk: c.Number, State: Piped, Have: have, Need: k})
			recovered++
		}

		pw.Close()
		finish()
	}()

	tarStream, err := codec.NewReader(pr)
	if err != nil {
		return nil, nil, &DecompressionError{Cause: err}
	}
	return tarStream, done, nil
}

// loadIndex locates "<basename>.index.*" in dir and parses it with the
// codec implied by its extension, so the caller never has to guess the
// archive's compression settings before reading the index.
func loadIndex(dir, basename string) (index.Index, compress.Codec, error) {
	name, codec, err := shardio.LocateIndex(dir, basename)
	if err != nil {
		return index.Index{}, nil, &InputIOError{Path: dir, Cause: err}
	}

	idx, err := readIndexFile(dir, name, codec)
	if err != nil {
		return index.Index{}, nil, err
	}

	dataCodec := compress.ForLevel(idx.Parameters.CompressionLevel, idx.Parameters.NoCompression)
	return idx, dataCodec, nil
}
