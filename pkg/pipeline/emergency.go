package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/paulreece42/ectar/pkg/compress"
	"github.com/paulreece42/ectar/pkg/shardcodec"
	"github.com/paulreece42/ectar/pkg/shardio"
)

// zstdMagic is the four-byte frame magic number zstd prepends to every
// stream (RFC 8478 §3.1.1), used to tell a Streaming-compressed
// reconstruction apart from an identity one when no index survives to
// record which codec was used.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// EmergencyOptions configures an index-less decode (spec.md §4.6
// "Decode (no index, emergency)").
type EmergencyOptions struct {
	InputDir string
	Basename string

	// Codec, if non-nil, is used instead of sniffing the
	// reconstructed stream's magic number. Set this when the archive
	// was created with a compression level the caller already knows
	// (e.g. from an out-of-band record), since sniffing is a
	// heuristic spec.md leaves unresolved for the no-index path.
	Codec compress.Codec

	Logger logrus.FieldLogger
}

// Emergency reconstructs a tar byte stream purely from shard headers
// and filenames, with no index. Emergency applies no file filtering
// itself: the returned stream carries every entry of the reconstructed
// tar stream. Because the reconstructed stream is one contiguous tar byte
// sequence, a chunk in the interior that can't be recovered forces the
// decode to stop there (there is no index to report against, so this
// always behaves like partial mode): everything before it is valid,
// nothing after it is attempted.
func Emergency(opts EmergencyOptions) (io.ReadCloser, <-chan Report, error) {
	discovered, err := shardio.Discover(opts.InputDir, opts.Basename)
	if err != nil {
		return nil, nil, &InputIOError{Path: opts.InputDir, Cause: err}
	}

	chunkNumbers := shardio.SortedChunkNumbers(discovered)
	if len(chunkNumbers) == 0 {
		return nil, nil, fmt.Errorf("pipeline: no shards found for basename %q in %s", opts.Basename, opts.InputDir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pr, pw := io.Pipe()
	done := make(chan Report, 1)

	go func() {
		var recoveries []ChunkRecovery
		recovered := 0
		expected := 1

		for _, num := range chunkNumbers {
			if num != expected {
				// A chunk with no shards on disk at all is still a gap in
				// the stream: stop here rather than splice past it.
				recoveries = append(recoveries, ChunkRecovery{Chunk: expected, State: Unrecoverable})
				logger.WithFields(logrus.Fields{"chunk": expected}).Warn("chunk missing, stopping emergency decode")
				break
			}
			expected++
			shards := discovered[num]

			raw, err := shardio.ReadChunkShards(shards)
			if err != nil {
				recoveries = append(recoveries, ChunkRecovery{Chunk: num, State: Unrecoverable, Have: len(shards)})
				logger.WithFields(logrus.Fields{"chunk": num, "err": err}).Warn("chunk unreadable, stopping emergency decode")
				break
			}

			data, err := shardcodec.Decode(num, raw)
			if err != nil {
				recoveries = append(recoveries, ChunkRecovery{Chunk: num, State: Unrecoverable, Have: len(shards)})
				logger.WithFields(logrus.Fields{"chunk": num, "err": err}).Warn("chunk undecodable, stopping emergency decode")
				break
			}

			if _, err := pw.Write(data); err != nil {
				break
			}

			recoveries = append(recoveries, ChunkRecovery{Chunk: num, State: Piped, Have: len(shards)})
			recovered++
		}

		pw.Close()
		done <- Report{Recoveries: recoveries, ChunksRecovered: recovered, TotalChunks: len(chunkNumbers)}
	}()

	var reconstructed io.Reader = pr
	codec := opts.Codec
	if codec == nil {
		br := bufio.NewReader(pr)
		codec = sniffCodec(br)
		reconstructed = br
	}

	tarStream, err := codec.NewReader(reconstructed)
	if err != nil {
		return nil, nil, &DecompressionError{Cause: err}
	}
	return tarStream, done, nil
}

// sniffCodec peeks the reconstructed stream's first bytes to tell a
// zstd frame from raw tar bytes. It never consumes bytes from br
// beyond what Peek buffers, so the caller can keep reading br
// afterward. An unreadable or too-short stream falls back to None;
// NewReader on the identity codec can't fail, so this never errors
// quietly on a genuinely empty archive.
func sniffCodec(br *bufio.Reader) compress.Codec {
	peeked, err := br.Peek(len(zstdMagic))
	if err != nil {
		return compress.None{}
	}
	for i, b := range zstdMagic {
		if peeked[i] != b {
			return compress.None{}
		}
	}
	return compress.Zstd{}
}
