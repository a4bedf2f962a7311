package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paulreece42/ectar/pkg/archive"
	"github.com/paulreece42/ectar/pkg/chunker"
	"github.com/paulreece42/ectar/pkg/compress"
	"github.com/paulreece42/ectar/pkg/index"
	"github.com/paulreece42/ectar/pkg/shardcodec"
	"github.com/paulreece42/ectar/pkg/shardio"
)

// EncodeOptions configures one encode run (spec.md §4.6 "Encode").
type EncodeOptions struct {
	Basename   string
	OutputDir  string
	Parameters archive.Parameters

	// TotalSizeHint, if > 0, is the caller's best estimate of the
	// compressed stream's total byte length, used only to size the
	// zero-padded chunk-number digit width up front (spec.md §4.4).
	// If the actual chunk count later exceeds what the chosen width
	// can hold without padding, filenames stay correct (fmt never
	// truncates a number) but simply print wider than neighbors --
	// a cosmetic-only consequence of not knowing stream length ahead
	// of time, not a correctness issue.
	TotalSizeHint int64

	// Files, if set, is called once after the tar stream has been
	// fully consumed and every chunk's shards are written, and its
	// result is embedded in the index. It is a thunk rather than a
	// plain slice because a concurrent tar producer (cmd/ectar's
	// directory walker) may not know the final file list until the
	// stream it is writing has been fully drained -- which, for a
	// pipe-fed tarStream, happens no earlier than this point anyway.
	Files func() ([]archive.FileEntry, error)

	Logger logrus.FieldLogger
}

// Stats accumulates encode progress, mirroring the teacher's
// UploadStats (pkg/publisher/uploader.go).
type Stats struct {
	ChunksWritten int
	ShardsWritten int
	BytesIn       int64 // bytes read from the tar stream
	BytesOut      int64 // compressed-stream bytes packed into chunks (before erasure padding and parity)
	StartTime     time.Time
	EndTime       time.Time
}

// Encode drives: tar stream -> compressor -> chunker -> shard codec ->
// shard files, then writes the index (spec.md §4.6). opts.Files
// supplies the file list the external tar builder/walker produced;
// the core never parses the tar stream itself, so it cannot discover
// file records on its own.
//
// Memory use is bounded to O(chunk_size * (k+m)/k): one chunk buffer
// plus its shards are alive at any moment, never the whole archive.
func Encode(tarStream io.Reader, opts EncodeOptions) (index.Index, Stats, error) {
	stats := Stats{StartTime: time.Now()}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if err := opts.Parameters.Validate(); err != nil {
		return index.Index{}, stats, err
	}

	k := opts.Parameters.DataShards
	m := opts.Parameters.ParityShards
	total := k + m

	codec := compress.ForLevel(opts.Parameters.CompressionLevel, opts.Parameters.NoCompression)

	pr, pw := io.Pipe()
	compressErr := make(chan error, 1)
	go func() {
		cw, err := codec.NewWriter(pw)
		if err != nil {
			pw.CloseWithError(err)
			compressErr <- err
			return
		}
		n, copyErr := io.Copy(cw, tarStream)
		stats.BytesIn = n
		closeErr := cw.Close()
		if copyErr != nil {
			pw.CloseWithError(copyErr)
			compressErr <- copyErr
			return
		}
		if closeErr != nil {
			pw.CloseWithError(closeErr)
			compressErr <- closeErr
			return
		}
		pw.Close()
		compressErr <- nil
	}()

	estimatedChunks := 1
	if opts.TotalSizeHint > 0 && opts.Parameters.ChunkSize > 0 {
		estimatedChunks = int((opts.TotalSizeHint + int64(opts.Parameters.ChunkSize) - 1) / int64(opts.Parameters.ChunkSize))
		if estimatedChunks < 1 {
			estimatedChunks = 1
		}
	}
	chunkDigits := shardio.ChunkDigits(estimatedChunks)
	shareDigits := shardio.ShareDigits(total)

	sink := shardio.FileSink{Dir: opts.OutputDir}
	builder := index.NewBuilder(opts.Basename, opts.Parameters)

	for result := range chunker.Stream(pr, opts.Parameters.ChunkSize) {
		if result.Err != nil {
			return index.Index{}, stats, &InputIOError{Path: "tar/compressed stream", Cause: result.Err}
		}

		encoded, err := shardcodec.Encode(result.Data, k, m)
		if err != nil {
			return index.Index{}, stats, fmt.Errorf("pipeline: failed to encode chunk %d: %w", result.Number, err)
		}

		names := make([]string, total)
		for i := 0; i < total; i++ {
			names[i] = shardio.ShardFileName(opts.Basename, result.Number, i, chunkDigits, shareDigits)
		}
		if err := shardio.WriteChunkShards(sink, names, encoded.Shards); err != nil {
			return index.Index{}, stats, &InputIOError{Path: opts.OutputDir, Cause: err}
		}

		builder.AddChunk(archive.Chunk{
			Number:           result.Number,
			CompressedSize:   encoded.CompressedSize,
			UncompressedSize: 0, // informational; not tracked across the compressor boundary
			ShardSize:        encoded.ShardSize,
			PadLen:           encoded.PadLen,
		})

		stats.ChunksWritten++
		stats.ShardsWritten += total
		stats.BytesOut += encoded.CompressedSize

		logger.WithFields(logrus.Fields{
			"chunk":      result.Number,
			"shard_size": encoded.ShardSize,
			"shards":     total,
		}).Debug("chunk encoded")
	}

	if err := <-compressErr; err != nil {
		return index.Index{}, stats, &DecompressionError{Cause: err}
	}

	if opts.Files != nil {
		files, err := opts.Files()
		if err != nil {
			return index.Index{}, stats, &InputIOError{Path: opts.OutputDir, Cause: err}
		}
		for _, f := range files {
			builder.AddFile(f)
		}
	}

	idx := builder.Build(time.Now())
	stats.EndTime = time.Now()

	indexCodec := indexCodecFor(opts.Parameters)
	indexPath := shardio.IndexFileName(opts.Basename, indexCodec.Extension())
	if err := writeIndexFile(opts.OutputDir, indexPath, idx, indexCodec); err != nil {
		return idx, stats, err
	}

	logger.WithFields(logrus.Fields{
		"chunks": stats.ChunksWritten,
		"shards": stats.ShardsWritten,
	}).Info("archive encoded")

	return idx, stats, nil
}

// indexCodecFor always picks the codec's highest-readability/ratio
// setting, per spec.md §4.5: the index uses "the same compression
// codec as chunks (but at a fixed, maximum-readability level)".
func indexCodecFor(p archive.Parameters) compress.Codec {
	if p.NoCompression {
		return compress.None{}
	}
	return compress.Zstd{Level: 19}
}
