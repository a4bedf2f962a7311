// Package shardcodec Reed-Solomon encodes a single chunk buffer into
// k+m equal-length shards, and decodes any k of them back into the
// original buffer. It implements spec.md §4.2: the generator matrix is
// whatever github.com/klauspost/reedsolomon's systematic, Vandermonde-
// derived construction produces (first k rows identity, parity rows
// derived from the remaining rows) -- the same shape of code the
// teacher's chunker.ShardChunk/ReconstructChunk already use, just
// generalized to arbitrary (k, m) and framed with a self-describing
// shardheader instead of being kept as bare in-memory [][]byte.
package shardcodec

import (
	"bytes"
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/sirupsen/logrus"

	"github.com/paulreece42/ectar/pkg/shardheader"
)

// EncodedChunk is the result of encoding one chunk buffer: the k+m
// shard byte slices (header || payload, ready to write to a file each)
// plus the metadata the index needs to record for this chunk.
type EncodedChunk struct {
	CompressedSize int64
	ShardSize      int
	PadLen         int
	Shards         [][]byte // len == k+m; Shards[i] is shard i's full file content
}

// Encode splits data into k data shards and computes m parity shards,
// per spec.md §4.2: shard_size = ceil(len(data)/k), padlen =
// shard_size*k - len(data). Each returned shard is prefixed with its
// self-describing shardheader.
func Encode(data []byte, k, m int) (EncodedChunk, error) {
	if k < 1 || m < 1 || k+m > 256 {
		return EncodedChunk{}, fmt.Errorf("shardcodec: invalid parameters k=%d m=%d", k, m)
	}
	if len(data) == 0 {
		return EncodedChunk{}, fmt.Errorf("shardcodec: cannot encode an empty chunk")
	}

	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return EncodedChunk{}, fmt.Errorf("shardcodec: failed to create encoder: %w", err)
	}

	shardSize := (len(data) + k - 1) / k
	padLen := shardSize*k - len(data)

	shards, err := enc.Split(data)
	if err != nil {
		return EncodedChunk{}, fmt.Errorf("shardcodec: failed to split chunk: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return EncodedChunk{}, fmt.Errorf("shardcodec: failed to compute parity: %w", err)
	}

	total := k + m
	out := make([][]byte, total)
	for i := 0; i < total; i++ {
		hdr, err := shardheader.Encode(shardheader.Header{
			K: k, M: total, ShareNum: i, PadLen: padLen,
		})
		if err != nil {
			return EncodedChunk{}, fmt.Errorf("shardcodec: failed to build header for shard %d: %w", i, err)
		}
		buf := make([]byte, 0, len(hdr)+len(shards[i]))
		buf = append(buf, hdr...)
		buf = append(buf, shards[i]...)
		out[i] = buf
	}

	return EncodedChunk{
		CompressedSize: int64(len(data)),
		ShardSize:      shardSize,
		PadLen:         padLen,
		Shards:         out,
	}, nil
}

// Decode reconstructs a chunk buffer from any subset of its shards
// (each a full header||payload byte slice, keyed by sharenum), per
// spec.md §4.2. It fails with InsufficientShardsError if fewer than k
// usable shards are supplied, and treats any shard whose header or
// payload length is inconsistent as absent rather than failing the
// whole decode, per spec.md §7.
func Decode(chunkNumber int, rawShards map[int][]byte) ([]byte, error) {
	k, m, shardSize, padLen, shardData, err := parseShards(chunkNumber, rawShards)
	if err != nil {
		return nil, err
	}

	have := 0
	for _, s := range shardData {
		if s != nil {
			have++
		}
	}
	if have < k {
		return nil, &InsufficientShardsError{Chunk: chunkNumber, Have: have, Need: k}
	}

	enc, err := reedsolomon.New(k, m-k)
	if err != nil {
		return nil, fmt.Errorf("shardcodec: failed to create decoder: %w", err)
	}
	if err := enc.Reconstruct(shardData); err != nil {
		return nil, fmt.Errorf("shardcodec: chunk %d: reconstruction failed: %w", chunkNumber, err)
	}

	var buf bytes.Buffer
	compressedSize := shardSize*k - padLen
	if err := enc.Join(&buf, shardData, compressedSize); err != nil {
		return nil, fmt.Errorf("shardcodec: chunk %d: failed to join shards: %w", chunkNumber, err)
	}
	return buf.Bytes(), nil
}

// shardFrame is the information recovered from a single shard's header
// plus its observed payload length.
type shardFrame struct {
	sharenum  int
	k, m, pad int
	size      int
	payload   []byte
}

// parseShards validates and unpacks every available raw shard, then
// derives (k, m, shard_size, padlen) by majority vote across every
// shard whose header parsed cleanly -- this way a single corrupt
// length or header can never poison the consensus, regardless of map
// iteration order. Any shard that disagrees with the consensus is
// treated as absent, per the §3 invariant that every shard of a chunk
// shares identical (k, m, padlen, length).
func parseShards(chunkNumber int, rawShards map[int][]byte) (k, m, shardSize, padLen int, shardData [][]byte, err error) {
	type key struct{ k, m, pad, size int }
	votes := map[key]int{}
	frames := make([]shardFrame, 0, len(rawShards))

	for sharenum, raw := range rawShards {
		hdr, n, derr := shardheader.Decode(raw)
		if derr != nil {
			logCorruptShard(chunkNumber, sharenum, fmt.Sprintf("unparsable header: %v", derr))
			continue // corrupt header: treat as absent
		}
		if hdr.ShareNum != sharenum {
			logCorruptShard(chunkNumber, sharenum, fmt.Sprintf("header claims sharenum %d", hdr.ShareNum))
			continue // header disagrees with its own slot: treat as absent
		}
		payload := raw[n:]
		f := shardFrame{sharenum: sharenum, k: hdr.K, m: hdr.M, pad: hdr.PadLen, size: len(payload), payload: payload}
		frames = append(frames, f)
		votes[key{f.k, f.m, f.pad, f.size}]++
	}

	if len(votes) == 0 {
		return 0, 0, 0, 0, nil, &InsufficientShardsError{Chunk: chunkNumber, Have: 0, Need: 1}
	}

	var best key
	bestVotes := -1
	for kk, v := range votes {
		if v > bestVotes {
			best, bestVotes = kk, v
		}
	}
	k, m, padLen, shardSize = best.k, best.m, best.pad, best.size

	shardData = make([][]byte, m)
	for _, f := range frames {
		if f.k == k && f.m == m && f.pad == padLen && f.size == shardSize {
			shardData[f.sharenum] = f.payload
		} else {
			logCorruptShard(chunkNumber, f.sharenum, "disagrees with this chunk's shard-header consensus")
		}
	}

	return k, m, shardSize, padLen, shardData, nil
}

// logCorruptShard reports a shard rejected during decode as a
// CorruptShardError (spec.md §7): logged, not returned, since a
// corrupt shard is equivalent to an absent one as long as k genuine
// shards remain.
func logCorruptShard(chunkNumber, shareNum int, reason string) {
	err := &CorruptShardError{Chunk: chunkNumber, ShareNum: shareNum, Reason: reason}
	logrus.WithFields(logrus.Fields{"chunk": chunkNumber, "shard": shareNum}).Warn(err.Error())
}
