package shardio

import (
	"os"
	"path/filepath"
	"sort"
)

// DiscoveredShard is one shard file found on disk, grouped by chunk.
type DiscoveredShard struct {
	Path     string
	ShareNum int
	Size     int64
}

// ChunkShards maps shard number -> discovered shard, for one chunk.
type ChunkShards map[int]DiscoveredShard

// Discover enumerates every file in dir matching
// "<basename>.c<digits>.s<digits>" and groups them by chunk number.
// Discovery never opens or reads payload bytes; it only stats the
// file for its size (spec.md §4.4).
func Discover(dir, basename string) (map[int]ChunkShards, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := map[int]ChunkShards{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base, chunkNum, shareNum, ok := ParseShardFileName(name)
		if !ok || base != basename {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		if out[chunkNum] == nil {
			out[chunkNum] = ChunkShards{}
		}
		out[chunkNum][shareNum] = DiscoveredShard{
			Path:     filepath.Join(dir, name),
			ShareNum: shareNum,
			Size:     info.Size(),
		}
	}
	return out, nil
}

// SortedChunkNumbers returns the chunk numbers present in a discovery
// result, in ascending order. Per spec.md §9's open-question
// resolution, extraction iterates over chunk numbers actually present
// rather than assuming a dense 1..N range.
func SortedChunkNumbers(chunks map[int]ChunkShards) []int {
	out := make([]int, 0, len(chunks))
	for n := range chunks {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Recoverable reports whether a chunk's discovered shards include at
// least k shards, each matching expectedShardSize (0 disables the
// size check, used by emergency decode before shard_size is known).
func Recoverable(shards ChunkShards, k int, expectedShardSize int64) bool {
	have := 0
	for _, s := range shards {
		if expectedShardSize > 0 && s.Size != expectedShardSize {
			continue
		}
		have++
	}
	return have >= k
}
