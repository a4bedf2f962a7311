package shardio

import (
	"fmt"
	"os"
)

// ReadChunkShards reads every discovered shard file of one chunk into
// memory, keyed by share number, for handoff to pkg/shardcodec.Decode.
// A shard that cannot be read is simply omitted (the codec treats a
// missing shard the same as a corrupt one), rather than failing the
// whole read -- spec.md §7 equates "CorruptShard" with "shard absent".
func ReadChunkShards(shards ChunkShards) (map[int][]byte, error) {
	out := make(map[int][]byte, len(shards))
	for shareNum, d := range shards {
		data, err := os.ReadFile(d.Path)
		if err != nil {
			continue
		}
		out[shareNum] = data
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("shardio: no readable shards among %d discovered", len(shards))
	}
	return out, nil
}
