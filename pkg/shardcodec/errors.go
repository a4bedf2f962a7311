package shardcodec

import "fmt"

// InsufficientShardsError reports that fewer than k shards were
// available to decode a chunk (spec.md §7).
type InsufficientShardsError struct {
	Chunk int
	Have  int
	Need  int
}

func (e *InsufficientShardsError) Error() string {
	return fmt.Sprintf("chunk %d: insufficient shards: have %d, need %d", e.Chunk, e.Have, e.Need)
}

// CorruptShardError reports a shard whose header could not be parsed
// or whose payload length did not match its chunk's shard_size. A
// corrupt shard is treated as equivalent to "shard absent": the
// decoder leaves it out before reconstruction and decodes from the
// remaining shards (spec.md §7). A reconstruction failure is not
// retried with a different shard subset.
type CorruptShardError struct {
	Chunk    int
	ShareNum int
	Reason   string
}

func (e *CorruptShardError) Error() string {
	return fmt.Sprintf("chunk %d, shard %d: corrupt: %s", e.Chunk, e.ShareNum, e.Reason)
}
