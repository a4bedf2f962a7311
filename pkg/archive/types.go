// Package archive defines the core data model shared by every stage of
// the ectar pipeline: the logical archive, its chunks, its shards, and
// the file-tree entries an archive describes.
package archive

import "time"

// EntryType classifies a single file-tree entry recorded in the index.
type EntryType string

const (
	EntryFile     EntryType = "file"
	EntryDir      EntryType = "dir"
	EntrySymlink  EntryType = "symlink"
	EntryHardlink EntryType = "hardlink"
	EntryOther    EntryType = "other"
)

// Parameters are the erasure-coding and framing parameters for an
// archive. They are constant across every chunk in a given archive.
type Parameters struct {
	DataShards        int  `json:"data_shards"`
	ParityShards      int  `json:"parity_shards"`
	ChunkSize         int  `json:"chunk_size"`
	CompressionLevel  int  `json:"compression_level"`
	NoCompression     bool `json:"no_compression"`
}

// TotalShards returns k+m.
func (p Parameters) TotalShards() int {
	return p.DataShards + p.ParityShards
}

// Validate enforces the ranges spec.md §4.2 requires: 1<=k, 1<=m,
// k+m<=256, and a positive chunk size.
func (p Parameters) Validate() error {
	switch {
	case p.DataShards < 1:
		return &ConfigError{Reason: "data_shards must be >= 1"}
	case p.ParityShards < 1:
		return &ConfigError{Reason: "parity_shards must be >= 1"}
	case p.TotalShards() > 256:
		return &ConfigError{Reason: "data_shards + parity_shards must be <= 256"}
	case p.ChunkSize < 1:
		return &ConfigError{Reason: "chunk_size must be positive"}
	}
	return nil
}

// ConfigError reports an invalid combination of archive parameters or
// mutually exclusive flags. It is fatal at startup (spec.md §7).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config error: " + e.Reason }

// Chunk is the metadata recorded in the index for one chunk of the
// compressed tar byte stream (spec.md §3 "Chunk").
type Chunk struct {
	Number            int    `json:"chunk_number"`
	CompressedSize    int64  `json:"compressed_size"`
	UncompressedSize  int64  `json:"uncompressed_size"`
	ShardSize         int    `json:"shard_size"`
	PadLen            int    `json:"padlen"`
	Checksum          string `json:"checksum,omitempty"`
}

// FileEntry is one record in the index's file list (spec.md §3
// "Index").
type FileEntry struct {
	Path      string    `json:"path"`
	Chunk     int       `json:"chunk"`
	Offset    int64     `json:"offset"`
	Size      int64     `json:"size"`
	Mode      uint32    `json:"mode"`
	Mtime     time.Time `json:"mtime"`
	EntryType EntryType `json:"entry_type"`
	Target    string    `json:"target,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
}

// Archive is the logical unit identified by a basename: an ordered
// sequence of chunks plus the file records describing the tree that
// was packed into them.
type Archive struct {
	Basename   string
	Parameters Parameters
	Chunks     []Chunk
	Files      []FileEntry
	CreatedAt  time.Time
}
