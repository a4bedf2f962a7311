// Package index builds, serializes, and parses the archive index
// (spec.md §4.5): a compressed JSON document describing an archive's
// erasure parameters, its chunks, and the files packed into it.
//
// Grounded on the teacher's pkg/manifest (manifest.Manifest,
// manifest.Save/Load): the same json.MarshalIndent + whole-file
// read/write shape, generalized from a flat single-blob manifest (with
// an embedded encryption key, not carried here -- see DESIGN.md) to
// the chunk-list/file-list schema spec.md §4.5 defines, and routed
// through the pluggable compression codec rather than plain JSON.
package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/paulreece42/ectar/pkg/archive"
	"github.com/paulreece42/ectar/pkg/compress"
)

// FormatVersion is the index schema version this package writes.
const FormatVersion = "1"

// ToolVersion identifies the ectar build that produced an index.
var ToolVersion = "dev"

// Index is the JSON document spec.md §4.5 describes.
type Index struct {
	Version      string             `json:"version"`
	ToolVersion  string             `json:"tool_version"`
	ArchiveName  string             `json:"archive_name"`
	Created      time.Time          `json:"created"`
	Parameters   archive.Parameters `json:"parameters"`
	Chunks       []archive.Chunk    `json:"chunks"`
	Files        []archive.FileEntry `json:"files"`
}

// CorruptIndexError reports that an index file's JSON was invalid, or
// that its parameters were inconsistent with the shards discovered on
// disk (spec.md §7). It is always fatal.
type CorruptIndexError struct {
	Reason string
	Cause  error
}

func (e *CorruptIndexError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt index: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("corrupt index: %s", e.Reason)
}

func (e *CorruptIndexError) Unwrap() error { return e.Cause }

// Builder accumulates chunk and file records incrementally while the
// pipeline driver streams an archive, and produces the final Index.
// Matches the teacher's pattern of building up metadata slices in a
// single in-memory list while the upload pipeline runs
// (pkg/publisher/uploader.go's processFile accumulating []ChunkMeta).
type Builder struct {
	archiveName string
	parameters  archive.Parameters
	chunks      []archive.Chunk
	files       []archive.FileEntry
}

func NewBuilder(archiveName string, parameters archive.Parameters) *Builder {
	return &Builder{archiveName: archiveName, parameters: parameters}
}

func (b *Builder) AddChunk(c archive.Chunk) { b.chunks = append(b.chunks, c) }
func (b *Builder) AddFile(f archive.FileEntry) { b.files = append(b.files, f) }

// Build finalizes the Index. Per spec.md §3 "Lifecycle", this is
// called only after every chunk has been frozen (shards written).
func (b *Builder) Build(created time.Time) Index {
	return Index{
		Version:     FormatVersion,
		ToolVersion: ToolVersion,
		ArchiveName: b.archiveName,
		Created:     created.UTC(),
		Parameters:  b.parameters,
		Chunks:      b.chunks,
		Files:       b.files,
	}
}

// Write serializes idx as JSON and streams it through codec at
// whatever level codec is configured with -- spec.md §4.5 requires the index to use "a
// fixed, maximum-readability level" regardless of the archive's chunk
// compression level, so callers should pass a codec configured for
// readability (e.g. compress.Zstd{Level: 19}), not the archive's own.
func Write(w io.Writer, idx Index, codec compress.Codec) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("index: failed to marshal: %w", err)
	}

	cw, err := codec.NewWriter(w)
	if err != nil {
		return fmt.Errorf("index: failed to open compressor: %w", err)
	}
	if _, err := cw.Write(data); err != nil {
		cw.Close()
		return fmt.Errorf("index: failed to write: %w", err)
	}
	return cw.Close()
}

// Parse decompresses and parses an index document. Unknown fields are
// ignored by encoding/json's default behavior; missing optional fields
// default to their zero value, per spec.md §4.5's parser contract.
func Parse(r io.Reader, codec compress.Codec) (Index, error) {
	cr, err := codec.NewReader(r)
	if err != nil {
		return Index{}, &CorruptIndexError{Reason: "failed to open decompressor", Cause: err}
	}
	defer cr.Close()

	data, err := io.ReadAll(cr)
	if err != nil {
		return Index{}, &CorruptIndexError{Reason: "failed to decompress", Cause: err}
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, &CorruptIndexError{Reason: "invalid JSON", Cause: err}
	}
	return idx, nil
}

// ParseBytes is a convenience wrapper for already-buffered index bytes.
func ParseBytes(data []byte, codec compress.Codec) (Index, error) {
	return Parse(bytes.NewReader(data), codec)
}
