// Package shardio implements the on-media naming convention, shard
// discovery, the concurrent per-chunk shard writer, and the per-chunk
// shard reader spec.md §4.4 and §5 describe. The reader loads a
// chunk's shard files one after another, not concurrently. Filenames follow "<basename>.c<CCC>.s<SS>",
// widening digit counts automatically as chunk/shard counts grow.
package shardio

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulreece42/ectar/pkg/compress"
)

// ErrIndexNotFound is returned by LocateIndex when no
// "<basename>.index.*" file exists in dir, so callers (pipeline.Decode,
// cmd/ectar's extract/list/verify/info commands) can distinguish "no
// index, fall back to emergency discovery" from a genuine I/O failure
// without string-matching an error message.
var ErrIndexNotFound = errors.New("shardio: no index file found")

// ChunkDigits returns the minimum digit width for chunk numbers, given
// the largest chunk number the archive is expected to contain. It
// starts at 3 and widens for archives with more than 999 chunks.
func ChunkDigits(maxChunk int) int {
	return digitsFor(maxChunk, 3)
}

// ShareDigits returns the minimum digit width for share numbers, given
// the total number of shares (k+m) per chunk. It starts at 2 and
// widens for k+m > 99.
func ShareDigits(totalShares int) int {
	return digitsFor(totalShares, 2)
}

func digitsFor(max, floor int) int {
	d := len(strconv.Itoa(max))
	if d < floor {
		d = floor
	}
	return d
}

// ShardFileName returns the filename for one shard, given the digit
// widths already chosen for this archive.
func ShardFileName(basename string, chunkNumber, shareNum, chunkDigits, shareDigits int) string {
	return fmt.Sprintf("%s.c%0*d.s%0*d", basename, chunkDigits, chunkNumber, shareDigits, shareNum)
}

// IndexFileName returns the filename for an archive's index, given the
// compression codec's file extension (e.g. "zst", or "none" when
// compression is disabled).
func IndexFileName(basename, codecExt string) string {
	return fmt.Sprintf("%s.index.%s", basename, codecExt)
}

// LocateIndex finds "<basename>.index.<ext>" in dir and returns its
// filename plus the compression codec its extension implies, so a
// decode driver never has to guess the archive's compression settings
// before it has parsed the index that records them (spec.md §4.5).
func LocateIndex(dir, basename string) (name string, codec compress.Codec, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, basename+".index.*"))
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "", nil, fmt.Errorf("%w: basename %q in %s", ErrIndexNotFound, basename, dir)
	}

	name = filepath.Base(matches[0])
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	switch ext {
	case "zst":
		codec = compress.Zstd{Level: 19}
	case "none":
		codec = compress.None{}
	default:
		return "", nil, fmt.Errorf("shardio: unrecognized index extension %q on %s", ext, name)
	}
	return name, codec, nil
}

var shardNamePattern = regexp.MustCompile(`^(.*)\.c(\d+)\.s(\d+)$`)

// ParseShardFileName extracts (basename, chunkNumber, shareNum) from a
// shard filename, or reports ok=false if name doesn't match the
// convention.
func ParseShardFileName(name string) (basename string, chunkNumber, shareNum int, ok bool) {
	name = filepath.Base(name)
	m := shardNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, false
	}
	chunkNumber, err1 := strconv.Atoi(m[2])
	shareNum, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		return "", 0, 0, false
	}
	return m[1], chunkNumber, shareNum, true
}
