// Package compress implements the pluggable streaming compression
// codec spec.md §6 requires: two byte pipes, encode(level) and
// decode(), with a Level 0 / "no_compression" identity variant.
//
// It is grounded on OhanaFS/stitch's encoder/decoder pair, which pipes
// a byte stream through github.com/klauspost/compress/zstd immediately
// upstream of Reed-Solomon sharding -- the same position used here.
package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Codec is the `{None, Streaming(level)}` variant spec.md §9 describes.
// Both present the same byte-pipe contract; the pipeline driver never
// branches on which one it holds beyond choosing it once at startup.
type Codec interface {
	// NewWriter wraps w so that bytes written to the returned writer
	// are compressed (or passed through) into w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader wraps r so that bytes read from the returned reader
	// are decompressed (or passed through) from r.
	NewReader(r io.Reader) (io.ReadCloser, error)
	// Extension is the file-extension tag the index filename uses
	// (spec.md §4.5), e.g. "zst" or "none".
	Extension() string
}

// None is the identity codec, used when compression_level is 0 or
// no_compression is set. The shard payload is then raw tar bytes.
type None struct{}

func (None) NewWriter(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil }
func (None) NewReader(r io.Reader) (io.ReadCloser, error)  { return io.NopCloser(r), nil }
func (None) Extension() string                             { return "none" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Zstd wraps github.com/klauspost/compress/zstd as the "standard
// LZ-family streaming codec" spec.md §6 calls for, with levels 1-22
// mapped onto zstd's four named encoder levels. The reference
// implementation's level numbers are coarser than zstd's internal
// tuning knobs; this mapping is intentionally simple (lower levels
// favor speed, higher favor ratio) rather than exposing zstd's full
// knob set, matching spec.md's "compression_level N" flag shape.
type Zstd struct {
	Level int // 1-22; 0 means "use zstd's default"
}

func (z Zstd) zstdLevel() zstd.EncoderLevel {
	switch {
	case z.Level <= 0:
		return zstd.SpeedDefault
	case z.Level <= 3:
		return zstd.SpeedFastest
	case z.Level <= 9:
		return zstd.SpeedDefault
	case z.Level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (z Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(z.zstdLevel()))
	if err != nil {
		return nil, fmt.Errorf("compress: failed to create zstd writer: %w", err)
	}
	return enc, nil
}

func (z Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("compress: failed to create zstd reader: %w", err)
	}
	return readCloserFromDecoder{dec}, nil
}

func (z Zstd) Extension() string { return "zst" }

// readCloserFromDecoder adapts *zstd.Decoder (whose Close is void) to
// io.ReadCloser.
type readCloserFromDecoder struct{ *zstd.Decoder }

func (d readCloserFromDecoder) Close() error {
	d.Decoder.Close()
	return nil
}

// ForLevel selects None for level<=0 or noCompression, else Zstd at
// the given level, per spec.md §6: "Level 0 or no_compression = true
// substitutes the identity codec".
func ForLevel(level int, noCompression bool) Codec {
	if noCompression || level <= 0 {
		return None{}
	}
	return Zstd{Level: level}
}
