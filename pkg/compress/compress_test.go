package compress

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"
)

// ============================================================================
// ROUND TRIP TESTS
// ============================================================================

func TestNone_RoundTrip(t *testing.T) {
	data := []byte("identity codec passes bytes through unchanged")
	var buf bytes.Buffer

	w, err := None{}.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("identity codec should not alter bytes")
	}

	r, err := None{}.NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("round trip mismatch through None codec")
	}
}

func TestZstd_RoundTrip(t *testing.T) {
	data := make([]byte, 256*1024)
	rand.Read(data)
	// Make it compressible: repeat a block.
	copy(data[128*1024:], data[:128*1024])

	codec := Zstd{Level: 6}
	var buf bytes.Buffer

	w, err := codec.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if buf.Len() >= len(data) {
		t.Errorf("expected compression to shrink a repetitive %d-byte input, got %d bytes", len(data), buf.Len())
	}

	r, err := codec.NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("round trip mismatch through Zstd codec")
	}
}

func TestForLevel_SelectsIdentityCodec(t *testing.T) {
	if _, ok := ForLevel(0, false).(None); !ok {
		t.Error("expected level=0 to select the identity codec")
	}
	if _, ok := ForLevel(19, true).(None); !ok {
		t.Error("expected no_compression=true to select the identity codec regardless of level")
	}
	if _, ok := ForLevel(5, false).(Zstd); !ok {
		t.Error("expected level=5 with compression enabled to select Zstd")
	}
}

func TestExtension(t *testing.T) {
	if (None{}).Extension() != "none" {
		t.Error("expected None codec extension to be 'none'")
	}
	if (Zstd{Level: 3}).Extension() != "zst" {
		t.Error("expected Zstd codec extension to be 'zst'")
	}
}
