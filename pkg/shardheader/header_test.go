package shardheader

import (
	"bytes"
	"math/rand"
	"testing"
)

// ============================================================================
// REFERENCE TEST VECTOR (spec.md §8 scenario S7)
// ============================================================================

func TestEncode_S7Vector(t *testing.T) {
	h := Header{K: 3, M: 5, ShareNum: 2, PadLen: 1}
	got, err := Encode(h)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// The real zfec vector for (k=3, m=5, sharenum=2, padlen=1): m-1=4
	// in 8 bits, k-1=2 in log_ceil(5)=3 bits, padlen=1 in log_ceil(3)=2
	// bits, sharenum=2 in 3 bits -- 16 bits total, 2 bytes.
	want := []byte{0x04, 0x4A}
	if !bytes.Equal(got, want) {
		t.Errorf("header bytes = % x, want % x", got, want)
	}
}

func TestDecode_S7Vector(t *testing.T) {
	buf := []byte{0x04, 0x4A}
	h, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected header length 2, got %d", n)
	}
	want := Header{K: 3, M: 5, ShareNum: 2, PadLen: 1}
	if h != want {
		t.Errorf("decoded header = %+v, want %+v", h, want)
	}
}

// ============================================================================
// ROUND-TRIP / SELF-DESCRIBING PROPERTY TESTS
// ============================================================================

func TestRoundTrip_SmallParameters(t *testing.T) {
	for k := 1; k <= 8; k++ {
		for m := k; m <= 8; m++ {
			for sh := 0; sh < m; sh++ {
				for pad := 0; pad < k; pad++ {
					h := Header{K: k, M: m, ShareNum: sh, PadLen: pad}
					buf, err := Encode(h)
					if err != nil {
						t.Fatalf("Encode(%+v) failed: %v", h, err)
					}
					got, n, err := Decode(buf)
					if err != nil {
						t.Fatalf("Decode(Encode(%+v)) failed: %v", h, err)
					}
					if n != len(buf) {
						t.Errorf("Decode consumed %d bytes, header is %d bytes", n, len(buf))
					}
					if got != h {
						t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
					}
				}
			}
		}
	}
}

func TestRoundTrip_RandomLargeParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		k := 1 + rng.Intn(256)
		m := k + rng.Intn(256-k+1)
		sh := rng.Intn(m)
		pad := rng.Intn(k)
		h := Header{K: k, M: m, ShareNum: sh, PadLen: pad}
		buf, err := Encode(h)
		if err != nil {
			t.Fatalf("Encode(%+v) failed: %v", h, err)
		}
		got, _, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)) failed: %v", h, err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestHeaderLen_MatchesEncode(t *testing.T) {
	h := Header{K: 200, M: 256, ShareNum: 255, PadLen: 199}
	buf, err := Encode(h)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := HeaderLen(h.K, h.M); got != len(buf) {
		t.Errorf("HeaderLen = %d, Encode produced %d bytes", got, len(buf))
	}
}

func TestEncode_RejectsInvalidParameters(t *testing.T) {
	cases := []Header{
		{K: 0, M: 5, ShareNum: 0, PadLen: 0},
		{K: 3, M: 2, ShareNum: 0, PadLen: 0},
		{K: 3, M: 5, ShareNum: 5, PadLen: 0},
		{K: 3, M: 5, ShareNum: 0, PadLen: 3},
	}
	for _, h := range cases {
		if _, err := Encode(h); err == nil {
			t.Errorf("expected error for %+v", h)
		}
	}
}

func TestDecode_RejectsShortBuffer(t *testing.T) {
	if _, _, err := Decode([]byte{0x01}); err == nil {
		t.Error("expected error for 1-byte buffer")
	}
	if _, _, err := Decode(nil); err == nil {
		t.Error("expected error for empty buffer")
	}
}
