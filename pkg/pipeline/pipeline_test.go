package pipeline

import (
	"archive/tar"
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulreece42/ectar/pkg/archive"
	"github.com/paulreece42/ectar/pkg/shardcodec"
	"github.com/paulreece42/ectar/pkg/shardio"
)

// ============================================================================
// TAR HELPERS
// ============================================================================

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	return buf.Bytes()
}

func extractTar(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	out := map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar Next: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("tar ReadAll: %v", err)
		}
		out[hdr.Name] = string(data)
	}
	return out
}

// ============================================================================
// S1: SMALL SINGLE-CHUNK ROUND TRIP
// ============================================================================

func TestEncodeDecode_RoundTrip_S1(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"a.txt": "Hello World!\n", "b/c.txt": "x\n"}
	tarBytes := buildTar(t, files)

	params := archive.Parameters{DataShards: 6, ParityShards: 3, ChunkSize: 1 << 20, NoCompression: true}
	_, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{
		Basename: "backup", OutputDir: dir, Parameters: params,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "backup"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := extractTar(t, tarStream)
	report := <-done

	if !filesEqual(got, files) {
		t.Errorf("round trip mismatch: got %v want %v", got, files)
	}
	if report.ChunksRecovered != report.TotalChunks || report.TotalChunks != 1 {
		t.Errorf("expected 1/1 chunks recovered, got %d/%d", report.ChunksRecovered, report.TotalChunks)
	}
}

func TestEncodeDecode_S1_ToleratesAnyThreeShardLoss(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"a.txt": "Hello World!\n", "b/c.txt": "x\n"}
	tarBytes := buildTar(t, files)

	params := archive.Parameters{DataShards: 6, ParityShards: 3, ChunkSize: 1 << 20, NoCompression: true}
	if _, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "backup", OutputDir: dir, Parameters: params}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Delete 3 of the 9 shards (k=6, m=3): still exactly k remain.
	for _, s := range []int{0, 4, 8} {
		name := shardio.ShardFileName("backup", 1, s, 3, 2)
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatalf("removing shard: %v", err)
		}
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "backup"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := extractTar(t, tarStream)
	<-done

	if !filesEqual(got, files) {
		t.Errorf("round trip mismatch after shard loss: got %v want %v", got, files)
	}
}

// ============================================================================
// S2/S3: MULTI-CHUNK LARGE FILE, RECOVERABLE LOSS
// ============================================================================

func TestEncodeDecode_S2_MultiChunkLargeFile(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 40*1024)
	rand.Read(big)
	files := map[string]string{"big.bin": string(big)}
	tarBytes := buildTar(t, files)

	params := archive.Parameters{DataShards: 10, ParityShards: 5, ChunkSize: 8 * 1024, NoCompression: true}
	_, stats, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "vol", OutputDir: dir, Parameters: params})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if stats.ChunksWritten < 2 {
		t.Fatalf("expected multiple chunks, got %d", stats.ChunksWritten)
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "vol"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := extractTar(t, tarStream)
	<-done

	if !filesEqual(got, files) {
		t.Error("large-file round trip mismatch")
	}
}

func TestEncodeDecode_S3_RecoverableLoss(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 40*1024)
	rand.Read(big)
	files := map[string]string{"big.bin": string(big)}
	tarBytes := buildTar(t, files)

	params := archive.Parameters{DataShards: 10, ParityShards: 5, ChunkSize: 8 * 1024, NoCompression: true}
	if _, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "vol", OutputDir: dir, Parameters: params}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Delete 3 shards from chunk 2 (15 total, k=10): 12 remain, still decodable.
	for _, s := range []int{0, 3, 7} {
		name := shardio.ShardFileName("vol", 2, s, 3, 2)
		os.Remove(filepath.Join(dir, name))
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "vol"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := extractTar(t, tarStream)
	report := <-done

	if !filesEqual(got, files) {
		t.Error("recoverable-loss round trip mismatch")
	}
	if report.ChunksRecovered != report.TotalChunks {
		t.Errorf("expected full recovery, got %d/%d", report.ChunksRecovered, report.TotalChunks)
	}
}

// ============================================================================
// S4: UNRECOVERABLE LOSS -- STRICT FAILS, PARTIAL SUCCEEDS WITH A REPORT
// ============================================================================

func TestDecode_S4_UnrecoverableLoss_StrictFails(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 40*1024)
	rand.Read(big)
	tarBytes := buildTar(t, map[string]string{"big.bin": string(big)})

	params := archive.Parameters{DataShards: 10, ParityShards: 5, ChunkSize: 8 * 1024, NoCompression: true}
	if _, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "vol", OutputDir: dir, Parameters: params}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Delete 6 of chunk 2's 15 shards: only 9 < k=10 remain.
	for _, s := range []int{0, 1, 3, 4, 7, 8} {
		name := shardio.ShardFileName("vol", 2, s, 3, 2)
		os.Remove(filepath.Join(dir, name))
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "vol"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, readErr := io.ReadAll(tarStream)
	<-done

	var insufficient *shardcodec.InsufficientShardsError
	if !errors.As(readErr, &insufficient) {
		t.Fatalf("expected InsufficientShardsError, got %v", readErr)
	}
	if insufficient.Chunk != 2 || insufficient.Have != 9 || insufficient.Need != 10 {
		t.Errorf("unexpected error detail: %+v", insufficient)
	}
}

func TestDecode_S4_UnrecoverableLoss_PartialReportsProgress(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 40*1024)
	rand.Read(big)
	tarBytes := buildTar(t, map[string]string{"big.bin": string(big)})

	params := archive.Parameters{DataShards: 10, ParityShards: 5, ChunkSize: 8 * 1024, NoCompression: true}
	if _, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "vol", OutputDir: dir, Parameters: params}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, s := range []int{0, 1, 3, 4, 7, 8} {
		name := shardio.ShardFileName("vol", 2, s, 3, 2)
		os.Remove(filepath.Join(dir, name))
	}

	tarStream, done, err := Decode(DecodeOptions{InputDir: dir, Basename: "vol", Partial: true})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := io.ReadAll(tarStream); err != nil {
		t.Fatalf("partial decode should not surface a Read error: %v", err)
	}
	report := <-done

	if report.ChunksRecovered != 1 {
		t.Errorf("expected exactly chunk 1 recovered, got %d", report.ChunksRecovered)
	}
	if report.TotalChunks < 2 {
		t.Errorf("expected more than 1 total chunk, got %d", report.TotalChunks)
	}
}

// ============================================================================
// S6: EMERGENCY (INDEX-LESS) DECODE EQUIVALENCE
// ============================================================================

func TestEmergency_S6_MatchesIndexDecode(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"a.txt": "Hello World!\n", "b/c.txt": "x\n"}
	tarBytes := buildTar(t, files)

	params := archive.Parameters{DataShards: 6, ParityShards: 3, ChunkSize: 1 << 20, NoCompression: true}
	if _, _, err := Encode(bytes.NewReader(tarBytes), EncodeOptions{Basename: "backup", OutputDir: dir, Parameters: params}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	indexName, _, err := shardio.LocateIndex(dir, "backup")
	if err != nil {
		t.Fatalf("LocateIndex: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, indexName)); err != nil {
		t.Fatalf("removing index: %v", err)
	}

	tarStream, done, err := Emergency(EmergencyOptions{InputDir: dir, Basename: "backup"})
	if err != nil {
		t.Fatalf("Emergency: %v", err)
	}
	got := extractTar(t, tarStream)
	report := <-done

	if !filesEqual(got, files) {
		t.Errorf("emergency decode mismatch: got %v want %v", got, files)
	}
	if report.ChunksRecovered != report.TotalChunks {
		t.Errorf("expected full recovery, got %d/%d", report.ChunksRecovered, report.TotalChunks)
	}
}

func filesEqual(got, want map[string]string) bool {
	if len(got) != len(want) {
		return false
	}
	for name, body := range want {
		if got[name] != body {
			return false
		}
	}
	return true
}
