package main

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/paulreece42/ectar/pkg/index"
	"github.com/paulreece42/ectar/pkg/pipeline"
	"github.com/paulreece42/ectar/pkg/shardio"
)

// verifyReport is the machine-readable summary --report writes: the
// per-chunk results in both modes, plus per-file results in full mode.
type verifyReport struct {
	Archive    string            `json:"archive"`
	Mode       string            `json:"mode"`
	ChunkOK    []int             `json:"chunks_ok"`
	ChunkBad   []int             `json:"chunks_bad"`
	FileOK     []string          `json:"files_ok,omitempty"`
	FileBad    map[string]string `json:"files_bad,omitempty"`
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check that an archive's shards are present and, optionally, that its contents decode correctly",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quick", Usage: "check shard presence and count only (default)"},
			&cli.BoolFlag{Name: "full", Usage: "additionally decode every chunk and verify file checksums"},
			&cli.StringFlag{Name: "report", Usage: "write a JSON verification report to this path"},
		},
		Action: func(c *cli.Context) error {
			archivePath := c.Args().First()
			if archivePath == "" {
				return cli.Exit(fmt.Errorf("verify: missing ARCHIVE"), exitInputError)
			}
			inputDir := filepath.Dir(archivePath)
			basename := filepath.Base(archivePath)

			idx, err := pipeline.LoadIndex(inputDir, basename)
			if err != nil {
				return cli.Exit(err, exitCodeFor(err))
			}

			report := verifyReport{Archive: basename, Mode: "quick"}
			if err := quickVerify(inputDir, basename, idx, &report); err != nil {
				return cli.Exit(err, exitIOError)
			}

			if c.Bool("full") {
				report.Mode = "full"
				if err := fullVerify(inputDir, basename, idx, &report); err != nil {
					return cli.Exit(err, exitCodeFor(err))
				}
			}

			if path := c.String("report"); path != "" {
				if err := writeReport(path, report); err != nil {
					return cli.Exit(&pipeline.InputIOError{Path: path, Cause: err}, exitIOError)
				}
			}

			fmt.Printf("✓ chunks ok: %d, chunks bad: %d\n", len(report.ChunkOK), len(report.ChunkBad))
			if report.Mode == "full" {
				fmt.Printf("✓ files ok: %d, files bad: %d\n", len(report.FileOK), len(report.FileBad))
			}
			if len(report.ChunkBad) > 0 || len(report.FileBad) > 0 {
				return cli.Exit(fmt.Errorf("verify: archive has damaged chunks or files"), exitUnrecoverable)
			}
			return nil
		},
	}
}

// quickVerify checks, for every chunk the index records, that at least
// k shards are discoverable on disk -- without reading payload bytes or
// running Reed-Solomon at all, per spec.md §6's "quick" mode.
func quickVerify(inputDir, basename string, idx index.Index, report *verifyReport) error {
	discovered, err := shardio.Discover(inputDir, basename)
	if err != nil {
		return &pipeline.InputIOError{Path: inputDir, Cause: err}
	}
	k := idx.Parameters.DataShards
	for _, chunk := range idx.Chunks {
		if len(discovered[chunk.Number]) >= k {
			report.ChunkOK = append(report.ChunkOK, chunk.Number)
		} else {
			report.ChunkBad = append(report.ChunkBad, chunk.Number)
		}
	}
	return nil
}

// fullVerify decodes the whole archive in partial mode and compares
// every file's recorded checksum against a fresh SHA-256 of its
// re-extracted bytes (spec.md §6's "full" mode).
func fullVerify(inputDir, basename string, idx index.Index, report *verifyReport) error {
	tarStream, done, err := pipeline.Decode(pipeline.DecodeOptions{InputDir: inputDir, Basename: basename, Partial: true})
	if err != nil {
		return err
	}
	defer tarStream.Close()

	sums := map[string]string{}
	tr := tar.NewReader(tarStream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &pipeline.TarError{Cause: err}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		h := sha256.New()
		if _, err := io.Copy(h, tr); err != nil {
			return &pipeline.TarError{Cause: err}
		}
		sums[hdr.Name] = hex.EncodeToString(h.Sum(nil))
	}
	<-done

	report.FileBad = map[string]string{}
	for _, f := range idx.Files {
		if f.EntryType != "file" || f.Checksum == "" {
			continue
		}
		got, ok := sums[f.Path]
		switch {
		case !ok:
			report.FileBad[f.Path] = "missing from recovered stream"
		case got != f.Checksum:
			report.FileBad[f.Path] = fmt.Sprintf("checksum mismatch: want %s got %s", f.Checksum, got)
		default:
			report.FileOK = append(report.FileOK, f.Path)
		}
	}
	if len(report.FileBad) == 0 {
		report.FileBad = nil
	}
	return nil
}

func writeReport(path string, report verifyReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
