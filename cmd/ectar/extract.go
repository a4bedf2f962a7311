package main

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/paulreece42/ectar/pkg/pipeline"
	"github.com/paulreece42/ectar/pkg/shardio"
)

func extractCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "recover a shard archive back into a directory tree",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: ".", Usage: "directory to extract into"},
			&cli.BoolFlag{Name: "partial", Usage: "stop cleanly at the first unrecoverable chunk instead of failing"},
			&cli.IntFlag{Name: "strip-components", Usage: "strip N leading path components from each entry"},
			&cli.StringSliceFlag{Name: "files", Usage: "glob pattern(s); only matching paths are extracted"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "glob pattern(s); matching paths are skipped"},
			&cli.BoolFlag{Name: "emergency", Usage: "force index-less (emergency) decode even if an index is present"},
		},
		Action: func(c *cli.Context) error {
			archivePath := c.Args().First()
			if archivePath == "" {
				return cli.Exit(fmt.Errorf("extract: missing ARCHIVE"), exitInputError)
			}
			inputDir := filepath.Dir(archivePath)
			basename := filepath.Base(archivePath)
			outputDir := c.String("output")
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return cli.Exit(&pipeline.InputIOError{Path: outputDir, Cause: err}, exitIOError)
			}

			filter := pathFilter{include: c.StringSlice("files"), exclude: c.StringSlice("exclude")}

			var tarStream io.ReadCloser
			var done <-chan pipeline.Report
			var err error

			if c.Bool("emergency") {
				tarStream, done, err = pipeline.Emergency(pipeline.EmergencyOptions{InputDir: inputDir, Basename: basename, Logger: logger})
			} else {
				tarStream, done, err = pipeline.Decode(pipeline.DecodeOptions{InputDir: inputDir, Basename: basename, Partial: c.Bool("partial"), Logger: logger})
				if errors.Is(err, shardio.ErrIndexNotFound) {
					logger.Warn("no index found, falling back to emergency decode")
					tarStream, done, err = pipeline.Emergency(pipeline.EmergencyOptions{InputDir: inputDir, Basename: basename, Logger: logger})
				}
			}
			if err != nil {
				return cli.Exit(err, exitCodeFor(err))
			}

			extracted, extractErr := extractTar(tarStream, outputDir, c.Int("strip-components"), filter)
			tarStream.Close()
			report := <-done

			if extractErr != nil {
				tarErr := &pipeline.TarError{Cause: extractErr}
				return cli.Exit(tarErr, exitCodeFor(tarErr))
			}

			fmt.Printf("✓ extracted %d entries to %s\n", extracted, outputDir)
			fmt.Printf("✓ chunks recovered: %d/%d\n", report.ChunksRecovered, report.TotalChunks)
			if report.ChunksRecovered < report.TotalChunks {
				return cli.Exit(fmt.Errorf("extract: archive only partially recovered"), exitUnrecoverable)
			}
			return nil
		},
	}
}

// pathFilter implements spec.md §6's --files/--exclude selection: an
// entry is extracted when it matches at least one include pattern (or
// no include patterns are given) and no exclude pattern.
type pathFilter struct {
	include []string
	exclude []string
}

func (f pathFilter) allows(path string) bool {
	if len(f.include) > 0 {
		matched := false
		for _, pat := range f.include {
			if ok, _ := filepath.Match(pat, path); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pat := range f.exclude {
		if ok, _ := filepath.Match(pat, path); ok {
			return false
		}
	}
	return true
}

// stripPath removes n leading "/"-separated path components from name,
// returning ok=false if that strips the whole path away.
func stripPath(name string, n int) (string, bool) {
	if n <= 0 {
		return name, true
	}
	parts := strings.Split(strings.TrimSuffix(name, "/"), "/")
	if n >= len(parts) {
		return "", false
	}
	return strings.Join(parts[n:], "/"), true
}

// extractTar reads a tar byte stream and recreates it under outputDir,
// restoring file mode, mtime, and symlink targets -- the counterpart to
// cmd/ectar/walk.go's tar builder. It is the external tar extractor
// spec.md §6 describes the CLI as owning; pkg/pipeline never parses tar
// itself.
func extractTar(r io.Reader, outputDir string, strip int, filter pathFilter) (int, error) {
	tr := tar.NewReader(r)
	count := 0

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		name, ok := stripPath(hdr.Name, strip)
		if !ok || name == "" {
			continue
		}
		if !filter.allows(name) {
			continue
		}

		target := filepath.Join(outputDir, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(outputDir)+string(os.PathSeparator)) && target != filepath.Clean(outputDir) {
			return count, fmt.Errorf("extract: entry %q escapes output directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)&0o777); err != nil {
				return count, err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return count, err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return count, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return count, err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return count, err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return count, err
			}
			if err := f.Close(); err != nil {
				return count, err
			}
			os.Chtimes(target, hdr.ModTime, hdr.ModTime)
		default:
			// other entry types (devices, fifos) are not restored
		}

		count++
	}
	return count, nil
}
