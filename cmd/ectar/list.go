package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/paulreece42/ectar/pkg/pipeline"
	"github.com/paulreece42/ectar/pkg/shardio"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list the files or chunks recorded in an archive",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "long", Usage: "include type, size, chunk, and abbreviated checksum columns"},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "output format: text, json, or csv"},
			&cli.StringSliceFlag{Name: "files", Usage: "glob pattern(s); only matching paths are listed"},
		},
		Action: func(c *cli.Context) error {
			archivePath := c.Args().First()
			if archivePath == "" {
				return cli.Exit(fmt.Errorf("list: missing ARCHIVE"), exitInputError)
			}
			inputDir := filepath.Dir(archivePath)
			basename := filepath.Base(archivePath)
			filter := pathFilter{include: c.StringSlice("files")}

			idx, err := pipeline.LoadIndex(inputDir, basename)
			if errors.Is(err, shardio.ErrIndexNotFound) {
				return listWithoutIndex(inputDir, basename, c.String("format"))
			}
			if err != nil {
				return cli.Exit(err, exitCodeFor(err))
			}

			files := idx.Files[:0:0]
			for _, f := range idx.Files {
				if filter.allows(f.Path) {
					files = append(files, f)
				}
			}

			switch c.String("format") {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			case "csv":
				w := csv.NewWriter(os.Stdout)
				w.Write([]string{"path", "type", "chunk", "size", "checksum"})
				for _, f := range files {
					w.Write([]string{f.Path, string(f.EntryType), fmt.Sprint(f.Chunk), fmt.Sprint(f.Size), f.Checksum})
				}
				w.Flush()
				return w.Error()
			default:
				for _, f := range files {
					if c.Bool("long") {
						fmt.Printf("%-10s %12d  chunk %-4d  %-8s  %s\n", f.EntryType, f.Size, f.Chunk, f.Checksum[:minInt(8, len(f.Checksum))], f.Path)
					} else {
						fmt.Println(f.Path)
					}
				}
				fmt.Printf("%d files, %d chunks\n", len(idx.Files), len(idx.Chunks))
				return nil
			}
		},
	}
}

// listWithoutIndex is the degraded listing spec.md §4.6 implies for a
// damaged archive: with no index there is no file list, only the
// chunk/shard inventory discovery can see directly on disk.
func listWithoutIndex(inputDir, basename, format string) error {
	discovered, err := shardio.Discover(inputDir, basename)
	if err != nil {
		return cli.Exit(&pipeline.InputIOError{Path: inputDir, Cause: err}, exitIOError)
	}
	chunks := shardio.SortedChunkNumbers(discovered)

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"index": "missing", "chunks": chunks})
	}

	fmt.Println("no index found; listing discovered shards only")
	for _, n := range chunks {
		fmt.Printf("chunk %d: %d shards present\n", n, len(discovered[n]))
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
