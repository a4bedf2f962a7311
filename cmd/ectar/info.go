package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/paulreece42/ectar/pkg/pipeline"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print an archive's erasure parameters and summary statistics",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "text", Usage: "output format: text or json"},
		},
		Action: func(c *cli.Context) error {
			archivePath := c.Args().First()
			if archivePath == "" {
				return cli.Exit(fmt.Errorf("info: missing ARCHIVE"), exitInputError)
			}
			inputDir := filepath.Dir(archivePath)
			basename := filepath.Base(archivePath)

			idx, err := pipeline.LoadIndex(inputDir, basename)
			if err != nil {
				return cli.Exit(err, exitCodeFor(err))
			}

			var totalCompressed int64
			for _, chunk := range idx.Chunks {
				totalCompressed += chunk.CompressedSize
			}

			if c.String("format") == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(idx)
			}

			p := idx.Parameters
			fmt.Printf("archive:            %s\n", idx.ArchiveName)
			fmt.Printf("format version:     %s (tool %s)\n", idx.Version, idx.ToolVersion)
			fmt.Printf("created:            %s\n", idx.Created.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("data/parity shards: %d/%d (total %d)\n", p.DataShards, p.ParityShards, p.TotalShards())
			fmt.Printf("chunk size:         %d bytes\n", p.ChunkSize)
			if p.NoCompression {
				fmt.Println("compression:        none")
			} else {
				fmt.Printf("compression:        zstd level %d\n", p.CompressionLevel)
			}
			fmt.Printf("chunks:             %d (%d bytes total compressed)\n", len(idx.Chunks), totalCompressed)
			fmt.Printf("files:              %d\n", len(idx.Files))
			return nil
		},
	}
}
