package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/paulreece42/ectar/pkg/archive"
	"github.com/paulreece42/ectar/pkg/config"
	"github.com/paulreece42/ectar/pkg/pipeline"
)

func createCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "pack a directory tree into a shard archive",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "archive basename (directory and name prefix)"},
			&cli.IntFlag{Name: "data-shards", Value: config.DefaultDataShards, Usage: "number of data shards (k) per chunk"},
			&cli.IntFlag{Name: "parity-shards", Value: config.DefaultParityShards, Usage: "number of parity shards (m) per chunk"},
			&cli.IntFlag{Name: "chunk-size", Value: config.DefaultChunkSize, Usage: "bytes per chunk before erasure coding"},
			&cli.IntFlag{Name: "compression-level", Value: config.DefaultCompressionLevel, Usage: "zstd compression level, 1-22"},
			&cli.BoolFlag{Name: "no-compression", Usage: "disable compression; shard payload is raw tar bytes"},
			&cli.StringFlag{Name: "config", Usage: "optional config file overriding the flag defaults"},
		},
		Action: func(c *cli.Context) error {
			root := c.Args().First()
			if root == "" {
				return cli.Exit(fmt.Errorf("create: missing input PATH"), exitInputError)
			}

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return cli.Exit(err, exitInputError)
			}
			params := cfg.Parameters
			if c.IsSet("data-shards") {
				params.DataShards = c.Int("data-shards")
			}
			if c.IsSet("parity-shards") {
				params.ParityShards = c.Int("parity-shards")
			}
			if c.IsSet("chunk-size") {
				params.ChunkSize = c.Int("chunk-size")
			}
			if c.IsSet("compression-level") {
				params.CompressionLevel = c.Int("compression-level")
			}
			if c.IsSet("no-compression") {
				params.NoCompression = c.Bool("no-compression")
			}
			if err := params.Validate(); err != nil {
				return cli.Exit(err, exitInputError)
			}

			outputPath := c.String("output")
			outputDir := filepath.Dir(outputPath)
			basename := filepath.Base(outputPath)

			fmt.Printf("📦 Packing %s -> %s (k=%d, m=%d)\n", root, outputPath, params.DataShards, params.ParityShards)

			hint, err := sizeHint(root)
			if err != nil {
				return cli.Exit(&pipeline.InputIOError{Path: root, Cause: err}, exitIOError)
			}

			tarStream, walkDone, err := walkTar(root)
			if err != nil {
				return cli.Exit(err, exitIOError)
			}
			defer tarStream.Close()

			_, stats, err := pipeline.Encode(tarStream, pipeline.EncodeOptions{
				Basename:      basename,
				OutputDir:     outputDir,
				Parameters:    params,
				TotalSizeHint: hint,
				Logger:        logger,
				Files: func() ([]archive.FileEntry, error) {
					result := <-walkDone
					return result.Files, result.Err
				},
			})
			if err != nil {
				return cli.Exit(err, exitCodeFor(err))
			}

			fmt.Printf("✓ %d chunks, %d shards, %d bytes written\n", stats.ChunksWritten, stats.ShardsWritten, stats.BytesOut)
			fmt.Printf("✓ archive complete: %s.index.*\n", outputPath)
			return nil
		},
	}
}
