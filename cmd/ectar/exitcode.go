package main

import (
	"errors"

	"github.com/paulreece42/ectar/pkg/archive"
	"github.com/paulreece42/ectar/pkg/index"
	"github.com/paulreece42/ectar/pkg/pipeline"
	"github.com/paulreece42/ectar/pkg/shardcodec"
)

// Exit codes per spec.md §6: 0 success, 1 input error, 2
// unrecoverable-chunk error, 3 I/O error.
const (
	exitOK            = 0
	exitInputError    = 1
	exitUnrecoverable = 2
	exitIOError       = 3
)

// exitCodeFor maps the §7 error taxonomy onto the §6 exit-code
// contract at the top-level command handler, the one place the CLI
// needs to know about concrete pipeline error types.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var insufficient *shardcodec.InsufficientShardsError
	if errors.As(err, &insufficient) {
		return exitUnrecoverable
	}

	var configErr *archive.ConfigError
	if errors.As(err, &configErr) {
		return exitInputError
	}
	var corruptIndex *index.CorruptIndexError
	if errors.As(err, &corruptIndex) {
		return exitInputError
	}

	var inputIO *pipeline.InputIOError
	if errors.As(err, &inputIO) {
		return exitIOError
	}
	var decompression *pipeline.DecompressionError
	if errors.As(err, &decompression) {
		return exitIOError
	}
	var tarErr *pipeline.TarError
	if errors.As(err, &tarErr) {
		return exitIOError
	}

	return exitInputError
}
