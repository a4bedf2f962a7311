// Package config collects the tunables spec.md's CLI surface exposes
// as flags (data/parity shard counts, chunk size, compression level)
// into a single validated struct, optionally seeded from a
// "~/.ectar.yaml" file or ECTAR_* environment variables via
// github.com/spf13/viper, so a user can pin defaults once instead of
// repeating flags on every invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/paulreece42/ectar/pkg/archive"
)

// Defaults mirror the reference implementation's documented defaults
// for an LTO-class erasure archive: enough parity to survive a few
// dropped shards without demanding an unreasonable shard count.
const (
	DefaultDataShards       = 10
	DefaultParityShards     = 4
	DefaultChunkSize        = 1 << 30 // 1 GiB
	DefaultCompressionLevel = 3
)

// Config is the fully-resolved set of tunables a `create` invocation
// needs. It embeds archive.Parameters directly since that is the
// struct the pipeline actually consumes; Config adds the parts of the
// CLI surface that aren't erasure parameters (output basename).
type Config struct {
	Parameters archive.Parameters `mapstructure:",squash"`
	Output     string             `mapstructure:"output"`
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		Parameters: archive.Parameters{
			DataShards:       DefaultDataShards,
			ParityShards:     DefaultParityShards,
			ChunkSize:        DefaultChunkSize,
			CompressionLevel: DefaultCompressionLevel,
		},
	}
}

// Load resolves a Config by layering, in increasing precedence: the
// package defaults, an optional config file (explicit path, or
// "~/.ectar.yaml" if unset and present), ECTAR_-prefixed environment
// variables, and finally whatever the caller overrides on the
// returned value is applied with the pipeline flags the CLI already
// parsed (flags always win -- callers apply flag values onto the
// result after Load returns, per spec.md's "flags always take
// precedence").
func Load(explicitPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ECTAR")
	v.AutomaticEnv()

	v.SetDefault("data_shards", DefaultDataShards)
	v.SetDefault("parity_shards", DefaultParityShards)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("compression_level", DefaultCompressionLevel)
	v.SetDefault("no_compression", false)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.SetConfigFile(filepath.Join(home, ".ectar.yaml"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		missingFile := notFound || os.IsNotExist(err)
		if explicitPath != "" || !missingFile {
			return Config{}, &archive.ConfigError{Reason: fmt.Sprintf("failed to read config file: %v", err)}
		}
		// No config file at the default path: defaults and env stand alone.
	}

	cfg := Config{
		Parameters: archive.Parameters{
			DataShards:       v.GetInt("data_shards"),
			ParityShards:     v.GetInt("parity_shards"),
			ChunkSize:        v.GetInt("chunk_size"),
			CompressionLevel: v.GetInt("compression_level"),
			NoCompression:    v.GetBool("no_compression"),
		},
		Output: v.GetString("output"),
	}
	return cfg, nil
}

// Validate delegates to archive.Parameters.Validate, the single source
// of truth for what a valid erasure configuration looks like.
func (c Config) Validate() error {
	return c.Parameters.Validate()
}
