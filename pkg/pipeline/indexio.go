package pipeline

import (
	"os"
	"path/filepath"

	"github.com/paulreece42/ectar/pkg/compress"
	"github.com/paulreece42/ectar/pkg/index"
)

func writeIndexFile(dir, name string, idx index.Index, codec compress.Codec) error {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return &InputIOError{Path: path, Cause: err}
	}
	defer f.Close()

	if err := index.Write(f, idx, codec); err != nil {
		return &InputIOError{Path: path, Cause: err}
	}
	return f.Sync()
}

func readIndexFile(dir, name string, codec compress.Codec) (index.Index, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return index.Index{}, &InputIOError{Path: path, Cause: err}
	}
	defer f.Close()

	return index.Parse(f, codec)
}

// LoadIndex locates and parses "<basename>.index.*" in dir, for callers
// (cmd/ectar's list/verify/info commands) that need the index without
// running a full Decode. Returns shardio.ErrIndexNotFound, wrapped, if
// no index file is present.
func LoadIndex(dir, basename string) (index.Index, error) {
	idx, _, err := loadIndex(dir, basename)
	return idx, err
}
