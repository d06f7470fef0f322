package spatial

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache artifact framing: a 4-byte magic, a little-endian format
// version, then a gob stream holding the artifact envelope. Bumping
// formatVersion invalidates every existing artifact.
const (
	cacheMagic    = "SDXC"
	formatVersion = uint16(1)
)

var (
	// ErrCacheStale means the artifact fingerprint does not match the
	// current source exports.
	ErrCacheStale = errors.New("snapshot cache stale")
	// ErrCacheCorrupt means the artifact could not be decoded.
	ErrCacheCorrupt = errors.New("snapshot cache corrupt")
)

// artifact is the persisted snapshot envelope.
type artifact struct {
	Fingerprint string
	CreatedAt   int64
	State       snapshotState
}

// SaveCache writes the snapshot artifact to path. The bytes go to a
// temp file first and are renamed into place so a concurrent reader
// never sees a partial artifact.
func SaveCache(idx *Index, path string) error {
	var buf bytes.Buffer
	buf.WriteString(cacheMagic)
	if err := binary.Write(&buf, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := gob.NewEncoder(&buf).Encode(artifact{
		Fingerprint: idx.fingerprint,
		CreatedAt:   time.Now().Unix(),
		State:       idx.state,
	}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadCache reads a snapshot artifact and validates its fingerprint
// against the current source exports. ErrCacheStale and ErrCacheCorrupt
// both mean the artifact is unusable; the caller falls back to a fresh
// build.
func LoadCache(path string, sourcePaths []string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	headerLen := len(cacheMagic) + 2
	if len(data) < headerLen || string(data[:len(cacheMagic)]) != cacheMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCacheCorrupt)
	}
	version := binary.LittleEndian.Uint16(data[len(cacheMagic):headerLen])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrCacheCorrupt, version, formatVersion)
	}

	var art artifact
	if err := gob.NewDecoder(bytes.NewReader(data[headerLen:])).Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	current, err := Fingerprint(sourcePaths)
	if err != nil {
		return nil, err
	}
	if art.Fingerprint != current {
		return nil, fmt.Errorf("%w: cached %s, current %s", ErrCacheStale, art.Fingerprint, current)
	}

	return newIndex(art.State, art.Fingerprint), nil
}
