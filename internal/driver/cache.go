package driver

import (
	"crypto/sha256"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when DiskPayload format changes.
const diskCacheSchemaVersion uint16 = 1

// Digest keys cache entries by manifest content and triple.
type Digest [sha256.Size]byte

// DigestFor hashes a manifest's raw bytes together with the effective
// triple, so a --triple override gets its own entry.
func DigestFor(manifestData []byte, triple string) Digest {
	h := sha256.New()
	h.Write(manifestData)
	h.Write([]byte{0})
	h.Write([]byte(triple))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// DiskPayload stores a rendered lowering for fast re-runs over
// unchanged manifests.
type DiskPayload struct {
	Schema    uint16
	Triple    string
	ABIName   string
	Functions []FunctionDump
}

// DiskCache stores rendered lowerings keyed by Digest on disk.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache initializes and returns a disk cache at the standard
// location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := ""
	const digits = "0123456789abcdef"
	for _, b := range key {
		hexKey += string(digits[b>>4]) + string(digits[b&0xf])
	}
	return filepath.Join(c.dir, "sigs", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache atomically.
func (c *DiskCache) Put(key Digest, result *DumpResult) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	payload := DiskPayload{
		Schema:    diskCacheSchemaVersion,
		Triple:    result.Triple,
		ABIName:   result.ABIName,
		Functions: result.Functions,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload from the disk cache; ok is false on a miss or a
// schema mismatch.
func (c *DiskCache) Get(key Digest) (*DumpResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload DiskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, nil // treat corrupt entries as misses
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	return &DumpResult{
		Triple:    payload.Triple,
		ABIName:   payload.ABIName,
		Functions: payload.Functions,
	}, true, nil
}
