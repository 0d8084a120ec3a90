package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"docprobe/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"lukechampine.com/blake3"
)

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

// Supported lists the fingerprint algorithms ComputeHashes understands.
var Supported = []string{"md5", "sha1", "sha256", "blake3", "xxhash"}

func newHash(algo string) (hash.Hash, bool) {
	switch algo {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "blake3":
		return blake3.New(32, nil), true
	case "xxhash":
		return xxhash.New(), true
	}
	return nil, false
}

// ComputeHashes streams the file once through every requested algorithm.
// Unknown algorithms are skipped with a warning; duplicates are ignored.
func ComputeHashes(fs afero.Fs, path string, algorithms []string) (map[string]string, error) {
	hashes := make(map[string]string, len(algorithms))
	if len(algorithms) == 0 {
		return hashes, nil
	}

	type hasherEntry struct {
		name string
		h    hash.Hash
	}
	hashers := make([]hasherEntry, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		if _, ok := seen[algo]; ok {
			continue
		}
		h, ok := newHash(algo)
		if !ok {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		seen[algo] = struct{}{}
		hashers = append(hashers, hasherEntry{name: algo, h: h})
	}
	if len(hashers) == 0 {
		return hashes, nil
	}

	file, err := fs.Open(path)
	if err != nil {
		return hashes, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer file.Close()

	bufferPool := &hashBufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	buffer := *bufferPtr
	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			for i := range hashers {
				hashers[i].h.Write(chunk)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return hashes, fmt.Errorf("hash %s: %w", path, readErr)
		}
	}

	for i := range hashers {
		hashes[hashers[i].name] = hex.EncodeToString(hashers[i].h.Sum(nil))
	}
	return hashes, nil
}
