package lib

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Checksum helpers for walk consumers that want a content hash per yielded
// file (the ftw front-end's --checksum mode). Hashing streams through a pooled
// buffer so walking a large tree does not allocate per file.

// hashBufPool holds 1MiB read buffers reused across HashFile calls.
var hashBufPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, 1024*1024)
		return &buffer
	},
}

// HashFile hashes the file at path with the given algorithm (xxhash, sha256,
// or md5) and returns the digest as a hex string.
func HashFile(path, algorithm string) (string, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := hashBufPool.Get().(*[]byte)
	defer hashBufPool.Put(buffer)
	if _, err := io.CopyBuffer(hasher, file, *buffer); err != nil {
		return "", err
	}
	if xx, ok := hasher.(*xxhash.Digest); ok {
		return fmt.Sprintf("%016x", xx.Sum64()), nil
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "xxhash":
		return xxhash.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "md5":
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %s", algorithm)
	}
}
