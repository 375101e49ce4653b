// Package hashing derives stable content keys for cached groups and stored
// source documents.
package hashing

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/minio/highwayhash"
)

// key is fixed so that keys stay stable across processes and releases.
var key = []byte("qbank-source-key-0123456789ABCDE")

// Sum64 hashes data.
func Sum64(data []byte) uint64 {
	return highwayhash.Sum64(data, key)
}

// Key64 is Sum64 rendered as 16 hex digits.
func Key64(data string) string {
	return fmt.Sprintf("%016x", Sum64([]byte(data)))
}

// Reader hashes everything read from r with the 256-bit variant and returns
// the hex digest plus the byte count.
func Reader(r io.Reader) (string, int64, error) {
	h, err := highwayhash.New(key)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

//Personal.AI order the ending
