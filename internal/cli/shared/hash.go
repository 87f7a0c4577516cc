package shared

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	DigestBLAKE3 = "blake3"
	DigestSHA256 = "sha256"
)

// HexDigest returns the lowercase hex digest of content.
func HexDigest(algorithm string, content []byte) (string, error) {
	var sum [32]byte
	switch algorithm {
	case DigestBLAKE3:
		sum = blake3.Sum256(content)
	case DigestSHA256:
		sum = sha256.Sum256(content)
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
	return hex.EncodeToString(sum[:]), nil
}

// Checksum formats content's digest as "<algorithm>:<hex>", the form taken
// by --config-checksum and stored in the state file.
func Checksum(algorithm string, content []byte) (string, error) {
	digest, err := HexDigest(algorithm, content)
	if err != nil {
		return "", err
	}
	return algorithm + ":" + digest, nil
}
