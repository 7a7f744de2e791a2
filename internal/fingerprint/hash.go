package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// DomainModel prefixes model fingerprints. Bumping the version invalidates
// every stored record.
const DomainModel = "pibronic/model/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Bytes fingerprints an in-memory JSON model document.
func Bytes(data []byte) (string, error) {
	canonical, err := Canonicalize(data)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// ModelHash fingerprints the JSON model file at path.
func ModelHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: read model: %w", err)
	}
	h, err := Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w (%s)", err, path)
	}
	return h, nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests.
func MustModelHash(path string) string {
	h, err := ModelHash(path)
	if err != nil {
		panic(err)
	}
	return h
}
