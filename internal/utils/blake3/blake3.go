package blake3

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Compute returns the hex-encoded BLAKE3 digest of everything read from data.
func Compute(data io.Reader) (string, error) {
	hash := blake3.New()
	if _, err := io.Copy(hash, data); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ComputeFile returns the digest of the file at path.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Compute(f)
}
