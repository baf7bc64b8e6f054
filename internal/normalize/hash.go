package normalize

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/gyeh/codebook/internal/model"
)

// FileHash computes the hex-encoded SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// BytesHash is FileHash for in-memory content.
func BytesHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// RecordHash computes a stable SHA-256 over a raw record's fields in record
// order. Keys and values are separated by NUL bytes; a null value is written
// as a single 0xFF byte. The first 8 bytes are returned hex-encoded; it
// fingerprints sampled records, it does not deduplicate them.
func RecordHash(r model.RawRecord) string {
	h := sha256.New()
	for key, v := range r.All() {
		h.Write([]byte(key))
		h.Write([]byte{0})
		if v == nil {
			h.Write([]byte{0xFF})
		} else {
			h.Write([]byte(*v))
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}
