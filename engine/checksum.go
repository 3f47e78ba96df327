package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/franksops/dsfetch/provider"
)

// ChecksumReader wraps an io.Reader to compute an MD5 digest while reading.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash
	n    int64
}

// NewChecksumReader creates a new ChecksumReader that wraps the given reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: md5.New(),
	}
}

// Read reads data from the underlying reader and updates the digest.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the lowercase hex digest of everything read so far.
func (cr *ChecksumReader) Checksum() string {
	return hex.EncodeToString(cr.hash.Sum(nil))
}

// BytesRead returns the total number of bytes read.
func (cr *ChecksumReader) BytesRead() int64 {
	return cr.n
}

// IsSimpleMD5 reports whether checksum is a plain MD5 digest: exactly 32
// lowercase hex characters. Multipart tokens ("<hash>-<parts>") and empty
// strings are not.
func IsSimpleMD5(checksum string) bool {
	if len(checksum) != 32 {
		return false
	}
	for i := 0; i < len(checksum); i++ {
		c := checksum[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// VerifyChecksum compares a computed digest against an expected value.
func VerifyChecksum(actual, expected string) bool {
	return actual == expected
}

// FileMD5 computes the MD5 digest of a file on the local destination.
func FileMD5(ctx context.Context, local *provider.LocalProvider, name string, buffers *BufferPool) (string, error) {
	rc, err := local.OpenRead(ctx, name)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", name, err)
	}
	defer rc.Close()

	buf := buffers.Get()
	defer buffers.Put(buf)

	cr := NewChecksumReader(rc)
	if _, err := io.CopyBuffer(io.Discard, cr, *buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", name, err)
	}
	return cr.Checksum(), nil
}
