package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrBackendUnavailable is returned when the accelerated downloader binary
// cannot be found.
var ErrBackendUnavailable = errors.New("accelerated downloader not available")

// Request describes one file transfer.
type Request struct {
	URL       string
	LocalPath string
	// Checksum is the remote ETag. Only simple MD5 values are verified.
	Checksum string
	Size     int64
}

// Strategy downloads a single file. Implementations must leave LocalPath
// holding exactly Size bytes when they return nil.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, req Request) error
}

// SizeMismatchError reports a download whose on-disk size differs from the
// listed size.
type SizeMismatchError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// ChecksumMismatchError reports a download whose MD5 differs from the listed
// checksum.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("MD5 mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// HTTPStatusError reports a non-2xx response from the download server.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// ExitError reports a non-zero exit of the accelerated downloader.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("downloader exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// checkSize verifies that path holds exactly size bytes.
func checkSize(path string, size int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() != size {
		return &SizeMismatchError{Path: path, Expected: size, Actual: info.Size()}
	}
	return nil
}

// Backends chooses between the accelerated downloader and the streaming
// fallback. The choice is made per file.
type Backends struct {
	Accelerated *Aria2
	Fallback    Strategy
}

// Select returns the accelerated downloader when its binary is present, and
// the fallback otherwise.
func (b *Backends) Select() Strategy {
	if b.Accelerated != nil {
		_, err := b.Accelerated.Available()
		if err == nil {
			return b.Accelerated
		}
		slog.Debug("using fallback downloader", "reason", err)
	}
	return b.Fallback
}

// FetchFile downloads req with the selected backend.
func (b *Backends) FetchFile(ctx context.Context, req Request) error {
	s := b.Select()
	if s == nil {
		return ErrBackendUnavailable
	}
	return s.Fetch(ctx, req)
}
