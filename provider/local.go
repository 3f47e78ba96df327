package provider

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type localFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (l *localFileInfo) Name() string       { return l.name }
func (l *localFileInfo) Size() int64        { return l.size }
func (l *localFileInfo) IsDir() bool        { return l.isDir }
func (l *localFileInfo) ModTime() time.Time { return l.modTime }

func wrapOSFileInfo(info os.FileInfo) FileInfo {
	return &localFileInfo{
		name:    info.Name(),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
	}
}

// LocalProvider gives access to the local download destination.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new LocalProvider rooted at basePath.
// If basePath is empty, it acts upon absolute or relative paths directly.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

// Path returns the filesystem path for name.
func (p *LocalProvider) Path(name string) string {
	if p.basePath == "" {
		return name
	}
	return filepath.Join(p.basePath, filepath.Clean(name))
}

// Stat returns the FileInfo for the given path.
func (p *LocalProvider) Stat(ctx context.Context, name string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(p.Path(name))
	if err != nil {
		return nil, err
	}
	return wrapOSFileInfo(info), nil
}

// HasSize reports whether name exists as a regular file of exactly size bytes.
func (p *LocalProvider) HasSize(ctx context.Context, name string, size int64) bool {
	info, err := p.Stat(ctx, name)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() == size
}

// OpenRead opens a file for streaming reads.
func (p *LocalProvider) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.Open(p.Path(name))
}

// OpenWrite creates or truncates a file for streaming writes, creating
// parent directories as needed.
func (p *LocalProvider) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := p.Path(name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Remove deletes name. A file that does not exist is not an error.
func (p *LocalProvider) Remove(name string) error {
	err := os.Remove(p.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
