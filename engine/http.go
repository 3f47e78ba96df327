package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/franksops/dsfetch/provider"
)

// HTTPFetcher streams a file over plain HTTP. It has no resume support and
// rewrites the destination from scratch on every attempt.
type HTTPFetcher struct {
	client  *http.Client
	buffers *BufferPool
	local   *provider.LocalProvider
	sink    Sink
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client means a client without
// a timeout, since dataset files can take hours to download.
func NewHTTPFetcher(client *http.Client, sink Sink) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if sink == nil {
		sink = DiscardSink
	}
	return &HTTPFetcher{
		client:  client,
		buffers: NewBufferPool(DefaultBufferSize),
		local:   provider.NewLocalProvider(""),
		sink:    sink,
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch downloads req.URL into req.LocalPath, then verifies the size and,
// for simple MD5 checksums, the digest. The file is removed on any failure
// after it was created.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (err error) {
	name := filepath.Base(req.LocalPath)
	f.sink.Statusf("%s: downloading with fallback method (no resume support, install aria2 for faster downloads)", name)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", req.URL, err)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("GET %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{URL: req.URL, Status: resp.StatusCode}
	}

	w, err := f.local.OpenWrite(ctx, req.LocalPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", req.LocalPath, err)
	}
	defer func() {
		if err != nil {
			_ = f.local.Remove(req.LocalPath)
		}
	}()

	total := resp.ContentLength
	if total < 0 {
		total = req.Size
	}
	progress := f.sink.Progress(name, total)

	buf := f.buffers.Get()
	_, copyErr := io.CopyBuffer(io.MultiWriter(w, progress), resp.Body, *buf)
	f.buffers.Put(buf)
	progress.Close()
	closeErr := w.Close()

	if copyErr != nil {
		return fmt.Errorf("download %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", req.LocalPath, closeErr)
	}

	if err := checkSize(req.LocalPath, req.Size); err != nil {
		return err
	}

	if !IsSimpleMD5(req.Checksum) {
		f.sink.Statusf("%s: checksum %q is not a simple MD5 (likely multipart upload); skipping verification", name, req.Checksum)
		return nil
	}

	sum, err := FileMD5(ctx, f.local, req.LocalPath, f.buffers)
	if err != nil {
		return err
	}
	if !VerifyChecksum(sum, req.Checksum) {
		return &ChecksumMismatchError{Path: req.LocalPath, Expected: req.Checksum, Actual: sum}
	}
	return nil
}
