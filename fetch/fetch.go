// Package fetch resolves what to download for a task, a dataset or a single
// file, asks the caller for confirmation and hands the transfers to the
// engine.
package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/franksops/dsfetch/cache"
	"github.com/franksops/dsfetch/engine"
	"github.com/franksops/dsfetch/provider"
)

// ConfirmPhrase must be typed verbatim before a whole task is downloaded.
const ConfirmPhrase = "yes I am sure"

const (
	DefaultBaseURL     = "https://openproblems-data.s3.amazonaws.com/"
	DefaultDatasetsDir = "datasets"
	DefaultWorkers     = 8
)

// Scope tells a Gate what is about to be downloaded.
type Scope int

const (
	ScopeTask Scope = iota
	ScopeDataset
)

func (s Scope) String() string {
	if s == ScopeTask {
		return "task"
	}
	return "dataset"
}

// Prompt summarizes a pending download for the confirmation gate.
type Prompt struct {
	Scope   Scope
	Task    string
	Dataset string

	// Datasets is set for ScopeTask only.
	Datasets   int
	Files      int
	TotalBytes int64

	// Existing and MissingBytes are set for ScopeDataset only.
	Existing     int
	MissingBytes int64
}

// Gate decides whether a download may proceed. A nil Gate declines.
type Gate func(ctx context.Context, p Prompt) bool

// AlwaysConfirm is a Gate for non-interactive callers.
func AlwaysConfirm(context.Context, Prompt) bool { return true }

// Reporter is implemented by sinks that style outcome lines.
type Reporter interface {
	Successf(format string, args ...any)
	Failuref(format string, args ...any)
}

// Options configures a Fetcher.
type Options struct {
	BaseURL     string
	DatasetsDir string
	Workers     int
	Tracker     *engine.JobTracker
}

// Fetcher lists datasets cache-first and downloads them.
type Fetcher struct {
	lister      provider.Lister
	listings    *cache.ListingCache
	transfers   engine.Transferrer
	coordinator *engine.Coordinator
	sink        engine.Sink

	baseURL     string
	datasetsDir string
	workers     int
}

// New creates a Fetcher. A nil listings cache always misses.
func New(lister provider.Lister, listings *cache.ListingCache, transfers engine.Transferrer, sink engine.Sink, opts Options) *Fetcher {
	if sink == nil {
		sink = engine.DiscardSink
	}
	f := &Fetcher{
		lister:      lister,
		listings:    listings,
		transfers:   transfers,
		sink:        sink,
		baseURL:     opts.BaseURL,
		datasetsDir: opts.DatasetsDir,
		workers:     opts.Workers,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.datasetsDir == "" {
		f.datasetsDir = DefaultDatasetsDir
	}
	if f.workers < 1 {
		f.workers = DefaultWorkers
	}

	var coordOpts []engine.CoordinatorOption
	if opts.Tracker != nil {
		coordOpts = append(coordOpts, engine.WithTracker(opts.Tracker))
	}
	f.coordinator = engine.NewCoordinator(transfers, f.URL, sink, coordOpts...)
	return f
}

// URL returns the download URL of an object key.
func (f *Fetcher) URL(key string) string {
	u, err := url.JoinPath(f.baseURL, key)
	if err != nil {
		return strings.TrimSuffix(f.baseURL, "/") + "/" + key
	}
	return u
}

// DatasetDir returns the local directory a dataset is downloaded into.
func (f *Fetcher) DatasetDir(dataset string) string {
	return filepath.Join(f.datasetsDir, filepath.FromSlash(dataset))
}

// Datasets returns the dataset summaries of task.
func (f *Fetcher) Datasets(ctx context.Context, task string) ([]provider.DatasetSummary, error) {
	if err := checkTask(task); err != nil {
		return nil, err
	}
	if datasets, ok := f.listings.Datasets(task); ok {
		return datasets, nil
	}

	datasets, err := f.lister.ListDatasets(ctx, StoragePath(task))
	if err != nil {
		return nil, err
	}
	if len(datasets) > 0 {
		if err := f.listings.PutDatasets(task, datasets); err != nil {
			slog.Debug("listing not cached", "task", task, "error", err)
		}
	}
	return datasets, nil
}

// Files returns the file listing of a dataset.
func (f *Fetcher) Files(ctx context.Context, task, dataset string) ([]provider.FileRecord, error) {
	if err := checkTask(task); err != nil {
		return nil, err
	}
	if files, ok := f.listings.Files(task, dataset); ok {
		return files, nil
	}

	f.sink.Statusf("Fetching file list for %s...", dataset)
	files, err := f.lister.ListFiles(ctx, StoragePath(task), dataset)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		if err := f.listings.PutFiles(task, dataset, files); err != nil {
			slog.Debug("listing not cached", "task", task, "dataset", dataset, "error", err)
		}
	}
	return files, nil
}

// FetchTask downloads every dataset of task after a single confirmation.
// Datasets are fetched one after another; it reports whether all of them
// completed.
func (f *Fetcher) FetchTask(ctx context.Context, task string, gate Gate) (bool, error) {
	datasets, err := f.Datasets(ctx, task)
	if err != nil {
		return false, err
	}
	if len(datasets) == 0 {
		return false, &NotFoundError{Task: task}
	}

	p := Prompt{Scope: ScopeTask, Task: task, Datasets: len(datasets)}
	for _, d := range datasets {
		p.Files += d.FileCount
		p.TotalBytes += d.TotalBytes
	}
	if gate == nil || !gate(ctx, p) {
		return false, ErrDeclined
	}

	succeeded := 0
	for i, d := range datasets {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		f.sink.Statusf("Dataset %d/%d: %s (%s, %d files)", i+1, len(datasets), d.Name, humanize.Bytes(uint64(d.TotalBytes)), d.FileCount)
		ok, err := f.fetchDataset(ctx, task, d.Name, nil)
		if err != nil {
			f.failf("Failed to download dataset %s: %v", d.Name, err)
			continue
		}
		if !ok {
			f.failf("Failed to download dataset %s", d.Name)
			continue
		}
		succeeded++
	}

	f.sink.Statusf("Successfully downloaded: %d/%d datasets", succeeded, len(datasets))
	if succeeded != len(datasets) {
		f.failf("%d datasets failed to download", len(datasets)-succeeded)
		return false, nil
	}
	f.succeedf("All datasets for '%s' downloaded successfully!", task)
	return true, nil
}

// FetchDataset downloads a whole dataset, or only file when it is not empty.
// A whole-dataset fetch asks gate for confirmation unless every file is
// already present.
func (f *Fetcher) FetchDataset(ctx context.Context, task, dataset, file string, gate Gate) (bool, error) {
	if file != "" {
		return f.fetchFile(ctx, task, dataset, file)
	}
	if gate == nil {
		gate = func(context.Context, Prompt) bool { return false }
	}
	return f.fetchDataset(ctx, task, dataset, gate)
}

// fetchDataset skips confirmation when gate is nil.
func (f *Fetcher) fetchDataset(ctx context.Context, task, dataset string, gate Gate) (bool, error) {
	files, err := f.Files(ctx, task, dataset)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, &NotFoundError{Task: task, Dataset: dataset}
	}

	dest := f.DatasetDir(dataset)
	local := provider.NewLocalProvider(dest)

	p := Prompt{Scope: ScopeDataset, Task: task, Dataset: dataset, Files: len(files)}
	missing := 0
	for _, fr := range files {
		p.TotalBytes += fr.Size
		if local.HasSize(ctx, fr.Name, fr.Size) {
			p.Existing++
			continue
		}
		missing++
		p.MissingBytes += fr.Size
	}

	if missing == 0 {
		f.succeedf("All files already downloaded!")
		return true, nil
	}
	if gate != nil && !gate(ctx, p) {
		return false, ErrDeclined
	}

	tally := f.coordinator.DownloadSet(ctx, files, dest, f.workers)
	f.sink.Statusf("Completed: %d/%d files", tally.Succeeded, tally.Total)
	if !tally.AllSucceeded() {
		f.failf("%d files failed to download", tally.Total-tally.Succeeded)
		return false, nil
	}
	f.succeedf("Dataset '%s' downloaded successfully!", dataset)
	return true, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, task, dataset, name string) (bool, error) {
	files, err := f.Files(ctx, task, dataset)
	if err != nil {
		return false, err
	}

	var target *provider.FileRecord
	for i := range files {
		if files[i].Name == name {
			target = &files[i]
			break
		}
	}
	if target == nil {
		return false, &NotFoundError{Task: task, Dataset: dataset, File: name}
	}

	req := engine.Request{
		URL:       f.URL(target.Key),
		LocalPath: provider.NewLocalProvider(f.DatasetDir(dataset)).Path(target.Name),
		Checksum:  target.Checksum,
		Size:      target.Size,
	}
	f.sink.Statusf("Downloading %s (%s)", target.Name, humanize.Bytes(uint64(target.Size)))
	if err := f.transfers.FetchFile(ctx, req); err != nil {
		return false, err
	}
	f.succeedf("Downloaded %s", req.LocalPath)
	return true, nil
}

func (f *Fetcher) succeedf(format string, args ...any) {
	if r, ok := f.sink.(Reporter); ok {
		r.Successf(format, args...)
		return
	}
	f.sink.Statusf(format, args...)
}

func (f *Fetcher) failf(format string, args ...any) {
	if r, ok := f.sink.(Reporter); ok {
		r.Failuref(format, args...)
		return
	}
	f.sink.Statusf(format, args...)
}
