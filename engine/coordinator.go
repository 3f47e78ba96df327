package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/franksops/dsfetch/provider"
)

// Transferrer fetches one file. Backends is the production implementation.
type Transferrer interface {
	FetchFile(ctx context.Context, req Request) error
}

// URLFunc maps an object key to its download URL.
type URLFunc func(key string) string

// Outcome is the result of one file in a download set.
type Outcome struct {
	Record    provider.FileRecord
	LocalPath string
	Succeeded bool
	Err       error
}

// Tally counts the results of a download set. Files skipped because they
// were already present count as succeeded.
type Tally struct {
	Succeeded int
	Total     int
}

// AllSucceeded reports whether every file in the set is present.
func (t Tally) AllSucceeded() bool {
	return t.Succeeded == t.Total
}

// Coordinator downloads sets of files concurrently.
type Coordinator struct {
	transfers Transferrer
	urlFor    URLFunc
	sink      Sink
	tracker   *JobTracker
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTracker records every dispatched transfer in tracker.
func WithTracker(tracker *JobTracker) CoordinatorOption {
	return func(c *Coordinator) {
		c.tracker = tracker
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(transfers Transferrer, urlFor URLFunc, sink Sink, opts ...CoordinatorOption) *Coordinator {
	if sink == nil {
		sink = DiscardSink
	}
	c := &Coordinator{
		transfers: transfers,
		urlFor:    urlFor,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DownloadSet fetches files into destDir using up to maxWorkers concurrent
// transfers. Files already present with the listed size are skipped. The
// call returns once every dispatched transfer has finished; individual
// failures are reported through the sink and reflected in the tally.
func (c *Coordinator) DownloadSet(ctx context.Context, files []provider.FileRecord, destDir string, maxWorkers int) Tally {
	tally := Tally{Total: len(files)}
	if len(files) == 0 {
		return tally
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		c.sink.Statusf("Failed to create %s: %v", destDir, err)
		return tally
	}

	dest := provider.NewLocalProvider(destDir)
	jobs := make(JobChannel, len(files))
	for i, f := range files {
		if dest.HasSize(ctx, f.Name, f.Size) {
			c.sink.Statusf("[%d/%d] Skipping %s (already exists)", i+1, len(files), f.Name)
			tally.Succeeded++
			continue
		}
		jobs <- TransferJob{
			ID:     f.Key,
			Index:  i + 1,
			Total:  len(files),
			Record: f,
			Request: Request{
				URL:       c.urlFor(f.Key),
				LocalPath: dest.Path(f.Name),
				Checksum:  f.Checksum,
				Size:      f.Size,
			},
		}
	}
	close(jobs)

	pending := len(jobs)
	if pending == 0 {
		return tally
	}

	results := make(chan Outcome, pending)
	pool := NewWorkerPool(ctx, jobs, func(ctx context.Context, job TransferJob) error {
		results <- c.run(ctx, job)
		return nil
	})
	pool.SetWorkerCount(min(maxWorkers, pending))
	pool.Wait()
	close(results)

	for o := range results {
		if o.Succeeded {
			tally.Succeeded++
		}
	}
	return tally
}

func (c *Coordinator) run(ctx context.Context, job TransferJob) Outcome {
	name := job.Record.Name
	c.sink.Statusf("[%d/%d] Downloading %s", job.Index, job.Total, name)
	c.track(job.ID, func(t *JobTracker) error {
		if err := t.InitJob(job); err != nil {
			return err
		}
		return t.MarkInProgress(job.ID)
	})

	out := Outcome{Record: job.Record, LocalPath: job.Request.LocalPath}
	if err := c.transfers.FetchFile(ctx, job.Request); err != nil {
		c.sink.Statusf("Failed to download %s: %v", name, err)
		c.track(job.ID, func(t *JobTracker) error { return t.MarkFailed(job.ID, err) })
		out.Err = err
		return out
	}

	c.track(job.ID, func(t *JobTracker) error { return t.MarkCompleted(job.ID) })
	out.Succeeded = true
	return out
}

func (c *Coordinator) track(id string, fn func(*JobTracker) error) {
	if c.tracker == nil {
		return
	}
	if err := fn(c.tracker); err != nil {
		slog.Warn("failed to record transfer state", "job", id, "error", err)
	}
}
