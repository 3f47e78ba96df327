package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/franksops/dsfetch/cache"
	"github.com/franksops/dsfetch/engine"
	"github.com/franksops/dsfetch/provider"
	"github.com/franksops/dsfetch/store"
)

type fakeLister struct {
	mu           sync.Mutex
	datasets     map[string][]provider.DatasetSummary
	files        map[string][]provider.FileRecord
	datasetCalls []string
	fileCalls    []string
	err          error
}

func (l *fakeLister) ListDatasets(ctx context.Context, task string) ([]provider.DatasetSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.datasetCalls = append(l.datasetCalls, task)
	if l.err != nil {
		return nil, l.err
	}
	return l.datasets[task], nil
}

func (l *fakeLister) ListFiles(ctx context.Context, task, dataset string) ([]provider.FileRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileCalls = append(l.fileCalls, task+"|"+dataset)
	if l.err != nil {
		return nil, l.err
	}
	return l.files[task+"|"+dataset], nil
}

type fakeTransfers struct {
	mu    sync.Mutex
	calls []engine.Request
	fail  error
}

func (f *fakeTransfers) FetchFile(ctx context.Context, req engine.Request) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if err := os.MkdirAll(filepath.Dir(req.LocalPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(req.LocalPath, make([]byte, req.Size), 0644)
}

func (f *fakeTransfers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) Statusf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

func (s *lineSink) Progress(string, int64) io.WriteCloser { return nopCloser{io.Discard} }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type recordingGate struct {
	answer  bool
	prompts []Prompt
}

func (g *recordingGate) gate(ctx context.Context, p Prompt) bool {
	g.prompts = append(g.prompts, p)
	return g.answer
}

func pancreasFiles() []provider.FileRecord {
	prefix := "resources/denoising/datasets/pancreas/"
	return []provider.FileRecord{
		{Name: "train.h5ad", Key: prefix + "train.h5ad", Size: 100, Checksum: "0123456789abcdef0123456789abcdef"},
		{Name: "test.h5ad", Key: prefix + "test.h5ad", Size: 200, Checksum: "abc-2"},
		{Name: "state.yaml", Key: prefix + "state.yaml", Size: 0},
	}
}

func newTestLister() *fakeLister {
	return &fakeLister{
		datasets: map[string][]provider.DatasetSummary{
			"denoising": {
				{Name: "pancreas", TotalBytes: 300, FileCount: 3},
				{Name: "cxg/dkd", TotalBytes: 5, FileCount: 1},
			},
		},
		files: map[string][]provider.FileRecord{
			"denoising|pancreas": pancreasFiles(),
			"denoising|cxg/dkd": {
				{Name: "a.h5ad", Key: "resources/denoising/datasets/cxg/dkd/a.h5ad", Size: 5},
			},
		},
	}
}

func newTestFetcher(t *testing.T, lister provider.Lister, transfers engine.Transferrer) (*Fetcher, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewBoltStore(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	datasetsDir := filepath.Join(dir, "datasets")
	f := New(lister, cache.New(s), transfers, &lineSink{}, Options{
		BaseURL:     "https://bucket.example/",
		DatasetsDir: datasetsDir,
		Workers:     2,
	})
	return f, datasetsDir
}

func TestFetcher_ListingsAreCached(t *testing.T) {
	lister := newTestLister()
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.Datasets(ctx, "denoising"); err != nil {
			t.Fatalf("Datasets failed: %v", err)
		}
		files, err := f.Files(ctx, "denoising", "pancreas")
		if err != nil {
			t.Fatalf("Files failed: %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("Expected 3 files, got %d", len(files))
		}
	}

	if len(lister.datasetCalls) != 1 || len(lister.fileCalls) != 1 {
		t.Errorf("Expected one listing request each, got %d and %d", len(lister.datasetCalls), len(lister.fileCalls))
	}
}

func TestFetcher_EmptyListingNotCached(t *testing.T) {
	lister := newTestLister()
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})

	for i := 0; i < 2; i++ {
		if _, err := f.Datasets(context.Background(), "label_projection"); err != nil {
			t.Fatalf("Datasets failed: %v", err)
		}
	}
	if len(lister.datasetCalls) != 2 {
		t.Errorf("Expected empty listing to be re-queried, got %d calls", len(lister.datasetCalls))
	}
}

func TestFetcher_TaskAlias(t *testing.T) {
	lister := newTestLister()
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})

	if _, err := f.Datasets(context.Background(), "cell_cell_communication_ligand_target"); err != nil {
		t.Fatalf("Datasets failed: %v", err)
	}
	if lister.datasetCalls[0] != "cell_cell_communication" {
		t.Errorf("Expected listing of cell_cell_communication, got %s", lister.datasetCalls[0])
	}
}

func TestFetcher_UnknownTask(t *testing.T) {
	lister := newTestLister()
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})

	if _, err := f.Datasets(context.Background(), "foundation_models"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("Expected ErrUnknownTask, got %v", err)
	}
	if _, err := f.FetchDataset(context.Background(), "nope", "d", "", AlwaysConfirm); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("Expected ErrUnknownTask, got %v", err)
	}
	if len(lister.datasetCalls)+len(lister.fileCalls) != 0 {
		t.Error("Expected no listing requests for an unknown task")
	}
}

func TestFetcher_ListingErrorPropagates(t *testing.T) {
	lister := newTestLister()
	lister.err = &provider.ListingError{Prefix: "resources/denoising/datasets/", Status: 403, Err: errors.New("forbidden")}
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})

	_, err := f.FetchTask(context.Background(), "denoising", AlwaysConfirm)
	var listingErr *provider.ListingError
	if !errors.As(err, &listingErr) || listingErr.Status != 403 {
		t.Errorf("Expected ListingError 403, got %v", err)
	}
}

func TestFetcher_FetchDatasetIsIdempotent(t *testing.T) {
	transfers := &fakeTransfers{}
	f, datasetsDir := newTestFetcher(t, newTestLister(), transfers)
	gate := &recordingGate{answer: true}

	ok, err := f.FetchDataset(context.Background(), "denoising", "pancreas", "", gate.gate)
	if err != nil || !ok {
		t.Fatalf("FetchDataset = %v, %v", ok, err)
	}
	if transfers.count() != 3 {
		t.Errorf("Expected 3 transfers, got %d", transfers.count())
	}
	if len(gate.prompts) != 1 {
		t.Fatalf("Expected one prompt, got %d", len(gate.prompts))
	}
	p := gate.prompts[0]
	if p.Scope != ScopeDataset || p.Files != 3 || p.TotalBytes != 300 || p.MissingBytes != 300 || p.Existing != 0 {
		t.Errorf("Unexpected prompt %+v", p)
	}
	if _, err := os.Stat(filepath.Join(datasetsDir, "pancreas", "train.h5ad")); err != nil {
		t.Errorf("Expected file under datasets dir: %v", err)
	}
	wantURL := "https://bucket.example/resources/denoising/datasets/pancreas/train.h5ad"
	found := false
	for _, c := range transfers.calls {
		if c.URL == wantURL {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a request for %s", wantURL)
	}

	ok, err = f.FetchDataset(context.Background(), "denoising", "pancreas", "", gate.gate)
	if err != nil || !ok {
		t.Fatalf("second FetchDataset = %v, %v", ok, err)
	}
	if transfers.count() != 3 {
		t.Errorf("Expected no new transfers, got %d total", transfers.count())
	}
	if len(gate.prompts) != 1 {
		t.Errorf("Expected no prompt when nothing is missing, got %d prompts", len(gate.prompts))
	}
}

func TestFetcher_FetchDatasetPartiallyPresent(t *testing.T) {
	transfers := &fakeTransfers{}
	f, datasetsDir := newTestFetcher(t, newTestLister(), transfers)

	dir := filepath.Join(datasetsDir, "pancreas")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "train.h5ad"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}

	gate := &recordingGate{answer: true}
	ok, err := f.FetchDataset(context.Background(), "denoising", "pancreas", "", gate.gate)
	if err != nil || !ok {
		t.Fatalf("FetchDataset = %v, %v", ok, err)
	}
	if transfers.count() != 2 {
		t.Errorf("Expected 2 transfers, got %d", transfers.count())
	}
	if p := gate.prompts[0]; p.Existing != 1 || p.MissingBytes != 200 {
		t.Errorf("Unexpected prompt %+v", p)
	}
}

func TestFetcher_FetchDatasetDeclined(t *testing.T) {
	transfers := &fakeTransfers{}
	f, _ := newTestFetcher(t, newTestLister(), transfers)

	gate := &recordingGate{answer: false}
	ok, err := f.FetchDataset(context.Background(), "denoising", "pancreas", "", gate.gate)
	if ok || !errors.Is(err, ErrDeclined) {
		t.Errorf("FetchDataset = %v, %v; want false, ErrDeclined", ok, err)
	}
	if ok, err := f.FetchDataset(context.Background(), "denoising", "pancreas", "", nil); ok || !errors.Is(err, ErrDeclined) {
		t.Errorf("nil gate: FetchDataset = %v, %v; want false, ErrDeclined", ok, err)
	}
	if transfers.count() != 0 {
		t.Errorf("Expected no transfers, got %d", transfers.count())
	}
}

func TestFetcher_FetchDatasetFailures(t *testing.T) {
	transfers := &fakeTransfers{fail: errors.New("connection reset")}
	f, _ := newTestFetcher(t, newTestLister(), transfers)

	ok, err := f.FetchDataset(context.Background(), "denoising", "pancreas", "", AlwaysConfirm)
	if ok || err != nil {
		t.Errorf("FetchDataset = %v, %v; want false, nil", ok, err)
	}
}

func TestFetcher_NotFound(t *testing.T) {
	f, _ := newTestFetcher(t, newTestLister(), &fakeTransfers{})
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() (bool, error)
	}{
		{"empty task", func() (bool, error) { return f.FetchTask(ctx, "label_projection", AlwaysConfirm) }},
		{"empty dataset", func() (bool, error) { return f.FetchDataset(ctx, "denoising", "missing", "", AlwaysConfirm) }},
		{"missing file", func() (bool, error) { return f.FetchDataset(ctx, "denoising", "pancreas", "nope.h5ad", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.run()
			var nf *NotFoundError
			if ok || !errors.As(err, &nf) {
				t.Errorf("got %v, %v; want NotFoundError", ok, err)
			}
		})
	}
}

func TestFetcher_FetchSingleFile(t *testing.T) {
	transfers := &fakeTransfers{}
	f, datasetsDir := newTestFetcher(t, newTestLister(), transfers)

	ok, err := f.FetchDataset(context.Background(), "denoising", "cxg/dkd", "a.h5ad", nil)
	if err != nil || !ok {
		t.Fatalf("FetchDataset = %v, %v", ok, err)
	}
	if transfers.count() != 1 {
		t.Fatalf("Expected one transfer, got %d", transfers.count())
	}
	req := transfers.calls[0]
	if req.URL != "https://bucket.example/resources/denoising/datasets/cxg/dkd/a.h5ad" {
		t.Errorf("Unexpected URL %s", req.URL)
	}
	if req.LocalPath != filepath.Join(datasetsDir, "cxg", "dkd", "a.h5ad") || req.Size != 5 {
		t.Errorf("Unexpected request %+v", req)
	}

	failing := &fakeTransfers{fail: &engine.SizeMismatchError{Path: "a.h5ad", Expected: 5, Actual: 3}}
	f, _ = newTestFetcher(t, newTestLister(), failing)
	ok, err = f.FetchDataset(context.Background(), "denoising", "cxg/dkd", "a.h5ad", nil)
	var sizeErr *engine.SizeMismatchError
	if ok || !errors.As(err, &sizeErr) {
		t.Errorf("Expected SizeMismatchError, got %v, %v", ok, err)
	}
}

func TestFetcher_FetchTask(t *testing.T) {
	transfers := &fakeTransfers{}
	f, datasetsDir := newTestFetcher(t, newTestLister(), transfers)
	gate := &recordingGate{answer: true}

	ok, err := f.FetchTask(context.Background(), "denoising", gate.gate)
	if err != nil || !ok {
		t.Fatalf("FetchTask = %v, %v", ok, err)
	}

	if len(gate.prompts) != 1 {
		t.Fatalf("Expected a single task-level prompt, got %d", len(gate.prompts))
	}
	p := gate.prompts[0]
	if p.Scope != ScopeTask || p.Datasets != 2 || p.Files != 4 || p.TotalBytes != 305 {
		t.Errorf("Unexpected prompt %+v", p)
	}
	if transfers.count() != 4 {
		t.Errorf("Expected 4 transfers, got %d", transfers.count())
	}
	if _, err := os.Stat(filepath.Join(datasetsDir, "cxg", "dkd", "a.h5ad")); err != nil {
		t.Errorf("Expected nested dataset directory: %v", err)
	}
}

func TestFetcher_FetchTaskDeclined(t *testing.T) {
	transfers := &fakeTransfers{}
	f, _ := newTestFetcher(t, newTestLister(), transfers)

	ok, err := f.FetchTask(context.Background(), "denoising", (&recordingGate{}).gate)
	if ok || !errors.Is(err, ErrDeclined) {
		t.Errorf("FetchTask = %v, %v; want false, ErrDeclined", ok, err)
	}
	if transfers.count() != 0 {
		t.Errorf("Expected no transfers, got %d", transfers.count())
	}
}

func TestFetcher_FetchTaskPartialFailure(t *testing.T) {
	lister := newTestLister()
	lister.files["denoising|cxg/dkd"] = nil
	f, _ := newTestFetcher(t, lister, &fakeTransfers{})

	ok, err := f.FetchTask(context.Background(), "denoising", AlwaysConfirm)
	if ok || err != nil {
		t.Errorf("FetchTask = %v, %v; want false, nil", ok, err)
	}
}

func TestKnownTaskAndStoragePath(t *testing.T) {
	if !KnownTask("denoising") || KnownTask("foundation_models") {
		t.Error("unexpected task membership")
	}
	if StoragePath("cell_cell_communication_source_target") != "cell_cell_communication" {
		t.Error("expected alias for source_target")
	}
	if StoragePath("denoising") != "denoising" {
		t.Error("expected identity mapping")
	}
}

func TestNotFoundErrorMessages(t *testing.T) {
	tests := []struct {
		err  *NotFoundError
		want string
	}{
		{&NotFoundError{Task: "t"}, `no datasets found for task "t"`},
		{&NotFoundError{Task: "t", Dataset: "d"}, `no files found in dataset "d"`},
		{&NotFoundError{Task: "t", Dataset: "d", File: "f"}, `file "f" not found in dataset "d" of task "t"`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
