package provider

import (
	"context"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// DatasetSummary aggregates every object stored below one dataset path.
type DatasetSummary struct {
	Name       string `json:"name"`
	TotalBytes int64  `json:"size"`
	FileCount  int    `json:"file_count"`
}

// FileRecord describes a single remote object belonging to a dataset.
type FileRecord struct {
	// Name is the final path segment of Key.
	Name string `json:"name"`

	// Key is the full object key inside the bucket.
	Key string `json:"key"`

	// Size is the object size in bytes. It is authoritative for both the
	// pre-download skip check and post-download verification.
	Size int64 `json:"size"`

	// Checksum is the object's entity tag without quotes. It is either a
	// plain MD5 hex digest or a "<hash>-<parts>" multipart token.
	Checksum string `json:"md5"`
}

// Lister enumerates the datasets of a task and the files of a dataset.
type Lister interface {
	// ListDatasets returns one summary per dataset path under the task,
	// sorted by name.
	ListDatasets(ctx context.Context, task string) ([]DatasetSummary, error)

	// ListFiles returns every object stored under the dataset path.
	ListFiles(ctx context.Context, task, dataset string) ([]FileRecord, error)
}

// TaskPrefix returns the key prefix under which all datasets of a task live.
func TaskPrefix(task string) string {
	return "resources/" + task + "/datasets/"
}

// DatasetPrefix returns the key prefix for the files of a single dataset.
func DatasetPrefix(task, dataset string) string {
	return TaskPrefix(task) + dataset + "/"
}
