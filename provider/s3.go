package provider

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Lister = (*S3Lister)(nil)

// MaxKeys bounds the number of objects returned per listing page.
const MaxKeys = 1000

// ListingError is returned when the object store rejects a listing request.
// Status carries the HTTP status code, or 0 if no response was received.
type ListingError struct {
	Prefix string
	Status int
	Err    error
}

func (e *ListingError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("listing %q failed with status %d: %v", e.Prefix, e.Status, e.Err)
	}
	return fmt.Sprintf("listing %q failed: %v", e.Prefix, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// S3Options configures where the listing client sends its requests.
type S3Options struct {
	Bucket string
	Region string

	// Endpoint overrides the default AWS endpoint, e.g. for MinIO or tests.
	Endpoint string

	// UsePathStyle addresses the bucket as a path segment instead of a host.
	UsePathStyle bool
}

// S3Lister lists public datasets stored in an S3 bucket. Requests are sent
// unsigned and are never retried.
type S3Lister struct {
	client s3.ListObjectsV2APIClient
	bucket string
}

// NewS3Lister creates a lister for the configured bucket.
func NewS3Lister(ctx context.Context, opts S3Options) (*S3Lister, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		o.RetryMaxAttempts = 1
	})

	return &S3Lister{client: client, bucket: opts.Bucket}, nil
}

// ListDatasets returns the datasets of a task with their aggregated size and
// file count, sorted by name.
func (l *S3Lister) ListDatasets(ctx context.Context, task string) ([]DatasetSummary, error) {
	prefix := TaskPrefix(task)
	objs, err := l.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return summarize(prefix, objs), nil
}

// ListFiles returns the files stored under a dataset.
func (l *S3Lister) ListFiles(ctx context.Context, task, dataset string) ([]FileRecord, error) {
	prefix := DatasetPrefix(task, dataset)
	objs, err := l.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return records(prefix, objs), nil
}

type object struct {
	key  string
	size int64
	etag string
}

func (l *S3Lister) list(ctx context.Context, prefix string) ([]object, error) {
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(l.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(MaxKeys),
	})

	var objs []object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, newListingError(prefix, err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			o := object{key: *obj.Key}
			if obj.Size != nil {
				o.size = *obj.Size
			}
			if obj.ETag != nil {
				o.etag = *obj.ETag
			}
			objs = append(objs, o)
		}
	}
	return objs, nil
}

func newListingError(prefix string, err error) error {
	le := &ListingError{Prefix: prefix, Err: err}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		le.Status = re.HTTPStatusCode()
	}
	return le
}

// summarize groups objects by the directory between prefix and the file
// name. Direct children of prefix and directory markers are ignored.
func summarize(prefix string, objs []object) []DatasetSummary {
	byName := make(map[string]*DatasetSummary)
	for _, obj := range objs {
		if !strings.HasPrefix(obj.key, prefix) || strings.HasSuffix(obj.key, "/") {
			continue
		}
		rel := obj.key[len(prefix):]
		idx := strings.LastIndex(rel, "/")
		if idx <= 0 {
			continue
		}
		name := rel[:idx]

		ds, ok := byName[name]
		if !ok {
			ds = &DatasetSummary{Name: name}
			byName[name] = ds
		}
		ds.TotalBytes += obj.size
		ds.FileCount++
	}

	result := make([]DatasetSummary, 0, len(byName))
	for _, ds := range byName {
		result = append(result, *ds)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func records(prefix string, objs []object) []FileRecord {
	var files []FileRecord
	for _, obj := range objs {
		if !strings.HasPrefix(obj.key, prefix) || strings.HasSuffix(obj.key, "/") {
			continue
		}
		files = append(files, FileRecord{
			Name:     path.Base(obj.key),
			Key:      obj.key,
			Size:     obj.size,
			Checksum: strings.Trim(obj.etag, `"`),
		})
	}
	return files
}
