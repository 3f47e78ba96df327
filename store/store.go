package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrJobNotFound is returned when a job is not found in the state store.
	ErrJobNotFound = errors.New("job not found")

	// ErrListingNotFound is returned when no listing is stored under a key.
	ErrListingNotFound = errors.New("listing not found")
)

var (
	jobsBucket     = []byte("transfers")
	listingsBucket = []byte("listings")
)

// OpenTimeout bounds how long NewBoltStore waits for another process holding
// the database lock.
const OpenTimeout = time.Second

// JobState represents the current state of a file transfer.
type JobState string

const (
	StatePending    JobState = "Pending"
	StateInProgress JobState = "InProgress"
	StateCompleted  JobState = "Completed"
	StateFailed     JobState = "Failed"
)

// JobRecord represents the state of a job in the store.
type JobRecord struct {
	ID               string   `json:"id"`
	SourcePath       string   `json:"source_path"`
	DestinationPath  string   `json:"destination_path"`
	State            JobState `json:"state"`
	BytesTransferred int64    `json:"bytes_transferred"`
	TotalBytes       int64    `json:"total_bytes"`
	Error            string   `json:"error,omitempty"`
}

// JobStore tracks the state of individual transfers.
type JobStore interface {
	SaveJob(job *JobRecord) error
	GetJob(id string) (*JobRecord, error)
}

// ListingStore persists opaque listing blobs by key.
type ListingStore interface {
	PutListing(key string, data []byte) error
	GetListing(key string) ([]byte, error)
}

// Store is the full persistence interface.
type Store interface {
	JobStore
	ListingStore
	ListJobs(state JobState) ([]*JobRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{jobsBucket, listingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveJob saves a job to the state store.
func (s *BoltStore) SaveJob(job *JobRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := b.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to put job: %w", err)
		}
		return nil
	})
}

// GetJob retrieves a job from the state store.
func (s *BoltStore) GetJob(id string) (*JobRecord, error) {
	var job JobRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(jobsBucket).Get([]byte(id))
		if data == nil {
			return ErrJobNotFound
		}

		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// ListJobs returns every job in the given state, ordered by ID.
func (s *BoltStore) ListJobs(state JobState) ([]*JobRecord, error) {
	var jobs []*JobRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(jobsBucket).ForEach(func(_, v []byte) error {
			var job JobRecord
			if err := json.Unmarshal(v, &job); err != nil {
				return fmt.Errorf("failed to unmarshal job: %w", err)
			}
			if job.State == state {
				jobs = append(jobs, &job)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// PutListing stores a listing blob, replacing any previous value.
func (s *BoltStore) PutListing(key string, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(listingsBucket).Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to put listing: %w", err)
		}
		return nil
	})
}

// GetListing returns a copy of the listing blob stored under key.
func (s *BoltStore) GetListing(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(listingsBucket).Get([]byte(key))
		if v == nil {
			return ErrListingNotFound
		}
		// bbolt values are only valid for the life of the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close closes the underlying store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
