package engine

import (
	"github.com/franksops/dsfetch/store"
)

// JobTracker records the lifecycle of each transfer in a store so a later run
// can report which files failed.
type JobTracker struct {
	store store.JobStore
}

// NewJobTracker creates a new JobTracker
func NewJobTracker(store store.JobStore) *JobTracker {
	return &JobTracker{store: store}
}

// InitJob records job as pending.
func (jt *JobTracker) InitJob(job TransferJob) error {
	record := &store.JobRecord{
		ID:               job.ID,
		SourcePath:       job.Request.URL,
		DestinationPath:  job.Request.LocalPath,
		State:            store.StatePending,
		BytesTransferred: 0,
		TotalBytes:       job.Record.Size,
	}

	return jt.store.SaveJob(record)
}

// MarkInProgress updates a job's state to InProgress
func (jt *JobTracker) MarkInProgress(jobID string) error {
	record, err := jt.store.GetJob(jobID)
	if err != nil {
		return err
	}
	record.State = store.StateInProgress
	record.Error = ""
	return jt.store.SaveJob(record)
}

// MarkCompleted updates a job's state to Completed
func (jt *JobTracker) MarkCompleted(jobID string) error {
	record, err := jt.store.GetJob(jobID)
	if err != nil {
		return err
	}
	record.State = store.StateCompleted
	record.BytesTransferred = record.TotalBytes
	return jt.store.SaveJob(record)
}

// MarkFailed updates a job's state to Failed with an error message
func (jt *JobTracker) MarkFailed(jobID string, err error) error {
	record, getErr := jt.store.GetJob(jobID)
	if getErr != nil {
		return getErr
	}
	record.State = store.StateFailed
	if err != nil {
		record.Error = err.Error()
	}
	return jt.store.SaveJob(record)
}
