package engine

import (
	"github.com/franksops/dsfetch/provider"
)

// TransferJob represents a single file to fetch from the remote bucket into
// a local dataset directory.
type TransferJob struct {
	// ID identifies the job in the state store. It is the object key.
	ID string

	// Index and Total position the job within its download set, for
	// status lines such as "[3/12]".
	Index int
	Total int

	// Record is the listing entry the job was created from.
	Record provider.FileRecord

	// Request describes the transfer handed to a download strategy.
	Request Request
}

// JobChannel is a channel used to queue and dispatch TransferJobs to workers
// in the worker pool.
type JobChannel chan TransferJob
