package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrDeclined is returned when the confirmation gate rejects a download.
	ErrDeclined = errors.New("download cancelled")

	// ErrUnknownTask is returned for task names not in Tasks.
	ErrUnknownTask = errors.New("unknown task")
)

// NotFoundError reports an empty listing or a file missing from one.
type NotFoundError struct {
	Task    string
	Dataset string
	File    string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("file %q not found in dataset %q of task %q", e.File, e.Dataset, e.Task)
	case e.Dataset != "":
		return fmt.Sprintf("no files found in dataset %q", e.Dataset)
	default:
		return fmt.Sprintf("no datasets found for task %q", e.Task)
	}
}
