package etl

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when no registry entry exists for the
// requested provider. No archive row is created in that case.
var ErrUnsupportedProvider = errors.New("etl: unsupported provider")

// ExtractionError marks a task-fatal failure while parsing provider data.
type ExtractionError struct {
	TaskID string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for task %s: %v", e.TaskID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransformError marks a task-fatal failure while building payloads.
type TransformError struct {
	TaskID string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed for task %s: %v", e.TaskID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// UploadError marks a task-fatal failure while inserting thread rows.
type UploadError struct {
	TaskID string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for task %s: %v", e.TaskID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ArchiveError marks an archive-fatal failure: unpacking or discovery broke
// before any task could run. The archive row is marked failed first.
type ArchiveError struct {
	ArchiveID string
	Err       error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s processing failed: %v", e.ArchiveID, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
