package models

import (
	"time"

	"github.com/google/uuid"
)

// EtlTaskStatus tracks a task through the pipeline state machine.
// Transitions are strictly forward: created -> extracting -> transforming
// -> uploading -> completed|failed. Failed tasks are never resumed; a fresh
// ingestion run creates new tasks.
type EtlTaskStatus string

const (
	TaskCreated      EtlTaskStatus = "created"
	TaskExtracting   EtlTaskStatus = "extracting"
	TaskTransforming EtlTaskStatus = "transforming"
	TaskUploading    EtlTaskStatus = "uploading"
	TaskCompleted    EtlTaskStatus = "completed"
	TaskFailed       EtlTaskStatus = "failed"
)

// EtlTask is one discovered unit of extract/transform/load work, typically
// covering a single file inside the unpacked archive.
type EtlTask struct {
	ID              string        `json:"id"`
	ArchiveID       string        `json:"archive_id"`
	Provider        string        `json:"provider"`
	InteractionType string        `json:"interaction_type"`
	SourceURI       string        `json:"source_uri"`
	Status          EtlTaskStatus `json:"status"`

	// Stage counters, set monotonically as each stage completes.
	ExtractedCount   int `json:"extracted_count"`
	TransformedCount int `json:"transformed_count"`
	UploadedCount    int `json:"uploaded_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEtlTask creates a task in the created state for one matched source file.
func NewEtlTask(archiveID, provider, interactionType, sourceURI string) *EtlTask {
	now := time.Now().UTC()
	return &EtlTask{
		ID:              uuid.NewString(),
		ArchiveID:       archiveID,
		Provider:        provider,
		InteractionType: interactionType,
		SourceURI:       sourceURI,
		Status:          TaskCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
