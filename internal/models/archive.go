// Package models defines data structures for the contextuse ingestion pipeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveStatus is the lifecycle state of an archive ingestion run.
type ArchiveStatus string

const (
	ArchiveCreated   ArchiveStatus = "created"
	ArchiveCompleted ArchiveStatus = "completed"
	ArchiveFailed    ArchiveStatus = "failed"
)

// Archive represents one ingestion run of one uploaded source file.
// Rows transition forward only; a retry means creating a new Archive.
type Archive struct {
	ID        string        `json:"id"`
	Provider  string        `json:"provider"`
	Status    ArchiveStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewArchive creates an Archive in the created state.
func NewArchive(provider string) *Archive {
	now := time.Now().UTC()
	return &Archive{
		ID:        uuid.NewString(),
		Provider:  provider,
		Status:    ArchiveCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
