// Package store provides relational persistence for archives, ETL tasks and
// thread rows. The pipeline consumes the Store interface only; SQLite and
// Postgres implementations are provided.
package store

import (
	"context"
	"errors"

	"github.com/raphaelgruber/contextuse-go/internal/models"
)

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store is the narrow relational contract the ingestion pipeline consumes.
type Store interface {
	// Init creates missing tables and indices. Idempotent.
	Init(ctx context.Context) error

	CreateArchive(ctx context.Context, a *models.Archive) error
	GetArchive(ctx context.Context, id string) (*models.Archive, error)
	UpdateArchive(ctx context.Context, a *models.Archive) error
	// ListArchives returns archives, optionally filtered by status
	// (empty status means all), newest first.
	ListArchives(ctx context.Context, status models.ArchiveStatus) ([]models.Archive, error)

	CreateTask(ctx context.Context, t *models.EtlTask) error
	UpdateTask(ctx context.Context, t *models.EtlTask) error
	ListTasks(ctx context.Context, archiveID string) ([]models.EtlTask, error)

	// InsertThreads persists all rows of one task inside a single
	// transaction: full success or full rollback. Rows whose unique_key
	// already exists are ignored, and the count of rows actually
	// inserted is returned.
	InsertThreads(ctx context.Context, taskID string, rows []models.ThreadRow) (int, error)
	// CountThreads returns the number of thread rows belonging to the
	// archive's tasks.
	CountThreads(ctx context.Context, archiveID string) (int, error)

	Close() error
}
