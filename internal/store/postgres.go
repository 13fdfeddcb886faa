package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raphaelgruber/contextuse-go/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS archives (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS etl_tasks (
	id TEXT PRIMARY KEY,
	archive_id TEXT NOT NULL REFERENCES archives(id),
	provider TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	source_uri TEXT NOT NULL,
	status TEXT NOT NULL,
	extracted_count INTEGER NOT NULL DEFAULT 0,
	transformed_count INTEGER NOT NULL DEFAULT 0,
	uploaded_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS etl_tasks_archive ON etl_tasks(archive_id);

CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	unique_key TEXT NOT NULL UNIQUE,
	etl_task_id TEXT NOT NULL REFERENCES etl_tasks(id),
	provider TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	preview TEXT NOT NULL,
	payload JSONB NOT NULL,
	asset_uri TEXT,
	source TEXT,
	version TEXT NOT NULL,
	asat TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS threads_task ON threads(etl_task_id);
`

// Postgres is a Store backed by a PostgreSQL connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database described by dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Init(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateArchive(ctx context.Context, a *models.Archive) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO archives (id, provider, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Provider, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	return nil
}

func (p *Postgres) GetArchive(ctx context.Context, id string) (*models.Archive, error) {
	var a models.Archive
	err := p.pool.QueryRow(ctx,
		`SELECT id, provider, status, created_at, updated_at FROM archives WHERE id = $1`, id).
		Scan(&a.ID, &a.Provider, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return &a, nil
}

func (p *Postgres) UpdateArchive(ctx context.Context, a *models.Archive) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := p.pool.Exec(ctx,
		`UPDATE archives SET status = $1, updated_at = $2 WHERE id = $3`,
		a.Status, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update archive: %w", err)
	}
	return nil
}

func (p *Postgres) ListArchives(ctx context.Context, status models.ArchiveStatus) ([]models.Archive, error) {
	query := `SELECT id, provider, status, created_at, updated_at FROM archives`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []models.Archive
	for rows.Next() {
		var a models.Archive
		if err := rows.Scan(&a.ID, &a.Provider, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

func (p *Postgres) CreateTask(ctx context.Context, t *models.EtlTask) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO etl_tasks
			(id, archive_id, provider, interaction_type, source_uri, status,
			 extracted_count, transformed_count, uploaded_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.ArchiveID, t.Provider, t.InteractionType, t.SourceURI, t.Status,
		t.ExtractedCount, t.TransformedCount, t.UploadedCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateTask(ctx context.Context, t *models.EtlTask) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := p.pool.Exec(ctx,
		`UPDATE etl_tasks
		 SET status = $1, extracted_count = $2, transformed_count = $3, uploaded_count = $4, updated_at = $5
		 WHERE id = $6`,
		t.Status, t.ExtractedCount, t.TransformedCount, t.UploadedCount, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (p *Postgres) ListTasks(ctx context.Context, archiveID string) ([]models.EtlTask, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, archive_id, provider, interaction_type, source_uri, status,
			extracted_count, transformed_count, uploaded_count, created_at, updated_at
		 FROM etl_tasks WHERE archive_id = $1 ORDER BY created_at`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.EtlTask
	for rows.Next() {
		var t models.EtlTask
		if err := rows.Scan(&t.ID, &t.ArchiveID, &t.Provider, &t.InteractionType,
			&t.SourceURI, &t.Status, &t.ExtractedCount, &t.TransformedCount,
			&t.UploadedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (p *Postgres) InsertThreads(ctx context.Context, taskID string, rows []models.ThreadRow) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	total := 0
	for _, row := range rows {
		payloadJSON, err := json.Marshal(row.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload %s: %w", row.UniqueKey, err)
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO threads
				(id, unique_key, etl_task_id, provider, interaction_type, preview,
				 payload, asset_uri, source, version, asat, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (unique_key) DO NOTHING`,
			uuid.NewString(), row.UniqueKey, taskID, row.Provider, row.InteractionType,
			row.Preview, payloadJSON, row.AssetURI, row.Source, row.Version,
			row.Asat, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert thread %s: %w", row.UniqueKey, err)
		}
		total += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (p *Postgres) CountThreads(ctx context.Context, archiveID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM threads t
		 JOIN etl_tasks e ON e.id = t.etl_task_id
		 WHERE e.archive_id = $1`, archiveID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return count, nil
}
